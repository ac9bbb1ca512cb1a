package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/cssbruno/waba-sandbox/internal/config"
	apperrors "github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/eventbus"
	"github.com/cssbruno/waba-sandbox/internal/limits"
	"github.com/cssbruno/waba-sandbox/internal/marketing"
	"github.com/cssbruno/waba-sandbox/internal/middleware"
	"github.com/cssbruno/waba-sandbox/internal/models"
	"github.com/cssbruno/waba-sandbox/internal/phone"
	"github.com/cssbruno/waba-sandbox/internal/policy"
	"github.com/cssbruno/waba-sandbox/internal/service"
	"github.com/cssbruno/waba-sandbox/internal/template"
)

// ServerDeps carries the wired core the handlers operate on
type ServerDeps struct {
	Sandbox   *service.Sandbox
	Policies  *policy.Store
	Marketing *marketing.Store
	Limits    *limits.Tracker
	Phones    *phone.Store
	Templates *template.Store
	Runtime   *config.Runtime
	Bus       *eventbus.Bus
}

type Server struct {
	router  *mux.Router
	logger  *logrus.Logger
	cfg     *models.Config
	deps    *ServerDeps
	limiter *RateLimiter
	server  *http.Server
}

func NewServer(cfg *models.Config, deps *ServerDeps, logger *logrus.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
		cfg:    cfg,
		deps:   deps,
		limiter: NewRateLimiter(cfg.Server.RateLimitRequests,
			time.Duration(cfg.Server.RateLimitWindowSec)*time.Second),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))
	s.router.Use(s.rateLimitMiddleware)

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/send", s.handleSend()).Methods(http.MethodPost)

	v1.HandleFunc("/policy/contacts", s.handleListPolicyContacts()).Methods(http.MethodGet)
	v1.HandleFunc("/policy/contacts", s.handleUpsertPolicyContact()).Methods(http.MethodPost)

	v1.HandleFunc("/marketing/contacts", s.handleListMarketingContacts()).Methods(http.MethodGet)
	v1.HandleFunc("/marketing/contacts", s.handleUpsertMarketingContact()).Methods(http.MethodPost)
	v1.HandleFunc("/marketing/sends", s.handleListMarketingSends()).Methods(http.MethodGet)
	v1.HandleFunc("/marketing/conversions", s.handleRecordConversion()).Methods(http.MethodPost)
	v1.HandleFunc("/marketing/conversions", s.handleListConversions()).Methods(http.MethodGet)

	v1.HandleFunc("/numbers", s.handleListNumbers()).Methods(http.MethodGet)
	v1.HandleFunc("/numbers", s.handleUpsertNumber()).Methods(http.MethodPost)
	v1.HandleFunc("/numbers/{id}/messaging-limit", s.handleGetMessagingLimit()).Methods(http.MethodGet)
	v1.HandleFunc("/numbers/{id}/messaging-limit", s.handleSetMessagingTier()).Methods(http.MethodPatch)
	v1.HandleFunc("/numbers/{id}/request-code", s.handleRequestCode()).Methods(http.MethodPost)
	v1.HandleFunc("/numbers/{id}/verify-code", s.handleVerifyCode()).Methods(http.MethodPost)
	v1.HandleFunc("/numbers/{id}/register", s.handleRegister()).Methods(http.MethodPost)
	v1.HandleFunc("/numbers/{id}/deregister", s.handleDeregister()).Methods(http.MethodPost)
	v1.HandleFunc("/numbers/{id}", s.handleGetNumber()).Methods(http.MethodGet)
	v1.HandleFunc("/numbers/{id}", s.handlePatchNumber()).Methods(http.MethodPatch)

	v1.HandleFunc("/wabas", s.handleListWabas()).Methods(http.MethodGet)
	v1.HandleFunc("/wabas", s.handleUpsertWaba()).Methods(http.MethodPost)

	v1.HandleFunc("/templates", s.handleCreateTemplate()).Methods(http.MethodPost)
	v1.HandleFunc("/templates", s.handleListTemplates()).Methods(http.MethodGet)
	v1.HandleFunc("/templates/{id}", s.handleGetTemplate()).Methods(http.MethodGet)
	v1.HandleFunc("/templates/{id}", s.handleUpdateTemplateStatus()).Methods(http.MethodPatch)
	v1.HandleFunc("/templates/{id}", s.handleDeleteTemplate()).Methods(http.MethodDelete)

	v1.HandleFunc("/events", s.handleListEvents()).Methods(http.MethodGet)
	v1.HandleFunc("/events/stream", s.handleEventStream()).Methods(http.MethodGet)

	v1.HandleFunc("/webhook/test", s.handleWebhookTest()).Methods(http.MethodPost)

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.Use(s.adminAuthMiddleware)
	admin.HandleFunc("/settings", s.handleGetSettings()).Methods(http.MethodGet)
	admin.HandleFunc("/settings", s.handlePatchSettings()).Methods(http.MethodPatch)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"version": Version,
			"time":    time.Now().UTC(),
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warnf("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, apperrors.HTTPStatusCode(err), apperrors.ToHTTPResponse(err))
}

// decodeJSON parses a request body, refusing unknown fields so typos
// surface as 400s instead of silent no-ops
func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperrors.New(apperrors.ErrCodeValidationFailed, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
