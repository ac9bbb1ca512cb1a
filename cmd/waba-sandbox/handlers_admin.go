package main

import (
	"net/http"

	"github.com/cssbruno/waba-sandbox/internal/config"
	apperrors "github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/models"
)

// settingsView is the admin representation of the runtime settings. The
// webhook secret never leaves the process; only its presence is reported.
type settingsView struct {
	Webhook struct {
		DefaultURL string `json:"default_url"`
		SecretSet  bool   `json:"secret_set"`
		TimeoutSec int    `json:"timeout_sec"`
	} `json:"webhook"`
	Marketing models.MarketingConfig `json:"marketing"`
}

func (s *Server) settingsView() settingsView {
	var view settingsView
	webhook := s.deps.Runtime.WebhookConfig()
	view.Webhook.DefaultURL = webhook.DefaultURL
	view.Webhook.SecretSet = webhook.Secret != ""
	view.Webhook.TimeoutSec = webhook.TimeoutSec
	view.Marketing = s.deps.Runtime.MarketingConfig()
	return view
}

func (s *Server) handleGetSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.settingsView())
	}
}

// asValidationError coerces plain config errors to the 400 mapping;
// AppErrors pass through untouched
func asValidationError(err error) error {
	if _, ok := err.(*apperrors.AppError); ok {
		return err
	}
	return apperrors.New(apperrors.ErrCodeValidationFailed, err.Error())
}

type patchSettingsRequest struct {
	Webhook *struct {
		DefaultURL *string `json:"default_url"`
		Secret     *string `json:"secret"`
	} `json:"webhook"`
	Marketing *struct {
		WindowHours       *int  `json:"window_hours"`
		MaxSendsPerWindow *int  `json:"max_sends_per_window"`
		RequireOptIn      *bool `json:"require_opt_in"`
	} `json:"marketing"`
}

func (s *Server) handlePatchSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req patchSettingsRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		if req.Webhook != nil {
			_, err := s.deps.Runtime.UpdateWebhook(config.UpdateWebhookParams{
				DefaultURL: req.Webhook.DefaultURL,
				Secret:     req.Webhook.Secret,
			})
			if err != nil {
				s.writeError(w, asValidationError(err))
				return
			}
		}
		if req.Marketing != nil {
			_, err := s.deps.Runtime.UpdateMarketing(config.UpdateMarketingParams{
				WindowHours:       req.Marketing.WindowHours,
				MaxSendsPerWindow: req.Marketing.MaxSendsPerWindow,
				RequireOptIn:      req.Marketing.RequireOptIn,
			})
			if err != nil {
				s.writeError(w, asValidationError(err))
				return
			}
		}

		view := s.settingsView()
		s.deps.Bus.Publish(models.SandboxEvent{
			Direction: models.DirectionSystem,
			Type:      models.EventSettingsUpdated,
			Source:    "api",
			Payload:   view,
		})
		s.writeJSON(w, http.StatusOK, view)
	}
}
