package main

import (
	"net/http"
	"time"

	apperrors "github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/models"
)

type sendRequest struct {
	NumberID     string  `json:"number_id"`
	To           string  `json:"to"`
	Category     string  `json:"category"`
	TemplateName string  `json:"template_name"`
	LanguageCode string  `json:"language_code"`
	Body         string  `json:"body"`
	ScheduledFor *string `json:"scheduled_for"`
}

func (s *Server) handleSend() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		params := models.SendParams{
			NumberID:     req.NumberID,
			Recipient:    req.To,
			Category:     models.MessageCategory(req.Category),
			TemplateName: req.TemplateName,
			LanguageCode: req.LanguageCode,
			Body:         req.Body,
		}
		if req.ScheduledFor != nil {
			at, err := time.Parse(time.RFC3339, *req.ScheduledFor)
			if err != nil {
				s.writeError(w, apperrors.NewValidationError("scheduled_for", "must be an RFC 3339 timestamp"))
				return
			}
			params.ScheduledFor = &at
		}

		decision, err := s.deps.Sandbox.SimulateSend(r.Context(), params)
		if err != nil {
			s.writeError(w, err)
			return
		}

		status := http.StatusOK
		if !decision.Accepted {
			status = apperrors.HTTPStatusCode(apperrors.New(apperrors.ErrorCode(decision.Rejection.Code), decision.Rejection.Message))
		}
		s.writeJSON(w, status, decision)
	}
}

type webhookTestRequest struct {
	PhoneID string `json:"phone_id"`
	WabaID  string `json:"waba_id"`
	From    string `json:"from"`
	Body    string `json:"body"`
}

func (s *Server) handleWebhookTest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req webhookTestRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		if req.PhoneID == "" && req.WabaID == "" {
			s.writeError(w, apperrors.NewValidationError("phone_id", "phone_id or waba_id is required"))
			return
		}

		target, err := s.deps.Sandbox.SendTestEvent(r.Context(), req.PhoneID, req.WabaID, req.From, req.Body)
		if err != nil {
			if target != nil {
				// Target resolved but delivery failed; report both
				s.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
					"target": target,
					"error":  apperrors.ToHTTPResponse(err).Error,
				})
				return
			}
			s.writeError(w, err)
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]interface{}{"target": target, "delivered": true})
	}
}
