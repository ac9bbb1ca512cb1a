package main

import (
	"net/http"

	"github.com/gorilla/mux"

	apperrors "github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/models"
	"github.com/cssbruno/waba-sandbox/internal/phone"
)

type numberRequest struct {
	ID                       string                                 `json:"id"`
	DisplayNumber            *string                                `json:"display_number"`
	WabaID                   *string                                `json:"waba_id"`
	WebhookOverride          *string                                `json:"webhook_override"`
	VerifiedName             *string                                `json:"verified_name"`
	QualityRating            *string                                `json:"quality_rating"`
	AccountMode              *string                                `json:"account_mode"`
	ConversationalAutomation *models.ConversationalAutomationConfig `json:"conversational_automation"`
}

func (req *numberRequest) toParams() phone.UpsertParams {
	params := phone.UpsertParams{
		ID:                       req.ID,
		DisplayNumber:            req.DisplayNumber,
		WabaID:                   req.WabaID,
		WebhookOverride:          req.WebhookOverride,
		VerifiedName:             req.VerifiedName,
		AccountMode:              req.AccountMode,
		ConversationalAutomation: req.ConversationalAutomation,
	}
	if req.QualityRating != nil {
		rating := models.QualityRating(*req.QualityRating)
		params.QualityRating = &rating
	}
	return params
}

func (s *Server) handleUpsertNumber() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req numberRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		number, err := s.deps.Phones.Upsert(req.toParams())
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, number)
	}
}

func (s *Server) handlePatchNumber() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req numberRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		req.ID = mux.Vars(r)["id"]

		if _, err := s.deps.Phones.Get(req.ID); err != nil {
			s.writeError(w, err)
			return
		}

		number, err := s.deps.Phones.Upsert(req.toParams())
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, number)
	}
}

func (s *Server) handleGetNumber() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number, err := s.deps.Phones.Get(mux.Vars(r)["id"])
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, number)
	}
}

func (s *Server) handleListNumbers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		numbers := s.deps.Phones.List()
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"numbers": numbers,
			"total":   len(numbers),
		})
	}
}

func (s *Server) handleGetMessagingLimit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.deps.Limits.State(mux.Vars(r)["id"]))
	}
}

type tierRequest struct {
	Tier string `json:"tier"`
}

func (s *Server) handleSetMessagingTier() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tierRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		id := mux.Vars(r)["id"]
		if err := s.deps.Limits.SetTier(id, models.MessagingTier(req.Tier)); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, s.deps.Limits.State(id))
	}
}

func (s *Server) handleRequestCode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		code, err := s.deps.Phones.RequestCode(id)
		if err != nil {
			s.writeError(w, err)
			return
		}

		// The sandbox hands the code straight back instead of sending an SMS
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":                  id,
			"verification_status": models.VerificationPending,
			"code":                code,
		})
	}
}

type verifyCodeRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleVerifyCode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyCodeRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		id := mux.Vars(r)["id"]
		if err := s.deps.Phones.VerifyCode(id, req.Code); err != nil {
			s.writeError(w, err)
			return
		}

		s.deps.Bus.Publish(models.SandboxEvent{
			Direction: models.DirectionSystem,
			Type:      models.EventPhoneVerified,
			Source:    "api",
			Payload:   map[string]interface{}{"id": id},
		})
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":                  id,
			"verification_status": models.VerificationVerified,
		})
	}
}

type registerRequest struct {
	Pin                    string `json:"pin"`
	DataLocalizationRegion string `json:"data_localization_region"`
}

func (s *Server) handleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		id := mux.Vars(r)["id"]
		number, err := s.deps.Phones.Register(id, req.Pin, req.DataLocalizationRegion)
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.deps.Bus.Publish(models.SandboxEvent{
			Direction: models.DirectionSystem,
			Type:      models.EventPhoneRegistered,
			Source:    "api",
			Payload:   map[string]interface{}{"id": id},
		})
		s.writeJSON(w, http.StatusOK, number)
	}
}

func (s *Server) handleDeregister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		number, err := s.deps.Phones.Deregister(id)
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.deps.Bus.Publish(models.SandboxEvent{
			Direction: models.DirectionSystem,
			Type:      models.EventPhoneDeregistered,
			Source:    "api",
			Payload:   map[string]interface{}{"id": id},
		})
		s.writeJSON(w, http.StatusOK, number)
	}
}

func (s *Server) handleUpsertWaba() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.WabaOverrideConfig
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		if req.WabaID == "" {
			s.writeError(w, apperrors.NewValidationError("waba_id", "waba id is required"))
			return
		}

		waba, err := s.deps.Phones.UpsertWaba(req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, waba)
	}
}

func (s *Server) handleListWabas() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wabas := s.deps.Phones.ListWabas()
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"wabas": wabas,
			"total": len(wabas),
		})
	}
}
