package main

import (
	"net/http"
	"strconv"

	"github.com/cssbruno/waba-sandbox/internal/marketing"
	"github.com/cssbruno/waba-sandbox/internal/models"
)

type marketingContactRequest struct {
	ExternalID string `json:"external_id"`
	Status     string `json:"opt_in_status"`
	Source     string `json:"source"`
	Note       string `json:"note"`
}

func (s *Server) handleUpsertMarketingContact() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req marketingContactRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		contact, err := s.deps.Marketing.UpsertContact(marketing.UpsertContactParams{
			ExternalID: req.ExternalID,
			Status:     models.OptInStatus(req.Status),
			Source:     req.Source,
			Note:       req.Note,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, contact)
	}
}

func (s *Server) handleListMarketingContacts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contacts := s.deps.Marketing.ListContacts()
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"contacts": contacts,
			"total":    len(contacts),
		})
	}
}

func (s *Server) handleListMarketingSends() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sends := s.deps.Marketing.ListSends(queryLimit(r, 50))
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"sends": sends,
			"total": len(sends),
		})
	}
}

type conversionRequest struct {
	Recipient string                 `json:"recipient"`
	SendID    string                 `json:"send_id"`
	EventName string                 `json:"event_name"`
	Value     float64                `json:"value"`
	Currency  string                 `json:"currency"`
	Metadata  map[string]interface{} `json:"metadata"`
}

func (s *Server) handleRecordConversion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req conversionRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		event, err := s.deps.Marketing.RecordConversion(marketing.RecordConversionParams{
			Recipient: req.Recipient,
			SendID:    req.SendID,
			EventName: req.EventName,
			Value:     req.Value,
			Currency:  req.Currency,
			Metadata:  req.Metadata,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.deps.Bus.Publish(models.SandboxEvent{
			Direction: models.DirectionInbound,
			Type:      models.EventConversion,
			Source:    "api",
			Payload:   event,
		})
		s.writeJSON(w, http.StatusCreated, event)
	}
}

func (s *Server) handleListConversions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversions := s.deps.Marketing.ListConversions(queryLimit(r, 50))
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"conversions": conversions,
			"total":       len(conversions),
		})
	}
}

// queryLimit parses ?limit=, falling back on absent or unusable values
func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
