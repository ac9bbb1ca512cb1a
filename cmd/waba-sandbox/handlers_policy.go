package main

import (
	"net/http"

	"github.com/cssbruno/waba-sandbox/internal/models"
	"github.com/cssbruno/waba-sandbox/internal/policy"
)

type policyContactRequest struct {
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	Label      string `json:"label"`
	Note       string `json:"note"`
}

func (s *Server) handleUpsertPolicyContact() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req policyContactRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		contact, err := s.deps.Policies.Upsert(policy.UpsertParams{
			ExternalID: req.ExternalID,
			Status:     models.PolicyStatus(req.Status),
			Label:      req.Label,
			Note:       req.Note,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, contact)
	}
}

func (s *Server) handleListPolicyContacts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contacts := s.deps.Policies.List()
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"contacts": contacts,
			"total":    len(contacts),
		})
	}
}
