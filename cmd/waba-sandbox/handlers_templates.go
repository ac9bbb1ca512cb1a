package main

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/cssbruno/waba-sandbox/internal/models"
	"github.com/cssbruno/waba-sandbox/internal/template"
)

type createTemplateRequest struct {
	Name         string                     `json:"name"`
	LanguageCode string                     `json:"language_code"`
	Category     string                     `json:"category"`
	WabaID       string                     `json:"waba_id"`
	BodyText     string                     `json:"body_text"`
	HeaderText   string                     `json:"header_text"`
	FooterText   string                     `json:"footer_text"`
	Components   []models.TemplateComponent `json:"components"`
}

func (s *Server) handleCreateTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTemplateRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		created, err := s.deps.Templates.Create(template.CreateParams{
			Name:         req.Name,
			LanguageCode: req.LanguageCode,
			Category:     req.Category,
			WabaID:       req.WabaID,
			BodyText:     req.BodyText,
			HeaderText:   req.HeaderText,
			FooterText:   req.FooterText,
			Components:   req.Components,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.deps.Bus.Publish(models.SandboxEvent{
			Direction: models.DirectionSystem,
			Type:      models.EventTemplateCreated,
			Source:    "api",
			Payload:   map[string]interface{}{"id": created.ID, "name": created.Name},
		})
		s.writeJSON(w, http.StatusCreated, created)
	}
}

func (s *Server) handleGetTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		found, err := s.deps.Templates.Get(mux.Vars(r)["id"])
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, found)
	}
}

type updateTemplateRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

func (s *Server) handleUpdateTemplateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateTemplateRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		updated, err := s.deps.Templates.UpdateStatus(template.UpdateStatusParams{
			ID:     mux.Vars(r)["id"],
			Status: models.TemplateStatus(req.Status),
			Reason: models.RejectionReason(req.Reason),
			Note:   req.Note,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.deps.Bus.Publish(models.SandboxEvent{
			Direction: models.DirectionSystem,
			Type:      models.EventTemplateUpdated,
			Source:    "api",
			Payload:   map[string]interface{}{"id": updated.ID, "status": updated.Status},
		})
		s.writeJSON(w, http.StatusOK, updated)
	}
}

func (s *Server) handleDeleteTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if err := s.deps.Templates.Delete(id); err != nil {
			s.writeError(w, err)
			return
		}

		s.deps.Bus.Publish(models.SandboxEvent{
			Direction: models.DirectionSystem,
			Type:      models.EventTemplateDeleted,
			Source:    "api",
			Payload:   map[string]interface{}{"id": id},
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListTemplates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		filter := models.TemplateFilter{
			Name:         query.Get("name"),
			LanguageCode: query.Get("language"),
			Search:       query.Get("search"),
		}
		for _, status := range splitParam(query.Get("status")) {
			filter.Statuses = append(filter.Statuses, models.TemplateStatus(status))
		}
		filter.Categories = splitParam(query.Get("category"))
		for _, reason := range splitParam(query.Get("rejection_reason")) {
			filter.RejectionReasons = append(filter.RejectionReasons, models.RejectionReason(reason))
		}

		page, err := s.deps.Templates.List(template.ListParams{
			Filter:    filter,
			Ascending: query.Get("order") == "asc",
			Limit:     queryLimit(r, 25),
			Before:    query.Get("before"),
			After:     query.Get("after"),
		})
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, page)
	}
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
