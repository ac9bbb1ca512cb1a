package main

import (
	"encoding/json"
	"net/http"

	"github.com/cssbruno/waba-sandbox/internal/metrics"
)

// handleMetrics serves the in-memory registry as indented JSON
func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(metrics.GetAllMetrics()); err != nil {
			s.logger.Warnf("Failed to encode metrics response: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}
