package main

import (
	"encoding/json"
	"net/http"

	"inboxd/internal/metrics"
	"inboxd/internal/tracing"

	"github.com/sirupsen/logrus"
)

// handleMetrics serves the in-memory metrics registry as JSON.
func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		if err := encoder.Encode(metrics.Snapshot()); err != nil {
			s.logger.WithFields(logrus.Fields{
				"request_id": tracing.GetRequestID(r.Context()),
				"error":      err,
			}).Error("Failed to encode metrics response")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}
