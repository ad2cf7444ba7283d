package handlers

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
	Sessions  int    `json:"sessions"`
}

// HealthHandler reports liveness and the number of live sessions.
func HealthHandler(s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(s.started).Round(time.Second).String(),
			Sessions:  s.Registry.Count(),
		})
	}
}
