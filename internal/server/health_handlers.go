package server

import (
	"net/http"
	"os"
	"time"
)

// handleHealthCheck reports server health plus a few useful counters.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	status := "ok"

	users, err := s.userStore.All()
	if err != nil {
		status = "degraded"
	}

	if _, err := os.Stat(s.config.Uploads.Dir); err != nil {
		status = "degraded"
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"users":     len(users),
		"sessions":  s.authService.SessionManager().Count(),
	})
}
