package server

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// respondJSON writes a JSON response with the given status code
func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.WithError(err).Error("Failed to encode JSON response")
		}
	}
}

// respondWithError writes an error response as {"error": message} and logs
// server-side failures with their underlying cause.
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	entry := s.logger.WithFields(logrus.Fields{
		"status": status,
		"method": r.Method,
		"path":   r.URL.Path,
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	if status >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Debug(message)
	}

	s.respondJSON(w, status, map[string]string{"error": message})
}
