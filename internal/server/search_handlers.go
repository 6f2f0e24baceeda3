package server

import (
	"net/http"
)

// handleYouTubeSearch proxies a search query to the YouTube Data API and
// returns merged snippet and statistics results.
func (s *Server) handleYouTubeSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if _, ok := currentUser(r); !ok {
		s.respondWithError(w, r, http.StatusUnauthorized, "Not logged in", nil)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		s.respondWithError(w, r, http.StatusBadRequest, "Missing query parameter", nil)
		return
	}

	results, err := s.search.Search(r.Context(), query)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "YouTube search failed", err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": results,
	})
}
