package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"mixtape/internal/playlist"
	"mixtape/internal/store"
	"mixtape/pkg/models"
)

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		s.respondWithError(w, r, http.StatusUnauthorized, "Not logged in", nil)
		return
	}

	playlists, err := s.playlists.List(user.Username)
	if err != nil {
		s.respondPlaylistError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"playlists": playlists})
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		s.respondWithError(w, r, http.StatusUnauthorized, "Not logged in", nil)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := s.playlists.Create(user.Username, req.Name)
	if err != nil {
		s.respondPlaylistError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"playlist": created})
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request, playlistID string) {
	user, ok := currentUser(r)
	if !ok {
		s.respondWithError(w, r, http.StatusUnauthorized, "Not logged in", nil)
		return
	}

	if err := s.playlists.Remove(user.Username, playlistID); err != nil {
		s.respondPlaylistError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request, playlistID string) {
	user, ok := currentUser(r)
	if !ok {
		s.respondWithError(w, r, http.StatusUnauthorized, "Not logged in", nil)
		return
	}

	var item models.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	added, err := s.playlists.AddItem(user.Username, playlistID, item)
	if err != nil {
		s.respondPlaylistError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"item": added})
}

func (s *Server) handleRateItem(w http.ResponseWriter, r *http.Request, playlistID, itemID string) {
	user, ok := currentUser(r)
	if !ok {
		s.respondWithError(w, r, http.StatusUnauthorized, "Not logged in", nil)
		return
	}

	// The rating may arrive as a JSON number or a quoted string; both are
	// coerced, and garbage falls back to zero.
	var req struct {
		Rating json.RawMessage `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rating := 0
	if len(req.Rating) > 0 {
		var str string
		if err := json.Unmarshal(req.Rating, &str); err == nil {
			rating = playlist.ParseRating(str)
		} else {
			rating = playlist.ParseRating(string(req.Rating))
		}
	}

	if err := s.playlists.Rate(user.Username, playlistID, itemID, rating); err != nil {
		s.respondPlaylistError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request, playlistID, itemID string) {
	user, ok := currentUser(r)
	if !ok {
		s.respondWithError(w, r, http.StatusUnauthorized, "Not logged in", nil)
		return
	}

	if err := s.playlists.RemoveItem(user.Username, playlistID, itemID); err != nil {
		s.respondPlaylistError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// respondPlaylistError maps playlist service errors to HTTP statuses.
func (s *Server) respondPlaylistError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, playlist.ErrEmptyName):
		s.respondWithError(w, r, http.StatusBadRequest, "Playlist name is required", nil)
	case errors.Is(err, playlist.ErrPlaylistNotFound):
		s.respondWithError(w, r, http.StatusNotFound, "Playlist not found", nil)
	case errors.Is(err, playlist.ErrItemNotFound):
		s.respondWithError(w, r, http.StatusNotFound, "Item not found", nil)
	case errors.Is(err, store.ErrUserNotFound):
		// Session outlived the account it belongs to
		s.respondWithError(w, r, http.StatusUnauthorized, "Not logged in", nil)
	default:
		s.respondWithError(w, r, http.StatusInternalServerError, "Internal server error", err)
	}
}
