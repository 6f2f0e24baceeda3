package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"mixtape/internal/auth"
	"mixtape/internal/store"
)

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	ImageURL  string `json:"imageUrl"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := s.authService.Register(req.Username, req.Password, req.FirstName, req.ImageURL)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrMissingFields):
		s.respondWithError(w, r, http.StatusBadRequest, "Missing fields", nil)
		return
	case errors.Is(err, store.ErrUserExists):
		s.respondWithError(w, r, http.StatusConflict, "User already exists", nil)
		return
	case errors.Is(err, auth.ErrRegistrationDisabled):
		s.respondWithError(w, r, http.StatusForbidden, "Registration is disabled", nil)
		return
	default:
		s.respondWithError(w, r, http.StatusInternalServerError, "Failed to register user", err)
		return
	}

	s.logger.WithField("username", req.Username).Info("User registered")
	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	session, err := s.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.respondWithError(w, r, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		s.respondWithError(w, r, http.StatusInternalServerError, "Failed to log in", err)
		return
	}

	s.authService.SessionManager().SetSessionCookie(w, session)

	s.logger.WithField("username", req.Username).Info("User logged in")
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"user": session.User,
	})
}

// handleLogout destroys the current session if one exists. Logging out
// without a valid session is not an error.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	sm := s.authService.SessionManager()
	if session, ok := sm.GetSessionFromRequest(r); ok {
		s.authService.Logout(session.ID)
		s.logger.WithField("username", session.User.Username).Info("User logged out")
	}
	sm.ClearSessionCookie(w)

	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	session, ok := s.authService.SessionManager().GetSessionFromRequest(r)
	if !ok {
		s.respondWithError(w, r, http.StatusUnauthorized, "Not logged in", nil)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"user": session.User})
}
