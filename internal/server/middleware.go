package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"mixtape/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey string

const userContextKey contextKey = "user"

// currentUser returns the authenticated user the auth middleware stored
// on the request context.
func currentUser(r *http.Request) (models.PublicUser, bool) {
	user, ok := r.Context().Value(userContextKey).(models.PublicUser)
	return user, ok
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLoggingMiddleware logs every request with a generated request id
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.config.Logging.RequestLogging {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rw.statusCode,
			"duration":   time.Since(start).String(),
			"remote":     r.RemoteAddr,
		}).Info("HTTP request")
	})
}

// corsMiddleware adds CORS headers when enabled in the config
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.Server.EnableCORS {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// panicRecoveryMiddleware recovers from handler panics and returns a 500
func (s *Server) panicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.WithFields(logrus.Fields{
					"panic": err,
					"path":  r.URL.Path,
				}).Error("Panic in HTTP handler")
				s.respondWithError(w, r, http.StatusInternalServerError, "Internal server error", nil)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// authMiddleware resolves the session cookie and attaches the user to the
// request context. Requests to protected paths without a valid session are
// rejected with 401. The auth endpoints handle their own session state, so
// they pass through unguarded, as do the static and upload file routes.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		sm := s.authService.SessionManager()
		session, ok := sm.GetSessionFromRequest(r)
		if !ok {
			s.respondWithError(w, r, http.StatusUnauthorized, "Not logged in", nil)
			return
		}

		// Sliding expiration: active sessions stay alive, and the cookie
		// is re-issued so the browser's expiry follows the server's
		if refreshed, ok := sm.RefreshSession(session.ID); ok {
			sm.SetSessionCookie(w, refreshed)
		}

		ctx := context.WithValue(r.Context(), userContextKey, session.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Only the API is guarded; static assets, uploads and the auth endpoints
// themselves stay public.
func (s *Server) isPublicPath(path string) bool {
	if !strings.HasPrefix(path, "/api/") {
		return true
	}
	return strings.HasPrefix(path, "/api/auth/")
}
