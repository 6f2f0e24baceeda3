package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mixtape/internal/auth"
	"mixtape/internal/config"
	"mixtape/internal/metadata"
	"mixtape/internal/playlist"
	"mixtape/internal/store"
	"mixtape/internal/youtube"

	"github.com/sirupsen/logrus"
)

// Server is the playlist manager HTTP server
type Server struct {
	config      *config.Config
	logger      *logrus.Logger
	userStore   store.UserStore
	authService *auth.Service
	playlists   *playlist.Service
	search      *youtube.Client
	extractor   *metadata.Extractor
	httpServer  *http.Server
}

// NewServer creates a new server instance wired to the given user store
func NewServer(cfg *config.Config, userStore store.UserStore, logger *logrus.Logger) (*Server, error) {
	if logger == nil {
		logger = logrus.New()
	}

	authService, err := auth.NewService(&cfg.Auth, userStore)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	// Make sure the uploads directory exists before the first upload
	if err := os.MkdirAll(cfg.Uploads.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	return &Server{
		config:      cfg,
		logger:      logger,
		userStore:   userStore,
		authService: authService,
		playlists:   playlist.NewService(userStore, logger),
		search:      youtube.NewClient(&cfg.YouTube, logger),
		extractor:   metadata.NewExtractor(logger),
	}, nil
}

// Handler builds the full route table wrapped in the middleware chain.
// Exposed so tests can drive the server through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleHome)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.config.Server.StaticDir))))
	mux.Handle(s.config.Uploads.URLPrefix, http.StripPrefix(s.config.Uploads.URLPrefix, http.FileServer(http.Dir(s.config.Uploads.Dir))))
	mux.HandleFunc("/health", s.handleHealthCheck)

	// Auth routes
	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/logout", s.handleLogout)
	mux.HandleFunc("/api/auth/me", s.handleMe)

	// Search proxy
	mux.HandleFunc("/api/youtube/search", s.handleYouTubeSearch)

	// Playlist routes
	mux.HandleFunc("/api/playlists", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleListPlaylists(w, r)
		case http.MethodPost:
			s.handleCreatePlaylist(w, r)
		default:
			s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
	})
	mux.HandleFunc("/api/playlists/", s.dispatchPlaylistRoute)

	var handler http.Handler = mux
	handler = s.authMiddleware(handler)
	handler = s.corsMiddleware(handler)
	handler = s.requestLoggingMiddleware(handler)
	handler = s.panicRecoveryMiddleware(handler)

	return handler
}

// dispatchPlaylistRoute routes the nested playlist paths:
//
//	POST   /api/playlists/upload/mp3
//	DELETE /api/playlists/{id}
//	POST   /api/playlists/{id}/items
//	PATCH  /api/playlists/{id}/items/{itemId}
//	DELETE /api/playlists/{id}/items/{itemId}
func (s *Server) dispatchPlaylistRoute(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	// parts: ["", "api", "playlists", ...]

	switch {
	case len(parts) == 5 && parts[3] == "upload" && parts[4] == "mp3":
		if r.Method != http.MethodPost {
			s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
			return
		}
		s.handleUploadMP3(w, r)

	case len(parts) == 4:
		if r.Method != http.MethodDelete {
			s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
			return
		}
		s.handleDeletePlaylist(w, r, parts[3])

	case len(parts) == 5 && parts[4] == "items":
		if r.Method != http.MethodPost {
			s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
			return
		}
		s.handleAddItem(w, r, parts[3])

	case len(parts) == 6 && parts[4] == "items":
		switch r.Method {
		case http.MethodPatch:
			s.handleRateItem(w, r, parts[3], parts[5])
		case http.MethodDelete:
			s.handleRemoveItem(w, r, parts[3], parts[5])
		default:
			s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}

	default:
		s.respondWithError(w, r, http.StatusNotFound, "Not found", nil)
	}
}

// handleHome serves the SPA index from the configured static dir.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.respondWithError(w, r, http.StatusNotFound, "Not found", nil)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.config.Server.StaticDir, "index.html"))
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.GetAddress(),
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.config.Server.IdleTimeout) * time.Second,
	}

	s.logger.WithFields(logrus.Fields{
		"address":     s.config.GetAddress(),
		"uploads_dir": s.config.Uploads.Dir,
		"store_path":  s.config.Store.Path,
	}).Info("Mixtape server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("Server shutdown complete")
	return nil
}
