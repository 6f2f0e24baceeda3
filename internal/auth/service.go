package auth

import (
	"errors"
	"fmt"
	"time"

	"mixtape/internal/config"
	"mixtape/internal/store"
	"mixtape/pkg/models"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is fixed at 10 so password hashes in existing user documents
// stay verifiable.
const bcryptCost = 10

var (
	// ErrMissingFields is returned when a registration field is empty
	ErrMissingFields = errors.New("missing fields")
	// ErrInvalidCredentials is returned on unknown user or wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRegistrationDisabled is returned when registration is turned off
	ErrRegistrationDisabled = errors.New("registration is disabled")
)

// Service provides registration, login and session handling on top of the
// user store.
type Service struct {
	config         *config.AuthConfig
	store          store.UserStore
	sessionManager *SessionManager
}

// NewService creates a new authentication service
func NewService(cfg *config.AuthConfig, userStore store.UserStore) (*Service, error) {
	duration, err := time.ParseDuration(cfg.SessionDuration)
	if err != nil {
		return nil, fmt.Errorf("invalid session duration: %w", err)
	}

	return &Service{
		config:         cfg,
		store:          userStore,
		sessionManager: NewSessionManager(duration, cfg.SecureCookies),
	}, nil
}

// Register creates a new user account with an empty playlist list.
// Fails with ErrMissingFields on any empty field and store.ErrUserExists
// on a duplicate username.
func (s *Service) Register(username, password, firstName, imageURL string) error {
	if !s.config.AllowRegistration {
		return ErrRegistrationDisabled
	}

	if username == "" || password == "" || firstName == "" || imageURL == "" {
		return ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		PasswordHash: string(hash),
		FirstName:    firstName,
		ImageURL:     imageURL,
		Playlists:    []models.Playlist{},
	}

	return s.store.Put(user)
}

// Login verifies the credentials and establishes a session holding the
// user's public projection. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(username, password string) (*Session, error) {
	user, err := s.store.Get(username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	session, err := s.sessionManager.CreateSession(user.Public())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Logout invalidates a session. Unknown IDs are ignored, so the operation
// is idempotent.
func (s *Service) Logout(sessionID string) {
	s.sessionManager.DeleteSession(sessionID)
}

// ValidateSession checks if a session ID is valid
func (s *Service) ValidateSession(sessionID string) (*Session, bool) {
	return s.sessionManager.GetSession(sessionID)
}

// SessionManager returns the session manager (for middleware and cookies)
func (s *Service) SessionManager() *SessionManager {
	return s.sessionManager
}
