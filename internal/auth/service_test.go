package auth

import (
	"errors"
	"path/filepath"
	"testing"

	"mixtape/internal/config"
	"mixtape/internal/store"
)

func newTestService(t *testing.T, allowRegistration bool) *Service {
	t.Helper()

	userStore, err := store.NewFileStore(filepath.Join(t.TempDir(), "users.json"), nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	svc, err := NewService(&config.AuthConfig{
		SessionDuration:   "1h",
		AllowRegistration: allowRegistration,
	}, userStore)
	if err != nil {
		t.Fatalf("Failed to create auth service: %v", err)
	}
	return svc
}

func TestRegister(t *testing.T) {
	svc := newTestService(t, true)

	t.Run("Success", func(t *testing.T) {
		err := svc.Register("alice", "password123", "Alice", "https://example.com/a.png")
		if err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		err := svc.Register("alice", "other", "Alice", "https://example.com/a.png")
		if !errors.Is(err, store.ErrUserExists) {
			t.Errorf("Expected ErrUserExists, got %v", err)
		}
	})

	t.Run("MissingFields", func(t *testing.T) {
		cases := [][4]string{
			{"", "pw", "Name", "img"},
			{"user", "", "Name", "img"},
			{"user", "pw", "", "img"},
			{"user", "pw", "Name", ""},
		}
		for _, c := range cases {
			err := svc.Register(c[0], c[1], c[2], c[3])
			if !errors.Is(err, ErrMissingFields) {
				t.Errorf("Register(%q, ...) expected ErrMissingFields, got %v", c[0], err)
			}
		}
	})
}

func TestRegistrationDisabled(t *testing.T) {
	svc := newTestService(t, false)

	err := svc.Register("alice", "password123", "Alice", "img")
	if !errors.Is(err, ErrRegistrationDisabled) {
		t.Errorf("Expected ErrRegistrationDisabled, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestService(t, true)
	if err := svc.Register("bob", "secret", "Bob", "img"); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	t.Run("Success", func(t *testing.T) {
		session, err := svc.Login("bob", "secret")
		if err != nil {
			t.Fatalf("Failed to log in: %v", err)
		}
		if session.ID == "" {
			t.Error("Expected a session ID")
		}
		if session.User.Username != "bob" || session.User.FirstName != "Bob" {
			t.Errorf("Session carries wrong user projection: %+v", session.User)
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := svc.Login("bob", "nope")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("UnknownUser", func(t *testing.T) {
		_, err := svc.Login("nobody", "secret")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestLogout(t *testing.T) {
	svc := newTestService(t, true)
	if err := svc.Register("carol", "secret", "Carol", "img"); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	session, err := svc.Login("carol", "secret")
	if err != nil {
		t.Fatalf("Failed to log in: %v", err)
	}

	if _, ok := svc.ValidateSession(session.ID); !ok {
		t.Fatal("Expected session to be valid after login")
	}

	svc.Logout(session.ID)
	if _, ok := svc.ValidateSession(session.ID); ok {
		t.Error("Expected session to be invalid after logout")
	}

	// Logging out again is harmless
	svc.Logout(session.ID)
}
