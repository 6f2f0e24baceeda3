package auth

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mixtape/pkg/models"
)

func TestSessionManager(t *testing.T) {
	sm := NewSessionManager(time.Hour, false)
	user := models.PublicUser{Username: "alice", FirstName: "Alice"}

	t.Run("CreateAndGet", func(t *testing.T) {
		session, err := sm.CreateSession(user)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 64 {
			t.Errorf("Expected 64-char hex session ID, got %d chars", len(session.ID))
		}

		got, ok := sm.GetSession(session.ID)
		if !ok {
			t.Fatal("Expected to find session")
		}
		if got.User.Username != "alice" {
			t.Errorf("Expected username alice, got %s", got.User.Username)
		}
	})

	t.Run("UnknownID", func(t *testing.T) {
		if _, ok := sm.GetSession("bogus"); ok {
			t.Error("Expected unknown session ID to miss")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		session, _ := sm.CreateSession(user)
		sm.DeleteSession(session.ID)
		if _, ok := sm.GetSession(session.ID); ok {
			t.Error("Expected session to be gone after delete")
		}
	})

	t.Run("DeleteUserSessions", func(t *testing.T) {
		s1, _ := sm.CreateSession(user)
		s2, _ := sm.CreateSession(user)
		other, _ := sm.CreateSession(models.PublicUser{Username: "bob"})

		sm.DeleteUserSessions("alice")

		if _, ok := sm.GetSession(s1.ID); ok {
			t.Error("Expected alice's first session to be gone")
		}
		if _, ok := sm.GetSession(s2.ID); ok {
			t.Error("Expected alice's second session to be gone")
		}
		if _, ok := sm.GetSession(other.ID); !ok {
			t.Error("Expected bob's session to survive")
		}
	})
}

func TestRefreshSessionSlidesExpiry(t *testing.T) {
	sm := NewSessionManager(time.Hour, false)

	session, err := sm.CreateSession(models.PublicUser{Username: "alice"})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	refreshed, ok := sm.RefreshSession(session.ID)
	if !ok {
		t.Fatal("Expected refresh to succeed")
	}
	if !refreshed.ExpiresAt.After(session.ExpiresAt) {
		t.Errorf("Expected refreshed expiry after %v, got %v", session.ExpiresAt, refreshed.ExpiresAt)
	}

	if _, ok := sm.RefreshSession("bogus"); ok {
		t.Error("Expected refresh of unknown session to fail")
	}
}

func TestGetSessionReturnsCopy(t *testing.T) {
	sm := NewSessionManager(time.Hour, false)

	session, err := sm.CreateSession(models.PublicUser{Username: "alice"})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	got, ok := sm.GetSession(session.ID)
	if !ok {
		t.Fatal("Expected to find session")
	}
	got.ExpiresAt = time.Now().Add(-time.Hour)
	got.User.Username = "mallory"

	again, ok := sm.GetSession(session.ID)
	if !ok {
		t.Fatal("Mutating a returned session leaked into the manager")
	}
	if again.User.Username != "alice" {
		t.Errorf("Expected stored user untouched, got %s", again.User.Username)
	}
}

// Readers resolving a session while other requests refresh it must never
// share memory; run with -race.
func TestConcurrentGetAndRefresh(t *testing.T) {
	sm := NewSessionManager(time.Hour, false)

	session, err := sm.CreateSession(models.PublicUser{Username: "alice"})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if _, ok := sm.GetSession(session.ID); !ok {
					t.Error("Expected session to stay valid")
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if _, ok := sm.RefreshSession(session.ID); !ok {
					t.Error("Expected refresh to succeed")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSessionExpiry(t *testing.T) {
	sm := NewSessionManager(10*time.Millisecond, false)

	session, err := sm.CreateSession(models.PublicUser{Username: "alice"})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if _, ok := sm.GetSession(session.ID); ok {
		t.Error("Expected session to be expired")
	}
}

func TestSessionCookies(t *testing.T) {
	sm := NewSessionManager(time.Hour, false)
	session, err := sm.CreateSession(models.PublicUser{Username: "alice"})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	rec := httptest.NewRecorder()
	sm.SetSessionCookie(rec, session)

	resp := rec.Result()
	cookies := resp.Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Expected 1 cookie, got %d", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != "mixtape_session" {
		t.Errorf("Expected cookie name mixtape_session, got %s", cookie.Name)
	}
	if !cookie.HttpOnly {
		t.Error("Expected HttpOnly cookie")
	}

	// Round-trip through a request
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	got, ok := sm.GetSessionFromRequest(req)
	if !ok {
		t.Fatal("Expected to resolve session from request cookie")
	}
	if got.ID != session.ID {
		t.Error("Resolved wrong session")
	}

	// Clearing replaces the cookie with an expired one
	rec = httptest.NewRecorder()
	sm.ClearSessionCookie(rec)
	cleared := rec.Result().Cookies()
	if len(cleared) != 1 {
		t.Fatalf("Expected 1 cookie after clear, got %d", len(cleared))
	}
	if cleared[0].Value != "" || !cleared[0].Expires.Before(time.Now()) {
		t.Error("Expected cleared cookie to be empty and expired")
	}
}
