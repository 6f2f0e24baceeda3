package playlist

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"mixtape/internal/store"
	"mixtape/pkg/models"

	"github.com/sirupsen/logrus"
)

var (
	// ErrPlaylistNotFound is returned when the playlist ID matches nothing
	ErrPlaylistNotFound = errors.New("playlist not found")
	// ErrItemNotFound is returned when the item ID matches nothing
	ErrItemNotFound = errors.New("item not found")
	// ErrEmptyName is returned when creating a playlist without a name
	ErrEmptyName = errors.New("playlist name is required")
)

// Service implements playlist CRUD nested inside user records. Every
// mutation goes through store.Update so concurrent requests against the
// same user are serialized.
type Service struct {
	store  store.UserStore
	logger *logrus.Logger
}

// NewService creates a new playlist service
func NewService(userStore store.UserStore, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		store:  userStore,
		logger: logger,
	}
}

// List returns all playlists owned by the user. Never returns nil.
func (s *Service) List(username string) ([]models.Playlist, error) {
	user, err := s.store.Get(username)
	if err != nil {
		return nil, err
	}
	if user.Playlists == nil {
		return []models.Playlist{}, nil
	}
	return user.Playlists, nil
}

// Create appends a new empty playlist and returns it.
func (s *Service) Create(username, name string) (*models.Playlist, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	pl := models.Playlist{
		ID:        newID("pl"),
		Name:      name,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Items:     []models.Item{},
	}

	err := s.store.Update(username, func(u *models.User) error {
		u.Playlists = append(u.Playlists, pl)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"username":    username,
		"playlist_id": pl.ID,
		"name":        name,
	}).Info("Playlist created")

	return &pl, nil
}

// Remove deletes the playlist with the given ID. Removing an absent
// playlist succeeds.
func (s *Service) Remove(username, playlistID string) error {
	return s.store.Update(username, func(u *models.User) error {
		kept := u.Playlists[:0]
		for _, p := range u.Playlists {
			if p.ID != playlistID {
				kept = append(kept, p)
			}
		}
		u.Playlists = kept
		return nil
	})
}

// AddItem appends an item to a playlist. The caller-supplied type-specific
// fields are kept verbatim; the ID and rating are always regenerated.
func (s *Service) AddItem(username, playlistID string, item models.Item) (*models.Item, error) {
	item.ItemID = newID("it")
	item.Rating = 0

	err := s.store.Update(username, func(u *models.User) error {
		pl := findPlaylist(u, playlistID)
		if pl == nil {
			return ErrPlaylistNotFound
		}
		pl.Items = append(pl.Items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// Rate sets an item's rating. Absent playlists or items report a typed
// not-found instead of faulting.
func (s *Service) Rate(username, playlistID, itemID string, rating int) error {
	return s.store.Update(username, func(u *models.User) error {
		pl := findPlaylist(u, playlistID)
		if pl == nil {
			return ErrPlaylistNotFound
		}
		for i := range pl.Items {
			if pl.Items[i].ItemID == itemID {
				pl.Items[i].Rating = rating
				return nil
			}
		}
		return ErrItemNotFound
	})
}

// RemoveItem filters an item out of a playlist. Removing an absent item
// succeeds; an absent playlist is a not-found.
func (s *Service) RemoveItem(username, playlistID, itemID string) error {
	return s.store.Update(username, func(u *models.User) error {
		pl := findPlaylist(u, playlistID)
		if pl == nil {
			return ErrPlaylistNotFound
		}
		kept := pl.Items[:0]
		for _, it := range pl.Items {
			if it.ItemID != itemID {
				kept = append(kept, it)
			}
		}
		pl.Items = kept
		return nil
	})
}

// findPlaylist returns a pointer into the user's playlist slice, or nil.
func findPlaylist(u *models.User, playlistID string) *models.Playlist {
	for i := range u.Playlists {
		if u.Playlists[i].ID == playlistID {
			return &u.Playlists[i]
		}
	}
	return nil
}

// ParseRating coerces a caller-supplied rating to its numeric value,
// defaulting to 0 on anything non-numeric. "7" parses to 7, "abc" to 0.
func ParseRating(raw string) int {
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return 0
}

// ID generation: timestamp-derived opaque IDs with a monotonic guard so
// two IDs minted in the same millisecond stay distinct.
var (
	idMu   sync.Mutex
	lastID int64
)

func newID(prefix string) string {
	idMu.Lock()
	defer idMu.Unlock()

	now := time.Now().UnixMilli()
	if now <= lastID {
		now = lastID + 1
	}
	lastID = now

	return fmt.Sprintf("%s-%d", prefix, now)
}
