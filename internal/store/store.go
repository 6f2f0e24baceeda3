package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mixtape/pkg/models"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUserNotFound is returned when the requested username has no record
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when inserting a username that is already taken
	ErrUserExists = errors.New("user already exists")
)

// UserStore is the keyed record store for user accounts. Update is the
// read-modify-write primitive; implementations must serialize concurrent
// updates of the same user.
type UserStore interface {
	Get(username string) (*models.User, error)
	Put(user models.User) error
	Delete(username string) error
	All() ([]models.User, error)
	Update(username string, fn func(*models.User) error) error
}

// FileStore persists all user records as a single pretty-printed JSON
// document so it stays hand-editable. The document is the sole source of
// truth; every mutation rewrites it in full.
type FileStore struct {
	path   string
	logger *logrus.Logger

	mu    sync.RWMutex
	users map[string]*models.User
	order []string // document order, registration order

	lockMu    sync.Mutex
	userLocks map[string]*sync.Mutex

	saveMu   sync.Mutex
	lastSave time.Time

	watcher *fsnotify.Watcher
}

// NewFileStore opens the user document at path, creating an empty one if it
// does not exist yet.
func NewFileStore(path string, logger *logrus.Logger) (*FileStore, error) {
	if logger == nil {
		logger = logrus.New()
	}

	s := &FileStore{
		path:      path,
		logger:    logger,
		users:     make(map[string]*models.User),
		userLocks: make(map[string]*sync.Mutex),
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load user store: %w", err)
	}

	return s, nil
}

// load reads the document from disk, creating an empty one when missing.
func (s *FileStore) load() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.saveLocked()
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read user document: %w", err)
	}

	users, order, err := parseDocument(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.users = users
	s.order = order
	s.mu.Unlock()

	return nil
}

// parseDocument decodes the JSON user array. An empty or truncated-to-empty
// file counts as an empty array.
func parseDocument(data []byte) (map[string]*models.User, []string, error) {
	var list []models.User
	if len(data) > 0 {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, nil, fmt.Errorf("failed to parse user document: %w", err)
		}
	}

	users := make(map[string]*models.User, len(list))
	order := make([]string, 0, len(list))
	for i := range list {
		u := list[i]
		if _, dup := users[u.Username]; dup {
			continue
		}
		users[u.Username] = &u
		order = append(order, u.Username)
	}
	return users, order, nil
}

// saveLocked writes the document back to disk. Caller must hold s.mu.
// The write goes through a temp file and rename so readers never observe
// a partially written document.
func (s *FileStore) saveLocked() error {
	list := make([]models.User, 0, len(s.order))
	for _, username := range s.order {
		if u, ok := s.users[username]; ok {
			list = append(list, *u)
		}
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode user document: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write user document: %w", err)
	}

	s.saveMu.Lock()
	s.lastSave = time.Now()
	s.saveMu.Unlock()

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace user document: %w", err)
	}

	return nil
}

// userLock returns the mutex serializing updates for one username.
func (s *FileStore) userLock(username string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	lock, ok := s.userLocks[username]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[username] = lock
	}
	return lock
}

// Get returns a copy of the user record, or ErrUserNotFound.
func (s *FileStore) Get(username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

// Put inserts a new user record and persists the document.
func (s *FileStore) Put(user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return ErrUserExists
	}

	if user.Playlists == nil {
		user.Playlists = []models.Playlist{}
	}

	s.users[user.Username] = &user
	s.order = append(s.order, user.Username)

	return s.saveLocked()
}

// Delete removes a user record. Removing an absent user is not an error.
func (s *FileStore) Delete(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; !exists {
		return nil
	}

	delete(s.users, username)
	for i, name := range s.order {
		if name == username {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return s.saveLocked()
}

// All returns copies of every user record in document order.
func (s *FileStore) All() ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.User, 0, len(s.order))
	for _, username := range s.order {
		if u, ok := s.users[username]; ok {
			list = append(list, *cloneUser(u))
		}
	}
	return list, nil
}

// Update applies fn to the user's record and persists the result. A mutex
// keyed by username serializes the whole read-modify-write cycle, so two
// concurrent updates of the same user cannot lose each other's changes.
// fn receives a copy; if it returns an error nothing is persisted.
func (s *FileStore) Update(username string, fn func(*models.User) error) error {
	lock := s.userLock(username)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	current, ok := s.users[username]
	var working *models.User
	if ok {
		working = cloneUser(current)
	}
	s.mu.RUnlock()

	if !ok {
		return ErrUserNotFound
	}

	if err := fn(working); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = working
	return s.saveLocked()
}

// cloneUser deep-copies a user so callers can't alias store-internal slices.
func cloneUser(u *models.User) *models.User {
	c := *u
	c.Playlists = make([]models.Playlist, len(u.Playlists))
	for i, p := range u.Playlists {
		cp := p
		cp.Items = append([]models.Item(nil), p.Items...)
		c.Playlists[i] = cp
	}
	return &c
}
