package store

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch starts monitoring the user document for external edits and reloads
// it when one happens. Manual edits are the only way to remove an account,
// so a running server has to pick them up without a restart.
func (s *FileStore) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory, not the file: saves replace the file by rename
	// and a watch on the old inode would go stale.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch store directory: %w", err)
	}

	go s.watchEvents()

	s.logger.WithField("path", s.path).Info("User store watcher started")
	return nil
}

// watchEvents selects on watcher channels and reloads on external changes.
func (s *FileStore) watchEvents() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.WithError(err).Error("User store watcher error")
		}
	}
}

// handleEvent reloads the document on writes that we did not cause ourselves.
func (s *FileStore) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(s.path) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	// Skip the events generated by our own save.
	s.saveMu.Lock()
	selfWrite := time.Since(s.lastSave) < 500*time.Millisecond
	s.saveMu.Unlock()
	if selfWrite {
		return
	}

	// Give the editor a moment to finish writing.
	time.Sleep(100 * time.Millisecond)

	if err := s.load(); err != nil {
		s.logger.WithError(err).Error("Failed to reload user store after external edit")
		return
	}

	s.logger.WithField("path", s.path).Info("User store reloaded after external edit")
}

// Close stops the watcher if one is running (idempotent).
func (s *FileStore) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}
