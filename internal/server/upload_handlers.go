package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// unsafeFilenameChars matches everything that is not kept verbatim in a
// stored upload filename.
var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Timestamp prefix for stored names, with a monotonic guard so two uploads
// landing in the same millisecond cannot overwrite each other.
var (
	uploadStampMu sync.Mutex
	lastStamp     int64
)

func uploadStamp() int64 {
	uploadStampMu.Lock()
	defer uploadStampMu.Unlock()

	now := time.Now().UnixMilli()
	if now <= lastStamp {
		now = lastStamp + 1
	}
	lastStamp = now
	return now
}

// handleUploadMP3 accepts a multipart MP3 upload in the "mp3" form field,
// stores it under a timestamped name, and returns the public file URL.
func (s *Server) handleUploadMP3(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(r); !ok {
		s.respondWithError(w, r, http.StatusUnauthorized, "Not logged in", nil)
		return
	}

	maxBytes := s.config.Uploads.MaxUploadSize << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}

	file, header, err := r.FormFile("mp3")
	if err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "No file uploaded", err)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "audio/mpeg" && !strings.HasSuffix(strings.ToLower(header.Filename), ".mp3") {
		s.respondWithError(w, r, http.StatusBadRequest, "Only MP3 files are allowed", nil)
		return
	}

	safeName := unsafeFilenameChars.ReplaceAllString(filepath.Base(header.Filename), "_")
	storedName := fmt.Sprintf("%d-%s", uploadStamp(), safeName)
	destPath := filepath.Join(s.config.Uploads.Dir, storedName)

	dest, err := os.Create(destPath)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Failed to store file", err)
		return
	}

	written, err := io.Copy(dest, file)
	closeErr := dest.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destPath)
		s.respondWithError(w, r, http.StatusInternalServerError, "Failed to store file", err)
		return
	}

	entry := s.logger.WithFields(logrus.Fields{
		"file": storedName,
		"size": written,
	})
	// Tag extraction is best effort; bad files still upload fine
	if info, err := s.extractor.ExtractFromFile(destPath); err == nil {
		entry = entry.WithFields(logrus.Fields{
			"title":    info.Title,
			"artist":   info.Artist,
			"duration": info.Duration,
		})
	}
	entry.Info("MP3 uploaded")

	s.respondJSON(w, http.StatusOK, map[string]string{
		"fileUrl":      s.config.Uploads.URLPrefix + storedName,
		"originalName": header.Filename,
	})
}
