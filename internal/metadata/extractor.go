package metadata

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// TrackInfo holds the metadata extracted from an uploaded audio file
type TrackInfo struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Duration int    `json:"duration"` // in seconds
	FileSize int64  `json:"fileSize"`
}

// Extractor reads ID3 tags and durations from uploaded MP3 files
type Extractor struct {
	logger *logrus.Logger
}

// NewExtractor creates a new metadata extractor
func NewExtractor(logger *logrus.Logger) *Extractor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Extractor{logger: logger}
}

// ExtractFromFile extracts metadata from an MP3 file. Extraction is
// best-effort: missing tags fall back to the filename, and a duration
// that cannot be decoded is reported as 0.
func (e *Extractor) ExtractFromFile(filePath string) (TrackInfo, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return TrackInfo{}, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return TrackInfo{}, err
	}

	info := TrackInfo{
		Title:    strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath)),
		Artist:   "Unknown Artist",
		Album:    "Unknown Album",
		FileSize: stat.Size(),
	}

	duration, err := e.durationMP3(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to calculate duration, setting to 0")
		duration = 0
	}
	info.Duration = duration

	meta, err := tag.ReadFrom(file)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to read tags, using filename")
		return info, nil
	}

	if title := meta.Title(); title != "" {
		info.Title = title
	}
	if artist := meta.Artist(); artist != "" {
		info.Artist = artist
	}
	if album := meta.Album(); album != "" {
		info.Album = album
	}

	return info, nil
}

// durationMP3 decodes MP3 frames to sum the duration; falls back to an
// average-bitrate estimate when no frame decodes at all.
func (e *Extractor) durationMP3(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 { // could not decode any frame
				return e.estimateFromFileSize(path, 192000) // assume 192 kbps
			}
			break // partial decode; use what we have
		}
		total += fr.Duration()
		frames++
	}
	return int(total.Seconds()), nil
}

// estimateFromFileSize provides last-resort estimation if parsing fails.
func (e *Extractor) estimateFromFileSize(path string, bitrate int) (int, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, errors.New("invalid bitrate")
	}
	dur := (st.Size() * 8) / int64(bitrate)
	return int(dur), nil
}
