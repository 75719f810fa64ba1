package storage

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/valter-silva-au/devpulse/pkg/models"
)

// fileFormatVersion tags the on-disk event document.
const fileFormatVersion = "1.0"

// eventDocument is the flat-file representation: a version tag and the
// flattened form of every event.
type eventDocument struct {
	Version string              `json:"version"`
	Events  []map[string]string `json:"events"`
}

// RotatedFileInfo describes one rotated store file.
type RotatedFileInfo struct {
	Path       string `json:"path"`
	SizeBytes  int64  `json:"size_bytes"`
	Compressed bool   `json:"compressed"`
}

// StorageStats summarizes the on-disk state of a FileStore.
type StorageStats struct {
	CurrentFileExists bool              `json:"current_file_exists"`
	CurrentFileSize   int64             `json:"current_file_size"`
	CurrentEventCount int               `json:"current_event_count"`
	RotatedFiles      []RotatedFileInfo `json:"rotated_files"`
	RotatedSizeBytes  int64             `json:"rotated_size_bytes"`
	TotalFiles        int               `json:"total_files"`
}

// FileStore persists the full event list as a single JSON document, rotating
// the file through a Rotator when it grows past the configured size. It is the
// fallback/legacy persistence channel, independent of the SQLite store.
type FileStore struct {
	path    string
	rotator *Rotator
	log     *logrus.Logger

	// mu serializes writes and rotation so a concurrent Save cannot slip
	// between the rename and compression steps.
	mu sync.Mutex
}

// NewFileStore creates a FileStore writing to path, delegating rotation to
// rotator. A nil logger falls back to the standard one.
func NewFileStore(path string, rotator *Rotator, log *logrus.Logger) *FileStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FileStore{path: path, rotator: rotator, log: log}
}

// Path returns the current store file path.
func (s *FileStore) Path() string { return s.path }

// Save writes the full event list as a single document, rotating the current
// file first if it has reached the size threshold. I/O failures are logged
// and returned, but callers in the collection path treat them as non-fatal.
func (s *FileStore) Save(events []models.TypedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rotator != nil && s.rotator.ShouldRotate(s.path) {
		s.rotate()
	}

	doc := eventDocument{Version: fileFormatVersion, Events: make([]map[string]string, 0, len(events))}
	for _, ev := range events {
		doc.Events = append(doc.Events, ev.Flatten())
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding event document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing event store: %w", err)
	}
	return nil
}

// rotate delegates to the Rotator and then removes rotated files older than
// the retention window. Caller must hold mu.
func (s *FileStore) rotate() {
	if rotated := s.rotator.RotateFile(s.path); rotated != "" {
		s.log.WithField("path", rotated).Info("rotated event store file")
	}
	ext := filepath.Ext(s.path)
	base := strings.TrimSuffix(filepath.Base(s.path), ext)
	s.rotator.CleanupOldFiles(filepath.Dir(s.path), base+".*"+ext+"*")
}

// Load reads and parses the current file. A missing or unreadable file yields
// an empty list with the error logged, since losing historical telemetry is
// recoverable but crashing the caller is not.
func (s *FileStore) Load() []models.TypedEvent {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).WithField("path", s.path).Warn("reading event store failed")
		}
		return nil
	}
	events, err := decodeDocument(data)
	if err != nil {
		s.log.WithError(err).WithField("path", s.path).Warn("parsing event store failed")
		return nil
	}
	return events
}

// LoadAllEvents merges the current file with every rotated file, transparently
// decompressing .gz files, sorted by timestamp descending. A positive limit
// truncates the result.
func (s *FileStore) LoadAllEvents(limit int) []models.TypedEvent {
	events := s.Load()

	if s.rotator != nil {
		for _, path := range s.rotator.RotatedFiles(s.path) {
			data, err := readMaybeCompressed(path)
			if err != nil {
				s.log.WithError(err).WithField("path", path).Warn("reading rotated store file failed")
				continue
			}
			rotated, err := decodeDocument(data)
			if err != nil {
				s.log.WithError(err).WithField("path", path).Warn("parsing rotated store file failed")
				continue
			}
			events = append(events, rotated...)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Base().Timestamp.After(events[j].Base().Timestamp)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events
}

// Stats reports the current and rotated file state of the store.
func (s *FileStore) Stats() StorageStats {
	stats := StorageStats{}

	if info, err := os.Stat(s.path); err == nil {
		stats.CurrentFileExists = true
		stats.CurrentFileSize = info.Size()
		stats.CurrentEventCount = len(s.Load())
		stats.TotalFiles++
	}

	if s.rotator != nil {
		for _, path := range s.rotator.RotatedFiles(s.path) {
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			stats.RotatedFiles = append(stats.RotatedFiles, RotatedFileInfo{
				Path:       path,
				SizeBytes:  info.Size(),
				Compressed: strings.HasSuffix(path, ".gz"),
			})
			stats.RotatedSizeBytes += info.Size()
			stats.TotalFiles++
		}
	}
	return stats
}

func decodeDocument(data []byte) ([]models.TypedEvent, error) {
	var doc eventDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding event document: %w", err)
	}
	events := make([]models.TypedEvent, 0, len(doc.Events))
	for _, flat := range doc.Events {
		events = append(events, models.DecodeEvent(flat))
	}
	return events, nil
}

func readMaybeCompressed(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(gz)
	}
	return io.ReadAll(f)
}
