// Package storage holds the local audio and summary payloads that back
// notes, plus the quota check gating sync.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TheMichaelB/notesync/internal/events"
)

// MediaStore manages local payload files keyed the same way as the
// remote blob store ("audio/<id>", "summary/<id>").
type MediaStore struct {
	baseDir string
	logger  *events.Logger
}

// NewMediaStore creates a media store rooted at baseDir.
func NewMediaStore(baseDir string, logger *events.Logger) (*MediaStore, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &MediaStore{
		baseDir: absPath,
		logger:  logger.WithField("component", "media_store"),
	}, nil
}

// Write saves a payload atomically via a temp file rename.
func (s *MediaStore) Write(key string, data []byte) error {
	safePath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(safePath), 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	tempPath := fmt.Sprintf("%s.tmp.%d", safePath, time.Now().UnixNano())
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tempPath, safePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(data),
	}).Debug("Wrote payload")

	return nil
}

// Read retrieves a payload.
func (s *MediaStore) Read(key string) ([]byte, error) {
	safePath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(safePath)
	if err != nil {
		return nil, fmt.Errorf("read payload %s: %w", key, err)
	}
	return data, nil
}

// Delete removes a payload. Missing files are not an error.
func (s *MediaStore) Delete(key string) error {
	safePath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(safePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete payload %s: %w", key, err)
	}
	return nil
}

// Exists checks whether a payload is present.
func (s *MediaStore) Exists(key string) bool {
	safePath, err := s.resolve(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(safePath)
	return err == nil
}

// Path returns the absolute filesystem path for a key.
func (s *MediaStore) Path(key string) (string, error) {
	return s.resolve(key)
}

// resolve maps a key to a path under baseDir, rejecting traversal.
func (s *MediaStore) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid media key: %s", key)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}
