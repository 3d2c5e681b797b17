// Package prefs persists layer preferences on the local disk.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

// FileStore implements ports.PreferenceStore as a small JSON document.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by path. The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns an empty set when the file does not exist yet.
func (s *FileStore) Load(ctx context.Context) (domain.LayerPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.LayerPreferences{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	prefs := domain.LayerPreferences{}
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return prefs, nil
}

// Save replaces the file atomically.
func (s *FileStore) Save(ctx context.Context, prefs domain.LayerPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".layers-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
