package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/corkboard/internal/models"
)

// File implements Provider as a single JSON document on disk.
type File struct {
	path string
}

// NewFile creates a file-backed provider. The parent directory is created
// if needed; the file itself appears on the first save.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}
	return &File{path: abs}, nil
}

// Load reads and decodes the document. A missing file means first run.
func (f *File) Load() ([]models.Case, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", f.path, err)
	}
	var cases []models.Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("storage: load: decode: %w", err)
	}
	return cases, nil
}

// Save atomically replaces the document via a temp file and rename.
func (f *File) Save(cases []models.Case) error {
	data, err := json.Marshal(cases)
	if err != nil {
		return fmt.Errorf("storage: save: encode: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".corkboard-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Close is a no-op for the file provider.
func (f *File) Close() error {
	return nil
}
