package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"clipforge/internal/services"
)

// OutputStore hands out destinations for encoded files and serves them back
// by basename.
type OutputStore struct {
	dir string
}

// NewOutputStore builds an OutputStore over the output directory.
func NewOutputStore(dir string) *OutputStore {
	return &OutputStore{dir: dir}
}

// NewPath reserves a fresh output path with the given extension. Nothing is
// created on disk; the engine writes the file.
func (s *OutputStore) NewPath(ext string) string {
	if ext == "" {
		ext = ".mp4"
	}
	return filepath.Join(s.dir, uuid.NewString()+ext)
}

// Resolve maps a download name to its on-disk path, rejecting traversal and
// missing files.
func (s *OutputStore) Resolve(name string) (string, error) {
	cleaned := SanitizeName(name)
	if cleaned == "" {
		return "", services.Wrap(services.ErrValidation, "storage", "resolve output", "empty name", nil)
	}
	path := filepath.Join(s.dir, cleaned)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", services.Wrap(services.ErrNotFound, "storage", "resolve output",
			fmt.Sprintf("no output %q", cleaned), nil)
	}
	return path, nil
}

// Dir exposes the base directory for the retention sweeper.
func (s *OutputStore) Dir() string {
	return s.dir
}
