package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"clipforge/internal/services"
)

// ProbeFunc validates a stored upload before it is accepted. The production
// wiring inspects the file with ffprobe; tests substitute a stub.
type ProbeFunc func(ctx context.Context, path string) error

// UploadStore persists incoming media under opaque identifiers.
type UploadStore struct {
	dir   string
	probe ProbeFunc
}

// NewUploadStore builds an UploadStore over the upload directory. A nil probe
// accepts everything.
func NewUploadStore(dir string, probe ProbeFunc) *UploadStore {
	if probe == nil {
		probe = func(context.Context, string) error { return nil }
	}
	return &UploadStore{dir: dir, probe: probe}
}

// Save streams an upload to disk under a fresh identifier, keeping the
// original extension, then validates it. Rejected files are removed before
// the error is returned.
func (s *UploadStore) Save(ctx context.Context, r io.Reader, originalName string) (string, error) {
	id := uuid.NewString() + extensionOf(originalName)
	path := filepath.Join(s.dir, id)

	f, err := os.Create(path)
	if err != nil {
		return "", services.Wrap(nil, "storage", "save upload", "create file", err)
	}
	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		return "", services.Wrap(nil, "storage", "save upload", "write file", errors.Join(copyErr, closeErr))
	}

	if err := s.probe(ctx, path); err != nil {
		_ = os.Remove(path)
		return "", services.Wrap(services.ErrUnsupportedMedia, "storage", "save upload",
			fmt.Sprintf("rejected %q", originalName), err)
	}
	return id, nil
}

// Resolve maps an upload identifier back to its on-disk path. Identifiers are
// reduced to their basename so path traversal cannot escape the directory,
// and missing files surface as not-found.
func (s *UploadStore) Resolve(id string) (string, error) {
	name := SanitizeName(id)
	if name == "" {
		return "", services.Wrap(services.ErrValidation, "storage", "resolve upload", "empty identifier", nil)
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", services.Wrap(services.ErrNotFound, "storage", "resolve upload",
			fmt.Sprintf("no upload %q", name), nil)
	}
	return path, nil
}

// SanitizeName strips any directory components from a client-supplied name.
func SanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, "..") {
		return ""
	}
	return name
}

// extensionOf returns a safe lowercase extension for the stored copy,
// defaulting to .mp4 when the original name carries none.
func extensionOf(name string) string {
	ext := strings.ToLower(filepath.Ext(SanitizeName(name)))
	if ext == "" || len(ext) > 8 {
		return ".mp4"
	}
	return ext
}
