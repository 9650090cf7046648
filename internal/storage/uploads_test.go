package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/services"
	"clipforge/internal/storage"
)

func TestUploadStoreSaveAndResolve(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewUploadStore(dir, nil)

	id, err := store.Save(context.Background(), strings.NewReader("payload"), "My Clip.MOV")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Ext(id) != ".mov" {
		t.Fatalf("expected lowercased original extension, got %q", id)
	}

	path, err := store.Resolve(id)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("stored content mismatch: %q", data)
	}
}

func TestUploadStoreDefaultsExtension(t *testing.T) {
	store := storage.NewUploadStore(t.TempDir(), nil)

	id, err := store.Save(context.Background(), strings.NewReader("x"), "noextension")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Ext(id) != ".mp4" {
		t.Fatalf("expected .mp4 fallback, got %q", id)
	}
}

func TestUploadStoreRejectionRemovesFile(t *testing.T) {
	dir := t.TempDir()
	probe := func(ctx context.Context, path string) error {
		return errors.New("no video streams")
	}
	store := storage.NewUploadStore(dir, probe)

	_, err := store.Save(context.Background(), strings.NewReader("not media"), "junk.mp4")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if !errors.Is(err, services.ErrUnsupportedMedia) {
		t.Fatalf("expected unsupported media classification, got %v", err)
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("read dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("rejected upload left files behind: %v", entries)
	}
}

func TestUploadStoreResolveBlocksTraversal(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewUploadStore(dir, nil)

	outside := filepath.Join(filepath.Dir(dir), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatalf("plant outside file: %v", err)
	}

	for _, id := range []string{"../secret.txt", "..", "", "   "} {
		if _, err := store.Resolve(id); err == nil {
			t.Fatalf("identifier %q must not resolve", id)
		}
	}
}

func TestUploadStoreResolveUnknownIsNotFound(t *testing.T) {
	store := storage.NewUploadStore(t.TempDir(), nil)

	_, err := store.Resolve("does-not-exist.mp4")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}
