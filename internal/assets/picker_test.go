package assets_test

import (
	"path/filepath"
	"testing"

	"clipforge/internal/assets"
	"clipforge/internal/testsupport"
)

func TestPickReturnsFalseWhenEmpty(t *testing.T) {
	picker := assets.NewPicker(t.TempDir())
	if path, ok := picker.Pick(); ok || path != "" {
		t.Fatalf("empty library must yield no track, got %q", path)
	}
}

func TestPickReturnsFalseWhenMissingDir(t *testing.T) {
	picker := assets.NewPicker(filepath.Join(t.TempDir(), "absent"))
	if _, ok := picker.Pick(); ok {
		t.Fatal("missing directory must yield no track")
	}
}

func TestPickIgnoresNonAudioFiles(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), 16)
	testsupport.WriteFile(t, filepath.Join(dir, "cover.jpg"), 16)
	testsupport.WriteFile(t, filepath.Join(dir, "track.mp3"), 16)

	picker := assets.NewPicker(dir)
	path, ok := picker.Pick()
	if !ok {
		t.Fatal("expected a track")
	}
	if filepath.Base(path) != "track.mp3" {
		t.Fatalf("expected the only audio file, got %q", path)
	}
}

func TestPickDrawsFromAllTracks(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a.mp3", "b.m4a", "c.wav"}
	for _, name := range names {
		testsupport.WriteFile(t, filepath.Join(dir, name), 16)
	}

	picker := assets.NewPicker(dir)
	if got := len(picker.Tracks()); got != len(names) {
		t.Fatalf("expected %d tracks, got %d", len(names), got)
	}

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		path, ok := picker.Pick()
		if !ok {
			t.Fatal("expected a track")
		}
		seen[filepath.Base(path)] = struct{}{}
	}
	if len(seen) != len(names) {
		t.Fatalf("200 draws covered %d of %d tracks", len(seen), len(names))
	}
}
