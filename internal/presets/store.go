package presets

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"clipforge/internal/filtergraph"
	"clipforge/internal/services"
)

// Preset is a named, reusable transform option set.
type Preset struct {
	Name      string              `json:"name"`
	Options   filtergraph.Options `json:"options"`
	CreatedAt time.Time           `json:"createdAt"`
}

// Store keeps presets in a single flat JSON file. The collection is small and
// append-only, so the whole file is rewritten on every add.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore builds a Store over the given file path. The file is created on
// first add.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// List returns all saved presets in insertion order. A missing file is an
// empty collection.
func (s *Store) List() ([]Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add validates and appends a preset. Names must be non-empty and unique.
func (s *Store) Add(preset Preset) error {
	preset.Name = strings.TrimSpace(preset.Name)
	if preset.Name == "" {
		return services.Wrap(services.ErrValidation, "presets", "add", "preset name is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range list {
		if strings.EqualFold(existing.Name, preset.Name) {
			return services.Wrap(services.ErrValidation, "presets", "add",
				"preset "+preset.Name+" already exists", nil)
		}
	}

	if preset.CreatedAt.IsZero() {
		preset.CreatedAt = time.Now().UTC()
	}
	list = append(list, preset)
	return s.save(list)
}

func (s *Store) load() ([]Preset, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(nil, "presets", "load", "read preset file", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var list []Preset
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, services.Wrap(nil, "presets", "load", "decode preset file", err)
	}
	return list, nil
}

func (s *Store) save(list []Preset) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return services.Wrap(nil, "presets", "save", "encode preset file", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return services.Wrap(nil, "presets", "save", "write preset file", err)
	}
	return nil
}
