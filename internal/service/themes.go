package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/joeblew999/plat-ixmaps/internal/theme"
)

// ThemeStore keeps named layer definitions, persisted as themes.json.
type ThemeStore struct {
	dataDir string
	bus     *EventBus
	themes  map[string]*theme.Definition
	mu      sync.RWMutex
}

// NewThemeStore creates a store backed by dataDir.
func NewThemeStore(dataDir string, bus *EventBus) *ThemeStore {
	s := &ThemeStore{
		dataDir: dataDir,
		bus:     bus,
		themes:  make(map[string]*theme.Definition),
	}
	s.loadFromDisk()
	return s
}

// List returns all themes ordered by ID.
func (s *ThemeStore) List() []Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Theme, 0, len(s.themes))
	for id, def := range s.themes {
		result = append(result, Theme{ID: id, Definition: def.Clone()})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Get returns a theme by ID.
func (s *ThemeStore) Get(id string) (Theme, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.themes[id]
	if !ok {
		return Theme{}, false
	}
	return Theme{ID: id, Definition: def.Clone()}, true
}

// Create stores def under id, or under an ID derived from the layer name.
func (s *ThemeStore) Create(id string, def *theme.Definition) (Theme, error) {
	if def == nil {
		return Theme{}, fmt.Errorf("%w: theme definition is empty", ErrInvalid)
	}
	if id == "" {
		id = generateID(def.Layer)
	}
	if id == "" {
		return Theme{}, fmt.Errorf("%w: theme ID is empty", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.themes[id]; exists {
		return Theme{}, fmt.Errorf("theme %q: %w", id, ErrExists)
	}

	s.themes[id] = def.Clone()
	if err := s.saveToDisk(); err != nil {
		delete(s.themes, id)
		return Theme{}, err
	}

	s.bus.Publish(Event{Resource: "themes", Action: "created", ID: id})
	return Theme{ID: id, Definition: def.Clone()}, nil
}

// Update replaces a theme by ID.
func (s *ThemeStore) Update(id string, def *theme.Definition) (Theme, error) {
	if def == nil {
		return Theme{}, fmt.Errorf("%w: theme definition is empty", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.themes[id]
	if !exists {
		return Theme{}, fmt.Errorf("theme %q: %w", id, ErrNotFound)
	}

	s.themes[id] = def.Clone()
	if err := s.saveToDisk(); err != nil {
		s.themes[id] = prev
		return Theme{}, err
	}

	s.bus.Publish(Event{Resource: "themes", Action: "updated", ID: id})
	return Theme{ID: id, Definition: def.Clone()}, nil
}

// Delete removes a theme by ID.
func (s *ThemeStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.themes[id]
	if !exists {
		return fmt.Errorf("theme %q: %w", id, ErrNotFound)
	}

	delete(s.themes, id)
	if err := s.saveToDisk(); err != nil {
		s.themes[id] = prev
		return err
	}
	s.bus.Publish(Event{Resource: "themes", Action: "deleted", ID: id})
	return nil
}

// configFile returns the path to the themes file.
func (s *ThemeStore) configFile() string {
	return filepath.Join(s.dataDir, "themes.json")
}

// loadFromDisk loads themes from disk.
func (s *ThemeStore) loadFromDisk() {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return // File doesn't exist yet, start empty
	}

	var themes map[string]*theme.Definition
	if err := json.Unmarshal(data, &themes); err != nil {
		log.Warn().Err(err).Str("file", s.configFile()).Msg("ignoring unreadable themes file")
		return
	}
	for id, def := range themes {
		if def != nil {
			s.themes[id] = def
		}
	}
}

// saveToDisk persists themes to disk.
func (s *ThemeStore) saveToDisk() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.themes, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.configFile(), data, 0644)
}

// generateID creates a URL-safe ID from a name.
func generateID(name string) string {
	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "_")
	// Remove any characters that aren't alphanumeric or underscore
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
