package service

import (
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/joeblew999/plat-ixmaps/internal/engine"
	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
	"github.com/joeblew999/plat-ixmaps/internal/theme"
	"github.com/joeblew999/plat-ixmaps/pkg/ixmaps"
)

// MapService keeps the maps embedded through the API. Map events are
// forwarded to the bus as "maps" events.
type MapService struct {
	rt       *ixmaps.Runtime
	bus      *EventBus
	defaults mapbuilder.Options

	mu   sync.RWMutex
	maps map[string]*session
}

type session struct {
	id      string
	created time.Time
	b       *mapbuilder.Builder
}

// NewMapService creates a map service. defaults are merged under the
// options of every new map.
func NewMapService(rt *ixmaps.Runtime, bus *EventBus, defaults mapbuilder.Options) *MapService {
	return &MapService{
		rt:       rt,
		bus:      bus,
		defaults: defaults,
		maps:     make(map[string]*session),
	}
}

// Create embeds a new map. The map starts pending; calls made on it are
// queued until the engine has produced it.
func (s *MapService) Create(req CreateMap) (MapInfo, error) {
	s.mu.Lock()
	id, err := s.allocID(req)
	if err != nil {
		s.mu.Unlock()
		return MapInfo{}, err
	}
	target := req.Target
	if target == "" {
		target = id
	}

	opts := make(mapbuilder.Options, len(s.defaults)+len(req.Options))
	maps.Copy(opts, s.defaults)
	maps.Copy(opts, req.Options)

	sess := &session{id: id, created: time.Now().UTC(), b: s.rt.Map(target, opts)}
	s.maps[id] = sess
	s.mu.Unlock()

	sess.b.On(engine.AnyEvent, func(e mapbuilder.Event) {
		s.bus.Publish(Event{Resource: "maps", Action: e.Name, ID: id, Data: e.Data})
	})
	s.bus.Publish(Event{Resource: "maps", Action: "created", ID: id})
	return sess.info(), nil
}

func (s *MapService) allocID(req CreateMap) (string, error) {
	if req.ID != "" {
		id := generateID(req.ID)
		if id == "" {
			return "", fmt.Errorf("%w: map ID %q has no usable characters", ErrInvalid, req.ID)
		}
		if _, exists := s.maps[id]; exists {
			return "", fmt.Errorf("map %q: %w", id, ErrExists)
		}
		return id, nil
	}

	base := generateID(req.Target)
	if base == "" {
		base = "map"
	}
	id := base
	for n := 2; ; n++ {
		if _, exists := s.maps[id]; !exists {
			return id, nil
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

// Get returns a map by ID.
func (s *MapService) Get(id string) (MapInfo, bool) {
	sess, ok := s.session(id)
	if !ok {
		return MapInfo{}, false
	}
	return sess.info(), true
}

// Builder returns the builder behind a map.
func (s *MapService) Builder(id string) (*mapbuilder.Builder, bool) {
	sess, ok := s.session(id)
	if !ok {
		return nil, false
	}
	return sess.b, true
}

// List returns all maps ordered by ID.
func (s *MapService) List() []MapInfo {
	s.mu.RLock()
	sessions := make([]*session, 0, len(s.maps))
	for _, sess := range s.maps {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].id < sessions[j].id })
	result := make([]MapInfo, len(sessions))
	for i, sess := range sessions {
		result[i] = sess.info()
	}
	return result
}

// Delete forgets a map.
func (s *MapService) Delete(id string) error {
	s.mu.Lock()
	_, exists := s.maps[id]
	delete(s.maps, id)
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("map %q: %w", id, ErrNotFound)
	}
	s.bus.Publish(Event{Resource: "maps", Action: "deleted", ID: id})
	return nil
}

// Call dispatches a method by name on a map, with JSON-decoded arguments.
func (s *MapService) Call(id, method string, args []any) (MapInfo, error) {
	sess, ok := s.session(id)
	if !ok {
		return MapInfo{}, fmt.Errorf("map %q: %w", id, ErrNotFound)
	}
	if _, err := sess.b.Call(method, args...); err != nil {
		return sess.info(), err
	}
	return sess.info(), nil
}

// AddLayer builds a theme from spec on the map's bound layer builder.
func (s *MapService) AddLayer(id string, spec theme.Spec) (MapInfo, error) {
	sess, ok := s.session(id)
	if !ok {
		return MapInfo{}, fmt.Errorf("map %q: %w", id, ErrNotFound)
	}
	if cause := sess.b.Err(); cause != nil {
		return sess.info(), fmt.Errorf("%w: %w", mapbuilder.ErrBuilderFailed, cause)
	}

	theme.Apply(sess.b.LayerNamed(spec.Name), spec).Define()

	if cause := sess.b.Err(); cause != nil {
		return sess.info(), fmt.Errorf("%w: %w", mapbuilder.ErrBuilderFailed, cause)
	}
	return sess.info(), nil
}

// AddTheme places a stored theme on a map.
func (s *MapService) AddTheme(id string, t Theme) (MapInfo, error) {
	return s.Call(id, string(mapbuilder.MethodLayer), []any{t.Definition})
}

func (s *MapService) session(id string) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.maps[id]
	return sess, ok
}

func (sess *session) info() MapInfo {
	info := MapInfo{
		ID:      sess.id,
		Target:  sess.b.Target(),
		State:   sess.b.State().String(),
		Queued:  sess.b.Queued(),
		Created: sess.created,
	}
	if err := sess.b.Err(); err != nil {
		info.Error = err.Error()
	}
	if h, ok := sess.b.Handle(); ok {
		if m, ok := h.(*engine.Map); ok {
			state := m.Snapshot()
			info.Map = &state
		}
	}
	return info
}
