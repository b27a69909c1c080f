package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
	"github.com/joeblew999/plat-ixmaps/internal/theme"
	"github.com/joeblew999/plat-ixmaps/pkg/ixmaps"
)

func newMapService(t *testing.T, source string) (*MapService, *EventBus) {
	t.Helper()
	bus := NewEventBus()
	return NewMapService(ixmaps.New(source, zerolog.Nop()), bus, mapbuilder.Options{"basemap": "OSM"}), bus
}

func waitReady(t *testing.T, s *MapService, id string) MapInfo {
	t.Helper()
	b, ok := s.Builder(id)
	require.True(t, ok)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = b.Wait(ctx)
	info, _ := s.Get(id)
	return info
}

func TestMapService_Create(t *testing.T) {
	s, _ := newMapService(t, "")

	a, err := s.Create(CreateMap{Target: "Main Map", Options: mapbuilder.Options{"mode": "pan"}})
	require.NoError(t, err)
	assert.Equal(t, "main_map", a.ID)
	assert.Equal(t, "Main Map", a.Target)

	b, err := s.Create(CreateMap{Target: "Main Map"})
	require.NoError(t, err)
	assert.Equal(t, "main_map_2", b.ID)

	c, err := s.Create(CreateMap{})
	require.NoError(t, err)
	assert.Equal(t, "map", c.ID)
	assert.Equal(t, "map", c.Target)

	_, err = s.Create(CreateMap{ID: "map"})
	assert.ErrorIs(t, err, ErrExists)

	info := waitReady(t, s, "main_map")
	assert.Equal(t, "ready", info.State)
	require.NotNil(t, info.Map)
	assert.Equal(t, mapbuilder.Options{"basemap": "OSM", "mode": "pan"}, info.Map.Options)

	ids := []string{}
	for _, m := range s.List() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"main_map", "main_map_2", "map"}, ids)
}

func TestMapService_CallAndLayer(t *testing.T) {
	s, _ := newMapService(t, "")
	_, err := s.Create(CreateMap{ID: "world"})
	require.NoError(t, err)

	_, err = s.Call("world", "view", []any{[]any{51.4, 19.8}, 3.8})
	require.NoError(t, err)
	_, err = s.AddLayer("world", theme.Spec{Name: "grid", Field: "value"})
	require.NoError(t, err)

	info := waitReady(t, s, "world")
	require.NotNil(t, info.Map)
	assert.Equal(t, 3.8, info.Map.Zoom)
	require.Len(t, info.Map.Layers, 1)
	assert.Equal(t, "value", info.Map.Layers[0].Definition.Field)

	stored := Theme{ID: "t", Definition: theme.New("stored").Define()}
	info, err = s.AddTheme("world", stored)
	require.NoError(t, err)
	assert.Len(t, info.Map.Layers, 2)

	_, err = s.Call("world", "view", []any{"nope"})
	assert.ErrorIs(t, err, mapbuilder.ErrInvalidArgs)

	_, err = s.Call("world", "fly", nil)
	assert.ErrorIs(t, err, mapbuilder.ErrUnsupportedMethod)

	_, err = s.Call("world", "legend", []any{"x"})
	assert.ErrorIs(t, err, mapbuilder.ErrBuilderFailed)
	_, err = s.AddLayer("world", theme.Spec{Name: "late"})
	assert.ErrorIs(t, err, mapbuilder.ErrBuilderFailed)

	_, err = s.Call("nope", "legend", []any{"x"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.AddLayer("nope", theme.Spec{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMapService_FailedEngine(t *testing.T) {
	s, _ := newMapService(t, "builtin:missing")
	_, err := s.Create(CreateMap{ID: "broken"})
	require.NoError(t, err)

	info := waitReady(t, s, "broken")
	assert.Equal(t, "failed", info.State)
	assert.Contains(t, info.Error, "engine")

	_, err = s.Call("broken", "legend", []any{"x"})
	assert.ErrorIs(t, err, mapbuilder.ErrBuilderFailed)
}

func TestMapService_EventsForwarded(t *testing.T) {
	s, bus := newMapService(t, "")
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	_, err := s.Create(CreateMap{ID: "ev"})
	require.NoError(t, err)
	assert.Equal(t, Event{Resource: "maps", Action: "created", ID: "ev"}, <-ch)

	waitReady(t, s, "ev")
	_, err = s.Call("ev", "legend", []any{"Legend"})
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, "maps", ev.Resource)
		assert.Equal(t, "legend", ev.Action)
		assert.Equal(t, "ev", ev.ID)
		assert.Equal(t, "Legend", ev.Data)
	case <-time.After(5 * time.Second):
		t.Fatal("map event not forwarded")
	}

	require.NoError(t, s.Delete("ev"))
	assert.Equal(t, "deleted", (<-ch).Action)
	assert.ErrorIs(t, s.Delete("ev"), ErrNotFound)
	_, ok := s.Get("ev")
	assert.False(t, ok)
}

func TestEventBus_NilAndSlow(t *testing.T) {
	var nilBus *EventBus
	nilBus.Publish(Event{})

	bus := NewEventBus()
	ch := bus.Subscribe()
	for range 32 {
		bus.Publish(Event{Resource: "x"})
	}
	assert.Len(t, ch, 16)
	bus.Unsubscribe(ch)
}
