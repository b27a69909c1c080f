package ixmaps

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-ixmaps/internal/engine"
	"github.com/joeblew999/plat-ixmaps/internal/loader"
	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
	"github.com/joeblew999/plat-ixmaps/internal/theme"
)

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestMap_EndToEnd(t *testing.T) {
	rt := New("", zerolog.Nop())
	assert.Equal(t, DefaultSource, rt.Source())
	assert.Zero(t, rt.Loads())

	m := rt.Map("div1", mapbuilder.Options{"mode": "pan"}).
		View(LatLng(51.4, 19.8), 3.8).
		Layer(DefineLayer("world_grid", nil)).
		Attribution("OSM")

	h, err := m.Wait(waitCtx(t))
	require.NoError(t, err)

	s := h.(*engine.Map).Snapshot()
	assert.Equal(t, "div1", s.Target)
	assert.Equal(t, "pan", s.Options["mode"])
	assert.Equal(t, 3.8, s.Zoom)
	assert.Equal(t, 51.4, s.Center.Lat())
	require.Len(t, s.Layers, 1)
	assert.Equal(t, "world_grid", s.Layers[0].Name)
	assert.Equal(t, "OSM", s.Attribution)
	assert.Equal(t, 1, rt.Loads())
}

func TestMap_LayerNamed(t *testing.T) {
	rt := New(DefaultSource, zerolog.Nop())
	m := rt.Map("div", nil).
		LayerNamed("pop").Field("population").Title("Population").Define().
		Legend("People")

	h, err := m.Wait(waitCtx(t))
	require.NoError(t, err)
	s := h.(*engine.Map).Snapshot()
	require.Len(t, s.Layers, 1)
	assert.Equal(t, "population", s.Layers[0].Definition.Field)
	assert.Equal(t, "People", s.Legend)
}

func TestMap_ConcurrentSingleLoad(t *testing.T) {
	rt := New(DefaultSource, zerolog.Nop())

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rt.Map("div", nil).Wait(waitCtx(t))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, rt.Loads())
}

func TestMap_LoadFailure(t *testing.T) {
	rt := New("builtin:does-not-exist", zerolog.Nop())
	a := rt.Map("a", nil).View(LatLng(0, 0), 1)
	b := rt.Map("b", nil)

	_, err := a.Wait(waitCtx(t))
	assert.ErrorIs(t, err, mapbuilder.ErrScriptLoad)
	assert.ErrorIs(t, err, loader.ErrLoad)
	_, err = b.Wait(waitCtx(t))
	assert.ErrorIs(t, err, mapbuilder.ErrScriptLoad)

	assert.Equal(t, mapbuilder.Failed, a.State())
	assert.Equal(t, 1, rt.Loads())
}

func TestMap_EmptyTarget(t *testing.T) {
	rt := New(DefaultSource, zerolog.Nop())
	_, err := rt.Map("", nil).Wait(waitCtx(t))
	assert.ErrorIs(t, err, mapbuilder.ErrFactory)
	assert.ErrorIs(t, err, engine.ErrNoTarget)
}

func TestMap_LegacyCallback(t *testing.T) {
	rt := New(DefaultSource, zerolog.Nop())
	got := make(chan mapbuilder.Handle, 1)
	m := rt.Map("div", nil, func(h mapbuilder.Handle) { got <- h }).Legend("dropped")

	select {
	case h := <-got:
		assert.Empty(t, h.(*engine.Map).Snapshot().Legend)
	case <-time.After(5 * time.Second):
		t.Fatal("callback not called")
	}
	assert.Equal(t, mapbuilder.Ready, m.State())
}

func TestInit(t *testing.T) {
	rt := New(DefaultSource, zerolog.Nop())
	f := rt.Init()
	assert.Same(t, f, rt.Init())
	factory, err := f.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.NotNil(t, factory)
	assert.Equal(t, 1, rt.Loads())
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestThemeHelpers(t *testing.T) {
	assert.Equal(t, "a", Layer("a").Definition().Layer)
	assert.Equal(t, "b", Theme("b").Definition().Layer)
	def := DefineLayer("c", func(b *theme.Builder[*theme.Definition]) { b.Field("v") })
	assert.Equal(t, "v", def.Field)
}
