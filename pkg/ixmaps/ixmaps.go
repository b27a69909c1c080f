// Package ixmaps embeds interactive maps.
//
// The map engine is loaded once per runtime, on first use, and shared by
// every map. Map returns a builder immediately; calls made on it before the
// engine and the map are ready are queued and replayed in order.
//
//	m := ixmaps.Map("map", mapbuilder.Options{"mode": "pan"}).
//		View(ixmaps.LatLng(51.4, 19.8), 3.8).
//		Layer(ixmaps.DefineLayer("world", func(t *theme.Builder[*theme.Definition]) {
//			t.Data("world.geojson", theme.AsType("geojson")).Type("FEATURES")
//		}))
//	h, err := m.Wait(ctx)
package ixmaps

import (
	"os"
	"sync"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/joeblew999/plat-ixmaps/internal/engine"
	"github.com/joeblew999/plat-ixmaps/internal/future"
	"github.com/joeblew999/plat-ixmaps/internal/gate"
	"github.com/joeblew999/plat-ixmaps/internal/loader"
	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
	"github.com/joeblew999/plat-ixmaps/internal/theme"
)

const (
	// DefaultSource is the engine used when none is configured.
	DefaultSource = loader.BuiltinScheme + "memory"
	// EnvSource overrides the engine source of the default runtime.
	EnvSource = "IXMAPS_ENGINE"
)

// Runtime owns one engine load and the maps built on it.
type Runtime struct {
	source string
	log    zerolog.Logger
	gate   *gate.Gate[mapbuilder.Factory]
}

// New creates a runtime loading its engine from source, a manifest path,
// URL or "builtin:<engine>". Nothing is loaded until the first map or Init.
func New(source string, logger zerolog.Logger) *Runtime {
	if source == "" {
		source = DefaultSource
	}
	l := loader.New(logger)
	return &Runtime{
		source: source,
		log:    logger,
		gate:   gate.New("ixmaps engine", l.Func(source), logger),
	}
}

var (
	defaultOnce    sync.Once
	defaultRuntime *Runtime
)

// Default returns the process-wide runtime. Its engine source comes from
// $IXMAPS_ENGINE, falling back to DefaultSource.
func Default() *Runtime {
	defaultOnce.Do(func() {
		defaultRuntime = New(os.Getenv(EnvSource), log.Logger)
	})
	return defaultRuntime
}

// Source returns the engine source.
func (r *Runtime) Source() string { return r.source }

// Loads reports how many engine loads were started; never more than one.
func (r *Runtime) Loads() int { return r.gate.Loads() }

// Init starts the engine load without building a map and returns its
// outcome. Calling it again returns the same future.
func (r *Runtime) Init() *future.Future[mapbuilder.Factory] {
	return r.gate.Ensure()
}

// Map builds a map in target. With a callback the map runs in legacy mode:
// the callback receives the handle and queued calls are dropped.
func (r *Runtime) Map(target string, opts mapbuilder.Options, callback ...func(mapbuilder.Handle)) *mapbuilder.Builder {
	options := []mapbuilder.Option{mapbuilder.WithLogger(r.log)}
	if len(callback) > 0 && callback[0] != nil {
		options = append(options, mapbuilder.WithCallback(callback[0]))
	}
	return mapbuilder.New(r.gate, target, opts, options...)
}

// Map builds a map on the default runtime.
func Map(target string, opts mapbuilder.Options, callback ...func(mapbuilder.Handle)) *mapbuilder.Builder {
	return Default().Map(target, opts, callback...)
}

// Init pre-warms the default runtime.
func Init() *future.Future[mapbuilder.Factory] {
	return Default().Init()
}

// Layer starts a standalone theme definition.
func Layer(name string) *theme.Builder[*theme.Definition] {
	return theme.New(name)
}

// Theme is an alias for Layer.
func Theme(name string) *theme.Builder[*theme.Definition] {
	return theme.New(name)
}

// DefineLayer runs fn on a fresh builder and returns the definition.
func DefineLayer(name string, fn func(*theme.Builder[*theme.Definition])) *theme.Definition {
	return theme.Layer(name, fn)
}

// LatLng builds a map center from latitude and longitude.
func LatLng(lat, lng float64) orb.Point {
	return mapbuilder.LatLng(lat, lng)
}
