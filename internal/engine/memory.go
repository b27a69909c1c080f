// Package engine provides the in-process map engine registered as "memory".
//
// A memory map keeps the state a rendering engine would draw: the viewport,
// the stack of themed layers, options, attribution and the legend. Layers
// with GeoJSON data are measured with orb and query layers are sized with
// DuckDB, so a server can answer questions about a map without a browser.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-ixmaps/internal/db"
	"github.com/joeblew999/plat-ixmaps/internal/loader"
	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
	"github.com/joeblew999/plat-ixmaps/internal/theme"
)

// Name is the engine name used in manifests.
const Name = "memory"

// Defaults for a fresh map.
const (
	DefaultMaxZoom = 22
	DefaultZoom    = 2
)

// AnyEvent subscribes a handler to every event.
const AnyEvent = "*"

var (
	ErrNoTarget    = errors.New("map target is empty")
	ErrBadView     = errors.New("invalid view")
	ErrNoLayerData = errors.New("layer has no definition")
	ErrBadData     = errors.New("layer data is not valid geojson")
)

var geoType = regexp.MustCompile(`(?i)geojson`)

// Config tunes the engine.
type Config struct {
	MaxZoom float64
	// DataDir resolves relative GeoJSON URLs under DataDir/sources.
	DataDir string
	// DuckDB enables row counts for query layers.
	DuckDB bool
}

// ConfigFromManifest reads engine settings from a manifest.
func ConfigFromManifest(m loader.Manifest) Config {
	cfg := Config{
		MaxZoom: m.MaxZoom,
		DataDir: m.Setting("data_dir"),
		DuckDB:  m.Flag("duckdb"),
	}
	if cfg.MaxZoom <= 0 {
		cfg.MaxZoom = DefaultMaxZoom
	}
	return cfg
}

// Source returns the builtin manifest source selecting this engine with cfg.
func Source(cfg Config) string {
	v := url.Values{}
	if cfg.DataDir != "" {
		v.Set("data_dir", cfg.DataDir)
	}
	if cfg.DuckDB {
		v.Set("duckdb", "true")
	}
	if cfg.MaxZoom > 0 {
		v.Set("max_zoom", strconv.FormatFloat(cfg.MaxZoom, 'f', -1, 64))
	}
	src := loader.BuiltinScheme + Name
	if len(v) > 0 {
		src += "?" + v.Encode()
	}
	return src
}

func init() {
	loader.Register(Name, func(m loader.Manifest) (mapbuilder.Factory, error) {
		return NewFactory(ConfigFromManifest(m)), nil
	})
}

// NewFactory returns a factory producing memory maps. The handle is
// delivered on a separate goroutine, as a browser engine would.
func NewFactory(cfg Config) mapbuilder.Factory {
	if cfg.MaxZoom <= 0 {
		cfg.MaxZoom = DefaultMaxZoom
	}
	return func(target string, opts mapbuilder.Options, ready mapbuilder.ReadyFunc) error {
		if strings.TrimSpace(target) == "" {
			return ErrNoTarget
		}
		m := NewMap(cfg, target, opts)
		go ready(m)
		return nil
	}
}

// Tile is the web mercator tile under the map center.
type Tile struct {
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
	Z uint32 `json:"z"`
}

// Layer is a theme placed on the map.
type Layer struct {
	Name       string            `json:"name"`
	Definition *theme.Definition `json:"definition"`
	Features   int               `json:"features,omitempty"`
	BBox       []float64         `json:"bbox,omitempty"`
	Rows       int64             `json:"rows,omitempty"`
}

// State is a snapshot of a memory map.
type State struct {
	Target      string             `json:"target"`
	Options     mapbuilder.Options `json:"options,omitempty"`
	Center      orb.Point          `json:"center"`
	Zoom        float64            `json:"zoom"`
	Tile        Tile               `json:"tile"`
	Layers      []Layer            `json:"layers"`
	Attribution string             `json:"attribution,omitempty"`
	Legend      string             `json:"legend,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Locale      map[string]string  `json:"locale,omitempty"`
}

// Map is the memory engine handle. It implements mapbuilder.Map.
type Map struct {
	cfg Config

	mu       sync.RWMutex
	state    State
	handlers map[string][]mapbuilder.EventFunc
}

var _ mapbuilder.Map = (*Map)(nil)

// NewMap creates a map for target.
func NewMap(cfg Config, target string, opts mapbuilder.Options) *Map {
	m := &Map{
		cfg:      cfg,
		handlers: make(map[string][]mapbuilder.EventFunc),
		state: State{
			Target:  target,
			Options: mapbuilder.Options{},
			Zoom:    DefaultZoom,
			Layers:  []Layer{},
			Locale:  map[string]string{},
		},
	}
	for k, v := range opts {
		m.state.Options[k] = v
	}
	m.state.Tile = tileAt(m.state.Center, m.state.Zoom)
	return m
}

// View moves the viewport.
func (m *Map) View(center orb.Point, zoom float64) error {
	if math.IsNaN(zoom) || zoom < 0 || zoom > m.cfg.MaxZoom {
		return fmt.Errorf("%w: zoom %v outside [0, %v]", ErrBadView, zoom, m.cfg.MaxZoom)
	}
	if center.Lat() < -90 || center.Lat() > 90 || center.Lon() < -180 || center.Lon() > 180 {
		return fmt.Errorf("%w: center %v out of range", ErrBadView, center)
	}

	m.mu.Lock()
	m.state.Center = center
	m.state.Zoom = zoom
	m.state.Tile = tileAt(center, zoom)
	tile := m.state.Tile
	m.mu.Unlock()

	m.Emit("view", map[string]any{"center": center, "zoom": zoom, "tile": tile})
	return nil
}

// Layer adds a theme, replacing any layer with the same name.
func (m *Map) Layer(def *theme.Definition) error {
	if def == nil {
		return ErrNoLayerData
	}
	layer, err := m.inspect(def.Clone())
	if err != nil {
		return fmt.Errorf("layer %q: %w", def.Layer, err)
	}

	m.mu.Lock()
	i := slices.IndexFunc(m.state.Layers, func(l Layer) bool { return l.Name == layer.Name })
	if i >= 0 {
		m.state.Layers[i] = layer
	} else {
		m.state.Layers = append(m.state.Layers, layer)
	}
	m.mu.Unlock()

	m.Emit("layer", map[string]any{"name": layer.Name, "features": layer.Features, "rows": layer.Rows})
	return nil
}

// Options merges engine options.
func (m *Map) Options(opts mapbuilder.Options) error {
	m.mu.Lock()
	for k, v := range opts {
		m.state.Options[k] = v
	}
	m.mu.Unlock()
	m.Emit("options", opts)
	return nil
}

// On registers fn for event, or for every event with AnyEvent.
func (m *Map) On(event string, fn mapbuilder.EventFunc) error {
	if fn == nil {
		return fmt.Errorf("nil handler for %q", event)
	}
	m.mu.Lock()
	m.handlers[event] = append(m.handlers[event], fn)
	m.mu.Unlock()
	return nil
}

// Attribution sets the attribution text.
func (m *Map) Attribution(text string) error {
	m.mu.Lock()
	m.state.Attribution = text
	m.mu.Unlock()
	m.Emit("attribution", text)
	return nil
}

// Legend sets the legend.
func (m *Map) Legend(legend string) error {
	m.mu.Lock()
	m.state.Legend = legend
	m.mu.Unlock()
	m.Emit("legend", legend)
	return nil
}

// Require records an extension script. Repeats are ignored.
func (m *Map) Require(path string) error {
	if path == "" {
		return errors.New("require: empty path")
	}
	m.mu.Lock()
	added := !slices.Contains(m.state.Required, path)
	if added {
		m.state.Required = append(m.state.Required, path)
	}
	m.mu.Unlock()
	if added {
		m.Emit("require", path)
	}
	return nil
}

// Local maps a global UI string to its localized form.
func (m *Map) Local(global, local string) error {
	m.mu.Lock()
	m.state.Locale[global] = local
	m.mu.Unlock()
	m.Emit("local", map[string]string{global: local})
	return nil
}

// Emit delivers an event to its handlers and to AnyEvent handlers, outside
// the map lock so handlers may call back into the map.
func (m *Map) Emit(name string, data any) {
	m.mu.RLock()
	fns := slices.Concat(m.handlers[name], m.handlers[AnyEvent])
	m.mu.RUnlock()

	ev := mapbuilder.Event{Name: name, Data: data}
	for _, fn := range fns {
		fn(ev)
	}
}

// Snapshot returns a copy of the map state.
func (m *Map) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.state
	s.Options = make(mapbuilder.Options, len(m.state.Options))
	for k, v := range m.state.Options {
		s.Options[k] = v
	}
	s.Layers = slices.Clone(m.state.Layers)
	s.Required = slices.Clone(m.state.Required)
	s.Locale = make(map[string]string, len(m.state.Locale))
	for k, v := range m.state.Locale {
		s.Locale[k] = v
	}
	return s
}

func (m *Map) inspect(def *theme.Definition) (Layer, error) {
	layer := Layer{Name: def.Layer, Definition: def}
	src := def.Data

	if q := src.Query(); q != "" && m.cfg.DuckDB {
		conn, err := db.Get(db.Config{DataDir: m.cfg.DataDir})
		if err != nil {
			return layer, err
		}
		rows, err := db.Count(context.Background(), conn, q)
		if err != nil {
			return layer, err
		}
		layer.Rows = rows
	}

	if !geoType.MatchString(src.Type()) {
		return layer, nil
	}

	var raw []byte
	if obj, ok := src.Inline(); ok {
		b, err := rawJSON(obj)
		if err != nil {
			return layer, err
		}
		raw = b
	} else if path := m.localPath(src.URL()); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return layer, nil
			}
			return layer, err
		}
		raw = b
	}
	if raw == nil {
		return layer, nil
	}

	fc, err := parseFeatures(raw)
	if err != nil {
		return layer, err
	}
	layer.Features = len(fc.Features)
	if b, ok := bounds(fc); ok {
		layer.BBox = []float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
	}
	return layer, nil
}

func (m *Map) localPath(url string) string {
	if url == "" || m.cfg.DataDir == "" || strings.Contains(url, "://") {
		return ""
	}
	clean := filepath.Clean("/" + url)
	return filepath.Join(m.cfg.DataDir, "sources", clean)
}

func rawJSON(obj any) ([]byte, error) {
	switch v := obj.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case *geojson.FeatureCollection:
		return v.MarshalJSON()
	default:
		return json.Marshal(v)
	}
}

func parseFeatures(raw []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err == nil {
		return fc, nil
	}
	f, ferr := geojson.UnmarshalFeature(raw)
	if ferr == nil && f.Geometry != nil {
		fc = geojson.NewFeatureCollection()
		fc.Append(f)
		return fc, nil
	}
	if err == nil {
		err = ferr
	}
	if err == nil {
		err = errors.New("no feature collection or feature")
	}
	return nil, fmt.Errorf("%w: %v", ErrBadData, err)
}

func bounds(fc *geojson.FeatureCollection) (orb.Bound, bool) {
	var b orb.Bound
	found := false
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		if !found {
			b = f.Geometry.Bound()
			found = true
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	return b, found
}

func tileAt(center orb.Point, zoom float64) Tile {
	t := maptile.At(center, maptile.Zoom(uint32(math.Floor(zoom))))
	return Tile{X: t.X, Y: t.Y, Z: uint32(t.Z)}
}
