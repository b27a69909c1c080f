// Package loader resolves the map engine behind ixmaps maps.
//
// An engine is described by a manifest (YAML or JSON) that names a
// registered engine implementation plus its settings. Manifests come from a
// URL, a file, or the "builtin:<engine>" shorthand. Engines register
// themselves from an init function, the way database/sql drivers do.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
)

// BuiltinScheme prefixes manifest sources that need no fetch.
const BuiltinScheme = "builtin:"

// ErrLoad wraps every failure to produce a factory.
var ErrLoad = errors.New("engine load failed")

// Manifest describes an engine bundle.
type Manifest struct {
	Engine   string         `yaml:"engine" json:"engine"`
	Name     string         `yaml:"name,omitempty" json:"name,omitempty"`
	Version  string         `yaml:"version,omitempty" json:"version,omitempty"`
	MaxZoom  float64        `yaml:"max_zoom,omitempty" json:"max_zoom,omitempty"`
	Settings map[string]any `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// Setting returns a string setting, or "" when absent.
func (m Manifest) Setting(key string) string {
	s, _ := m.Settings[key].(string)
	return s
}

// Flag returns a boolean setting.
func (m Manifest) Flag(key string) bool {
	b, _ := m.Settings[key].(bool)
	return b
}

// EngineFunc builds a map factory from a manifest.
type EngineFunc func(m Manifest) (mapbuilder.Factory, error)

var (
	enginesMu sync.RWMutex
	engines   = make(map[string]EngineFunc)
)

// Register makes an engine available by name. It panics if fn is nil or the
// name is taken.
func Register(name string, fn EngineFunc) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	if fn == nil {
		panic("loader: Register engine is nil")
	}
	if _, dup := engines[name]; dup {
		panic("loader: Register called twice for engine " + name)
	}
	engines[name] = fn
}

// Engines lists the registered engine names.
func Engines() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Loader fetches manifests and resolves their engines.
type Loader struct {
	Client *http.Client
	Log    zerolog.Logger
}

// New creates a loader with a bounded HTTP client.
func New(log zerolog.Logger) *Loader {
	return &Loader{
		Client: &http.Client{Timeout: 30 * time.Second},
		Log:    log,
	}
}

// Func binds src, giving the load function a gate expects.
func (l *Loader) Func(src string) func(ctx context.Context) (mapbuilder.Factory, error) {
	return func(ctx context.Context) (mapbuilder.Factory, error) {
		return l.Load(ctx, src)
	}
}

// Load reads the manifest at src and builds its engine's factory.
func (l *Loader) Load(ctx context.Context, src string) (mapbuilder.Factory, error) {
	m, err := l.Manifest(ctx, src)
	if err != nil {
		return nil, err
	}

	enginesMu.RLock()
	fn, ok := engines[m.Engine]
	enginesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown engine %q (registered: %s)", ErrLoad, m.Engine, strings.Join(Engines(), ", "))
	}

	factory, err := fn(m)
	if err != nil {
		return nil, fmt.Errorf("%w: engine %q: %w", ErrLoad, m.Engine, err)
	}
	l.Log.Info().Str("source", src).Str("engine", m.Engine).Str("version", m.Version).Msg("map engine loaded")
	return factory, nil
}

// Manifest reads and decodes the manifest at src.
func (l *Loader) Manifest(ctx context.Context, src string) (Manifest, error) {
	if rest, ok := strings.CutPrefix(src, BuiltinScheme); ok {
		return builtin(rest)
	}

	data, err := l.fetch(ctx, src)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: manifest parse failed (%s): %w", ErrLoad, src, err)
	}
	if m.Engine == "" {
		return Manifest{}, fmt.Errorf("%w: manifest %s names no engine", ErrLoad, src)
	}
	return m, nil
}

// builtin reads "<engine>?key=value&..." into a manifest. "true" and
// "false" become booleans and max_zoom sets MaxZoom.
func builtin(rest string) (Manifest, error) {
	name, query, _ := strings.Cut(rest, "?")
	m := Manifest{Engine: name}
	if query == "" {
		return m, nil
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: builtin settings: %w", ErrLoad, err)
	}
	m.Settings = make(map[string]any, len(values))
	for key := range values {
		switch v := values.Get(key); v {
		case "true":
			m.Settings[key] = true
		case "false":
			m.Settings[key] = false
		default:
			m.Settings[key] = v
		}
	}
	if z, ok := m.Settings["max_zoom"].(string); ok {
		zoom, err := strconv.ParseFloat(z, 64)
		if err != nil {
			return Manifest{}, fmt.Errorf("%w: builtin max_zoom %q: %w", ErrLoad, z, err)
		}
		m.MaxZoom = zoom
		delete(m.Settings, "max_zoom")
	}
	return m, nil
}

func (l *Loader) fetch(ctx context.Context, src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("manifest read failed (%s): %w", src, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("manifest fetch failed (%s): %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("manifest fetch failed (%s): %s", src, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
