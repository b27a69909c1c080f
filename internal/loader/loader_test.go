package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
)

var lastManifest Manifest

func init() {
	Register("stub", func(m Manifest) (mapbuilder.Factory, error) {
		lastManifest = m
		return func(string, mapbuilder.Options, mapbuilder.ReadyFunc) error { return nil }, nil
	})
	Register("broken", func(m Manifest) (mapbuilder.Factory, error) {
		return nil, assert.AnError
	})
}

func TestLoad_Builtin(t *testing.T) {
	f, err := New(zerolog.Nop()).Load(context.Background(), "builtin:stub")
	require.NoError(t, err)
	assert.NotNil(t, f)
	assert.Equal(t, "stub", lastManifest.Engine)
}

func TestLoad_BuiltinSettings(t *testing.T) {
	_, err := New(zerolog.Nop()).Load(context.Background(), "builtin:stub?data_dir=%2Fsrv%2Fdata&duckdb=true&max_zoom=12")
	require.NoError(t, err)
	assert.Equal(t, "/srv/data", lastManifest.Setting("data_dir"))
	assert.True(t, lastManifest.Flag("duckdb"))
	assert.Equal(t, 12.0, lastManifest.MaxZoom)
	assert.NotContains(t, lastManifest.Settings, "max_zoom")

	_, err = New(zerolog.Nop()).Load(context.Background(), "builtin:stub?max_zoom=high")
	assert.ErrorIs(t, err, ErrLoad)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine: stub
name: test engine
version: "2.1"
max_zoom: 18
settings:
  data_dir: /tmp/geo
  duckdb: true
`), 0644))

	_, err := New(zerolog.Nop()).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "2.1", lastManifest.Version)
	assert.Equal(t, 18.0, lastManifest.MaxZoom)
	assert.Equal(t, "/tmp/geo", lastManifest.Setting("data_dir"))
	assert.True(t, lastManifest.Flag("duckdb"))
}

func TestLoad_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/engine.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"engine": "stub", "version": "3"}`))
	}))
	defer srv.Close()

	l := New(zerolog.Nop())
	_, err := l.Load(context.Background(), srv.URL+"/engine.json")
	require.NoError(t, err)
	assert.Equal(t, "3", lastManifest.Version)

	_, err = l.Load(context.Background(), srv.URL+"/missing.json")
	assert.ErrorIs(t, err, ErrLoad)
	assert.Contains(t, err.Error(), "404")
}

func TestLoad_Failures(t *testing.T) {
	dir := t.TempDir()
	noEngine := filepath.Join(dir, "none.yaml")
	require.NoError(t, os.WriteFile(noEngine, []byte("name: x\n"), 0644))
	garbage := filepath.Join(dir, "garbage.yaml")
	require.NoError(t, os.WriteFile(garbage, []byte("engine: [unclosed"), 0644))

	tests := []struct {
		name string
		src  string
	}{
		{name: "unknown engine", src: "builtin:nope"},
		{name: "engine error", src: "builtin:broken"},
		{name: "missing file", src: filepath.Join(dir, "missing.yaml")},
		{name: "no engine named", src: noEngine},
		{name: "unparseable", src: garbage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(zerolog.Nop()).Func(tt.src)(context.Background())
			assert.ErrorIs(t, err, ErrLoad)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	assert.Panics(t, func() {
		Register("stub", func(Manifest) (mapbuilder.Factory, error) { return nil, nil })
	})
	assert.Panics(t, func() { Register("nil", nil) })
	assert.Contains(t, Engines(), "stub")
}
