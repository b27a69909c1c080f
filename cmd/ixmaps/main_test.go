package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
	"github.com/joeblew999/plat-ixmaps/internal/theme"
)

func TestResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ixmaps.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = 9000
data_dir = "/srv/ixmaps"
engine = "engine.yaml"
duckdb = true

[map]
mode = "pan"
`), 0644))

	opts := &Options{Host: "0.0.0.0", Port: 7000, DataDir: ".data", LogLevel: "info", Config: path}
	defaults, err := resolve(opts, func(name string) bool { return name == "port" })
	require.NoError(t, err)

	assert.Equal(t, 7000, opts.Port, "flag wins over file")
	assert.Equal(t, "/srv/ixmaps", opts.DataDir)
	assert.Equal(t, "engine.yaml", opts.Engine)
	assert.True(t, opts.DuckDB)
	assert.Equal(t, "0.0.0.0", opts.Host)
	assert.Equal(t, mapbuilder.Options{"mode": "pan"}, defaults)
}

func TestResolve_NoFile(t *testing.T) {
	opts := &Options{Port: 8086}
	defaults, err := resolve(opts, func(string) bool { return false })
	require.NoError(t, err)
	assert.Nil(t, defaults)
	assert.Equal(t, 8086, opts.Port)

	opts.Config = filepath.Join(t.TempDir(), "missing.toml")
	_, err = resolve(opts, func(string) bool { return false })
	assert.Error(t, err)
}

func TestLayerCmd(t *testing.T) {
	cmd := newLayerCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"population",
		"--data", "regions.geojson", "--data-type", "geojson",
		"--field", "pop", "--binding", "id=code",
		"--type", "CHOROPLETH|EQUIDISTANT", "--title", "Population",
	})
	require.NoError(t, cmd.Execute())

	var def theme.Definition
	require.NoError(t, json.Unmarshal(out.Bytes(), &def))
	assert.Equal(t, "population", def.Layer)
	assert.Equal(t, "regions.geojson", def.Data.URL())
	assert.Equal(t, "pop", def.Field)
	assert.Equal(t, "code", def.Binding["id"])
	assert.Equal(t, "CHOROPLETH|EQUIDISTANT", def.Style.String("type"))
	assert.Equal(t, "Population", def.Style.String("title"))
}

func TestLayerCmd_YAML(t *testing.T) {
	cmd := newLayerCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"grid", "--yaml"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "layer: grid")
}
