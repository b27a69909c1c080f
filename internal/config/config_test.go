package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ixmaps.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
host = "127.0.0.1"
port = 9090
data_dir = " /srv/ixmaps "
engine = "builtin:memory"
log_level = "DEBUG"
duckdb = true

[map]
mode = "pan"
basemap = "CartoDB - Positron"
`))
	require.NoError(t, err)
	assert.Equal(t, Config{
		Host:     "127.0.0.1",
		Port:     9090,
		DataDir:  "/srv/ixmaps",
		Engine:   "builtin:memory",
		LogLevel: "debug",
		DuckDB:   true,
		Map:      map[string]any{"mode": "pan", "basemap": "CartoDB - Positron"},
	}, cfg)
}

func TestLoad_Partial(t *testing.T) {
	cfg, err := Load(writeConfig(t, `port = 8000`))
	require.NoError(t, err)
	assert.Equal(t, Config{Port: 8000}, cfg)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `port = 70000`))
	assert.ErrorContains(t, err, "out of range")

	_, err = Load(writeConfig(t, `colour = "red"`))
	assert.ErrorContains(t, err, "colour")

	_, err = Load(writeConfig(t, `port = "eighty"`))
	assert.Error(t, err)
}
