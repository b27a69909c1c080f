// Package config reads the optional TOML config file of the ixmaps server.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the server configuration. Zero values mean "not set".
type Config struct {
	Host     string
	Port     int
	DataDir  string
	Engine   string
	LogLevel string
	DuckDB   bool
	// Map holds default options for every map.
	Map map[string]any
}

type fileConfig struct {
	Host     string         `toml:"host"`
	Port     int            `toml:"port"`
	DataDir  string         `toml:"data_dir"`
	Engine   string         `toml:"engine"`
	LogLevel string         `toml:"log_level"`
	DuckDB   bool           `toml:"duckdb"`
	Map      map[string]any `toml:"map"`
}

// Load reads path. Only keys present in the file are set.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config: unknown keys: %s", strings.Join(keys, ", "))
	}

	var cfg Config
	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		if raw.Port <= 0 || raw.Port > 65535 {
			return Config{}, fmt.Errorf("load config: port %d out of range", raw.Port)
		}
		cfg.Port = raw.Port
	}
	if meta.IsDefined("data_dir") {
		cfg.DataDir = strings.TrimSpace(raw.DataDir)
	}
	if meta.IsDefined("engine") {
		cfg.Engine = strings.TrimSpace(raw.Engine)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}
	if meta.IsDefined("duckdb") {
		cfg.DuckDB = raw.DuckDB
	}
	if meta.IsDefined("map") {
		cfg.Map = raw.Map
	}
	return cfg, nil
}
