// Package service contains the business logic behind the ixmaps API.
package service

import (
	"errors"
	"time"

	"github.com/joeblew999/plat-ixmaps/internal/engine"
	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
	"github.com/joeblew999/plat-ixmaps/internal/theme"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
	ErrInvalid  = errors.New("invalid request")
)

// MapInfo describes an embedded map session.
// Huma reads the tags for OpenAPI and validation.
type MapInfo struct {
	ID      string        `json:"id" doc:"Map ID" example:"world"`
	Target  string        `json:"target" doc:"Container the map is embedded in" example:"map"`
	State   string        `json:"state" enum:"pending,ready,failed" doc:"Builder state"`
	Error   string        `json:"error,omitempty" doc:"First error recorded on the map"`
	Queued  int           `json:"queued" doc:"Calls waiting for the map to become ready"`
	Created time.Time     `json:"created" doc:"Creation time"`
	Map     *engine.State `json:"map,omitempty" doc:"Engine state, once ready"`
}

// CreateMap is the request to embed a new map.
type CreateMap struct {
	ID      string             `json:"id,omitempty" maxLength:"64" doc:"Map ID, derived from the target when empty" example:"world"`
	Target  string             `json:"target,omitempty" maxLength:"100" doc:"Container ID, defaults to the map ID" example:"map"`
	Options mapbuilder.Options `json:"options,omitempty" doc:"Options passed to the map engine"`
}

// Theme is a stored layer definition.
type Theme struct {
	ID         string            `json:"id" doc:"Theme ID" example:"population"`
	Definition *theme.Definition `json:"definition" doc:"Layer definition"`
}

// SourceFile represents a data file layers can reference by name.
type SourceFile struct {
	Name     string `json:"name" doc:"File name, usable as a layer data URL" example:"regions.geojson"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	DataType string `json:"dataType" doc:"Layer data type for the file" example:"geojson"`
}
