package mapbuilder

import (
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-ixmaps/internal/theme"
)

// Handle is the map object produced by the engine factory. The builder only
// relies on the optional interfaces below; a handle lacking one of them
// fails the matching call with ErrMissingHandleMethod.
type Handle any

// Options is the configuration bag passed untouched to the engine.
type Options map[string]any

// Event is delivered to handlers registered with On.
type Event struct {
	Name string `json:"name"`
	Data any    `json:"data,omitempty"`
}

// EventFunc handles a map event.
type EventFunc func(Event)

// ReadyFunc receives the produced handle. A nil handle signals failure.
type ReadyFunc func(Handle)

// Factory asynchronously produces a map handle for target and calls ready
// exactly once. A returned error means no handle will be produced.
type Factory func(target string, opts Options, ready ReadyFunc) error

type (
	Viewer interface {
		View(center orb.Point, zoom float64) error
	}
	LayerAdder interface {
		Layer(def *theme.Definition) error
	}
	Configurer interface {
		Options(opts Options) error
	}
	Listener interface {
		On(event string, fn EventFunc) error
	}
	Attributor interface {
		Attribution(text string) error
	}
	Requirer interface {
		Require(path string) error
	}
	Localizer interface {
		Local(global, local string) error
	}
	Legender interface {
		Legend(legend string) error
	}
)

// Map is a handle implementing every chainable method.
type Map interface {
	Viewer
	LayerAdder
	Configurer
	Listener
	Attributor
	Requirer
	Localizer
	Legender
}

// LatLng builds a point from latitude and longitude, the order ixmaps views
// are written in. orb points store longitude first.
func LatLng(lat, lng float64) orb.Point {
	return orb.Point{lng, lat}
}
