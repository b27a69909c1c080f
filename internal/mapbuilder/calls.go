package mapbuilder

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-ixmaps/internal/theme"
)

// Call is one chainable invocation. The concrete types below are the only
// implementations; a Call never changes after it is created.
type Call interface {
	Method() Method
	apply(h Handle) error
}

type ViewCall struct {
	Center orb.Point
	Zoom   float64
}

type LayerCall struct {
	Definition *theme.Definition
}

type OptionsCall struct {
	Options Options
}

type OnCall struct {
	Event   string
	Handler EventFunc
}

type AttributionCall struct {
	Text string
}

type RequireCall struct {
	Path string
}

type LocalCall struct {
	Global string
	Local  string
}

type LegendCall struct {
	Legend string
}

func (ViewCall) Method() Method        { return MethodView }
func (LayerCall) Method() Method       { return MethodLayer }
func (OptionsCall) Method() Method     { return MethodOptions }
func (OnCall) Method() Method          { return MethodOn }
func (AttributionCall) Method() Method { return MethodAttribution }
func (RequireCall) Method() Method     { return MethodRequire }
func (LocalCall) Method() Method       { return MethodLocal }
func (LegendCall) Method() Method      { return MethodLegend }

func missing(m Method) error {
	return fmt.Errorf("%w: %q", ErrMissingHandleMethod, m)
}

func (c ViewCall) apply(h Handle) error {
	v, ok := h.(Viewer)
	if !ok {
		return missing(c.Method())
	}
	return v.View(c.Center, c.Zoom)
}

func (c LayerCall) apply(h Handle) error {
	l, ok := h.(LayerAdder)
	if !ok {
		return missing(c.Method())
	}
	return l.Layer(c.Definition)
}

func (c OptionsCall) apply(h Handle) error {
	o, ok := h.(Configurer)
	if !ok {
		return missing(c.Method())
	}
	return o.Options(c.Options)
}

func (c OnCall) apply(h Handle) error {
	l, ok := h.(Listener)
	if !ok {
		return missing(c.Method())
	}
	return l.On(c.Event, c.Handler)
}

func (c AttributionCall) apply(h Handle) error {
	a, ok := h.(Attributor)
	if !ok {
		return missing(c.Method())
	}
	return a.Attribution(c.Text)
}

func (c RequireCall) apply(h Handle) error {
	r, ok := h.(Requirer)
	if !ok {
		return missing(c.Method())
	}
	return r.Require(c.Path)
}

func (c LocalCall) apply(h Handle) error {
	l, ok := h.(Localizer)
	if !ok {
		return missing(c.Method())
	}
	return l.Local(c.Global, c.Local)
}

func (c LegendCall) apply(h Handle) error {
	l, ok := h.(Legender)
	if !ok {
		return missing(c.Method())
	}
	return l.Legend(c.Legend)
}
