package mapbuilder

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-ixmaps/internal/theme"
)

// decoder turns loosely typed arguments, as they arrive from JSON or
// scripting front ends, into a Call.
type decoder func(args []any) (Call, error)

var dispatch = map[Method]decoder{
	MethodView:        decodeView,
	MethodLayer:       decodeLayer,
	MethodOptions:     decodeOptions,
	MethodOn:          decodeOn,
	MethodAttribution: decodeString(func(s string) Call { return AttributionCall{Text: s} }),
	MethodRequire:     decodeString(func(s string) Call { return RequireCall{Path: s} }),
	MethodLegend:      decodeString(func(s string) Call { return LegendCall{Legend: s} }),
	MethodLocal:       decodeLocal,
}

// Decode builds the typed call for a method name and its arguments.
func Decode(name string, args ...any) (Call, error) {
	m, ok := ParseMethod(name)
	if !ok {
		return nil, unsupported(name)
	}
	call, err := dispatch[m](args)
	if err != nil {
		return nil, &MethodError{Method: name, Err: fmt.Errorf("%w: %v", ErrInvalidArgs, err)}
	}
	return call, nil
}

// Call dispatches a method by name and reports problems to the caller.
//
// An unknown name is recorded on the builder like any other failure and
// returned as ErrUnsupportedMethod. Bad arguments return ErrInvalidArgs
// without touching the builder. On a builder that already failed the result
// wraps ErrBuilderFailed and the cause. A call dispatched straight to a
// ready map returns the map's error.
func (b *Builder) Call(name string, args ...any) (*Builder, error) {
	call, err := Decode(name, args...)
	if errors.Is(err, ErrUnsupportedMethod) {
		b.log.Warn().Str("method", name).Msg("unsupported method called")
		b.mu.Lock()
		cont := b.recordLocked(err, name)
		b.mu.Unlock()
		if cont != nil {
			cont.reject(err)
		}
		return b, err
	}
	if err != nil {
		return b, err
	}

	if cause := b.Err(); cause != nil {
		return b, fmt.Errorf("%w: %w", ErrBuilderFailed, cause)
	}
	return b, b.invoke(call)
}

// Invoke is the lenient form of Call used for chaining: every problem is
// recorded on the builder and logged, and the builder is returned.
func (b *Builder) Invoke(name string, args ...any) *Builder {
	call, err := Decode(name, args...)
	if err != nil {
		if b.Err() != nil {
			return b
		}
		b.mu.Lock()
		cont := b.recordLocked(err, name)
		b.mu.Unlock()
		if cont != nil {
			cont.reject(err)
		}
		return b
	}
	b.invoke(call)
	return b
}

func arity(args []any, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("want %d arguments, got %d", lo, len(args))
		}
		return fmt.Errorf("want %d to %d arguments, got %d", lo, hi, len(args))
	}
	return nil
}

// decodeView accepts (center, zoom) or ({center, zoom}). Array centers are
// [lat, lng]; objects use lat/lng keys.
func decodeView(args []any) (Call, error) {
	if err := arity(args, 1, 2); err != nil {
		return nil, err
	}
	if len(args) == 1 {
		obj, ok := args[0].(map[string]any)
		if !ok {
			return nil, errors.New("view needs a center and a zoom")
		}
		center, err := toPoint(obj["center"])
		if err != nil {
			return nil, err
		}
		zoom, err := toFloat(obj["zoom"])
		if err != nil {
			return nil, fmt.Errorf("zoom: %w", err)
		}
		return ViewCall{Center: center, Zoom: zoom}, nil
	}
	center, err := toPoint(args[0])
	if err != nil {
		return nil, err
	}
	zoom, err := toFloat(args[1])
	if err != nil {
		return nil, fmt.Errorf("zoom: %w", err)
	}
	return ViewCall{Center: center, Zoom: zoom}, nil
}

func toPoint(v any) (orb.Point, error) {
	switch c := v.(type) {
	case orb.Point:
		return c, nil
	case []float64:
		if len(c) != 2 {
			return orb.Point{}, fmt.Errorf("center needs 2 coordinates, got %d", len(c))
		}
		return LatLng(c[0], c[1]), nil
	case []any:
		if len(c) != 2 {
			return orb.Point{}, fmt.Errorf("center needs 2 coordinates, got %d", len(c))
		}
		lat, err := toFloat(c[0])
		if err != nil {
			return orb.Point{}, fmt.Errorf("latitude: %w", err)
		}
		lng, err := toFloat(c[1])
		if err != nil {
			return orb.Point{}, fmt.Errorf("longitude: %w", err)
		}
		return LatLng(lat, lng), nil
	case map[string]any:
		lat, err := toFloat(c["lat"])
		if err != nil {
			return orb.Point{}, fmt.Errorf("lat: %w", err)
		}
		lng, err := toFloat(c["lng"])
		if err != nil {
			return orb.Point{}, fmt.Errorf("lng: %w", err)
		}
		return LatLng(lat, lng), nil
	default:
		return orb.Point{}, fmt.Errorf("unusable center %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

func decodeLayer(args []any) (Call, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}
	switch d := args[0].(type) {
	case *theme.Definition:
		if d == nil {
			return nil, errors.New("nil layer definition")
		}
		return LayerCall{Definition: d}, nil
	case theme.Definition:
		return LayerCall{Definition: &d}, nil
	case map[string]any:
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		var def theme.Definition
		if err := json.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("layer definition: %w", err)
		}
		return LayerCall{Definition: &def}, nil
	case string:
		return nil, fmt.Errorf("layer %q: named layers are built with LayerNamed", d)
	default:
		return nil, fmt.Errorf("unusable layer definition %T", args[0])
	}
}

func decodeOptions(args []any) (Call, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}
	switch o := args[0].(type) {
	case Options:
		return OptionsCall{Options: o}, nil
	case map[string]any:
		return OptionsCall{Options: o}, nil
	default:
		return nil, fmt.Errorf("options must be an object, got %T", args[0])
	}
}

func decodeOn(args []any) (Call, error) {
	if err := arity(args, 2, 2); err != nil {
		return nil, err
	}
	event, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("event name must be a string, got %T", args[0])
	}
	switch fn := args[1].(type) {
	case EventFunc:
		return OnCall{Event: event, Handler: fn}, nil
	case func(Event):
		return OnCall{Event: event, Handler: fn}, nil
	default:
		return nil, fmt.Errorf("handler must be a function, got %T", args[1])
	}
}

func decodeString(mk func(string) Call) decoder {
	return func(args []any) (Call, error) {
		if err := arity(args, 1, 1); err != nil {
			return nil, err
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("want a string, got %T", args[0])
		}
		return mk(s), nil
	}
}

func decodeLocal(args []any) (Call, error) {
	if err := arity(args, 2, 2); err != nil {
		return nil, err
	}
	global, ok1 := args[0].(string)
	local, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return nil, errors.New("local needs two strings")
	}
	return LocalCall{Global: global, Local: local}, nil
}
