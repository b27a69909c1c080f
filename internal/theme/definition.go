// Package theme assembles declarative ixmaps layer definitions ("themes").
//
// A theme names a layer, a data source, field bindings, a visual style and
// descriptive metadata. Builders accumulate a Definition through fluent calls
// and hand it out unchanged; no validation happens here, the map engine
// interprets the tokens.
package theme

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLayer names a layer created without a name.
	DefaultLayer = "generic"
	// DefaultField is the primary binding field of a fresh definition.
	DefaultField = "$item$"
	// DefaultType is the visualization type of a fresh definition.
	DefaultType = "CHART|DOT"
	// FeatureType is forced on geometry-bearing data sources.
	FeatureType = "FEATURES|NOLEGEND"
	// GeometryField is the lookup field of geometry-bearing data sources.
	GeometryField = "geometry"
	// TypeExternal marks a data source that is referenced, not fetched.
	TypeExternal = "ext"
)

// Definition is the materialized layer definition.
type Definition struct {
	Layer    string            `json:"layer" yaml:"layer"`
	Data     Source            `json:"data" yaml:"data"`
	Field    string            `json:"field" yaml:"field"`
	Field100 string            `json:"field100,omitempty" yaml:"field100,omitempty"`
	Binding  map[string]string `json:"binding,omitempty" yaml:"binding,omitempty"`
	Style    Params            `json:"style" yaml:"style"`
	Meta     Params            `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Params is a free-form parameter mapping (style, metadata).
type Params map[string]any

// String returns the value of key when it is a string.
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Source describes where layer data comes from. Known keys: name, url, ext,
// query, type, process, obj. Any other key given by the caller is kept.
type Source map[string]any

func (s Source) str(key string) string {
	v, _ := s[key].(string)
	return v
}

// Name returns the data source name.
func (s Source) Name() string { return s.str("name") }

// URL returns the fetchable location of the data, if any.
func (s Source) URL() string { return s.str("url") }

// Ext returns the external reference of the data, if any.
func (s Source) Ext() string { return s.str("ext") }

// Query returns the data query, if any.
func (s Source) Query() string { return s.str("query") }

// Type returns the data format (csv, geojson, topojson, ext, ...).
func (s Source) Type() string { return s.str("type") }

// Process returns the data process identifier, if any.
func (s Source) Process() string { return s.str("process") }

// Inline returns the inline data payload, if any.
func (s Source) Inline() (any, bool) {
	v, ok := s["obj"]
	return v, ok
}

func newDefinition(name string) *Definition {
	if name == "" {
		name = DefaultLayer
	}
	return &Definition{
		Layer: name,
		Data:  Source{},
		Field: DefaultField,
		Style: Params{
			"type":        DefaultType,
			"lookupfield": GeometryField,
		},
	}
}

// Clone returns a deep copy of the definition that shares no maps with d.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	c := *d
	c.Data = Source(cloneMap(d.Data))
	c.Style = Params(cloneMap(d.Style))
	if d.Meta != nil {
		c.Meta = Params(cloneMap(d.Meta))
	}
	if d.Binding != nil {
		c.Binding = make(map[string]string, len(d.Binding))
		for k, v := range d.Binding {
			c.Binding[k] = v
		}
	}
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Params:
		return Params(cloneMap(t))
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Format selects an encoding for Encode.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Encode writes the definition to w in the given format.
func (d *Definition) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(d)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
