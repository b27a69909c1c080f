package theme

import (
	"fmt"
	"math/rand/v2"
	"regexp"
)

// namePrefix starts every generated data source name.
const namePrefix = "DBTABLE"

var geoTypePattern = regexp.MustCompile(`(?i)geojson|topojson`)

// Builder accumulates a Definition. R is what Define hands back: the
// definition itself for standalone builders, the owning map builder for
// builders obtained from a map.
type Builder[R any] struct {
	def    *Definition
	submit func(*Definition) R
}

// New starts a standalone builder whose Define returns the definition.
func New(name string) *Builder[*Definition] {
	return Bind(name, func(d *Definition) *Definition { return d })
}

// Bind starts a builder whose Define passes the definition to submit and
// returns submit's result.
func Bind[R any](name string, submit func(*Definition) R) *Builder[R] {
	return &Builder[R]{def: newDefinition(name), submit: submit}
}

// Theme is an alias for New.
func Theme(name string) *Builder[*Definition] {
	return New(name)
}

// Layer builds a definition in callback style: fn receives the builder and
// the accumulated definition is returned. Without fn the defaults come back.
func Layer(name string, fn func(*Builder[*Definition])) *Definition {
	b := New(name)
	if fn != nil {
		fn(b)
	}
	return b.JSON()
}

// DataOption refines a Data call.
type DataOption func(*dataOptions)

type dataOptions struct {
	typ  string
	name string
}

// AsType sets the data format, e.g. "csv", "geojson" or TypeExternal.
func AsType(typ string) DataOption {
	return func(o *dataOptions) { o.typ = typ }
}

// Named sets the data source name.
func Named(name string) DataOption {
	return func(o *dataOptions) { o.name = name }
}

// Data configures the data source. src is a URL string, a configuration
// map (keys url, ext, query, type, name, data, ...), nil, or any other value
// taken as inline data.
//
// A url wins over ext, ext over query, query over a bare type. A geojson or
// topojson type switches the style to features looked up by geometry; later
// type changes do not undo this.
func (b *Builder[R]) Data(src any, opts ...DataOption) *Builder[R] {
	var o dataOptions
	for _, opt := range opts {
		opt(&o)
	}

	d := b.def.Data
	d["name"] = o.name
	if o.name == "" {
		d["name"] = generateName()
	}

	switch v := src.(type) {
	case nil:
		d.setType(firstNonEmpty(o.typ, TypeExternal))
	case string:
		if v == "" {
			d.setType(firstNonEmpty(o.typ, TypeExternal))
			break
		}
		if o.typ == TypeExternal {
			d["ext"] = v
		} else {
			d["url"] = v
		}
		d.setType(o.typ)
	case map[string]any:
		d.merge(v, o)
	case Source:
		d.merge(v, o)
	default:
		d["obj"] = v
		d.setType(o.typ)
	}

	if geoTypePattern.MatchString(d.Type()) {
		b.def.Style["lookupfield"] = GeometryField
		b.def.Style["type"] = FeatureType
	}
	return b
}

func (d Source) merge(obj map[string]any, o dataOptions) {
	if o.typ != "" {
		d["obj"] = obj
	} else {
		for k, v := range obj {
			d[k] = v
		}
		if inline, ok := obj["data"]; ok {
			d["obj"] = inline
		}
	}

	if name, _ := obj["name"].(string); name != "" && o.name == "" {
		d["name"] = name
	}
	if o.name != "" {
		d["name"] = o.name
	}

	objType, _ := obj["type"].(string)
	typ := firstNonEmpty(o.typ, objType)
	url, _ := obj["url"].(string)
	ext, _ := obj["ext"].(string)
	query, _ := obj["query"].(string)

	switch {
	case url != "":
		if typ == TypeExternal {
			d["ext"] = url
		} else {
			d["url"] = url
		}
		d.setType(typ)
	case ext != "":
		d["ext"] = ext
		d.setType(firstNonEmpty(typ, TypeExternal))
	case query != "":
		d["query"] = query
		d.setType(firstNonEmpty(typ, TypeExternal))
	default:
		d.setType(typ)
	}
}

func (d Source) setType(typ string) {
	if typ == "" {
		delete(d, "type")
		return
	}
	d["type"] = typ
}

// Process sets the data process identifier.
func (b *Builder[R]) Process(name string) *Builder[R] {
	b.def.Data["process"] = name
	return b
}

// Query sets the data query.
func (b *Builder[R]) Query(text string) *Builder[R] {
	b.def.Data["query"] = text
	return b
}

// Field sets the primary value field.
func (b *Builder[R]) Field(name string) *Builder[R] {
	b.def.Field = name
	return b
}

// Field100 sets the secondary (normalization) field.
func (b *Builder[R]) Field100(name string) *Builder[R] {
	b.def.Field100 = name
	return b
}

// Lookup sets the field used to join data to map geometry.
func (b *Builder[R]) Lookup(name string) *Builder[R] {
	b.def.Style["lookupfield"] = name
	return b
}

// Geo is an alias for Lookup.
func (b *Builder[R]) Geo(name string) *Builder[R] {
	return b.Lookup(name)
}

// Binding merges role→field bindings (position, geo, id, value, size,
// lookup, item, ...). Existing roles not named in m are kept.
func (b *Builder[R]) Binding(m map[string]string) *Builder[R] {
	if b.def.Binding == nil {
		b.def.Binding = make(map[string]string, len(m))
	}
	for k, v := range m {
		b.def.Binding[k] = v
	}
	return b
}

// Encoding merges bindings given as field names or as {"field": name}
// objects. Objects without a field are kept in their printed form.
func (b *Builder[R]) Encoding(m map[string]any) *Builder[R] {
	flat := make(map[string]string, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case string:
			flat[k] = t
		case map[string]any:
			if f, ok := t["field"].(string); ok && f != "" {
				flat[k] = f
			} else {
				flat[k] = fmt.Sprint(t)
			}
		case nil:
		default:
			flat[k] = fmt.Sprint(t)
		}
	}
	return b.Binding(flat)
}

// Filter sets the feature filter expression.
func (b *Builder[R]) Filter(expr string) *Builder[R] {
	b.def.Style["filter"] = expr
	return b
}

// Type replaces the visualization type, e.g. "CHOROPLETH|CATEGORICAL".
func (b *Builder[R]) Type(typ string) *Builder[R] {
	b.def.Style["type"] = typ
	return b
}

// Style merges visual parameters into the style.
func (b *Builder[R]) Style(m map[string]any) *Builder[R] {
	for k, v := range m {
		b.def.Style[k] = v
	}
	return b
}

// Meta merges descriptive metadata (title, splash, description, author, source).
func (b *Builder[R]) Meta(m map[string]any) *Builder[R] {
	if b.def.Meta == nil {
		b.def.Meta = make(Params, len(m))
	}
	for k, v := range m {
		b.def.Meta[k] = v
	}
	return b
}

// Title sets the layer title shown in the legend.
func (b *Builder[R]) Title(text string) *Builder[R] {
	b.def.Style["title"] = text
	return b
}

// Definition returns the live definition accumulated so far.
func (b *Builder[R]) Definition() *Definition {
	return b.def
}

// JSON is an alias for Definition.
func (b *Builder[R]) JSON() *Definition {
	return b.def
}

// Define finishes the chain. Standalone builders return the definition;
// map-bound builders submit it to their map and return the map.
func (b *Builder[R]) Define() R {
	return b.submit(b.def)
}

func generateName() string {
	return fmt.Sprintf("%s%d", namePrefix, rand.IntN(100000000))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
