package theme

// Spec is the declarative form of a builder chain, as accepted over HTTP
// and from CLI flags. Empty fields leave the builder defaults alone.
type Spec struct {
	Name     string            `json:"name" yaml:"name" doc:"Layer (theme) name" example:"population"`
	Data     any               `json:"data,omitempty" yaml:"data,omitempty" doc:"URL, source object or inline data"`
	DataType string            `json:"data_type,omitempty" yaml:"data_type,omitempty" doc:"Data type, e.g. geojson, csv, ext" example:"geojson"`
	DataName string            `json:"data_name,omitempty" yaml:"data_name,omitempty" doc:"Data source name"`
	Query    string            `json:"query,omitempty" yaml:"query,omitempty" doc:"Data query"`
	Process  string            `json:"process,omitempty" yaml:"process,omitempty" doc:"Data processing function name"`
	Field    string            `json:"field,omitempty" yaml:"field,omitempty" doc:"Primary value field" example:"pop"`
	Field100 string            `json:"field100,omitempty" yaml:"field100,omitempty" doc:"Normalization field"`
	Lookup   string            `json:"lookup,omitempty" yaml:"lookup,omitempty" doc:"Geometry join field"`
	Binding  map[string]string `json:"binding,omitempty" yaml:"binding,omitempty" doc:"Role to field bindings"`
	Type     string            `json:"type,omitempty" yaml:"type,omitempty" doc:"Visualization type" example:"CHOROPLETH|EQUIDISTANT"`
	Filter   string            `json:"filter,omitempty" yaml:"filter,omitempty" doc:"Feature filter expression"`
	Title    string            `json:"title,omitempty" yaml:"title,omitempty" doc:"Legend title"`
	Style    map[string]any    `json:"style,omitempty" yaml:"style,omitempty" doc:"Style parameters"`
	Meta     map[string]any    `json:"meta,omitempty" yaml:"meta,omitempty" doc:"Descriptive metadata"`
}

// Apply runs the spec through b in builder order: data first, so a
// geometry type can set its style defaults before explicit style wins.
func Apply[R any](b *Builder[R], s Spec) *Builder[R] {
	if s.Data != nil || s.DataType != "" || s.DataName != "" {
		var opts []DataOption
		if s.DataType != "" {
			opts = append(opts, AsType(s.DataType))
		}
		if s.DataName != "" {
			opts = append(opts, Named(s.DataName))
		}
		b.Data(s.Data, opts...)
	}
	if s.Query != "" {
		b.Query(s.Query)
	}
	if s.Process != "" {
		b.Process(s.Process)
	}
	if s.Field != "" {
		b.Field(s.Field)
	}
	if s.Field100 != "" {
		b.Field100(s.Field100)
	}
	if s.Lookup != "" {
		b.Lookup(s.Lookup)
	}
	if len(s.Binding) > 0 {
		b.Binding(s.Binding)
	}
	if s.Type != "" {
		b.Type(s.Type)
	}
	if s.Filter != "" {
		b.Filter(s.Filter)
	}
	if len(s.Style) > 0 {
		b.Style(s.Style)
	}
	if s.Title != "" {
		b.Title(s.Title)
	}
	if len(s.Meta) > 0 {
		b.Meta(s.Meta)
	}
	return b
}

// Build materializes a standalone definition from s.
func Build(s Spec) *Definition {
	return Apply(New(s.Name), s).Define()
}
