package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joeblew999/plat-ixmaps/internal/theme"
)

// newLayerCmd builds a theme definition from flags and prints it.
func newLayerCmd() *cobra.Command {
	var (
		spec    theme.Spec
		useYAML bool
	)

	cmd := &cobra.Command{
		Use:   "layer NAME",
		Short: "Print a layer (theme) definition built from flags",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				spec.Name = args[0]
			}
			if data, _ := cmd.Flags().GetString("data"); data != "" {
				spec.Data = data
			}

			format := theme.FormatJSON
			if useYAML {
				format = theme.FormatYAML
			}
			if err := theme.Build(spec).Encode(cmd.OutOrStdout(), format); err != nil {
				return fmt.Errorf("encode layer: %w", err)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("data", "", "Data URL, or external data name with --data-type ext")
	f.StringVar(&spec.DataType, "data-type", "", "Data type (geojson, topojson, csv, ext, ...)")
	f.StringVar(&spec.DataName, "data-name", "", "Data source name")
	f.StringVar(&spec.Query, "query", "", "Data query")
	f.StringVar(&spec.Process, "process", "", "Data processing function")
	f.StringVar(&spec.Field, "field", "", "Primary value field")
	f.StringVar(&spec.Field100, "field100", "", "Normalization field")
	f.StringVar(&spec.Lookup, "lookup", "", "Geometry join field")
	f.StringToStringVar(&spec.Binding, "binding", nil, "Role to field bindings, e.g. id=code,value=pop")
	f.StringVar(&spec.Type, "type", "", "Visualization type, e.g. CHOROPLETH|EQUIDISTANT")
	f.StringVar(&spec.Filter, "filter", "", "Feature filter expression")
	f.StringVar(&spec.Title, "title", "", "Legend title")
	f.BoolVarP(&useYAML, "yaml", "y", false, "Output as YAML instead of JSON")
	return cmd
}
