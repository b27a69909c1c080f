package mapbuilder

import "strings"

// Method names a chainable map operation.
type Method string

const (
	MethodView        Method = "view"
	MethodLayer       Method = "layer"
	MethodOptions     Method = "options"
	MethodOn          Method = "on"
	MethodAttribution Method = "attribution"
	MethodRequire     Method = "require"
	MethodLocal       Method = "local"
	MethodLegend      Method = "legend"
)

// methods is the allow-list, in documentation order.
var methods = []Method{
	MethodView, MethodLayer, MethodOptions, MethodOn,
	MethodAttribution, MethodRequire, MethodLocal, MethodLegend,
}

// Methods returns the chainable method allow-list.
func Methods() []Method {
	return append([]Method(nil), methods...)
}

// ParseMethod returns the method called name, if it is allow-listed.
func ParseMethod(name string) (Method, bool) {
	for _, m := range methods {
		if string(m) == name {
			return m, true
		}
	}
	return "", false
}

// Supported reports whether name is a chainable method.
func Supported(name string) bool {
	_, ok := ParseMethod(name)
	return ok
}

func supportedList() string {
	names := make([]string, 0, len(methods)+2)
	for _, m := range methods {
		names = append(names, string(m))
	}
	names = append(names, "then", "catch")
	return strings.Join(names, ", ")
}
