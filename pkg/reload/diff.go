package reload

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
)

// Change is one descriptor field that differs between two resolutions.
type Change struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

func (c Change) String() string {
	return fmt.Sprintf("%s: %s -> %s", c.Field, c.Old, c.New)
}

// Diff lists the fields that differ between old and new, in descriptor
// field order. A nil old descriptor differs in every field.
func Diff(old, new *descriptor.Descriptor) []Change {
	var changes []Change
	add := func(field string, a, b any) {
		if old != nil && reflect.DeepEqual(a, b) {
			return
		}
		changes = append(changes, Change{Field: field, Old: render(old != nil, a), New: render(true, b)})
	}

	var o descriptor.Descriptor
	if old != nil {
		o = *old
	}

	add("mode", o.Mode().String(), new.Mode().String())
	add("entryPoints", o.EntryPoints(), new.EntryPoints())
	add("outputPath", o.OutputPath(), new.OutputPath())
	add("outputFilename", o.OutputFilename(), new.OutputFilename())
	add("publicPath", o.PublicPath(), new.PublicPath())
	add("library", optional(o.Library()), optional(new.Library()))
	add("resolvableExtensions", o.ResolvableExtensions(), new.ResolvableExtensions())
	add("moduleAliases", aliases(o.ModuleAliases()), aliases(new.ModuleAliases()))
	add("transformRules", o.TransformRules(), new.TransformRules())
	add("sourceMap", o.SourceMapMode().String(), new.SourceMapMode().String())
	add("devServer", optional(o.DevServer()), optional(new.DevServer()))
	add("productionExtras", optional(o.ProductionExtras()), optional(new.ProductionExtras()))

	return changes
}

func optional[T any](v T, ok bool) any {
	if !ok {
		return nil
	}
	return v
}

// aliases renders a map in key order so equal maps compare and print alike.
func aliases(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return strings.Join(parts, ",")
}

func render(present bool, v any) string {
	if !present || v == nil {
		return "<none>"
	}
	switch tv := v.(type) {
	case string:
		if tv == "" {
			return `""`
		}
		return tv
	case []string:
		return "[" + strings.Join(tv, " ") + "]"
	}
	return fmt.Sprintf("%+v", v)
}
