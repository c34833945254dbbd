package descriptor

import (
	"maps"
	"path/filepath"
	"reflect"
	"slices"
)

// Descriptor is the resolved, immutable build description consumed by the
// bundler. It is only produced by Resolve; accessors return copies.
type Descriptor struct {
	mode           Mode
	entryPoints    []string
	outputPath     string
	outputFilename string
	publicPath     string
	library        *LibraryExport
	extensions     []string
	aliases        map[string]string
	rules          []TransformRule
	sourceMap      SourceMapMode

	// development only
	devServer *DevServer

	// production only
	extras *ProductionExtras
}

// Mode returns the mode the descriptor was resolved for.
func (d *Descriptor) Mode() Mode { return d.mode }

// EntryPoints returns the ordered module identifiers to bundle from.
func (d *Descriptor) EntryPoints() []string { return slices.Clone(d.entryPoints) }

// OutputPath returns the output directory.
func (d *Descriptor) OutputPath() string { return d.outputPath }

// OutputFilename returns the artifact file name.
func (d *Descriptor) OutputFilename() string { return d.outputFilename }

// OutputFile returns the artifact path (output directory joined with the file name).
func (d *Descriptor) OutputFile() string { return filepath.Join(d.outputPath, d.outputFilename) }

// PublicPath returns the URL prefix the artifact is served from, if any.
func (d *Descriptor) PublicPath() string { return d.publicPath }

// Library returns the library export, if the bundle is built as a library.
func (d *Descriptor) Library() (LibraryExport, bool) {
	if d.library == nil {
		return LibraryExport{}, false
	}
	return *d.library, true
}

// ResolvableExtensions returns the suffixes tried, in order, for extensionless imports.
func (d *Descriptor) ResolvableExtensions() []string { return slices.Clone(d.extensions) }

// ModuleAliases returns the import specifier to module path mapping.
func (d *Descriptor) ModuleAliases() map[string]string { return maps.Clone(d.aliases) }

// TransformRules returns the ordered transform rules.
func (d *Descriptor) TransformRules() []TransformRule { return cloneRules(d.rules) }

// SourceMapMode returns the source map mode.
func (d *Descriptor) SourceMapMode() SourceMapMode { return d.sourceMap }

// DevServer returns the dev server options. Present iff the mode is development.
func (d *Descriptor) DevServer() (DevServer, bool) {
	if d.devServer == nil {
		return DevServer{}, false
	}
	return *d.devServer, true
}

// ProductionExtras returns the post-processing directives. Present iff the
// mode is production.
func (d *Descriptor) ProductionExtras() (ProductionExtras, bool) {
	if d.extras == nil {
		return ProductionExtras{}, false
	}
	return ProductionExtras{
		Constants: slices.Clone(d.extras.Constants),
		Minify:    d.extras.Minify,
	}, true
}

// Equal reports whether two descriptors are structurally identical.
func (d *Descriptor) Equal(other *Descriptor) bool {
	if d == nil || other == nil {
		return d == other
	}
	return reflect.DeepEqual(d, other)
}

func cloneRules(rules []TransformRule) []TransformRule {
	if rules == nil {
		return nil
	}
	out := make([]TransformRule, len(rules))
	for i, r := range rules {
		out[i] = TransformRule{
			Test:    r.Test,
			Chain:   cloneChain(r.Chain),
			Include: slices.Clone(r.Include),
			Exclude: slices.Clone(r.Exclude),
		}
	}
	return out
}

func cloneChain(chain []TransformStep) []TransformStep {
	if chain == nil {
		return nil
	}
	out := make([]TransformStep, len(chain))
	for i, step := range chain {
		out[i] = TransformStep{Name: step.Name}
		if step.Options != nil {
			out[i].Options = cloneValue(step.Options).(map[string]any)
		}
	}
	return out
}

// cloneValue deep-copies the map/slice shapes produced by YAML and JSON decoding.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}
