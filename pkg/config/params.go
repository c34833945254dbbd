package config

import (
	"maps"
	"slices"

	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
)

// Params converts the target into the resolver's static parameters.
// The target must have passed Validate.
func (t *Target) Params() descriptor.StaticParams {
	p := descriptor.StaticParams{
		EntryPoints:          slices.Clone([]string(t.Entry)),
		OutputPath:           t.Output.Path,
		OutputFilename:       t.Output.Filename,
		PublicPath:           t.Output.PublicPath,
		ResolvableExtensions: slices.Clone(t.Resolve.Extensions),
		ModuleAliases:        maps.Clone(t.Resolve.Alias),
	}

	if t.Output.Library != nil {
		format, _ := descriptor.ParseModuleFormat(t.Output.Library.Format)
		p.Library = &descriptor.LibraryExport{
			Name:   t.Output.Library.Name,
			Format: format,
		}
	}

	for _, rule := range t.Rules {
		r := descriptor.TransformRule{
			Test:    rule.Test,
			Include: slices.Clone([]string(rule.Include)),
			Exclude: slices.Clone([]string(rule.Exclude)),
		}
		for _, use := range rule.Use {
			r.Chain = append(r.Chain, descriptor.TransformStep{
				Name:    use.Loader,
				Options: maps.Clone(use.Options),
			})
		}
		p.TransformRules = append(p.TransformRules, r)
	}

	if t.DevServer != nil {
		def := descriptor.DefaultDevServer()
		p.DevServer = descriptor.DevServer{
			HistoryFallback: boolOr(t.DevServer.HistoryAPIFallback, def.HistoryFallback),
			Port:            t.DevServer.Port,
			VerboseLogging:  !boolOr(t.DevServer.NoInfo, !def.VerboseLogging),
		}
	}

	return p
}

// TargetFromParams renders static parameters as a build file target.
func TargetFromParams(name string, p descriptor.StaticParams) Target {
	t := Target{
		Name:  name,
		Entry: slices.Clone(p.EntryPoints),
		Output: Output{
			Path:       p.OutputPath,
			Filename:   p.OutputFilename,
			PublicPath: p.PublicPath,
		},
		Resolve: Resolve{
			Extensions: slices.Clone(p.ResolvableExtensions),
			Alias:      maps.Clone(p.ModuleAliases),
		},
	}

	if p.Library != nil {
		t.Output.Library = &Library{Name: p.Library.Name, Format: p.Library.Format.String()}
	}

	for _, rule := range p.TransformRules {
		r := Rule{
			Test:    rule.Test,
			Include: slices.Clone(rule.Include),
			Exclude: slices.Clone(rule.Exclude),
		}
		for _, step := range rule.Chain {
			r.Use = append(r.Use, Loader{Loader: step.Name, Options: maps.Clone(step.Options)})
		}
		t.Rules = append(t.Rules, r)
	}

	if p.DevServer != (descriptor.DevServer{}) {
		fallback := p.DevServer.HistoryFallback
		noInfo := !p.DevServer.VerboseLogging
		t.DevServer = &DevServer{
			HistoryAPIFallback: &fallback,
			Port:               p.DevServer.Port,
			NoInfo:             &noInfo,
		}
	}

	return t
}

// applyPreset fills the fields the target leaves unset from its preset.
func applyPreset(t *Target) {
	p, ok := descriptor.Preset(t.Preset)
	if !ok {
		return
	}
	preset := TargetFromParams(t.Name, p)

	if len(t.Entry) == 0 {
		t.Entry = preset.Entry
	}
	if t.Output.Path == "" {
		t.Output.Path = preset.Output.Path
		if t.Output.Filename == "" {
			t.Output.Filename = preset.Output.Filename
		}
	}
	if t.Output.PublicPath == "" {
		t.Output.PublicPath = preset.Output.PublicPath
	}
	if t.Output.Library == nil {
		t.Output.Library = preset.Output.Library
	}
	if len(t.Resolve.Extensions) == 0 {
		t.Resolve.Extensions = preset.Resolve.Extensions
	}
	if t.Resolve.Alias == nil {
		t.Resolve.Alias = preset.Resolve.Alias
	}
	if t.Rules == nil {
		t.Rules = preset.Rules
	}
	if t.DevServer == nil {
		t.DevServer = preset.DevServer
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
