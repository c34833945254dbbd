package descriptor

import (
	"fmt"
	"maps"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// DefaultOutputFilename is used when neither OutputFilename nor a file-like
// OutputPath names the artifact.
const DefaultOutputFilename = "bundle.js"

// Resolve derives the build descriptor for mode from the static parameters.
// It is a pure function: the result shares no memory with p and no I/O is
// performed. Missing or malformed mandatory parameters yield
// ConfigurationErrors naming each offending field.
func Resolve(mode Mode, p StaticParams) (*Descriptor, error) {
	if errs := validate(p); len(errs) > 0 {
		return nil, errs
	}

	d := base(p)

	switch mode {
	case ModeProduction:
		d.mode = ModeProduction
		d.sourceMap = SourceMapExternalFull
		d.extras = &ProductionExtras{
			Constants: []EnvConstant{{Name: NodeEnvConstant, Value: ModeProduction.String()}},
			Minify: MinifyDirective{
				SuppressWarnings: true,
				StripComments:    true,
			},
		}
	default:
		d.mode = ModeDevelopment
		d.sourceMap = SourceMapInlineCheap
		dev := p.DevServer
		if dev == (DevServer{}) {
			dev = DefaultDevServer()
		} else if dev.Port == 0 {
			dev.Port = DefaultDevServer().Port
		}
		d.devServer = &dev
	}

	return d, nil
}

// base builds the mode-independent part of the descriptor.
func base(p StaticParams) *Descriptor {
	outputPath, filename := splitOutput(p.OutputPath, p.OutputFilename)

	d := &Descriptor{
		entryPoints:    slices.Clone(p.EntryPoints),
		outputPath:     outputPath,
		outputFilename: filename,
		publicPath:     p.PublicPath,
		extensions:     slices.Clone(p.ResolvableExtensions),
		aliases:        maps.Clone(p.ModuleAliases),
		rules:          cloneRules(p.TransformRules),
	}
	if d.aliases == nil {
		d.aliases = map[string]string{}
	}
	if p.Library != nil && p.Library.Format != FormatNone {
		lib := *p.Library
		d.library = &lib
	}
	return d
}

// splitOutput accepts either a directory plus file name, or a single path
// ending in a script file name ("./dist/build.js").
func splitOutput(outputPath, filename string) (string, string) {
	if filename != "" {
		return outputPath, filename
	}
	switch filepath.Ext(outputPath) {
	case ".js", ".mjs", ".cjs":
		return filepath.Dir(outputPath), filepath.Base(outputPath)
	}
	return outputPath, DefaultOutputFilename
}

func validate(p StaticParams) ConfigurationErrors {
	var errs ConfigurationErrors

	if len(p.EntryPoints) == 0 {
		errs = append(errs, ConfigurationError{"entryPoint", "is required"})
	}
	for i, entry := range p.EntryPoints {
		if strings.TrimSpace(entry) == "" {
			errs = append(errs, ConfigurationError{"entryPoint", fmt.Sprintf("entry %d is empty", i)})
		}
	}

	if strings.TrimSpace(p.OutputPath) == "" {
		errs = append(errs, ConfigurationError{"outputPath", "is required"})
	}
	if strings.ContainsRune(p.OutputFilename, filepath.Separator) {
		errs = append(errs, ConfigurationError{"outputFilename", "must be a file name, not a path"})
	}

	if len(p.ResolvableExtensions) == 0 {
		errs = append(errs, ConfigurationError{"resolvableExtensions", "must not be empty"})
	}
	seen := make(map[string]bool, len(p.ResolvableExtensions))
	for i, ext := range p.ResolvableExtensions {
		field := fmt.Sprintf("resolvableExtensions[%d]", i)
		switch {
		case !strings.HasPrefix(ext, ".") || len(ext) < 2:
			errs = append(errs, ConfigurationError{field, fmt.Sprintf("'%s' must start with '.'", ext)})
		case seen[ext]:
			errs = append(errs, ConfigurationError{field, fmt.Sprintf("duplicate extension '%s'", ext)})
		}
		seen[ext] = true
	}

	for _, from := range slices.Sorted(maps.Keys(p.ModuleAliases)) {
		to := p.ModuleAliases[from]
		if strings.TrimSuffix(from, "$") == "" || to == "" {
			errs = append(errs, ConfigurationError{"moduleAliases", fmt.Sprintf("alias '%s' -> '%s' is incomplete", from, to)})
		}
	}

	if p.Library != nil && p.Library.Format != FormatNone && p.Library.Name == "" {
		errs = append(errs, ConfigurationError{"libraryExport.name", fmt.Sprintf("is required for format '%s'", p.Library.Format)})
	}

	for i, rule := range p.TransformRules {
		prefix := fmt.Sprintf("transformRules[%d]", i)
		if rule.Test == "" {
			errs = append(errs, ConfigurationError{prefix + ".test", "is required"})
		} else if _, err := regexp.Compile(rule.Test); err != nil {
			errs = append(errs, ConfigurationError{prefix + ".test", err.Error()})
		}
		if len(rule.Chain) == 0 {
			errs = append(errs, ConfigurationError{prefix + ".chain", "must name at least one transform"})
		}
		for j, step := range rule.Chain {
			if step.Name == "" {
				errs = append(errs, ConfigurationError{fmt.Sprintf("%s.chain[%d]", prefix, j), "transform name is required"})
			}
		}
		for j, pattern := range rule.Exclude {
			if _, err := regexp.Compile(pattern); err != nil {
				errs = append(errs, ConfigurationError{fmt.Sprintf("%s.exclude[%d]", prefix, j), err.Error()})
			}
		}
	}

	if p.DevServer.Port < 0 || p.DevServer.Port > 65535 {
		errs = append(errs, ConfigurationError{"devServer.port", "must be between 0 and 65535"})
	}

	return errs
}
