// Package descriptor resolves static build parameters and a mode into the
// immutable build descriptor handed to the bundler.
package descriptor

import "strings"

// Mode selects between debug aids and distribution-ready output.
type Mode int

const (
	// ModeDevelopment attaches a dev server and cheap inline source maps.
	ModeDevelopment Mode = iota
	// ModeProduction drops the dev server and adds minification and env constants.
	ModeProduction
)

// String returns the canonical name of the mode.
func (m Mode) String() string {
	if m == ModeProduction {
		return "production"
	}
	return "development"
}

// ParseMode classifies a mode string. Only "production" and "prod" (any case,
// surrounding whitespace ignored) select production; everything else,
// including the empty string, is development.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return ModeProduction
	default:
		return ModeDevelopment
	}
}

// ModuleFormat tags how a library bundle exposes itself.
type ModuleFormat int

const (
	FormatNone ModuleFormat = iota
	FormatUMD
	FormatCommonJS
	FormatESModule
)

// String returns the build file spelling of the format.
func (f ModuleFormat) String() string {
	switch f {
	case FormatUMD:
		return "umd"
	case FormatCommonJS:
		return "commonjs"
	case FormatESModule:
		return "esm"
	default:
		return "none"
	}
}

// ParseModuleFormat converts a build file format tag to a ModuleFormat.
func ParseModuleFormat(s string) (ModuleFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "var":
		return FormatNone, true
	case "umd":
		return FormatUMD, true
	case "commonjs", "commonjs2", "cjs":
		return FormatCommonJS, true
	case "esm", "module", "esmodule":
		return FormatESModule, true
	default:
		return FormatNone, false
	}
}

// SourceMapMode controls the debug-map verbosity/cost trade-off.
type SourceMapMode int

const (
	SourceMapNone SourceMapMode = iota
	SourceMapInlineCheap
	SourceMapExternalFull
)

// String returns a human readable name of the source map mode.
func (s SourceMapMode) String() string {
	switch s {
	case SourceMapInlineCheap:
		return "inline-cheap"
	case SourceMapExternalFull:
		return "external-full"
	default:
		return "none"
	}
}

// LibraryExport describes how a bundle is published when it is consumed as a
// dependency rather than run as an application.
type LibraryExport struct {
	Name   string
	Format ModuleFormat
}

// TransformStep is one loader in a transform chain.
type TransformStep struct {
	Name    string
	Options map[string]any
}

// TransformRule assigns a transform chain to the source files whose path
// matches Test, narrowed by Include (path prefixes) and Exclude (patterns).
type TransformRule struct {
	Test    string
	Chain   []TransformStep
	Include []string
	Exclude []string
}

// DevServer holds the options recognized for the development server.
type DevServer struct {
	HistoryFallback bool
	Port            int
	VerboseLogging  bool
}

// DefaultDevServer returns the dev server used when the caller supplies none.
func DefaultDevServer() DevServer {
	return DevServer{
		HistoryFallback: true,
		Port:            9000,
		VerboseLogging:  false,
	}
}

// EnvConstant is a compile-time substitution of Name by the string Value.
type EnvConstant struct {
	Name  string
	Value string
}

// MinifyDirective configures the minification pass.
type MinifyDirective struct {
	SuppressWarnings bool
	StripComments    bool
	Beautify         bool
}

// ProductionExtras are the post-processing directives of a production build.
type ProductionExtras struct {
	Constants []EnvConstant
	Minify    MinifyDirective
}

// NodeEnvConstant is the expression bound to the mode name in production.
const NodeEnvConstant = "process.env.NODE_ENV"

// StaticParams are the caller-supplied, mode-independent build parameters.
type StaticParams struct {
	EntryPoints          []string
	OutputPath           string
	OutputFilename       string
	PublicPath           string
	Library              *LibraryExport
	ResolvableExtensions []string
	ModuleAliases        map[string]string
	TransformRules       []TransformRule

	// DevServer is only consulted in development mode. The zero value selects
	// DefaultDevServer.
	DevServer DevServer
}
