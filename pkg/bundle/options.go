package bundle

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
	"github.com/flowstudio/vue-collection-cluster/pkg/transform"
)

// Options translates a descriptor into esbuild build options using the
// built-in transform loaders.
func Options(d *descriptor.Descriptor) (api.BuildOptions, error) {
	return buildOptions(d, transform.NewRegistry())
}

// serveOptions maps a development descriptor's dev server onto esbuild. The
// parent of the output directory is served so the public path resolves to
// the output directory. The log level applies to the watch context.
func serveOptions(d *descriptor.Descriptor) (api.ServeOptions, api.LogLevel, error) {
	server, ok := d.DevServer()
	if !ok {
		return api.ServeOptions{}, api.LogLevelSilent, ErrNotDevelopment
	}
	dir := filepath.Dir(d.OutputPath())
	opts := api.ServeOptions{Servedir: dir}
	setPort(&opts.Port, server.Port)
	if server.HistoryFallback {
		opts.Fallback = filepath.Join(dir, "index.html")
	}
	return opts, cond(server.VerboseLogging, api.LogLevelInfo, api.LogLevelWarning), nil
}

func buildOptions(d *descriptor.Descriptor, registry *transform.Registry) (api.BuildOptions, error) {
	opts := api.BuildOptions{
		Bundle:            true,
		Write:             true,
		Platform:          api.PlatformBrowser,
		Outfile:           d.OutputFile(),
		ResolveExtensions: d.ResolvableExtensions(),
		Sourcemap:         sourceMap(d.SourceMapMode()),
		Metafile:          true,
		LogLevel:          api.LogLevelWarning,
	}

	if err := setEntryPoints(&opts, d.EntryPoints()); err != nil {
		return api.BuildOptions{}, err
	}

	plain, exact := splitAliases(d.ModuleAliases())
	if len(plain) > 0 {
		opts.Alias = plain
	}
	if len(exact) > 0 {
		opts.Plugins = append(opts.Plugins, exactAliasPlugin(exact))
	}

	if rules := d.TransformRules(); len(rules) > 0 {
		compiled, err := transform.Compile(rules, registry)
		if err != nil {
			return api.BuildOptions{}, fmt.Errorf("compiling transform rules: %w", err)
		}
		opts.Plugins = append(opts.Plugins, transformPlugin(compiled))
	}

	lib, ok := d.Library()
	switch {
	case !ok:
		opts.Format = api.FormatIIFE
	case lib.Format == descriptor.FormatUMD:
		opts.Format = api.FormatCommonJS
		opts.Banner = map[string]string{"js": umdHeader(lib.Name)}
		opts.Footer = map[string]string{"js": umdFooter}
	case lib.Format == descriptor.FormatCommonJS:
		opts.Format = api.FormatCommonJS
	case lib.Format == descriptor.FormatESModule:
		opts.Format = api.FormatESModule
	default:
		opts.Format = api.FormatIIFE
	}

	if extras, ok := d.ProductionExtras(); ok {
		applyExtras(&opts, extras)
	}

	return opts, nil
}

// setEntryPoints configures the entry. Several entry points are combined into
// one bundle: each is imported in order and the last one's exports are
// re-exported.
func setEntryPoints(opts *api.BuildOptions, entries []string) error {
	if len(entries) == 1 {
		opts.EntryPoints = entries
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	var b strings.Builder
	for _, entry := range entries[:len(entries)-1] {
		fmt.Fprintf(&b, "import %s;\n", quote(entry))
	}
	fmt.Fprintf(&b, "export * from %s;\n", quote(entries[len(entries)-1]))

	opts.Stdin = &api.StdinOptions{
		Contents:   b.String(),
		ResolveDir: wd,
		Sourcefile: "<entry>",
		Loader:     api.LoaderJS,
	}
	return nil
}

func applyExtras(opts *api.BuildOptions, extras descriptor.ProductionExtras) {
	if len(extras.Constants) > 0 {
		opts.Define = make(map[string]string, len(extras.Constants))
		for _, c := range extras.Constants {
			opts.Define[c.Name] = quote(c.Value)
		}
	}

	if !extras.Minify.Beautify {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	}
	if extras.Minify.StripComments {
		opts.LegalComments = api.LegalCommentsNone
	}
	if extras.Minify.SuppressWarnings {
		opts.LogLevel = api.LogLevelError
	}
}

func sourceMap(mode descriptor.SourceMapMode) api.SourceMap {
	switch mode {
	case descriptor.SourceMapInlineCheap:
		return api.SourceMapInline
	case descriptor.SourceMapExternalFull:
		return api.SourceMapLinked
	default:
		return api.SourceMapNone
	}
}

// splitAliases separates exact-match aliases ("vue$") from prefix aliases.
func splitAliases(aliases map[string]string) (plain, exact map[string]string) {
	plain = make(map[string]string)
	exact = make(map[string]string)
	for from, to := range aliases {
		if name, ok := strings.CutSuffix(from, "$"); ok {
			exact[name] = to
		} else {
			plain[from] = to
		}
	}
	return plain, exact
}

// exactAliasPlugin redirects imports whose specifier equals an alias key.
// Subpath imports ("vue/x") are left to normal resolution.
func exactAliasPlugin(aliases map[string]string) api.Plugin {
	keys := slices.Sorted(maps.Keys(aliases))
	for i, k := range keys {
		keys[i] = regexp.QuoteMeta(k)
	}
	filter := "^(?:" + strings.Join(keys, "|") + ")$"

	return api.Plugin{
		Name: "ccbuild-exact-alias",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: filter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				target, ok := aliases[args.Path]
				if !ok {
					return api.OnResolveResult{}, nil
				}
				res := build.Resolve(target, api.ResolveOptions{
					Importer:   args.Importer,
					Namespace:  args.Namespace,
					ResolveDir: args.ResolveDir,
					Kind:       args.Kind,
				})
				if len(res.Errors) > 0 {
					return api.OnResolveResult{}, fmt.Errorf("alias %s$ -> %s: %s", args.Path, target, res.Errors[0].Text)
				}
				return api.OnResolveResult{
					Path:       res.Path,
					External:   res.External,
					Namespace:  res.Namespace,
					Suffix:     res.Suffix,
					PluginData: res.PluginData,
				}, nil
			})
		},
	}
}

// transformPlugin loads files matched by a transform rule through its chain.
func transformPlugin(rules transform.Rules) api.Plugin {
	return api.Plugin{
		Name: "ccbuild-transform",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: rules.Filter(), Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				src, ok, err := rules.Load(args.Path)
				if err != nil || !ok {
					return api.OnLoadResult{}, err
				}
				contents := src.Contents
				return api.OnLoadResult{
					Contents:   &contents,
					Loader:     src.Loader,
					ResolveDir: filepath.Dir(args.Path),
				}, nil
			})
		},
	}
}

// umdHeader opens a UMD wrapper around a CommonJS body. The body runs
// against a local module object; umdFooter returns its exports, unwrapping
// an ES module default export.
func umdHeader(name string) string {
	n := quote(name)
	return `(function (root, factory) {
  if (typeof exports === "object" && typeof module === "object") module.exports = factory();
  else if (typeof define === "function" && define.amd) define([], factory);
  else if (typeof exports === "object") exports[` + n + `] = factory();
  else root[` + n + `] = factory();
})(typeof self !== "undefined" ? self : this, function () {
var module = { exports: {} }, exports = module.exports;`
}

const umdFooter = `var __ccbuild_exports = module.exports;
return __ccbuild_exports && __ccbuild_exports.__esModule && "default" in __ccbuild_exports ? __ccbuild_exports["default"] : __ccbuild_exports;
});`

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
