package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
	"github.com/flowstudio/vue-collection-cluster/pkg/output"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var inspectOutput string

var inspectCmd = &cobra.Command{
	Use:   "inspect [target]",
	Short: "Print the resolved build descriptor of a target",
	Long: `Resolves a target for the selected mode and prints the resulting build
descriptor without building anything.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd.OutOrStdout(), targetArg(args))
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectOutput, "output", "o", "table", "Output format: table, json, or yaml")
}

// descriptorView is the serialized form of a descriptor.
type descriptorView struct {
	Mode                 string            `json:"mode" yaml:"mode"`
	EntryPoints          []string          `json:"entryPoints" yaml:"entryPoints"`
	OutputPath           string            `json:"outputPath" yaml:"outputPath"`
	OutputFilename       string            `json:"outputFilename" yaml:"outputFilename"`
	PublicPath           string            `json:"publicPath,omitempty" yaml:"publicPath,omitempty"`
	Library              *libraryView      `json:"library,omitempty" yaml:"library,omitempty"`
	ResolvableExtensions []string          `json:"resolvableExtensions" yaml:"resolvableExtensions"`
	ModuleAliases        map[string]string `json:"moduleAliases,omitempty" yaml:"moduleAliases,omitempty"`
	TransformRules       []ruleView        `json:"transformRules,omitempty" yaml:"transformRules,omitempty"`
	SourceMap            string            `json:"sourceMap" yaml:"sourceMap"`
	DevServer            *devServerView    `json:"devServer,omitempty" yaml:"devServer,omitempty"`
	ProductionExtras     *extrasView       `json:"productionExtras,omitempty" yaml:"productionExtras,omitempty"`
}

type libraryView struct {
	Name   string `json:"name" yaml:"name"`
	Format string `json:"format" yaml:"format"`
}

type ruleView struct {
	Test    string     `json:"test" yaml:"test"`
	Chain   []stepView `json:"chain" yaml:"chain"`
	Include []string   `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude []string   `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

type stepView struct {
	Name    string         `json:"name" yaml:"name"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

type devServerView struct {
	HistoryFallback bool `json:"historyFallback" yaml:"historyFallback"`
	Port            int  `json:"port" yaml:"port"`
	VerboseLogging  bool `json:"verboseLogging" yaml:"verboseLogging"`
}

type extrasView struct {
	Constants map[string]string `json:"constants" yaml:"constants"`
	Minify    struct {
		SuppressWarnings bool `json:"suppressWarnings" yaml:"suppressWarnings"`
		StripComments    bool `json:"stripComments" yaml:"stripComments"`
		Beautify         bool `json:"beautify" yaml:"beautify"`
	} `json:"minify" yaml:"minify"`
}

func runInspect(w io.Writer, name string) error {
	bf, _, err := loadBuildFile()
	if err != nil {
		return err
	}
	t, err := selectTarget(bf, name)
	if err != nil {
		return err
	}
	d, err := resolveTarget(t, env.ResolveMode(modeFlag))
	if err != nil {
		return err
	}

	switch strings.ToLower(inspectOutput) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newDescriptorView(d))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(newDescriptorView(d))
	case "table", "":
		output.NewWithWriter(w).Properties(strings.ToUpper(t.Name), descriptorProperties(d))
		return nil
	default:
		return fmt.Errorf("unknown output format '%s' (expected table, json, or yaml)", inspectOutput)
	}
}

func newDescriptorView(d *descriptor.Descriptor) descriptorView {
	v := descriptorView{
		Mode:                 d.Mode().String(),
		EntryPoints:          d.EntryPoints(),
		OutputPath:           d.OutputPath(),
		OutputFilename:       d.OutputFilename(),
		PublicPath:           d.PublicPath(),
		ResolvableExtensions: d.ResolvableExtensions(),
		ModuleAliases:        d.ModuleAliases(),
		SourceMap:            d.SourceMapMode().String(),
	}

	if lib, ok := d.Library(); ok {
		v.Library = &libraryView{Name: lib.Name, Format: lib.Format.String()}
	}

	for _, r := range d.TransformRules() {
		rv := ruleView{Test: r.Test, Include: r.Include, Exclude: r.Exclude}
		for _, s := range r.Chain {
			rv.Chain = append(rv.Chain, stepView{Name: s.Name, Options: s.Options})
		}
		v.TransformRules = append(v.TransformRules, rv)
	}

	if ds, ok := d.DevServer(); ok {
		v.DevServer = &devServerView{
			HistoryFallback: ds.HistoryFallback,
			Port:            ds.Port,
			VerboseLogging:  ds.VerboseLogging,
		}
	}

	if extras, ok := d.ProductionExtras(); ok {
		ev := &extrasView{Constants: make(map[string]string, len(extras.Constants))}
		for _, c := range extras.Constants {
			ev.Constants[c.Name] = c.Value
		}
		ev.Minify.SuppressWarnings = extras.Minify.SuppressWarnings
		ev.Minify.StripComments = extras.Minify.StripComments
		ev.Minify.Beautify = extras.Minify.Beautify
		v.ProductionExtras = ev
	}

	return v
}

// descriptorProperties flattens a descriptor into table rows.
func descriptorProperties(d *descriptor.Descriptor) []output.Property {
	props := []output.Property{
		{Key: "mode", Value: d.Mode().String()},
		{Key: "entry", Value: strings.Join(mapPaths(d.EntryPoints()), ", ")},
		{Key: "output", Value: displayPath(d.OutputFile())},
	}
	if d.PublicPath() != "" {
		props = append(props, output.Property{Key: "public path", Value: d.PublicPath()})
	}
	if lib, ok := d.Library(); ok {
		props = append(props, output.Property{Key: "library", Value: fmt.Sprintf("%s (%s)", lib.Name, lib.Format)})
	}
	props = append(props, output.Property{Key: "extensions", Value: strings.Join(d.ResolvableExtensions(), " ")})

	aliases := d.ModuleAliases()
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		props = append(props, output.Property{Key: "alias " + k, Value: aliases[k]})
	}

	for i, r := range d.TransformRules() {
		steps := make([]string, len(r.Chain))
		for j, s := range r.Chain {
			steps[j] = s.Name
		}
		props = append(props, output.Property{
			Key:   "rule " + strconv.Itoa(i+1),
			Value: fmt.Sprintf("%s -> %s", r.Test, strings.Join(steps, " | ")),
		})
	}

	props = append(props, output.Property{Key: "source map", Value: d.SourceMapMode().String()})

	if ds, ok := d.DevServer(); ok {
		props = append(props, output.Property{
			Key:   "dev server",
			Value: fmt.Sprintf("port %d, history fallback %t, verbose %t", ds.Port, ds.HistoryFallback, ds.VerboseLogging),
		})
	}
	if extras, ok := d.ProductionExtras(); ok {
		for _, c := range extras.Constants {
			props = append(props, output.Property{Key: "define " + c.Name, Value: strconv.Quote(c.Value)})
		}
		m := extras.Minify
		props = append(props, output.Property{
			Key:   "minify",
			Value: fmt.Sprintf("suppress warnings %t, strip comments %t, beautify %t", m.SuppressWarnings, m.StripComments, m.Beautify),
		})
	}
	return props
}

func mapPaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = displayPath(p)
	}
	return out
}
