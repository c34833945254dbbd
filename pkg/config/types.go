package config

import (
	"gopkg.in/yaml.v3"
)

// BuildFile represents a complete ccbuild build file.
type BuildFile struct {
	Version  string   `yaml:"version"`
	Requires string   `yaml:"requires,omitempty"` // semver constraint on the ccbuild version
	Targets  []Target `yaml:"targets"`
}

// Target is one named set of static build parameters.
type Target struct {
	Name      string     `yaml:"name"`
	Preset    string     `yaml:"preset,omitempty"` // "library" or "example"; explicit fields override it
	Entry     StringList `yaml:"entry,omitempty"`
	Output    Output     `yaml:"output,omitempty"`
	Resolve   Resolve    `yaml:"resolve,omitempty"`
	Rules     []Rule     `yaml:"rules,omitempty"`
	DevServer *DevServer `yaml:"devServer,omitempty"`
}

// Output defines where the artifact is written and how it is exposed.
type Output struct {
	Path       string   `yaml:"path,omitempty"`
	Filename   string   `yaml:"filename,omitempty"`
	PublicPath string   `yaml:"publicPath,omitempty"`
	Library    *Library `yaml:"library,omitempty"`
}

// Library is the global name and module format of a library build.
type Library struct {
	Name   string `yaml:"name"`
	Format string `yaml:"format"` // umd, commonjs, esm, none
}

// Resolve holds module resolution settings.
type Resolve struct {
	Extensions []string          `yaml:"extensions,omitempty"`
	Alias      map[string]string `yaml:"alias,omitempty"`
}

// Rule assigns a loader chain to matching source files.
type Rule struct {
	Test    string     `yaml:"test"`
	Use     []Loader   `yaml:"use"`
	Include StringList `yaml:"include,omitempty"`
	Exclude StringList `yaml:"exclude,omitempty"`
}

// Loader is one step of a rule's chain.
type Loader struct {
	Loader  string         `yaml:"loader"`
	Options map[string]any `yaml:"options,omitempty"`
}

// DevServer holds the development server options. Unset booleans take the
// resolver defaults.
type DevServer struct {
	HistoryAPIFallback *bool `yaml:"historyApiFallback,omitempty"`
	Port               int   `yaml:"port,omitempty"`
	NoInfo             *bool `yaml:"noInfo,omitempty"`
}

// StringList accepts either a single string or a list of strings.
type StringList []string

// UnmarshalYAML implements custom YAML unmarshaling for StringList.
//
//	entry: ./src/main.js
//	entry: [./src/a.js, ./src/b.js]
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}

	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*l = list
	return nil
}

// UnmarshalYAML implements custom YAML unmarshaling for Loader.
// This allows both the short string form and the object form.
//
// String format:
//
//	use:
//	  - babel
//
// Object format:
//
//	use:
//	  - loader: vue
//	    options:
//	      preserveWhitespace: false
func (l *Loader) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var name string
		if err := node.Decode(&name); err != nil {
			return err
		}
		l.Loader = name
		l.Options = nil
		return nil
	}

	type loaderAlias Loader
	var alias loaderAlias
	if err := node.Decode(&alias); err != nil {
		return err
	}
	*l = Loader(alias)
	return nil
}

// SetDefaults applies default values to the build file.
func (b *BuildFile) SetDefaults() {
	if b.Version == "" {
		b.Version = "1"
	}

	for i := range b.Targets {
		if len(b.Targets[i].Resolve.Extensions) == 0 {
			b.Targets[i].Resolve.Extensions = []string{".js"}
		}
	}
}

// Target returns the target with the given name. An empty name selects the
// first target.
func (b *BuildFile) Target(name string) (*Target, bool) {
	if len(b.Targets) == 0 {
		return nil, false
	}
	if name == "" {
		return &b.Targets[0], true
	}
	for i := range b.Targets {
		if b.Targets[i].Name == name {
			return &b.Targets[i], true
		}
	}
	return nil, false
}

// TargetNames returns the names of all targets in file order.
func (b *BuildFile) TargetNames() []string {
	names := make([]string, len(b.Targets))
	for i, t := range b.Targets {
		names[i] = t.Name
	}
	return names
}
