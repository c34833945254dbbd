package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// DefaultFilenames are the build file names Discover looks for, in order.
var DefaultFilenames = []string{"ccbuild.yaml", "ccbuild.yml", "ccbuild.json", "ccbuild.jsonc"}

// ErrNotFound is returned by Discover when no build file exists.
var ErrNotFound = errors.New("no build file found")

// Load reads and parses a build file.
func Load(path string) (*BuildFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading build file: %w", err)
	}

	return Parse(data, path)
}

// Parse parses build file contents. path determines the syntax (JSON with
// comments for .json/.jsonc, YAML otherwise) and the base for relative paths.
func Parse(data []byte, path string) (*BuildFile, error) {
	if isJSON(path) {
		// JSON is a subset of YAML, so once comments and trailing commas are
		// gone the same decoder and schema apply.
		std, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("parsing build file JSON: %w", err)
		}
		data = std
	}

	var bf BuildFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("parsing build file YAML: %w", err)
	}

	// Presets first so explicit fields win over them and defaults do not
	// shadow them.
	for i := range bf.Targets {
		applyPreset(&bf.Targets[i])
	}

	// Expand environment variables in string values
	expandEnvVars(&bf)

	// Apply defaults
	bf.SetDefaults()

	// Resolve relative paths based on build file location
	basePath := filepath.Dir(path)
	if abs, err := filepath.Abs(basePath); err == nil {
		basePath = abs
	}
	resolveRelativePaths(&bf, basePath)

	if err := Validate(&bf); err != nil {
		return nil, err
	}

	return &bf, nil
}

// Discover returns the first default build file found in dir.
func Discover(dir string) (string, error) {
	for _, name := range DefaultFilenames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w in %s (looked for %s)", ErrNotFound, dir, strings.Join(DefaultFilenames, ", "))
}

// Save writes the build file as YAML.
func Save(path string, bf *BuildFile) error {
	data, err := yaml.Marshal(bf)
	if err != nil {
		return fmt.Errorf("marshaling build file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing build file: %w", err)
	}
	return nil
}

func isJSON(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return true
	}
	return false
}

// expandEnvVars expands environment variables in the build file.
func expandEnvVars(b *BuildFile) {
	for i := range b.Targets {
		t := &b.Targets[i]
		t.Name = os.ExpandEnv(t.Name)

		for j := range t.Entry {
			t.Entry[j] = os.ExpandEnv(t.Entry[j])
		}

		t.Output.Path = os.ExpandEnv(t.Output.Path)
		t.Output.Filename = os.ExpandEnv(t.Output.Filename)
		t.Output.PublicPath = os.ExpandEnv(t.Output.PublicPath)
		if t.Output.Library != nil {
			t.Output.Library.Name = os.ExpandEnv(t.Output.Library.Name)
		}

		for k, v := range t.Resolve.Alias {
			t.Resolve.Alias[k] = os.ExpandEnv(v)
		}

		for j := range t.Rules {
			for k := range t.Rules[j].Include {
				t.Rules[j].Include[k] = os.ExpandEnv(t.Rules[j].Include[k])
			}
		}
	}
}

// resolveRelativePaths resolves file system paths relative to the build file.
// Bare module specifiers ("vue/dist/vue.common.js") are left alone.
func resolveRelativePaths(b *BuildFile, basePath string) {
	for i := range b.Targets {
		t := &b.Targets[i]

		for j := range t.Entry {
			t.Entry[j] = resolvePath(t.Entry[j], basePath)
		}

		if t.Output.Path != "" && !filepath.IsAbs(t.Output.Path) {
			t.Output.Path = filepath.Join(basePath, t.Output.Path)
		}

		for k, v := range t.Resolve.Alias {
			t.Resolve.Alias[k] = resolvePath(v, basePath)
		}

		for j := range t.Rules {
			for k, inc := range t.Rules[j].Include {
				if !filepath.IsAbs(inc) {
					t.Rules[j].Include[k] = filepath.Join(basePath, inc)
				}
			}
		}
	}
}

// resolvePath joins explicitly relative paths ("./x", "../x") to basePath.
func resolvePath(p, basePath string) string {
	if p == "." || p == ".." || strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") {
		return filepath.Join(basePath, p)
	}
	return p
}
