package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flowstudio/vue-collection-cluster/pkg/bundle"
	"github.com/flowstudio/vue-collection-cluster/pkg/config"
	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
	"github.com/flowstudio/vue-collection-cluster/pkg/logging"
	"github.com/flowstudio/vue-collection-cluster/pkg/output"
)

// loadBuildFile reads the build file named by --file, or the one discovered
// in the working directory, and checks its version constraint.
func loadBuildFile() (*config.BuildFile, string, error) {
	path := buildFilePath
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get working directory: %w", err)
		}
		path, err = config.Discover(wd)
		if err != nil {
			return nil, "", fmt.Errorf("%w\nRun 'ccbuild init' to create one", err)
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve path: %w", err)
	}

	bf, err := config.Load(abs)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load build file: %w", err)
	}
	if err := bf.CheckRequires(version); err != nil {
		return nil, "", err
	}

	logger.Debug("loaded build file", "path", abs, "targets", bf.TargetNames())
	return bf, abs, nil
}

// selectTarget returns the named target, or the first one for an empty name.
func selectTarget(bf *config.BuildFile, name string) (*config.Target, error) {
	t, ok := bf.Target(name)
	if !ok {
		return nil, fmt.Errorf("target '%s' not found (available: %s)", name, strings.Join(bf.TargetNames(), ", "))
	}
	return t, nil
}

// resolveTarget resolves a target for mode.
func resolveTarget(t *config.Target, mode descriptor.Mode) (*descriptor.Descriptor, error) {
	d, err := descriptor.Resolve(mode, t.Params())
	if err != nil {
		return nil, fmt.Errorf("target '%s': %w", t.Name, err)
	}
	logger.Debug("resolved target", "target", t.Name, "mode", mode.String(), "output", d.OutputFile())
	return d, nil
}

func targetArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func newBundler() *bundle.Esbuild {
	b := bundle.New(nil)
	b.SetLogger(logging.WithComponent(logger, "bundle"))
	return b
}

// displayPath shortens p relative to the working directory when it is below it.
func displayPath(p string) string {
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(wd, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return rel
}

func outputSummaries(outputs []bundle.Output) []output.OutputSummary {
	summaries := make([]output.OutputSummary, len(outputs))
	for i, o := range outputs {
		summaries[i] = output.OutputSummary{
			Path:   displayPath(o.Path),
			Bytes:  o.Bytes,
			Digest: o.Digest,
		}
	}
	return summaries
}
