package main

import (
	"context"
	"fmt"
	"time"

	"github.com/flowstudio/vue-collection-cluster/pkg/bundle"
	"github.com/flowstudio/vue-collection-cluster/pkg/config"
	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
	"github.com/flowstudio/vue-collection-cluster/pkg/manifest"

	"github.com/spf13/cobra"
)

var (
	buildAll   bool
	buildQuiet bool
)

var buildCmd = &cobra.Command{
	Use:   "build [target]",
	Short: "Resolve a target and write its bundle",
	Long: `Resolves a build target for the selected mode and bundles it with esbuild.

The bundle and a ccbuild-manifest.json describing it are written to the
target's output directory. Without a target name the first target in the
build file is built.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd.Context(), targetArg(args))
	},
}

func init() {
	buildCmd.Flags().BoolVarP(&buildAll, "all", "a", false, "Build every target in the build file")
	buildCmd.Flags().BoolVarP(&buildQuiet, "quiet", "q", false, "Suppress the output table")
}

func runBuild(ctx context.Context, name string) error {
	bf, _, err := loadBuildFile()
	if err != nil {
		return err
	}
	mode := env.ResolveMode(modeFlag)

	var targets []*config.Target
	if buildAll {
		if name != "" {
			return fmt.Errorf("--all cannot be combined with a target name")
		}
		for i := range bf.Targets {
			targets = append(targets, &bf.Targets[i])
		}
	} else {
		t, err := selectTarget(bf, name)
		if err != nil {
			return err
		}
		targets = append(targets, t)
	}

	bundler := newBundler()
	for _, t := range targets {
		d, err := resolveTarget(t, mode)
		if err != nil {
			return err
		}
		if _, err := buildTarget(ctx, bundler, t.Name, d); err != nil {
			return err
		}
	}
	return nil
}

// buildTarget builds a resolved target and records its manifest.
func buildTarget(ctx context.Context, b bundle.Bundler, name string, d *descriptor.Descriptor) (*manifest.Manifest, error) {
	printer.Info("Building", "target", name, "mode", d.Mode(), "output", displayPath(d.OutputFile()))

	res, err := b.Build(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("building target '%s': %w", name, err)
	}
	for _, w := range res.Warnings {
		printer.Warn(w)
	}

	var library string
	if lib, ok := d.Library(); ok {
		library = lib.Name
	}
	m := manifest.FromResult(name, library, res, time.Now())
	if err := manifest.Save(d.OutputPath(), m); err != nil {
		return nil, err
	}

	if !buildQuiet {
		printer.Outputs(outputSummaries(res.Outputs))
	}
	printer.Info("Build complete", "target", name, "id", res.ID, "duration", res.Duration.Round(time.Millisecond))
	return m, nil
}
