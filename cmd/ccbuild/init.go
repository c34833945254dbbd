package main

import (
	"fmt"
	"os"

	"github.com/flowstudio/vue-collection-cluster/pkg/config"
	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"

	"github.com/spf13/cobra"
)

var (
	initPreset string
	initName   string
	initForce  bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a build file from a preset",
	Long: `Writes a ccbuild.yaml with one target expanded from a preset.

The library preset builds the widget as a UMD bundle published under the
VueCollectionCluster global. The example preset builds the demo application
that consumes it and serves it on port 9000.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func init() {
	initCmd.Flags().StringVarP(&initPreset, "preset", "p", descriptor.PresetLibrary, "Preset: library or example")
	initCmd.Flags().StringVarP(&initName, "name", "n", "", "Target name (default: the preset name)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing build file")
}

func runInit() error {
	params, ok := descriptor.Preset(initPreset)
	if !ok {
		return fmt.Errorf("unknown preset '%s' (expected '%s' or '%s')", initPreset, descriptor.PresetLibrary, descriptor.PresetExample)
	}

	path := buildFilePath
	if path == "" {
		path = config.DefaultFilenames[0]
	}
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	name := initName
	if name == "" {
		name = initPreset
	}

	bf := &config.BuildFile{
		Version: "1",
		Targets: []config.Target{config.TargetFromParams(name, params)},
	}
	if err := config.Save(path, bf); err != nil {
		return err
	}

	printer.Info("Wrote build file", "path", path, "target", name, "preset", initPreset)
	return nil
}
