package main

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set by GoReleaser via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const esbuildModule = "github.com/evanw/esbuild"

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Prints the ccbuild version with the esbuild release it was built against.
The version is what 'requires' in a build file is checked against.`,
	Run: func(cmd *cobra.Command, args []string) {
		runVersion()
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&versionShort, "short", "s", false, "Print only the version")
}

func runVersion() {
	if versionShort {
		printer.Println(version)
		return
	}
	printer.Banner(version)
	printer.Println("  commit:  " + commit)
	printer.Println("  built:   " + date)
	printer.Println("  esbuild: " + moduleVersion(esbuildModule))
	printer.Println("  go:      " + runtime.Version())
}

// moduleVersion reports the version of a dependency linked into the binary.
func moduleVersion(path string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path != path {
			continue
		}
		if dep.Replace != nil {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return "unknown"
}
