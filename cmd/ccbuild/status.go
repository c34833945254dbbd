package main

import (
	"errors"
	"os"

	"github.com/flowstudio/vue-collection-cluster/pkg/config"
	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
	"github.com/flowstudio/vue-collection-cluster/pkg/manifest"
	"github.com/flowstudio/vue-collection-cluster/pkg/output"
	"github.com/flowstudio/vue-collection-cluster/pkg/state"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show build state and running dev servers",
	Long: `Displays the last build of each target in the build file and the dev
servers started by 'ccbuild serve'.

A build is stale when an output recorded in its manifest was changed or
removed since.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus()
	},
}

func runStatus() error {
	// Dev servers are listed even outside a project
	var targets []output.TargetSummary
	bf, _, err := loadBuildFile()
	switch {
	case err == nil:
		targets = targetSummaries(bf)
	case errors.Is(err, config.ErrNotFound):
		printer.Debug("no build file", "error", err)
	default:
		return err
	}

	states, err := state.List()
	if err != nil && !os.IsNotExist(err) {
		printer.Warn("could not read state files", "error", err)
	}

	var servers []output.ServerSummary
	for _, s := range states {
		status := "stopped"
		if state.IsRunning(&s) {
			status = "running"
		}
		servers = append(servers, output.ServerSummary{
			Target:    s.Target,
			URL:       s.URL,
			PID:       s.PID,
			Status:    status,
			StartedAt: s.StartedAt,
		})
	}

	if len(targets) == 0 && len(servers) == 0 {
		printer.Info("No build file or dev servers found")
		return nil
	}

	printer.Targets(targets)
	printer.Servers(servers)
	return nil
}

// targetSummaries reads the manifest of every target. Output locations do
// not depend on the mode, so targets are resolved for development.
func targetSummaries(bf *config.BuildFile) []output.TargetSummary {
	summaries := make([]output.TargetSummary, 0, len(bf.Targets))
	for i := range bf.Targets {
		t := &bf.Targets[i]
		summary := output.TargetSummary{Name: t.Name, State: "missing"}

		d, err := descriptor.Resolve(descriptor.ModeDevelopment, t.Params())
		if err != nil {
			summary.State = "invalid"
			summaries = append(summaries, summary)
			continue
		}

		m, err := manifest.Load(d.OutputPath())
		if err != nil {
			if !os.IsNotExist(err) {
				printer.Warn("could not read manifest", "target", t.Name, "error", err)
			}
			summaries = append(summaries, summary)
			continue
		}

		summary.Mode = m.Mode
		summary.BuildID = m.BuildID
		summary.BuiltAt = m.BuiltAt
		summary.State = "built"
		if stale, err := m.Stale(); err != nil || len(stale) > 0 {
			summary.State = "stale"
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
