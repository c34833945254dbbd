package main

import (
	"fmt"
	"syscall"

	"github.com/flowstudio/vue-collection-cluster/pkg/state"

	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload [target]",
	Short: "Re-read the build file of a running dev server",
	Long: `Asks a running 'ccbuild serve' to re-read its build file. The dev server
restarts only if the resolved configuration changed.

If no target is provided, reloads all running dev servers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return reloadServer(args[0])
		}
		return reloadAllServers()
	},
}

func reloadServer(target string) error {
	st, err := state.Load(target)
	if err != nil {
		return fmt.Errorf("no dev server recorded for '%s'", target)
	}
	if err := state.Notify(st, syscall.SIGHUP); err != nil {
		return err
	}
	printer.Info("Reload requested", "target", target, "pid", st.PID)
	return nil
}

func reloadAllServers() error {
	states, err := state.List()
	if err != nil {
		return fmt.Errorf("listing dev servers: %w", err)
	}

	var reloaded int
	var lastErr error
	for _, st := range states {
		if !state.IsRunning(&st) {
			continue
		}
		if err := reloadServer(st.Target); err != nil {
			printer.Error("reload failed", "target", st.Target, "error", err)
			lastErr = err
			continue
		}
		reloaded++
	}

	if reloaded == 0 && lastErr == nil {
		printer.Info("No running dev servers found")
	}
	return lastErr
}
