package main

import (
	"fmt"
	"time"

	"github.com/flowstudio/vue-collection-cluster/pkg/state"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop [target]",
	Short: "Stop a running dev server",
	Long: `Stops the dev server started by 'ccbuild serve' for a target and removes
its state file. Without a target every recorded dev server is stopped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return stopServer(args[0])
		}
		return stopAllServers()
	},
}

func stopServer(target string) error {
	// Lock to avoid racing a serve that is starting up
	return state.WithLock(target, 5*time.Second, func() error {
		st, err := state.Load(target)
		if err != nil || st == nil {
			return fmt.Errorf("no dev server recorded for '%s'", target)
		}

		if state.IsRunning(st) {
			printer.Info("Stopping dev server", "target", target, "pid", st.PID)
			if err := state.Stop(st, 5*time.Second); err != nil {
				printer.Warn("could not stop dev server", "error", err)
			}
		}

		if err := state.Delete(target); err != nil {
			printer.Warn("could not delete state file", "error", err)
		}
		printer.Info("Dev server stopped", "target", target)
		return nil
	})
}

func stopAllServers() error {
	states, err := state.List()
	if err != nil {
		return fmt.Errorf("listing dev servers: %w", err)
	}
	if len(states) == 0 {
		printer.Info("No dev servers found")
		return nil
	}

	var lastErr error
	for _, st := range states {
		if err := stopServer(st.Target); err != nil {
			printer.Error("stop failed", "target", st.Target, "error", err)
			lastErr = err
		}
	}
	return lastErr
}
