package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/flowstudio/vue-collection-cluster/pkg/bundle"
	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
	"github.com/flowstudio/vue-collection-cluster/pkg/logging"
	"github.com/flowstudio/vue-collection-cluster/pkg/reload"
	"github.com/flowstudio/vue-collection-cluster/pkg/state"

	"github.com/spf13/cobra"
)

var serveNoWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve [target]",
	Short: "Serve a target with live rebuilds",
	Long: `Resolves a target for development and serves it with esbuild.

Sources are rebuilt on change. The build file is watched as well: when an
edit changes the resolved configuration the dev server restarts with it,
and an edit that does not resolve keeps the previous configuration running.

Send SIGHUP or run 'ccbuild reload' to re-read the build file by hand.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), targetArg(args))
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not watch the build file for changes")
}

func runServe(ctx context.Context, name string) error {
	bf, path, err := loadBuildFile()
	if err != nil {
		return err
	}
	t, err := selectTarget(bf, name)
	if err != nil {
		return err
	}
	target := t.Name

	if mode := env.ResolveMode(modeFlag); mode != descriptor.ModeDevelopment {
		return fmt.Errorf("serve requires development mode, got %s", mode)
	}

	// Clean up stale state and refuse to start a second server
	err = state.WithLock(target, 5*time.Second, func() error {
		cleaned, cleanErr := state.CheckAndClean(target)
		if cleanErr != nil {
			return fmt.Errorf("checking state: %w", cleanErr)
		}
		if cleaned {
			printer.Debug("Cleaned up stale state", "target", target)
		}
		if existing, loadErr := state.Load(target); loadErr == nil && state.IsRunning(existing) {
			return fmt.Errorf("dev server for '%s' is already running at %s (PID: %d)\nUse 'ccbuild stop %s' to stop it first",
				target, existing.URL, existing.PID, target)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Dev servers keep a rotated log per target unless a log file was chosen
	logFile := logConfig.File
	if logFile == "" {
		if err := state.EnsureLogDir(); err != nil {
			printer.Warn("could not create log directory", "error", err)
		} else {
			cfg := logConfig
			cfg.File = state.LogPath(target)
			l, closer := logging.NewStructuredLogger(cfg)
			logger, logFile = l, cfg.File
			defer closer.Close()
		}
	}

	load := func() (*descriptor.Descriptor, error) {
		bf, _, err := loadBuildFile()
		if err != nil {
			return nil, err
		}
		t, err := selectTarget(bf, target)
		if err != nil {
			return nil, err
		}
		return resolveTarget(t, descriptor.ModeDevelopment)
	}

	startedAt := time.Now()
	hooks := bundle.ServeHooks{
		OnReady: func(u string) {
			printer.Info("Dev server ready", "target", target, "url", u)
			st := &state.ServerState{
				Target:    target,
				BuildFile: path,
				PID:       os.Getpid(),
				Port:      urlPort(u),
				URL:       u,
				LogFile:   logFile,
				StartedAt: startedAt,
			}
			if err := state.Save(st); err != nil {
				printer.Warn("could not save state", "error", err)
			}
		},
		OnRebuild: func(res *bundle.Result, err error) {
			if err != nil {
				reportError(err)
				return
			}
			for _, w := range res.Warnings {
				printer.Warn(w)
			}
			printer.Info("Rebuilt", "target", target, "duration", res.Duration.Round(time.Millisecond))
		},
	}
	defer func() {
		if err := state.Delete(target); err != nil {
			printer.Warn("could not delete state file", "error", err)
		}
	}()

	reloader := reload.NewReloader(newBundler(), load, hooks)
	reloader.SetLogger(logging.WithComponent(logger, "reload"))
	if err := reloader.Start(ctx); err != nil {
		return err
	}

	if !serveNoWatch {
		watcher := reload.NewWatcher(path, func(changed string) error {
			printer.Info("Build file changed", "path", displayPath(changed))
			res, err := reloader.Reload()
			printReload(res, err)
			return err
		})
		watcher.SetLogger(logging.WithComponent(logger, "watcher"))
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				printer.Warn("build file watcher stopped", "error", err)
			}
		}()
		printer.Info("Watching build file", "path", displayPath(path))
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				printReload(reloader.Reload())
			}
		}
	}()

	err = reloader.Wait()
	printer.Info("Dev server stopped", "target", target)
	return err
}

func printReload(res *reload.ReloadResult, err error) {
	switch {
	case err != nil:
		printer.Error("reload failed", "error", err)
	case !res.Success:
		printer.Warn(res.Message)
	default:
		for _, c := range res.Changes {
			printer.Info("Changed", "field", c.Field, "value", c.New)
		}
		printer.Info(res.Message)
	}
}

// urlPort extracts the port of a dev server URL, or 0.
func urlPort(raw string) int {
	u, err := url.Parse(raw)
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(u.Port())
	return port
}
