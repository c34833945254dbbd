package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowstudio/vue-collection-cluster/pkg/bundle"
	"github.com/flowstudio/vue-collection-cluster/pkg/config"
	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
	"github.com/flowstudio/vue-collection-cluster/pkg/logging"
	"github.com/flowstudio/vue-collection-cluster/pkg/output"
	"github.com/flowstudio/vue-collection-cluster/pkg/telemetry"

	"github.com/spf13/cobra"
)

// Global flags.
var (
	buildFilePath string
	modeFlag      string
	debugFlag     bool
	logFormatFlag string
	logFileFlag   string
)

// Set up once per invocation by the root command.
var (
	env       *config.Environment
	logConfig logging.Config
	logger    = logging.NewDiscardLogger()
	printer   = output.New()
	cleanups  []func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "ccbuild",
	Short: "Build and serve the Vue collection cluster widget",
	Long: `ccbuild resolves the build targets of a ccbuild.yaml file into bundler
settings and drives esbuild with them.

A target is built for production or development. Production builds are
minified and define process.env.NODE_ENV. Development builds carry source
maps and can be served with live rebuilds.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd.Context())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&buildFilePath, "file", "f", "", "Build file (default: ccbuild.yaml in the working directory)")
	flags.StringVar(&modeFlag, "mode", "", "Build mode: development or production (default: $CCBUILD_MODE, then $NODE_ENV)")
	flags.BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	flags.StringVar(&logFormatFlag, "log-format", "", "Diagnostic log format: text or json (default: $CCBUILD_LOG_FORMAT)")
	flags.StringVar(&logFileFlag, "log-file", "", "Also write JSON logs to a rotated file (default: $CCBUILD_LOG_FILE)")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	teardown()

	if err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// setup reads the environment and builds the loggers and tracer. Flags win
// over the environment.
func setup(ctx context.Context) error {
	e, err := config.LoadEnvironment()
	if err != nil {
		return err
	}
	env = e

	level := logging.ParseLevel(env.LogLevel)
	if debugFlag {
		level = slog.LevelDebug
	}
	logConfig = logging.Config{
		Level:  level,
		Format: logging.ParseFormat(firstNonEmpty(logFormatFlag, env.LogFormat)),
		Output: os.Stderr,
		File:   firstNonEmpty(logFileFlag, env.LogFile),
	}
	l, closer := logging.NewStructuredLogger(logConfig)
	logger = l
	cleanups = append(cleanups, func(context.Context) error { return closer.Close() })

	printer.SetDebug(debugFlag)

	shutdown, err := telemetry.Init(ctx, env.OTLPEndpoint, version)
	if err != nil {
		printer.Warn("tracing disabled", "error", err)
		return nil
	}
	cleanups = append(cleanups, shutdown)
	return nil
}

// teardown runs cleanups in reverse order with a bounded deadline.
func teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](ctx); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup: %v\n", err)
		}
	}
	cleanups = nil
}

// reportError prints err, one line per field for configuration errors.
func reportError(err error) {
	var verrs config.ValidationErrors
	var cerrs descriptor.ConfigurationErrors
	var berr *bundle.BuildError

	switch {
	case errors.As(err, &verrs):
		printer.Error("invalid build file")
		for _, e := range verrs {
			printer.Error(e.Message, "field", e.Field)
		}
	case errors.As(err, &cerrs):
		printer.Error("invalid target configuration")
		for _, e := range cerrs {
			printer.Error(e.Message, "field", e.Field)
		}
	case errors.As(err, &berr):
		for _, msg := range berr.Messages {
			fmt.Fprintln(os.Stderr, msg)
		}
		printer.Error("build failed", "errors", len(berr.Messages))
	default:
		fmt.Fprintln(os.Stderr, err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
