package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
	"github.com/flowstudio/vue-collection-cluster/pkg/output"
	"github.com/flowstudio/vue-collection-cluster/pkg/verify"

	"github.com/spf13/cobra"
)

var (
	verifyNoBuild bool
	verifyTimeout time.Duration
)

var verifyCmd = &cobra.Command{
	Use:   "verify [target]",
	Short: "Check that a library bundle publishes its global",
	Long: `Builds a library target and evaluates the bundle in an embedded
JavaScript runtime, then checks that the library's global name was defined.

Only targets with a UMD library export can be verified this way.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd.Context(), targetArg(args))
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyNoBuild, "no-build", false, "Verify the existing output instead of building first")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", verify.DefaultTimeout, "Evaluation timeout")
}

func runVerify(ctx context.Context, name string) error {
	bf, _, err := loadBuildFile()
	if err != nil {
		return err
	}
	t, err := selectTarget(bf, name)
	if err != nil {
		return err
	}
	d, err := resolveTarget(t, env.ResolveMode(modeFlag))
	if err != nil {
		return err
	}

	lib, ok := d.Library()
	if !ok {
		return fmt.Errorf("target '%s' has no library export to verify", t.Name)
	}
	if lib.Format != descriptor.FormatUMD {
		return fmt.Errorf("target '%s' is a %s library; only umd bundles publish a global", t.Name, lib.Format)
	}

	if !verifyNoBuild {
		if _, err := buildTarget(ctx, newBundler(), t.Name, d); err != nil {
			return err
		}
	}

	code, err := os.ReadFile(d.OutputFile())
	if err != nil {
		return fmt.Errorf("reading bundle: %w", err)
	}

	report, err := verify.Library(ctx, string(code), lib.Name, verifyTimeout)
	if report != nil {
		printer.Properties("VERIFY", reportProperties(report))
		for _, line := range report.Console {
			printer.Debug("console", "line", line)
		}
	}
	if err != nil {
		if errors.Is(err, verify.ErrNotDefined) {
			return fmt.Errorf("%s does not define the global '%s'", displayPath(d.OutputFile()), lib.Name)
		}
		return fmt.Errorf("evaluating %s: %w", displayPath(d.OutputFile()), err)
	}

	printer.Info("Verified", "target", t.Name, "global", lib.Name, "type", report.Type)
	return nil
}

func reportProperties(r *verify.Report) []output.Property {
	props := []output.Property{
		{Key: "global", Value: r.Global},
		{Key: "defined", Value: fmt.Sprintf("%t", r.Defined)},
		{Key: "type", Value: r.Type},
	}
	if len(r.Keys) > 0 {
		props = append(props, output.Property{Key: "keys", Value: strings.Join(r.Keys, ", ")})
	}
	if len(r.Console) > 0 {
		props = append(props, output.Property{Key: "console", Value: fmt.Sprintf("%d lines", len(r.Console))})
	}
	return props
}
