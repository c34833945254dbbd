// Package bundle drives esbuild from a resolved build descriptor.
package bundle

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/blake2b"

	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
	"github.com/flowstudio/vue-collection-cluster/pkg/logging"
	"github.com/flowstudio/vue-collection-cluster/pkg/telemetry"
	"github.com/flowstudio/vue-collection-cluster/pkg/transform"
)

// ErrNotDevelopment is returned by Serve for a production descriptor.
var ErrNotDevelopment = errors.New("dev server requires a development descriptor")

// Bundler builds or serves a resolved descriptor.
type Bundler interface {
	Build(ctx context.Context, d *descriptor.Descriptor) (*Result, error)
	Serve(ctx context.Context, d *descriptor.Descriptor, hooks ServeHooks) error
}

// Output is one file written by a build.
type Output struct {
	Path   string `json:"path"`
	Bytes  int    `json:"bytes"`
	Digest string `json:"digest"` // hex BLAKE2b-256 of the contents
}

// Result describes a successful build.
type Result struct {
	ID       string          `json:"id"`
	Mode     descriptor.Mode `json:"-"`
	Outputs  []Output        `json:"outputs"`
	Warnings []string        `json:"warnings,omitempty"`
	Duration time.Duration   `json:"duration"`
	Metafile string          `json:"-"`
}

// BuildError carries the formatted esbuild error messages.
type BuildError struct {
	Messages []string
}

func (e *BuildError) Error() string {
	if len(e.Messages) == 1 {
		return "build failed: " + strings.TrimSpace(e.Messages[0])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "build failed with %d errors:", len(e.Messages))
	for _, m := range e.Messages {
		b.WriteString("\n  - ")
		b.WriteString(strings.TrimSpace(m))
	}
	return b.String()
}

// ServeHooks receives dev server events. Nil hooks are skipped.
type ServeHooks struct {
	// OnReady is called once the server listens.
	OnReady func(url string)
	// OnRebuild is called after every watch rebuild, including the first.
	OnRebuild func(res *Result, err error)
}

// Esbuild is the Bundler backed by the esbuild Go API.
type Esbuild struct {
	registry *transform.Registry
	tracer   trace.Tracer
	logger   *slog.Logger
}

// New creates an esbuild bundler. A nil registry selects the built-in loaders.
func New(registry *transform.Registry) *Esbuild {
	if registry == nil {
		registry = transform.NewRegistry()
	}
	return &Esbuild{
		registry: registry,
		tracer:   telemetry.Tracer(),
		logger:   logging.NewDiscardLogger(),
	}
}

// SetLogger sets the logger for build events.
func (e *Esbuild) SetLogger(logger *slog.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// SetTracer replaces the tracer taken from the global provider.
func (e *Esbuild) SetTracer(tracer trace.Tracer) {
	if tracer != nil {
		e.tracer = tracer
	}
}

// Build runs a single build and writes the output.
func (e *Esbuild) Build(ctx context.Context, d *descriptor.Descriptor) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "bundle.Build", trace.WithAttributes(
		attribute.String("ccbuild.mode", d.Mode().String()),
		attribute.String("ccbuild.output", d.OutputFile()),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts, err := buildOptions(d, e.registry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	// Messages are reported through the result instead of esbuild's own log.
	suppress := opts.LogLevel == api.LogLevelError
	opts.LogLevel = api.LogLevelSilent

	id := uuid.NewString()
	e.logger.Info("building", "id", id, "mode", d.Mode().String(), "entry", d.EntryPoints())

	start := time.Now()
	result := api.Build(opts)
	res, err := newResult(id, d.Mode(), &result, time.Since(start), suppress)
	if err != nil {
		e.logger.Error("build failed", "id", id, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return nil, err
	}

	for _, out := range res.Outputs {
		e.logger.Info("built file", "id", id, "path", out.Path, "bytes", out.Bytes)
	}
	for _, w := range res.Warnings {
		e.logger.Warn("build warning", "id", id, "warning", w)
	}
	span.SetAttributes(
		attribute.String("ccbuild.build_id", id),
		attribute.Int("ccbuild.outputs", len(res.Outputs)),
		attribute.Int("ccbuild.warnings", len(res.Warnings)),
	)
	return res, nil
}

// Serve watches the sources and serves the output directory's parent until
// ctx is cancelled.
func (e *Esbuild) Serve(ctx context.Context, d *descriptor.Descriptor, hooks ServeHooks) error {
	serveOpts, logLevel, err := serveOptions(d)
	if err != nil {
		return err
	}

	ctx, span := e.tracer.Start(ctx, "bundle.Serve", trace.WithAttributes(
		attribute.Int("ccbuild.port", int(serveOpts.Port)),
	))
	defer span.End()

	opts, err := buildOptions(d, e.registry)
	if err != nil {
		span.RecordError(err)
		return err
	}
	opts.LogLevel = logLevel
	opts.Plugins = append(opts.Plugins, e.rebuildPlugin(d.Mode(), hooks))

	bctx, cerr := api.Context(opts)
	if cerr != nil {
		err := &BuildError{Messages: formatMessages(cerr.Errors, api.ErrorMessage)}
		span.RecordError(err)
		return err
	}
	defer bctx.Dispose()

	if err := bctx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("starting watch: %w", err)
	}

	served, err := bctx.Serve(serveOpts)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("starting dev server: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d%s", served.Port, d.PublicPath())
	e.logger.Info("dev server listening", "url", url, "dir", serveOpts.Servedir, "fallback", serveOpts.Fallback != "")
	if hooks.OnReady != nil {
		hooks.OnReady(url)
	}

	<-ctx.Done()
	e.logger.Info("dev server stopping")
	return nil
}

func (e *Esbuild) rebuildPlugin(mode descriptor.Mode, hooks ServeHooks) api.Plugin {
	var start time.Time
	return api.Plugin{
		Name: "ccbuild-rebuild",
		Setup: func(build api.PluginBuild) {
			build.OnStart(func() (api.OnStartResult, error) {
				start = time.Now()
				return api.OnStartResult{}, nil
			})
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				res, err := newResult(uuid.NewString(), mode, result, time.Since(start), false)
				if err != nil {
					e.logger.Error("rebuild failed", "error", err)
				} else {
					e.logger.Debug("rebuilt", "id", res.ID, "duration", res.Duration)
				}
				if hooks.OnRebuild != nil {
					hooks.OnRebuild(res, err)
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}

func newResult(id string, mode descriptor.Mode, result *api.BuildResult, elapsed time.Duration, suppressWarnings bool) (*Result, error) {
	if len(result.Errors) > 0 {
		return nil, &BuildError{Messages: formatMessages(result.Errors, api.ErrorMessage)}
	}

	res := &Result{
		ID:       id,
		Mode:     mode,
		Duration: elapsed,
		Metafile: result.Metafile,
	}
	if !suppressWarnings {
		res.Warnings = formatMessages(result.Warnings, api.WarningMessage)
	}
	for _, f := range result.OutputFiles {
		res.Outputs = append(res.Outputs, Output{
			Path:   f.Path,
			Bytes:  len(f.Contents),
			Digest: Digest(f.Contents),
		})
	}
	return res, nil
}

// Digest returns the hex BLAKE2b-256 digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func formatMessages(msgs []api.Message, kind api.MessageKind) []string {
	if len(msgs) == 0 {
		return nil
	}
	return api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: kind})
}

// setPort assigns port whichever integer type the esbuild API uses for it.
func setPort[T ~int | ~uint16](dst *T, port int) {
	*dst = T(port)
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
