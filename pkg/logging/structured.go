// Package logging provides the structured loggers used by ccbuild.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFormat specifies the output format for structured logging.
type LogFormat string

const (
	// FormatJSON outputs logs as JSON objects.
	FormatJSON LogFormat = "json"
	// FormatText outputs logs as key=value text.
	FormatText LogFormat = "text"
)

// Config holds configuration for structured logging.
type Config struct {
	// Level sets the minimum log level (default: INFO).
	Level slog.Level
	// Format sets the output format (default: JSON).
	Format LogFormat
	// Output sets the writer for log output (default: os.Stderr).
	Output io.Writer
	// File, when set, also writes JSON records to a size-rotated log file.
	File string
	// AddSource adds source file and line information to logs.
	AddSource bool
	// Component identifies the logging component (e.g., "bundle", "reload").
	Component string
}

// Rotation limits for log files opened through Config.File.
const (
	MaxFileSizeMB = 10
	MaxBackups    = 3
	MaxAgeDays    = 28
)

// DefaultConfig returns a default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: FormatJSON,
		Output: os.Stderr,
	}
}

// NewFileWriter returns a rotating writer for path. The caller closes it.
func NewFileWriter(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxFileSizeMB,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAgeDays,
	}
}

// NewStructuredLogger creates a new structured logger with the given configuration.
// The returned closer releases the log file, if any, and is never nil.
func NewStructuredLogger(cfg Config) (*slog.Logger, io.Closer) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: replaceTime,
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatText:
		handler = slog.NewTextHandler(cfg.Output, opts)
	default:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file := NewFileWriter(cfg.File)
		closer = file
		// Files are always JSON so they can be grepped and shipped.
		handler = fanout{handler, slog.NewJSONHandler(file, opts)}
	}

	if cfg.Component != "" {
		handler = &componentHandler{
			Handler:   handler,
			component: cfg.Component,
		}
	}

	return slog.New(handler), closer
}

func replaceTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		if t, ok := a.Value.Any().(time.Time); ok {
			return slog.String("ts", t.Format(time.RFC3339Nano))
		}
	}
	return a
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fanout sends every record to each handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// componentHandler wraps a handler to add component field to all records.
type componentHandler struct {
	slog.Handler
	component string
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(slog.String("component", h.component))
	return h.Handler.Handle(ctx, r)
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &componentHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		component: h.component,
	}
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	return &componentHandler{
		Handler:   h.Handler.WithGroup(name),
		component: h.component,
	}
}

// WithComponent returns a new logger with the given component name.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

// WithBuildID returns a new logger tagged with a build ID.
func WithBuildID(logger *slog.Logger, id string) *slog.Logger {
	return logger.With(slog.String("build_id", id))
}

// ParseLevel converts a string level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat converts a string format to LogFormat.
func ParseFormat(format string) LogFormat {
	switch strings.ToLower(format) {
	case "text", "pretty":
		return FormatText
	default:
		return FormatJSON
	}
}

// NewDiscardLogger returns a logger that drops every record. Components
// hold one until SetLogger is called.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
