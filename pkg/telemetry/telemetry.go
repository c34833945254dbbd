// Package telemetry configures OpenTelemetry tracing for ccbuild.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ServiceName is reported as service.name on every span.
	ServiceName = "ccbuild"

	instrumentationName = "github.com/flowstudio/vue-collection-cluster"
)

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

// Init installs a global tracer provider exporting to endpoint over OTLP/HTTP.
// With an empty endpoint the global no-op provider is left in place.
func Init(ctx context.Context, endpoint, version string) (Shutdown, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := NewProvider(exporter, version, sdktrace.WithBatchTimeout(5*time.Second))
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// NewProvider builds a tracer provider batching spans to exporter.
func NewProvider(exporter sdktrace.SpanExporter, version string, opts ...sdktrace.BatchSpanProcessorOption) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version),
	)
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, opts...),
		sdktrace.WithResource(res),
	)
}

// Tracer returns the ccbuild tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
