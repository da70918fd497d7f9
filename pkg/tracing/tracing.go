// Package tracing provides OpenTelemetry tracing for merge batches, MCP tool
// calls and HTTP requests.
package tracing

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// ServiceName is the name of the service in traces
	ServiceName = "osmdelta"
	// TracerName is the name of the tracer
	TracerName = "github.com/NERVsystems/osmdelta"
)

// Tracer is the global tracer instance
var Tracer trace.Tracer = noop.NewTracerProvider().Tracer(TracerName)

// Config controls the OTLP exporter. An empty Endpoint disables tracing.
type Config struct {
	Endpoint    string
	Insecure    bool
	SampleRatio float64
	Environment string
}

// ConfigFromEnv reads OTLP_ENDPOINT, OTLP_INSECURE, OTLP_SAMPLE_RATIO and
// ENVIRONMENT. Unparseable values fall back to the defaults.
func ConfigFromEnv() Config {
	cfg := Config{
		Endpoint:    os.Getenv("OTLP_ENDPOINT"),
		Insecure:    true,
		SampleRatio: 1,
		Environment: "development",
	}
	if v, err := strconv.ParseBool(os.Getenv("OTLP_INSECURE")); err == nil {
		cfg.Insecure = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("OTLP_SAMPLE_RATIO"), 64); err == nil && v >= 0 && v <= 1 {
		cfg.SampleRatio = v
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		cfg.Environment = env
	}
	return cfg
}

// InitTracing configures the global tracer from the environment
func InitTracing(ctx context.Context, version string) (shutdown func(context.Context) error, err error) {
	return InitTracingWithConfig(ctx, version, ConfigFromEnv())
}

// InitTracingWithConfig installs an OTLP/gRPC tracer provider, or a no-op
// tracer when cfg has no endpoint.
func InitTracingWithConfig(ctx context.Context, version string, cfg Config) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		Tracer = noop.NewTracerProvider().Tracer(TracerName)
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(version),
			attribute.String("service.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	return UseTracerProvider(tp), nil
}

// UseTracerProvider installs tp as the global provider and tracer. The
// returned shutdown flushes spans still queued in tp's batchers.
func UseTracerProvider(tp *sdktrace.TracerProvider) func(context.Context) error {
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	Tracer = tp.Tracer(TracerName)

	return func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(shutdownCtx)
	}
}

// StartSpan starts a span on the global tracer
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer.Start(ctx, name, opts...)
}

// RecordError records err on the span in ctx and marks it failed
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err, trace.WithAttributes(ErrorAttributes(err)...))
	span.SetStatus(codes.Error, err.Error())
}

// RecordConflict adds a merge conflict event for one entity to the span in ctx
func RecordConflict(ctx context.Context, id int64, kind, changeType, field, conflict string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := append(EntityAttributes(id, kind, changeType), ConflictAttributes(field, conflict)...)
	span.AddEvent("merge conflict", trace.WithAttributes(attrs...))
}
