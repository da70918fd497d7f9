package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func initNoop(t *testing.T) context.Context {
	t.Helper()
	ctx := context.Background()
	shutdown, err := InitTracingWithConfig(ctx, "test-version", Config{})
	if err != nil {
		t.Fatalf("InitTracing failed: %v", err)
	}
	t.Cleanup(func() { shutdown(ctx) })
	return ctx
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	ctx := initNoop(t)

	if Tracer == nil {
		t.Fatal("Tracer is nil")
	}

	ctx, span := StartSpan(ctx, "batch.merge",
		trace.WithAttributes(BatchAttributes("batch-1", 10, 3)...),
	)
	if span == nil {
		t.Fatal("StartSpan returned nil span")
	}
	if trace.SpanFromContext(ctx) == nil {
		t.Fatal("No span in context")
	}
	span.End()
}

func TestSpanHelpersDoNotPanic(t *testing.T) {
	ctx := initNoop(t)

	RecordError(ctx, errors.New("no span"))

	ctx, span := StartSpan(ctx, "change.merge")
	defer span.End()

	RecordError(ctx, nil)
	RecordError(ctx, errors.New("conflict"))
	RecordConflict(ctx, 42, "Node", "ADD", "tags", "ADD_ADD_COLLISION")
}

func TestConfigFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want Config
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			want: Config{Insecure: true, SampleRatio: 1, Environment: "development"},
		},
		{
			name: "all set",
			env: map[string]string{
				"OTLP_ENDPOINT":     "collector:4317",
				"OTLP_INSECURE":     "false",
				"OTLP_SAMPLE_RATIO": "0.25",
				"ENVIRONMENT":       "production",
			},
			want: Config{Endpoint: "collector:4317", SampleRatio: 0.25, Environment: "production"},
		},
		{
			name: "invalid values fall back",
			env: map[string]string{
				"OTLP_INSECURE":     "maybe",
				"OTLP_SAMPLE_RATIO": "2",
			},
			want: Config{Insecure: true, SampleRatio: 1, Environment: "development"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"OTLP_ENDPOINT", "OTLP_INSECURE", "OTLP_SAMPLE_RATIO", "ENVIRONMENT"} {
				t.Setenv(key, tt.env[key])
			}
			if got := ConfigFromEnv(); got != tt.want {
				t.Errorf("ConfigFromEnv() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		attrs []attribute.KeyValue
		want  int
	}{
		{"entity", EntityAttributes(1, "Edge", "REMOVE"), 3},
		{"batch", BatchAttributes("b", 4, 2), 3},
		{"conflict", ConflictAttributes("tags", "ADD_REMOVE_COLLISION"), 2},
		{"nil error", ErrorAttributes(nil), 0},
		{"error", ErrorAttributes(errors.New("boom")), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.attrs) != tt.want {
				t.Errorf("got %d attributes, expected %d", len(tt.attrs), tt.want)
			}
		})
	}
}
