package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/NERVsystems/osmdelta/pkg/change"
	"github.com/NERVsystems/osmdelta/pkg/codec"
	"github.com/NERVsystems/osmdelta/pkg/monitoring"
	"github.com/NERVsystems/osmdelta/pkg/tracing"
)

const snapshot = `
points:
  - id: 7
    tags: {a: "1", b: "2"}
    location: "20,20"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const conflictingChanges = `{"changes": [
	{"type": "ADD", "kind": "Point", "id": 7, "after": {"tags": {"a": "x", "b": "2"}}},
	{"type": "ADD", "kind": "Point", "id": 7, "after": {"tags": {"a": "y", "b": "2"}}}
]}`

// spanCollector keeps every exported span. Unlike tracetest.InMemoryExporter
// it does not drop them on Shutdown.
type spanCollector struct {
	mu    sync.Mutex
	spans []sdktrace.ReadOnlySpan
}

func (c *spanCollector) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spans = append(c.spans, spans...)
	return nil
}

func (c *spanCollector) Shutdown(context.Context) error { return nil }

func (c *spanCollector) find(name string) sdktrace.ReadOnlySpan {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.spans {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func resetTracing(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		if _, err := tracing.InitTracingWithConfig(context.Background(), "test", tracing.Config{}); err != nil {
			t.Errorf("reset tracing: %v", err)
		}
	})
}

func hasEvent(span sdktrace.ReadOnlySpan, name string) bool {
	return slices.ContainsFunc(span.Events(), func(e sdktrace.Event) bool { return e.Name == name })
}

func TestLoadStore(t *testing.T) {
	dir := t.TempDir()

	base, n, err := loadStore("", 16)
	if err != nil || base != nil || n != 0 {
		t.Fatalf("empty path: got %v, %d, %v", base, n, err)
	}

	base, n, err = loadStore(writeFile(t, dir, "base.yaml", snapshot), 16)
	if err != nil {
		t.Fatalf("loadStore: %v", err)
	}
	if n != 1 {
		t.Errorf("entities = %d, want 1", n)
	}
	if base == nil {
		t.Fatal("expected a store")
	}

	if _, _, err := loadStore(filepath.Join(dir, "missing.yaml"), 16); err == nil {
		t.Error("expected an error for a missing snapshot")
	}
}

func TestRunMerge(t *testing.T) {
	dir := t.TempDir()
	base, _, err := loadStore(writeFile(t, dir, "base.yaml", snapshot), 16)
	if err != nil {
		t.Fatalf("loadStore: %v", err)
	}
	merger := change.NewBatchMerger()

	t.Run("merges with store context", func(t *testing.T) {
		path := writeFile(t, dir, "disjoint.json", `{"changes": [
			{"type": "ADD", "kind": "Point", "id": 7, "after": {"tags": {"a": "x", "b": "2"}}},
			{"type": "ADD", "kind": "Point", "id": 7, "after": {"location": "21,21"}}
		]}`)

		var out bytes.Buffer
		report, err := runMerge(context.Background(), path, base, merger, &out)
		if err != nil {
			t.Fatalf("runMerge: %v", err)
		}
		if len(report.Changes) != 1 || len(report.Errors) != 0 {
			t.Fatalf("report = %+v", report)
		}

		var written codec.Report
		if err := json.Unmarshal(out.Bytes(), &written); err != nil {
			t.Fatalf("report is not JSON: %v", err)
		}
		if len(written.Changes) != 1 {
			t.Errorf("written report has %d changes", len(written.Changes))
		}
		if before := written.Changes[0].Before; before == nil || before.Tags == nil || (*before.Tags)["a"] != "1" {
			t.Errorf("before view not derived: %+v", before)
		}
	})

	t.Run("conflicts are reported", func(t *testing.T) {
		path := writeFile(t, dir, "conflict.json", `{"changes": [
			{"type": "ADD", "kind": "Point", "id": 7, "after": {"tags": {"a": "x", "b": "2"}}},
			{"type": "ADD", "kind": "Point", "id": 7, "after": {"tags": {"a": "y", "b": "2"}}}
		]}`)

		report, err := runMerge(context.Background(), path, base, merger, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("runMerge: %v", err)
		}
		if len(report.Errors) != 1 || len(report.Changes) != 0 {
			t.Fatalf("report = %+v", report)
		}
	})

	errorTests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"changes": [`},
		{"unknown kind", `{"changes": [{"type": "ADD", "kind": "Tile", "id": 1, "after": {"tags": {}}}]}`},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "bad.json", tt.content)
			if _, err := runMerge(context.Background(), path, nil, merger, &bytes.Buffer{}); err == nil {
				t.Error("expected an error")
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := runMerge(context.Background(), filepath.Join(dir, "nope.json"), nil, merger, &bytes.Buffer{}); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestRunMergeRecordsBatchSpan(t *testing.T) {
	resetTracing(t)
	recorder := tracetest.NewSpanRecorder()
	tracing.UseTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	dir := t.TempDir()
	base, _, err := loadStore(writeFile(t, dir, "base.yaml", snapshot), 16)
	if err != nil {
		t.Fatalf("loadStore: %v", err)
	}
	path := writeFile(t, dir, "conflict.json", conflictingChanges)

	if _, err := runMerge(context.Background(), path, base, change.NewBatchMerger(), &bytes.Buffer{}); err != nil {
		t.Fatalf("runMerge: %v", err)
	}

	idx := slices.IndexFunc(recorder.Ended(), func(s sdktrace.ReadOnlySpan) bool {
		return s.Name() == "change.merge_batch"
	})
	if idx < 0 {
		t.Fatal("change.merge_batch span was not ended")
	}
	if span := recorder.Ended()[idx]; !hasEvent(span, "merge conflict") {
		t.Errorf("span events = %v, want a merge conflict event", span.Events())
	}
}

func TestRunMergeModeFlushesSpans(t *testing.T) {
	resetTracing(t)
	dir := t.TempDir()

	saved := []string{storePath, mergeFile, outputFile}
	t.Cleanup(func() { storePath, mergeFile, outputFile = saved[0], saved[1], saved[2] })
	storePath = writeFile(t, dir, "base.yaml", snapshot)
	mergeFile = writeFile(t, dir, "conflict.json", conflictingChanges)
	outputFile = filepath.Join(dir, "report.json")

	// The batcher only exports on its timer or at shutdown, so the span is
	// seen here only if run flushed the provider before returning.
	collector := &spanCollector{}
	initBatched := func(context.Context, string) (func(context.Context) error, error) {
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(collector))
		return tracing.UseTracerProvider(tp), nil
	}

	if code := run(initBatched); code != 2 {
		t.Errorf("exit code = %d, want 2 for a batch with conflicts", code)
	}

	span := collector.find("change.merge_batch")
	if span == nil {
		t.Fatal("change.merge_batch span was not flushed before exit")
	}
	if !hasEvent(span, "merge conflict") {
		t.Errorf("span events = %v, want a merge conflict event", span.Events())
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report codec.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if len(report.Errors) != 1 {
		t.Errorf("report errors = %+v", report.Errors)
	}
}

func TestValidateSafePath(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"relative file", "claude.json", false},
		{"nested", filepath.Join("config", "claude.json"), false},
		{"absolute", filepath.Join(os.TempDir(), "claude.json"), true},
		{"traversal", filepath.Join("..", "claude.json"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSafePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSafePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestGenerateClientConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join("config", "claude.json")

	if err := os.MkdirAll("config", 0750); err != nil {
		t.Fatal(err)
	}
	existing := `{"mcpServers": {"other": {"command": "other"}}, "theme": "dark"}`
	if err := os.WriteFile(path, []byte(existing), 0600); err != nil {
		t.Fatal(err)
	}

	if err := generateClientConfig(path, true); err != nil {
		t.Fatalf("generateClientConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var config struct {
		MCPServers map[string]map[string]interface{} `json:"mcpServers"`
		Theme      string                            `json:"theme"`
	}
	if err := json.Unmarshal(data, &config); err != nil {
		t.Fatalf("config is not JSON: %v", err)
	}
	if _, ok := config.MCPServers["other"]; !ok {
		t.Error("merge dropped an existing server")
	}
	if config.Theme != "dark" {
		t.Error("merge dropped an unrelated setting")
	}
	entry, ok := config.MCPServers[monitoring.ServiceName]
	if !ok || entry["command"] == "" {
		t.Errorf("missing %s entry: %v", monitoring.ServiceName, config.MCPServers)
	}

	if err := generateClientConfig("claude.yaml", false); err == nil {
		t.Error("expected an error for a non-json path")
	}
}
