package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NERVsystems/osmdelta/pkg/change"
	"github.com/NERVsystems/osmdelta/pkg/codec"
	"github.com/NERVsystems/osmdelta/pkg/monitoring"
	"github.com/NERVsystems/osmdelta/pkg/server"
	"github.com/NERVsystems/osmdelta/pkg/store"
	"github.com/NERVsystems/osmdelta/pkg/tracing"
	ver "github.com/NERVsystems/osmdelta/pkg/version"
)

var (
	showVersionFlag bool
	debug           bool
	generateConfig  string
	mergeOnly       bool

	// Merge engine flags
	storePath   string
	cacheSize   int
	concurrency int
	mergeFile   string
	outputFile  string

	// HTTP transport flags
	enableHTTP    bool
	httpOnly      bool
	httpAddr      string
	httpBaseURL   string
	httpAuthToken string
	httpRateLimit float64
	httpRateBurst int
	httpProxies   string

	// Monitoring flags
	enableMonitoring bool
	monitoringAddr   string
)

func init() {
	flag.BoolVar(&showVersionFlag, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&generateConfig, "generate-config", "", "Generate a Claude Desktop Client config file at the specified path")
	flag.BoolVar(&mergeOnly, "merge-only", false, "Only merge new config, don't overwrite existing")

	flag.StringVar(&storePath, "store", "", "YAML snapshot of the base graph used to derive before views")
	flag.IntVar(&cacheSize, "cache-size", 4096, "Number of base entities kept in the lookup cache")
	flag.IntVar(&concurrency, "concurrency", runtime.GOMAXPROCS(0), "Maximum number of partitions merged in parallel")
	flag.StringVar(&mergeFile, "merge", "", "Merge the change document at this path, print the report and exit")
	flag.StringVar(&outputFile, "output", "", "Write the merge report to this path instead of stdout")

	flag.BoolVar(&enableHTTP, "enable-http", false, "Enable streamable HTTP transport (in addition to stdio)")
	flag.BoolVar(&httpOnly, "http-only", false, "Run HTTP transport only, skip stdio (requires --enable-http)")
	flag.StringVar(&httpAddr, "http-addr", ":7082", "HTTP server address")
	flag.StringVar(&httpBaseURL, "http-base-url", "", "Base URL for HTTP transport (auto-detected if empty)")
	flag.StringVar(&httpAuthToken, "http-auth-token", "", "Bearer token required on the MCP endpoint (empty disables auth)")
	flag.Float64Var(&httpRateLimit, "http-rate-limit", 10, "MCP requests per second per client (0 disables)")
	flag.IntVar(&httpRateBurst, "http-rate-burst", 20, "Rate limit burst size")
	flag.StringVar(&httpProxies, "http-trusted-proxies", "", "Comma-separated proxy IPs or CIDRs whose X-Forwarded-For is trusted")

	flag.BoolVar(&enableMonitoring, "enable-monitoring", true, "Enable Prometheus metrics and health endpoints")
	flag.StringVar(&monitoringAddr, "monitoring-addr", ":9090", "Monitoring server address")
}

// tracingInit matches tracing.InitTracing
type tracingInit func(ctx context.Context, version string) (func(context.Context) error, error)

func main() {
	flag.Parse()
	os.Exit(run(tracing.InitTracing))
}

// run executes the command selected by the flags and returns the exit code.
// Deferred cleanup, including the trace flush, completes before it returns.
func run(initTracing tracingInit) int {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if showVersionFlag {
		fmt.Println(ver.String())
		return 0
	}

	if generateConfig != "" {
		if err := generateClientConfig(generateConfig, mergeOnly); err != nil {
			logger.Error("failed to generate config", "error", err)
			return 1
		}
		logger.Info("successfully generated Claude Desktop Client config", "path", generateConfig)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := initTracing(ctx, ver.BuildVersion)
	if err != nil {
		// Tracing is optional
		logger.Error("failed to initialize tracing", "error", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("error shutting down tracing", "error", err)
			}
		}()
		if endpoint := os.Getenv("OTLP_ENDPOINT"); endpoint != "" {
			logger.Info("OpenTelemetry tracing enabled", "endpoint", endpoint)
		}
	}

	base, entities, err := loadStore(storePath, cacheSize)
	if err != nil {
		logger.Error("failed to load base store", "path", storePath, "error", err)
		return 1
	}

	merger := change.NewBatchMerger(
		change.WithConcurrency(concurrency),
		change.WithLogger(logger),
	)

	if mergeFile != "" {
		return mergeAndReport(ctx, logger, base, merger)
	}

	logger.Info("starting osmdelta MCP server",
		"version", ver.BuildVersion,
		"log_level", logLevel.String(),
		"store", storePath,
		"concurrency", concurrency,
		"http_enabled", enableHTTP,
		"monitoring_enabled", enableMonitoring,
		"monitoring_addr", monitoringAddr)

	var healthChecker *monitoring.HealthChecker
	if enableMonitoring {
		healthChecker = monitoring.NewHealthChecker(monitoring.ServiceName, ver.BuildVersion)
		defer healthChecker.Shutdown()
		reportStoreHealth(healthChecker, base, entities)
		startMonitoringServer(ctx, logger, healthChecker)
	}

	var st store.Store
	if base != nil {
		st = base
	}
	s := server.NewServer(server.Config{Logger: logger, Store: st, Merger: merger})

	if enableHTTP {
		startHTTPTransport(ctx, logger, s, healthChecker)
	}

	switch {
	case !enableHTTP:
		logger.Info("transport_enabled", "type", "stdio", "mode", "blocking")
		if err := s.RunWithContext(ctx); err != nil {
			logger.Error("server error", "error", err)
			return 1
		}
	case httpOnly:
		logger.Info("server_ready", "transports", []string{"http"}, "http_only", true)
		<-ctx.Done()
		logger.Info("shutdown signal received")
	default:
		go func() {
			logger.Info("transport_enabled", "type", "stdio", "mode", "background")
			if err := s.RunWithContext(ctx); err != nil {
				logger.Error("stdio transport error", "error", err)
			}
		}()
		logger.Info("server_ready", "transports", []string{"stdio", "http"})
		<-ctx.Done()
		logger.Info("shutdown signal received")
	}

	logger.Info("server stopped")
	return 0
}

// loadStore loads the YAML snapshot at path behind an LRU cache and returns
// it with its entity count. An empty path means no base store.
func loadStore(path string, size int) (*store.CachedStore, int, error) {
	if path == "" {
		return nil, 0, nil
	}
	mem, err := store.LoadYAML(path)
	if err != nil {
		return nil, 0, err
	}
	cached, err := store.NewCachedStore(mem, size)
	if err != nil {
		return nil, 0, err
	}
	return cached, mem.Len(), nil
}

func reportStoreHealth(hc *monitoring.HealthChecker, base *store.CachedStore, entities int) {
	if base == nil {
		hc.SetComponent("store", monitoring.StatusDegraded, "no base store loaded, before views must be supplied")
		return
	}
	hc.SetComponent("store", monitoring.StatusHealthy, fmt.Sprintf("%d entities", entities))
}

func startMonitoringServer(ctx context.Context, logger *slog.Logger, hc *monitoring.HealthChecker) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/health", hc.HealthHandler())

	srv := &http.Server{
		Addr:              monitoringAddr,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("starting monitoring server", "addr", monitoringAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("monitoring server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown monitoring server", "error", err)
		}
	}()
}

func startHTTPTransport(ctx context.Context, logger *slog.Logger, s *server.Server, hc *monitoring.HealthChecker) {
	config := server.DefaultHTTPTransportConfig()
	config.Addr = httpAddr
	config.BaseURL = httpBaseURL
	config.AuthToken = httpAuthToken
	config.RateLimit = httpRateLimit
	config.RateBurst = httpRateBurst
	if httpProxies != "" {
		config.TrustedProxies = strings.Split(httpProxies, ",")
	}

	transport := server.NewHTTPTransport(s.GetMCPServer(), config, logger)
	if hc != nil {
		transport.SetHealthChecker(hc)
	}

	go func() {
		if err := transport.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP transport error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := transport.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown HTTP transport", "error", err)
		}
	}()
}

// mergeAndReport runs the one-shot merge mode and returns the exit code
func mergeAndReport(ctx context.Context, logger *slog.Logger, base *store.CachedStore, merger *change.BatchMerger) int {
	out := io.Writer(os.Stdout)
	if outputFile != "" {
		f, err := os.Create(filepath.Clean(outputFile))
		if err != nil {
			logger.Error("failed to create report file", "path", outputFile, "error", err)
			return 1
		}
		defer f.Close()
		out = f
	}

	var st store.Store
	if base != nil {
		st = base
	}
	report, err := runMerge(ctx, mergeFile, st, merger, out)
	if err != nil {
		logger.Error("merge failed", "path", mergeFile, "error", err)
		return 1
	}
	if len(report.Errors) > 0 {
		logger.Warn("merge finished with failures", "merged", len(report.Changes), "failures", len(report.Errors))
		return 2
	}
	logger.Info("merge finished", "merged", len(report.Changes))
	return 0
}

// runMerge reads a change document, derives before views when a store is
// given, merges the batch and writes the report to w
func runMerge(ctx context.Context, path string, st store.Store, merger *change.BatchMerger, w io.Writer) (codec.Report, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return codec.Report{}, err
	}
	defer f.Close()

	changes, err := codec.Read(f)
	if err != nil {
		return codec.Report{}, fmt.Errorf("read %s: %w", path, err)
	}

	if st != nil {
		if changes, err = change.WithStoreContextAll(changes, st); err != nil {
			return codec.Report{}, err
		}
	}

	merged, mergeErr := merger.Merge(ctx, changes)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return codec.Report{}, ctxErr
	}
	report := codec.NewReport(merged, mergeErr)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return codec.Report{}, fmt.Errorf("write report: %w", err)
	}
	return report, nil
}

// generateClientConfig writes a Claude Desktop config that launches this binary
func generateClientConfig(path string, mergeOnly bool) error {
	if path == "" {
		return fmt.Errorf("config path cannot be empty")
	}
	if !strings.HasSuffix(path, ".json") {
		return fmt.Errorf("config file must have .json extension")
	}

	cleanPath := filepath.Clean(path)
	if err := validateSafePath(cleanPath); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	config := map[string]interface{}{}
	if mergeOnly {
		if data, err := os.ReadFile(cleanPath); err == nil {
			if err := json.Unmarshal(data, &config); err != nil {
				return fmt.Errorf("failed to parse existing config: %w", err)
			}
		}
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	var args []string
	if storePath != "" {
		absStore, err := filepath.Abs(storePath)
		if err != nil {
			return fmt.Errorf("failed to resolve store path: %w", err)
		}
		args = append(args, "-store", absStore)
	}

	servers, _ := config["mcpServers"].(map[string]interface{})
	if servers == nil {
		servers = map[string]interface{}{}
	}
	servers[monitoring.ServiceName] = map[string]interface{}{
		"command": executable,
		"args":    args,
	}
	config["mcpServers"] = servers

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(cleanPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// validateSafePath rejects absolute paths and paths outside the working directory
func validateSafePath(path string) error {
	if filepath.IsAbs(path) {
		return fmt.Errorf("absolute paths are not allowed for security reasons")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current working directory: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	relPath, err := filepath.Rel(cwd, absPath)
	if err != nil {
		return fmt.Errorf("failed to determine relative path: %w", err)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected: %s", relPath)
	}
	return nil
}
