package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/time/rate"

	"github.com/NERVsystems/osmdelta/pkg/monitoring"
)

// HTTPTransportConfig holds configuration for the HTTP transport
type HTTPTransportConfig struct {
	Addr           string  `json:"addr"`
	BaseURL        string  `json:"base_url"`   // auto-detected from the request when empty
	AuthToken      string  `json:"auth_token"` // bearer token; empty disables auth
	MCPEndpoint    string  `json:"mcp_endpoint"`
	RateLimit      float64 `json:"rate_limit"` // requests per second per client, 0 disables
	RateBurst      int     `json:"rate_burst"`
	MaxRequestSize int64   `json:"max_request_size"`
	// TrustedProxies lists proxy IPs or CIDR prefixes whose forwarding
	// headers identify the client; empty trusts none
	TrustedProxies []string `json:"trusted_proxies"`
}

// DefaultHTTPTransportConfig returns sensible defaults
func DefaultHTTPTransportConfig() HTTPTransportConfig {
	return HTTPTransportConfig{
		Addr:           ":7082",
		MCPEndpoint:    "/mcp",
		RateLimit:      10,
		RateBurst:      20,
		MaxRequestSize: 10 << 20,
	}
}

// HTTPTransport serves the MCP server over streamable HTTP next to health
// and discovery endpoints
type HTTPTransport struct {
	config        HTTPTransportConfig
	logger        *slog.Logger
	mcpHandler    *mcpserver.StreamableHTTPServer
	mux           *http.ServeMux
	rateLimiter   *RateLimiter
	ips           *ClientIPResolver
	httpSrv       *http.Server
	healthChecker *monitoring.HealthChecker
	mu            sync.RWMutex
}

// NewHTTPTransport creates a new HTTP transport instance
func NewHTTPTransport(mcpServer *mcpserver.MCPServer, config HTTPTransportConfig, logger *slog.Logger) *HTTPTransport {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MCPEndpoint == "" {
		config.MCPEndpoint = "/mcp"
	}
	if config.MaxRequestSize <= 0 {
		config.MaxRequestSize = DefaultHTTPTransportConfig().MaxRequestSize
	}

	ips, err := NewClientIPResolver(config.TrustedProxies)
	if err != nil {
		logger.Warn("ignoring trusted proxies, forwarding headers will not be honoured", "error", err)
		ips = nil
	}

	t := &HTTPTransport{
		config:     config,
		logger:     logger,
		mcpHandler: mcpserver.NewStreamableHTTPServer(mcpServer),
		mux:        http.NewServeMux(),
		ips:        ips,
	}
	if config.RateLimit > 0 {
		t.rateLimiter = NewRateLimiter(rate.Limit(config.RateLimit), max(config.RateBurst, 1), ips)
	}
	t.setupRoutes()
	return t
}

// SetHealthChecker sets the health checker for the HTTP transport
func (t *HTTPTransport) SetHealthChecker(hc *monitoring.HealthChecker) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.healthChecker = hc
}

func (t *HTTPTransport) setupRoutes() {
	t.mux.HandleFunc("/", t.handleServiceDiscovery)
	t.mux.HandleFunc("/health", t.handleHealth)

	var mcp http.Handler = t.mcpHandler
	mcp = t.authMiddleware(mcp)
	if t.rateLimiter != nil {
		mcp = t.rateLimiter.Middleware(mcp)
	}
	t.mux.Handle(t.config.MCPEndpoint, mcp)
}

// authMiddleware checks the bearer token when one is configured
func (t *HTTPTransport) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if t.config.AuthToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(t.config.AuthToken)) != 1 {
			t.logger.Warn("authentication failed",
				"remote_addr", t.ips.ClientIP(r),
				"path", r.URL.Path)
			monitoring.RecordError("http", "unauthorized")

			w.Header().Set("WWW-Authenticate", "Bearer")
			t.writeJSONRPCError(w, http.StatusUnauthorized, -32001, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *HTTPTransport) handleServiceDiscovery(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	baseURL := t.config.BaseURL
	if baseURL == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}

	discovery := map[string]interface{}{
		"service":   monitoring.ServiceName,
		"transport": "streamable-http",
		"endpoints": map[string]string{
			"mcp": baseURL + t.config.MCPEndpoint,
		},
		"capabilities": map[string]interface{}{
			"tools":   true,
			"prompts": true,
		},
		"auth": map[string]interface{}{
			"required": t.config.AuthToken != "",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(discovery); err != nil {
		t.logger.Error("failed to encode service discovery response", "error", err)
	}
}

func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	t.mu.RLock()
	hc := t.healthChecker
	t.mu.RUnlock()

	if hc != nil {
		hc.HealthHandler()(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		t.logger.Error("failed to encode health response", "error", err)
	}
}

func (t *HTTPTransport) writeJSONRPCError(w http.ResponseWriter, status, code int, message string) {
	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      nil,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		t.logger.Error("failed to encode JSON-RPC error", "error", err)
	}
}

// Handler returns the routes wrapped in the transport middleware chain
func (t *HTTPTransport) Handler() http.Handler {
	handler := http.Handler(t.mux)
	handler = TracingMiddleware()(handler)
	handler = LoggingMiddleware(t.logger, t.ips)(handler)
	handler = SecurityHeaders(handler)
	handler = RequestSizeLimiter(t.config.MaxRequestSize)(handler)
	return handler
}

// Start serves HTTP requests until Shutdown is called
func (t *HTTPTransport) Start() error {
	t.mu.Lock()
	if t.httpSrv != nil {
		t.mu.Unlock()
		return errors.New("HTTP transport already started")
	}

	t.httpSrv = &http.Server{
		Addr:              t.config.Addr,
		Handler:           t.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := t.httpSrv
	t.mu.Unlock()

	t.logger.Info("starting HTTP transport",
		"addr", t.config.Addr,
		"mcp_endpoint", t.config.MCPEndpoint,
		"auth", t.config.AuthToken != "",
		"rate_limit", t.config.RateLimit)

	return srv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP transport
func (t *HTTPTransport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rateLimiter != nil {
		t.rateLimiter.Stop()
	}
	if t.httpSrv == nil {
		return nil
	}

	t.logger.Info("shutting down HTTP transport")
	if err := t.mcpHandler.Shutdown(ctx); err != nil {
		t.logger.Error("failed to shutdown MCP handler", "error", err)
	}

	err := t.httpSrv.Shutdown(ctx)
	t.httpSrv = nil
	return err
}
