// Package monitoring provides Prometheus metrics and health reporting.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/NERVsystems/osmdelta/pkg/version"
)

// Component status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// ComponentStatus describes one dependency of the service, e.g. the base store
type ComponentStatus struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// ServiceHealth is the payload served by the health endpoint
type ServiceHealth struct {
	Service       string                     `json:"service"`
	Version       string                     `json:"version"`
	Status        string                     `json:"status"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	StartTime     time.Time                  `json:"start_time"`
	Components    map[string]ComponentStatus `json:"components"`
	Metrics       map[string]interface{}     `json:"metrics,omitempty"`
}

// HealthChecker tracks component status and refreshes runtime gauges
type HealthChecker struct {
	serviceName string
	version     string
	startTime   time.Time
	mu          sync.RWMutex
	components  map[string]ComponentStatus
	cancel      context.CancelFunc
}

// NewHealthChecker creates a health checker and starts system metric collection
func NewHealthChecker(serviceName, version string) *HealthChecker {
	ctx, cancel := context.WithCancel(context.Background())

	hc := &HealthChecker{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		components:  make(map[string]ComponentStatus),
		cancel:      cancel,
	}

	hc.updateSystemMetrics()
	go hc.collectSystemMetrics(ctx)

	return hc
}

// SetComponent records the status of a named component
func (h *HealthChecker) SetComponent(name, status, detail string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = ComponentStatus{Status: status, Detail: detail}
}

// GetHealth returns the current health status. The service is as healthy as
// its worst component.
func (h *HealthChecker) GetHealth() ServiceHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := StatusHealthy
	components := make(map[string]ComponentStatus, len(h.components))
	for name, c := range h.components {
		components[name] = c
		switch c.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return ServiceHealth{
		Service:       h.serviceName,
		Version:       h.version,
		Status:        overall,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		StartTime:     h.startTime,
		Components:    components,
		Metrics: map[string]interface{}{
			"goroutines":      runtime.NumGoroutine(),
			"memory_alloc_mb": m.Alloc / 1024 / 1024,
			"gc_runs":         m.NumGC,
			"version_info":    version.Info(),
		},
	}
}

// HealthHandler returns an HTTP handler for health checks
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth()

		w.Header().Set("Content-Type", "application/json")
		if health.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		if err := json.NewEncoder(w).Encode(health); err != nil {
			http.Error(w, fmt.Sprintf("Failed to encode health response: %v", err), http.StatusInternalServerError)
		}
	}
}

func (h *HealthChecker) collectSystemMetrics(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.updateSystemMetrics()
		}
	}
}

func (h *HealthChecker) updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	GoRoutines.Set(float64(runtime.NumGoroutine()))
	MemoryUsage.Set(float64(m.Alloc))

	info := version.Info()
	SystemInfo.WithLabelValues(info["version"], info["go_version"], info["commit"], info["build_date"]).Set(1)
}

// Shutdown stops the background metric collection
func (h *HealthChecker) Shutdown() {
	h.cancel()
}
