// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness checks for the bridge
// process, suitable for Docker HEALTHCHECK and Kubernetes probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	xglog "github.com/wxsd-sales/iptv-bridge/internal/log"
)

// Status is the overall health or readiness verdict.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one component check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse is the readiness payload.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is one named component check.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager aggregates component checks into probe responses.
type Manager struct {
	version  string
	checkers []Checker
}

// NewManager creates a Manager reporting the given version.
func NewManager(version string) *Manager {
	return &Manager{version: version}
}

// RegisterChecker adds a component check.
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// Health is the liveness probe: the process is alive, component detail
// is informational only.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
	}
	if verbose && len(m.checkers) > 0 {
		resp.Checks, resp.Status = m.runChecks(ctx)
	}
	return resp
}

// Ready is the readiness probe: any unhealthy component makes the
// process not ready.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}
	resp.Checks, resp.Status = m.runChecks(ctx)
	if resp.Status == StatusUnhealthy {
		resp.Ready = false
	}
	return resp
}

func (m *Manager) runChecks(ctx context.Context) (map[string]CheckResult, Status) {
	checks := make(map[string]CheckResult, len(m.checkers))
	status := StatusHealthy
	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		checks[checker.Name()] = result
		switch result.Status {
		case StatusUnhealthy:
			status = StatusUnhealthy
		case StatusDegraded:
			if status == StatusHealthy {
				status = StatusDegraded
			}
		}
	}
	return checks, status
}

// ServeHealth handles liveness probe requests. Always 200.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := xglog.WithComponentFromContext(r.Context(), "health")
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Health(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "health.encode_error").Msg("failed to encode health response")
	}
}

// ServeReady handles readiness probe requests: 200 when ready, 503
// otherwise.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := xglog.WithComponentFromContext(r.Context(), "readiness")

	resp := m.Ready(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "readiness.encode_error").Msg("failed to encode readiness response")
	}
}

// ChannelsChecker reports on the loaded channel list. An empty list is
// degraded, not unhealthy: the device UI still works, it just shows no
// content.
type ChannelsChecker struct {
	count func() int
}

// NewChannelsChecker builds a checker over a channel count supplier.
func NewChannelsChecker(count func() int) *ChannelsChecker {
	return &ChannelsChecker{count: count}
}

func (c *ChannelsChecker) Name() string { return "channels" }

func (c *ChannelsChecker) Check(_ context.Context) CheckResult {
	n := c.count()
	if n == 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "no channels loaded",
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "channel list loaded",
	}
}

// StartupChecker is ready once the application controller has finished
// its startup sequence.
type StartupChecker struct {
	mu   sync.Mutex
	done bool
}

// NewStartupChecker creates an initially not-ready checker.
func NewStartupChecker() *StartupChecker {
	return &StartupChecker{}
}

// MarkReady flags startup as complete.
func (c *StartupChecker) MarkReady() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = true
}

func (c *StartupChecker) Name() string { return "startup" }

func (c *StartupChecker) Check(_ context.Context) CheckResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "startup sequence not finished",
		}
	}
	return CheckResult{Status: StatusHealthy}
}
