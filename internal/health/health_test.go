// SPDX-License-Identifier: MIT
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthAlwaysOK(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(NewStartupChecker()) // not ready

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Nil(t, resp.Checks, "non-verbose health omits component checks")
}

func TestHealthVerboseIncludesChecks(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(NewChannelsChecker(func() int { return 0 }))

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusDegraded, resp.Status)
	require.Contains(t, resp.Checks, "channels")
	assert.Equal(t, StatusDegraded, resp.Checks["channels"].Status)
}

func TestReadyTransitions(t *testing.T) {
	m := NewManager("v1.0.0")
	startup := NewStartupChecker()
	m.RegisterChecker(startup)

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	startup.MarkReady()

	rec = httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusHealthy, resp.Status)
}

func TestReadyNoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusHealthy, resp.Status)
}

func TestDegradedDoesNotBlockReadiness(t *testing.T) {
	m := NewManager("v1.0.0")
	startup := NewStartupChecker()
	startup.MarkReady()
	m.RegisterChecker(startup)
	m.RegisterChecker(NewChannelsChecker(func() int { return 0 }))

	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusDegraded, resp.Status)
}

func TestChannelsCheckerHealthy(t *testing.T) {
	c := NewChannelsChecker(func() int { return 12 })
	result := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
}
