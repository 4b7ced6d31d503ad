package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	err error
}

func (s stubChecker) CheckHealth(ctx context.Context) error {
	return s.err
}

func TestHealthHandlerReturnsHealthyStatus(t *testing.T) {
	hm := NewHealthManager("test-version")
	hm.RegisterChecker("ok", stubChecker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	hm.HealthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test-version", resp.Version)
	assert.Equal(t, "healthy", resp.Checks["ok"])
}

func TestHealthHandlerReturnsServiceUnavailableWhenUnhealthy(t *testing.T) {
	hm := NewHealthManager("test-version")
	hm.RegisterChecker("broken", stubChecker{err: errors.New("down")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	hm.HealthHandler(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDetermineOverallStatusTreatsTimeoutAsDegraded(t *testing.T) {
	hm := NewHealthManager("test-version")

	status := hm.determineOverallStatus(map[string]string{
		"a": "healthy",
		"b": "timeout",
	})
	assert.Equal(t, "degraded", status)

	status = hm.determineOverallStatus(map[string]string{
		"a": "healthy",
		"b": "unhealthy",
	})
	assert.Equal(t, "unhealthy", status)
}

func TestBreakerCheckerWithoutClientFails(t *testing.T) {
	checker := &BreakerChecker{}
	assert.Error(t, checker.CheckHealth(context.Background()))
}

func TestBudgetCheckerWithoutClientFails(t *testing.T) {
	checker := &BudgetChecker{}
	assert.Error(t, checker.CheckHealth(context.Background()))
}

func TestUpstreamCheckerDialsEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	checker := &UpstreamChecker{Endpoint: srv.URL}
	assert.NoError(t, checker.CheckHealth(context.Background()))
}

func TestUpstreamCheckerRejectsInvalidEndpoint(t *testing.T) {
	checker := &UpstreamChecker{Endpoint: "not a url"}
	assert.Error(t, checker.CheckHealth(context.Background()))
}
