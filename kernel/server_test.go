package kernel

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_HealthEndpoint(t *testing.T) {
	router := NewRouter(nil)
	monitor := NewMonitor(router, DefaultThresholds())
	diagnostics := NewDiagnostics(10)
	metrics := NewMetrics("lucid_test_health")

	srv := NewServer(ServerConfig{}, router, monitor, diagnostics, metrics, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestServer_DiagnosticsRequiresAuthWhenSecretSet(t *testing.T) {
	router := NewRouter(nil)
	monitor := NewMonitor(router, DefaultThresholds())
	diagnostics := NewDiagnostics(10)
	metrics := NewMetrics("lucid_test_diag")

	srv := NewServer(ServerConfig{JWTSecret: []byte("test-secret")}, router, monitor, diagnostics, metrics, nil)

	req := httptest.NewRequest(http.MethodGet, "/diagnostics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_MetricsEndpointServed(t *testing.T) {
	router := NewRouter(nil)
	monitor := NewMonitor(router, DefaultThresholds())
	diagnostics := NewDiagnostics(10)
	metrics := NewMetrics("lucid_test_metrics")

	srv := NewServer(ServerConfig{}, router, monitor, diagnostics, metrics, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
