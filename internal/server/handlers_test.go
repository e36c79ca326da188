package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"medcache/internal/cache"
)

func newTestHandlers(t *testing.T) (*Handlers, *cache.Manager) {
	t.Helper()

	reg := prometheus.NewRegistry()
	cfg := &cache.Config{
		KeyPrefix: "medcache:",
		Local: cache.LocalConfig{
			Enabled:       true,
			TTL:           time.Minute,
			SweepInterval: time.Minute,
			MaxKeys:       100,
		},
		EncryptionKey:     "test-encryption-key",
		MetricsRegisterer: reg,
	}

	manager, err := cache.New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return NewHandlers(manager, metricsHandler, zaptest.NewLogger(t)), manager
}

func doRequest(h *Handlers, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := doRequest(h, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "disabled", body["redis"])
}

func TestStatsEndpoint(t *testing.T) {
	h, manager := newTestHandlers(t)

	manager.Set(context.Background(), "k", "v", "default", nil)
	manager.Get(context.Background(), "k", "default", nil)
	manager.Get(context.Background(), "absent", "default", nil)

	rec := doRequest(h, "GET", "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot cache.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, int64(1), snapshot.Hits)
	assert.Equal(t, int64(1), snapshot.Misses)
	assert.InDelta(t, 0.5, snapshot.HitRate, 1e-9)
}

func TestOptimizeEndpoint(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := doRequest(h, "POST", "/api/optimize", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result cache.OptimizationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)

	t.Run("GET is not routed", func(t *testing.T) {
		rec := doRequest(h, "GET", "/api/optimize", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestEntryLifecycle(t *testing.T) {
	h, _ := newTestHandlers(t)

	payload := []byte(`{"value": {"note": "follow up in two weeks"}, "ttl": "10m"}`)
	rec := doRequest(h, "PUT", "/api/cache/default/visit:42", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(h, "GET", "/api/cache/default/visit:42", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "visit:42", body["key"])
	value := body["value"].(map[string]interface{})
	assert.Equal(t, "follow up in two weeks", value["note"])

	rec = doRequest(h, "DELETE", "/api/cache/default/visit:42", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(h, "GET", "/api/cache/default/visit:42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutEntryValidation(t *testing.T) {
	h, _ := newTestHandlers(t)

	t.Run("invalid json", func(t *testing.T) {
		rec := doRequest(h, "PUT", "/api/cache/default/k", []byte("{"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid ttl", func(t *testing.T) {
		rec := doRequest(h, "PUT", "/api/cache/default/k", []byte(`{"value": 1, "ttl": "soon"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		rec := doRequest(h, "PUT", "/api/cache/nonexistent/k", []byte(`{"value": 1}`))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestClearNamespaceEndpoint(t *testing.T) {
	h, manager := newTestHandlers(t)

	require.True(t, manager.Set(context.Background(), "a", 1, "transcription", nil))
	require.True(t, manager.Set(context.Background(), "b", 2, "transcription", nil))

	rec := doRequest(h, "DELETE", "/api/cache/transcription", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, found := manager.Get(context.Background(), "a", "transcription", nil)
	assert.False(t, found)

	t.Run("unknown strategy", func(t *testing.T) {
		rec := doRequest(h, "DELETE", "/api/cache/nonexistent", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	h, manager := newTestHandlers(t)

	manager.Get(context.Background(), "absent", "default", nil)

	rec := doRequest(h, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "medcache_misses_total")
}
