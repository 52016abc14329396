package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-catalog/internal/config"
	"github.com/nulzo/model-catalog/internal/core/services"
	"github.com/nulzo/model-catalog/internal/core/services/transfer"
	"github.com/nulzo/model-catalog/internal/discovery"
	"github.com/nulzo/model-catalog/internal/store/memory"
	"github.com/nulzo/model-catalog/internal/telemetry"
	"github.com/nulzo/model-catalog/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	st := memory.New(schema.Provider{
		ID:          "openai",
		Name:        "OpenAI",
		Credentials: schema.Credentials{APIKeys: []string{}},
		Limits:      []schema.Limit{},
		Models:      []schema.Model{},
	})
	catalog := services.NewCatalogService(logger, st, nil, metrics)
	require.NoError(t, catalog.Reload(context.Background()))

	return New(cfg, logger, Deps{
		Catalog:    catalog,
		Importer:   transfer.NewImporter(logger, st, catalog, metrics),
		Exporter:   transfer.NewExporter(logger, catalog, "", metrics),
		Discoverer: discovery.NewService(logger, discovery.NewFetcher(logger, nil), catalog),
		Metrics:    metrics,
		Gatherer:   reg,
	})
}

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0", Env: "test"},
	}
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, baseConfig())

	w := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.Contains(t, w.Body.String(), `"providers":1`)
}

func TestAuth(t *testing.T) {
	cfg := baseConfig()
	cfg.Server.APIKeys = []string{"admin-token"}
	s := newTestServer(t, cfg)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic admin-token", want: http.StatusUnauthorized},
		{name: "wrong token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer admin-token", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/providers", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, serve(s, req).Code)
		})
	}

	// health stays public
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestRateLimit(t *testing.T) {
	cfg := baseConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}
	s := newTestServer(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(s, httptest.NewRequest(http.MethodGet, "/v1/providers", nil)).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, baseConfig())

	w := serve(s, httptest.NewRequest(http.MethodOptions, "/v1/import", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Backup-Passphrase")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, baseConfig())

	serve(s, httptest.NewRequest(http.MethodGet, "/v1/providers/openai", nil))
	serve(s, httptest.NewRequest(http.MethodPost, "/v1/import?mode=merge", strings.NewReader("")))

	w := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `catalog_http_requests_total{method="GET",route="/v1/providers/:id",status="200"} 1`)
	assert.Contains(t, body, `catalog_import_total{mode="merge",outcome="cancelled"} 1`)
	assert.Contains(t, body, "catalog_providers 1")
}

func TestRecovery(t *testing.T) {
	s := newTestServer(t, baseConfig())
	s.router.GET("/panic", func(*gin.Context) { panic("boom") })

	w := serve(s, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
