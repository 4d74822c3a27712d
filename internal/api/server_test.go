package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"linkmint/internal/api"
	mockv1handler "linkmint/internal/api/handler/v1handler/mock"
	"linkmint/internal/config"
	"linkmint/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// NewServer registers otel collectors with the process-wide prometheus
// registry, so it runs once for the whole test.
func TestNewServer_Routes(t *testing.T) {
	logger.Setup(logger.DevelopmentEnvironment)

	ctrl := gomock.NewController(t)
	deps := api.Deps{}
	deps.Engine = mockv1handler.NewMockRewriter(ctrl)

	cfg := &config.Config{}
	cfg.HTTP.Addr = ":0"
	cfg.HTTP.MetricsPath = "/metrics"
	cfg.HTTP.RequestTimeout = time.Second

	srv, err := api.NewServer(deps, api.NewOptions(cfg))
	require.NoError(t, err)

	// health endpoint answers through the full middleware stack
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	// metrics endpoint is mounted
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// CORS preflight is short-circuited before routing
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/v1/rewrite", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
