package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/interntrack/tracker/internal/application/repository"
	"github.com/interntrack/tracker/internal/application/service"
	"github.com/interntrack/tracker/internal/config"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tr := service.NewTracker(context.Background(), repository.NewJSONRepository(repository.NewMemoryStore(), "k", "memory"))
	return newRouter(cfg, tr, nil)
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRouter_HealthAndAPIEndpoints(t *testing.T) {
	r := testRouter(t, &config.Config{Storage: config.StorageConfig{Backend: config.BackendMemory}})

	require.Equal(t, http.StatusOK, get(r, "/health").Code)

	w := get(r, "/ready")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"backend":"memory"`)

	require.Equal(t, http.StatusOK, get(r, "/api/applications").Code)
	require.Equal(t, http.StatusOK, get(r, "/swagger/doc.json").Code)
	require.Equal(t, http.StatusOK, get(r, "/metrics").Code)
}

func TestRouter_RateLimitSparesHealthChecks(t *testing.T) {
	r := testRouter(t, &config.Config{
		Storage:   config.StorageConfig{Backend: config.BackendMemory},
		RateLimit: config.RateLimitConfig{Enabled: true, RPS: 0.01, Burst: 1},
	})

	require.Equal(t, http.StatusOK, get(r, "/api/applications").Code)
	require.Equal(t, http.StatusTooManyRequests, get(r, "/api/applications").Code)
	require.Equal(t, http.StatusOK, get(r, "/health").Code)
	require.Equal(t, http.StatusOK, get(r, "/ready").Code)
}
