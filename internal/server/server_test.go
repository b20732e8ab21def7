package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sentinal-threads/config"
	"sentinal-threads/internal/metrics"
	"sentinal-threads/pkg/logger"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func newTestServer(checks map[string]HealthCheck) *Server {
	s := New(&config.Config{AppMode: TestMode, AppPort: "0"}, logger.NewNop())
	m := metrics.New()
	m.Transition("archive")
	s.SetupRoutes(&Handlers{}, m, checks)
	return s
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServer_PingAndMetrics(t *testing.T) {
	s := newTestServer(nil)

	w := get(s, "/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")

	w = get(s, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `sentinal_threads_thread_transitions_total{operation="archive"} 1`))
}

func TestServer_Health(t *testing.T) {
	healthy := newTestServer(map[string]HealthCheck{
		"store": func(context.Context) error { return nil },
	})
	assert.Equal(t, http.StatusOK, get(healthy, "/health").Code)

	broken := newTestServer(map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	w := get(broken, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis: connection refused")
}
