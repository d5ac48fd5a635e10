package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"json info", "info", "json", false},
		{"default format", "debug", "", false},
		{"console", "warn", "console", false},
		{"upper case level", "ERROR", "json", false},
		{"bad level", "loud", "json", true},
		{"bad format", "info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger, err := NewLogger("warn", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestContextLogger_AddsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewContextLogger(zap.New(core))

	ctx := context.WithValue(context.Background(), chimw.RequestIDKey, "req-42")
	logger.Info(ctx, "granted", zap.String("user_id", "u1"))
	logger.Warn(context.Background(), "no request")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "u1", entries[0].ContextMap()["user_id"])
	_, ok := entries[1].ContextMap()["request_id"]
	assert.False(t, ok)
}

func TestPrometheusMetrics_Observe(t *testing.T) {
	m := NewPrometheusMetrics()

	m.ObserveCheck(true, time.Millisecond)
	m.ObserveCheck(true, time.Millisecond)
	m.ObserveCheck(false, time.Millisecond)
	m.ObserveResolution(ResolutionResource, 3, time.Millisecond)
	m.ObserveResolution(ResolutionPrefix, 0, time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `rbac_permission_checks_total{allowed="true"} 2`)
	assert.Contains(t, body, `rbac_permission_checks_total{allowed="false"} 1`)
	assert.Contains(t, body, `rbac_effective_permission_resolutions_total{kind="resource"} 1`)
	assert.Contains(t, body, `rbac_effective_permission_resolutions_total{kind="prefix"} 1`)
}

func TestPrometheusMetrics_Instrument(t *testing.T) {
	m := NewPrometheusMetrics()

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/orgs/{orgID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/orgs/a", "/orgs/b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Contains(t, scrape(t, m), `rbac_http_requests_total{method="GET",route="/orgs/{orgID}",status="418"} 2`)
}

func TestPrometheusMetrics_Handler(t *testing.T) {
	m := NewPrometheusMetrics()
	m.ObserveCheck(false, time.Millisecond)

	body := scrape(t, m)
	assert.True(t, strings.Contains(body, "rbac_permission_checks_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

func scrape(t *testing.T, m *PrometheusMetrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestNopMetrics(t *testing.T) {
	var m Metrics = NopMetrics{}
	m.ObserveCheck(true, time.Second)
	m.ObserveResolution(ResolutionPrefix, 1, time.Second)
}
