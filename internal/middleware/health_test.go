package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHealthHandler(t *testing.T) {
	ok := CheckerFunc(func(context.Context) error { return nil })
	bad := CheckerFunc(func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"db": ok})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"db": ok, "classifier": bad})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "down", body.Checks["classifier"].Message)
	assert.Equal(t, "healthy", body.Checks["db"].Status)
}

func TestLoggingAndMetrics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Logging(zap.New(core))(MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})))

	before := GetMetrics()["requests_failed"].(uint64)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, GetMetrics()["requests_failed"].(uint64))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.WarnLevel, entry.Level)
	assert.EqualValues(t, http.StatusTeapot, entry.ContextMap()["status"])
	assert.EqualValues(t, 15, entry.ContextMap()["bytes"])
}

func TestReadinessHandler(t *testing.T) {
	ok := CheckerFunc(func(context.Context) error { return nil })
	bad := CheckerFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	ReadinessHandler(map[string]HealthChecker{"database": ok, "storage": ok})(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ReadinessHandler(map[string]HealthChecker{"storage": ok, "database": bad})(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status  string   `json:"status"`
		Failing []string `json:"failing"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "not ready", body.Status)
	assert.Equal(t, []string{"database"}, body.Failing)
}

func TestReadinessHandler_HonoursDeadline(t *testing.T) {
	slow := CheckerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(ctx)
	ReadinessHandler(map[string]HealthChecker{"database": slow})(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
