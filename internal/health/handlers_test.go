package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-books/internal/health"
)

type stubChecker struct {
	dbErr    error
	redisErr error
}

func (s stubChecker) PingDB(context.Context, time.Duration) error    { return s.dbErr }
func (s stubChecker) PingRedis(context.Context, time.Duration) error { return s.redisErr }

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReady(t *testing.T) {
	cases := []struct {
		name    string
		checker health.Checker
		code    int
		body    map[string]string
	}{
		{"all dependencies up", stubChecker{}, http.StatusOK, map[string]string{"db": "ok", "redis": "ok"}},
		{"redis not configured", stubChecker{redisErr: health.ErrDisabled}, http.StatusOK, map[string]string{"db": "ok", "redis": "disabled"}},
		{"database down", stubChecker{dbErr: errors.New("db down")}, http.StatusServiceUnavailable, map[string]string{"db": "db down", "redis": "ok"}},
		{"redis down", stubChecker{redisErr: errors.New("refused")}, http.StatusServiceUnavailable, map[string]string{"db": "ok", "redis": "refused"}},
		{"no checker", nil, http.StatusServiceUnavailable, map[string]string{"status": "dependencies unavailable"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			health.Handler{Checker: tc.checker}.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			require.Equal(t, tc.code, rr.Code)
			require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			require.Equal(t, tc.body, body)
		})
	}
}

func TestReadyDuringShutdown(t *testing.T) {
	t.Cleanup(func() { health.SetReady(true) })
	handler := health.Handler{Checker: stubChecker{}}

	health.SetReady(false)
	require.False(t, health.IsReady())
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.JSONEq(t, `{"status":"shutting down"}`, rr.Body.String())

	health.SetReady(true)
	rr = httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
