package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/attendance/internal/config"
	"github.com/JonMunkholm/attendance/internal/core"
)

type fakeRunner struct {
	report  core.RunReport
	runErr  error
	counts  core.Counts
	dbErr   error
	latest  *core.RunReport
	started int
}

func (f *fakeRunner) RunIncrementalSheet(context.Context) (core.RunReport, error) {
	f.started++
	return f.report, f.runErr
}

func (f *fakeRunner) Latest() (core.RunReport, bool) {
	if f.latest == nil {
		return core.RunReport{}, false
	}
	return *f.latest, true
}

func (f *fakeRunner) Counts(context.Context) (core.Counts, error) { return f.counts, f.dbErr }

func (f *fakeRunner) Ping(context.Context) error { return f.dbErr }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, RunsPerMinute: 100, ShutdownTimeout: time.Second},
	}
}

func newTestServer(t *testing.T, runner Runner, cfg *config.Config) *Server {
	t.Helper()
	s := NewServer(runner, cfg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(s *Server, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(t, runner, testConfig())

	rec := do(s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	runner.dbErr = fmt.Errorf("%w: dial tcp", core.ErrStoreUnavailable)
	rec = do(s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DB001", decode[ErrorResponse](t, rec).Code)
}

func TestStats(t *testing.T) {
	runner := &fakeRunner{counts: core.Counts{Parents: 4, Children: 7, Attendance: 19}}
	s := newTestServer(t, runner, testConfig())

	rec := do(s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, runner.counts, decode[core.Counts](t, rec))
}

func TestLatestRun(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(t, runner, testConfig())

	rec := do(s, http.MethodGet, "/api/runs/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RUN003", decode[ErrorResponse](t, rec).Code)

	runner.latest = &core.RunReport{RunID: "run-1", Mode: core.ModeIncremental, Stats: core.Stats{Submissions: 2}}
	rec = do(s, http.MethodGet, "/api/runs/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[core.RunReport](t, rec)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 2, got.Stats.Submissions)
}

func TestTriggerRun(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"success", nil, http.StatusOK, ""},
		{"in progress", core.ErrRunInProgress, http.StatusConflict, "RUN001"},
		{"sheet down", fmt.Errorf("%w: HTTP 500", core.ErrSourceUnavailable), http.StatusBadGateway, "SRC001"},
		{"store down", core.ErrStoreUnavailable, http.StatusServiceUnavailable, "DB001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{report: core.RunReport{RunID: "run-9"}, runErr: tt.err}
			s := newTestServer(t, runner, testConfig())

			rec := do(s, http.MethodPost, "/api/runs", nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, 1, runner.started)
			if tt.wantErr == "" {
				assert.Equal(t, "run-9", decode[core.RunReport](t, rec).RunID)
				return
			}
			body := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.wantErr, body.Code)
			assert.Equal(t, "run-9", body.RunID)
		})
	}
}

func TestTriggerRunRequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	runner := &fakeRunner{}
	s := newTestServer(t, runner, cfg)

	assert.Equal(t, http.StatusUnauthorized, do(s, http.MethodPost, "/api/runs", nil).Code)
	assert.Zero(t, runner.started)

	rec := do(s, http.MethodPost, "/api/runs", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.started)

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/stats", nil).Code, "reads stay open")
}

func TestTriggerRunRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RunsPerMinute = 2
	runner := &fakeRunner{}
	s := newTestServer(t, runner, cfg)

	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/api/runs", nil).Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/api/runs", nil).Code)

	rec := do(s, http.MethodPost, "/api/runs", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, 2, runner.started)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, testConfig())
	do(s, http.MethodGet, "/healthz", nil)

	rec := do(s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "attendance_http_requests_total"))
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(1, 20*time.Millisecond)
	defer rl.stop()

	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"), "limits are per client")

	time.Sleep(30 * time.Millisecond)
	assert.True(t, rl.allow("a"), "window reset")
}
