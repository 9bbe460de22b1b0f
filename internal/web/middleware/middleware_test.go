package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/attendance/internal/metrics"
)

func echoRemoteAddr(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(r.RemoteAddr))
}

func TestTrustedRealIP(t *testing.T) {
	handler := TrustedRealIP([]string{"10.0.0.0/8", "192.168.1.5", "not-an-ip"})(http.HandlerFunc(echoRemoteAddr))

	tests := []struct {
		name   string
		remote string
		header map[string]string
		want   string
	}{
		{"trusted proxy with X-Real-IP", "10.1.2.3:5000", map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7"},
		{"trusted single address", "192.168.1.5:5000", map[string]string{"X-Forwarded-For": "203.0.113.8, 10.1.1.1"}, "203.0.113.8"},
		{"untrusted peer keeps address", "198.51.100.1:5000", map[string]string{"X-Real-IP": "203.0.113.7"}, "198.51.100.1:5000"},
		{"garbage header ignored", "10.1.2.3:5000", map[string]string{"X-Real-IP": "nope"}, "10.1.2.3:5000"},
		{"no headers", "10.1.2.3:5000", nil, "10.1.2.3:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		required bool
		keys     []string
		key      string
		want     int
	}{
		{"disabled", false, nil, "", http.StatusNoContent},
		{"missing key", true, []string{"alpha"}, "", http.StatusUnauthorized},
		{"wrong key", true, []string{"alpha"}, "beta", http.StatusForbidden},
		{"second key", true, []string{"alpha", "beta"}, "beta", http.StatusNoContent},
		{"no keys configured", true, nil, "alpha", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/runs", nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(tt.required, tt.keys)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestLoggerRecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Logger)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/items/{id}", "202")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
