package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "203.0.113.5:5000", "", "", "203.0.113.5"},
		{"untrusted peer ignores xff", "203.0.113.5:5000", "198.51.100.1", "", "203.0.113.5"},
		{"trusted proxy xff", "10.0.0.2:5000", "198.51.100.1, 10.0.0.9", "", "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:5000", "", "198.51.100.7", "198.51.100.7"},
		{"garbage xff falls back", "192.168.1.1:80", "not-an-ip", "", "192.168.1.1"},
		{"no port", "203.0.113.9", "", "", "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/records", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, d.ExtractClientIP(r))
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()

	assert.False(t, d.DetectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/api/dashboard?quarter=2024-Q1", nil)))
	assert.True(t, d.DetectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/.env", nil)))

	r := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	r.Header.Set("User-Agent", "sqlmap/1.7")
	assert.True(t, d.DetectSuspiciousRequest(r))

	assert.Equal(t, int64(2), d.GetMetrics().SuspiciousRequests)
}

func TestDetectorMiddlewareBlocksTrace(t *testing.T) {
	d := NewDetector()
	h := d.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("TRACE", "/api/records", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/.git/config", nil))
	assert.Equal(t, http.StatusOK, rr.Code, "suspicious paths are only logged")
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/records", nil))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Empty(t, rr.Header().Get("Strict-Transport-Security"))

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}
