package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	applog "wealthtrack/internal/log"
)

func TestMiddlewarePropagatesRequestID(t *testing.T) {
	m := NewMiddleware(nil, func(*http.Request) string { return "127.0.0.1" })

	var seen string
	var logger *applog.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		logger = applog.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.True(t, strings.HasPrefix(seen, "req_"))
	assert.Equal(t, seen, rr.Header().Get(HeaderRequestID))
	assert.NotNil(t, logger)
	assert.Equal(t, int64(1), m.GetMetrics().TotalRequests)
}

func TestMiddlewareKeepsCallerRequestID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", rr.Header().Get(HeaderRequestID))
	assert.Equal(t, int64(1), m.GetMetrics().ServerErrors)
}

func TestGenerateRequestIDUnique(t *testing.T) {
	assert.NotEqual(t, GenerateRequestID(), GenerateRequestID())
}
