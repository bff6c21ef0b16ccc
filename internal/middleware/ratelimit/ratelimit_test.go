package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, rpm int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: rpm, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

func TestAllowWindow(t *testing.T) {
	rl, clock := newTestLimiter(t, 3)

	for i := range 3 {
		assert.True(t, rl.Allow("1.2.3.4"), "request %d", i)
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "other clients are independent")

	// Continuous traffic must not extend the window.
	*clock = clock.Add(59 * time.Second)
	assert.False(t, rl.Allow("1.2.3.4"))
	*clock = clock.Add(time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))

	assert.Equal(t, int64(2), rl.GetMetrics().TotalHits)
	assert.Equal(t, int64(2), rl.GetMetrics().ClientCount)
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, clock := newTestLimiter(t, 10)
	rl.Allow("a")
	*clock = clock.Add(5 * time.Minute)
	rl.Allow("b")
	*clock = clock.Add(6 * time.Minute)

	assert.Equal(t, 1, rl.cleanupStaleEntries())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	onlyWrites := func(r *http.Request) bool { return r.Method != http.MethodGet }
	h := rl.Middleware(func(*http.Request) string { return "client" }, onlyWrites, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/records/2024-Q1", nil))
		return rr
	}

	assert.Equal(t, http.StatusNoContent, do(http.MethodPut).Code)
	limited := do(http.MethodPut)
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "61", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, do(http.MethodGet).Code, "reads are not limited")
}
