package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"wealthtrack/internal/core"
	applog "wealthtrack/internal/log"
	"wealthtrack/internal/middleware/ratelimit"
	"wealthtrack/internal/middleware/security"
	"wealthtrack/internal/middleware/trace"
)

const (
	maxRecordBody = 1 << 20
	maxImportBody = 16 << 20
)

// RecordStore is the part of the record store the API drives.
type RecordStore interface {
	List() []core.WealthRecord
	Len() int
	Get(id string) (core.WealthRecord, bool)
	SelectLatest() (core.WealthRecord, bool)
	Trend() []core.TrendPoint
	Upsert(ctx context.Context, r core.WealthRecord) (core.WealthRecord, error)
	DeleteRecord(ctx context.Context, id string) bool
	DeleteEntry(ctx context.Context, recordID string, category core.CategoryID, entryID string) bool
	ReplaceAll(ctx context.Context, records []core.WealthRecord) error
	Clear(ctx context.Context)
	Snapshot() ([]byte, error)
}

// QuarterPrefs remembers the quarter id last used in the entry form.
type QuarterPrefs interface {
	DefaultQuarter(ctx context.Context, now time.Time) string
	SetLastQuarter(ctx context.Context, id string) error
}

// Adviser turns a record into advice text. It never fails; problems are
// reported as placeholder text.
type Adviser interface {
	Advise(ctx context.Context, r core.WealthRecord) string
}

// Pinger is implemented by persistence that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the API server.
type Deps struct {
	Store   RecordStore
	Prefs   QuarterPrefs
	Advice  Adviser
	Ready   Pinger
	Logger  *applog.Logger
	Limiter *ratelimit.Limiter
	Now     func() time.Time
}

type Server struct {
	http.Server
	store    RecordStore
	prefs    QuarterPrefs
	advice   Adviser
	ready    Pinger
	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	s := &Server{
		store:    deps.Store,
		prefs:    deps.Prefs,
		advice:   deps.Advice,
		ready:    deps.Ready,
		logger:   logger.WithComponent(applog.ComponentHTTP),
		limiter:  limiter,
		detector: security.NewDetector(),
		now:      now,
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/records", s.handleListRecords)
	mux.HandleFunc("DELETE /api/records", s.handleClearRecords)
	mux.HandleFunc("GET /api/records/{id}", s.handleGetRecord)
	mux.HandleFunc("PUT /api/records/{id}", s.handlePutRecord)
	mux.HandleFunc("DELETE /api/records/{id}", s.handleDeleteRecord)
	mux.HandleFunc("DELETE /api/records/{id}/entries/{category}/{entry}", s.handleDeleteEntry)
	mux.HandleFunc("POST /api/records/{id}/advice", s.handleAdvice)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/trend", s.handleTrend)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/form/quarter", s.handleFormQuarter)

	mutating := func(r *http.Request) bool {
		return r.Method != http.MethodGet && r.Method != http.MethodHead
	}
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	}

	var h http.Handler = mux
	h = limiter.Middleware(s.detector.ExtractClientIP, mutating, onLimit)(h)
	h = s.detector.Middleware(logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// advice calls can take a while
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the rate limiter
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics reports request counters for the readiness endpoint.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}
