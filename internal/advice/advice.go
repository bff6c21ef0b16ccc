// Package advice turns one quarterly snapshot into prose portfolio advice
// through an external model. Failures never reach the caller: they become
// placeholder text.
package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"wealthtrack/internal/cache"
	"wealthtrack/internal/core"
	"wealthtrack/internal/log"
)

// Advisor produces advice for a record and its headline metrics.
type Advisor interface {
	Advise(ctx context.Context, r core.WealthRecord, m core.GlobalMetrics) (string, error)
}

var (
	ErrNoAPIKey   = errors.New("advice: api key not configured")
	ErrEmptyReply = errors.New("advice: empty reply")
)

// UnavailableError wraps any failure of the advice backend.
type UnavailableError struct {
	RecordID string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("advice unavailable for %s: %v", e.RecordID, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Placeholder texts returned instead of advice.
const (
	PlaceholderNoKey   = "💡 No API key is configured. AI advice is optional: set GEMINI_API_KEY to enable it. Recording and charts work as usual."
	PlaceholderEmpty   = "Unable to generate advice right now."
	PlaceholderFailure = "AI analysis is temporarily unavailable, please check the API configuration."
)

// Placeholder maps an advice failure to the text shown in its place.
func Placeholder(err error) string {
	switch {
	case errors.Is(err, ErrNoAPIKey):
		return PlaceholderNoKey
	case errors.Is(err, ErrEmptyReply):
		return PlaceholderEmpty
	default:
		return PlaceholderFailure
	}
}

type ServiceConfig struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	// CacheSize bounds the number of remembered answers.
	CacheSize int
}

// Service calls an Advisor with a timeout, collapses concurrent requests for
// the same record and remembers answers per record version.
type Service struct {
	advisor Advisor
	timeout time.Duration
	answers *cache.LRUCache[string]
	group   singleflight.Group
	logger  *log.Logger
}

func NewService(a Advisor, cfg ServiceConfig, logger *log.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64
	}
	return &Service{
		advisor: a,
		timeout: cfg.Timeout,
		answers: cache.NewLRUCache[string](cfg.CacheSize, cfg.CacheTTL),
		logger:  logger.WithComponent(log.ComponentAdvice),
	}
}

// Cache exposes the answer cache so it can be registered for cleanup.
func (s *Service) Cache() *cache.LRUCache[string] { return s.answers }

// Advise returns advice for r, or a placeholder when the backend fails.
// The advisor only ever sees a private copy of r.
func (s *Service) Advise(ctx context.Context, r core.WealthRecord) string {
	key := cacheKey(r.ID, r.Timestamp)
	if text, ok := s.answers.Get(key); ok {
		return text
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		if text, ok := s.answers.Get(key); ok {
			return text, nil
		}
		// a caller going away must not fail the others waiting on this call
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		rec := r.Clone()
		text, err := s.advisor.Advise(callCtx, rec, core.Global(rec))
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyReply
		}
		if err != nil {
			return "", &UnavailableError{RecordID: r.ID, Err: err}
		}
		s.answers.Set(key, text)
		return text, nil
	})
	if err != nil {
		if errors.Is(err, ErrNoAPIKey) {
			s.logger.DebugContext(ctx, "Advice skipped, no API key", log.FieldRecordID, r.ID)
		} else {
			s.logger.WarnContext(ctx, "Advice request failed",
				log.FieldRecordID, r.ID, log.FieldError, err, log.FieldOperation, log.OpAdvise)
		}
		return Placeholder(err)
	}
	s.logger.DebugContext(ctx, "Advice generated", log.FieldRecordID, r.ID, "shared", shared)
	return v.(string)
}

// Forget drops remembered answers for a quarter id.
func (s *Service) Forget(recordID string) {
	prefix := recordID + "@"
	s.answers.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, prefix) })
}

func cacheKey(id string, ts int64) string {
	return fmt.Sprintf("%s@%d", id, ts)
}
