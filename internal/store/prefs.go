package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wealthtrack/internal/core"
	"wealthtrack/internal/storage"
)

// Prefs remembers small UI preferences next to the records.
type Prefs struct {
	kv KV
}

func NewPrefs(kv KV) *Prefs {
	return &Prefs{kv: kv}
}

// LastQuarter returns the quarter id last used to save a record.
func (p *Prefs) LastQuarter(ctx context.Context) (string, bool, error) {
	b, err := p.kv.Get(ctx, LastQuarterKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get last quarter: %w", err)
	}
	return string(b), len(b) > 0, nil
}

func (p *Prefs) SetLastQuarter(ctx context.Context, id string) error {
	if err := p.kv.Set(ctx, LastQuarterKey, []byte(core.NormalizeQuarterID(id))); err != nil {
		return fmt.Errorf("set last quarter: %w", err)
	}
	return nil
}

// DefaultQuarter is the id to pre-fill the entry form with: the last used
// one, or the calendar quarter of now.
func (p *Prefs) DefaultQuarter(ctx context.Context, now time.Time) string {
	if id, ok, err := p.LastQuarter(ctx); err == nil && ok {
		return id
	}
	return core.QuarterIDFor(now)
}
