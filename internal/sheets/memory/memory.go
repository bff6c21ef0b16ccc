// Package memory is an in-process trend mirror for local runs and tests.
package memory

import (
	"context"
	"sync"

	"wealthtrack/internal/core"
	"wealthtrack/internal/sheets"
)

type Mirror struct {
	mu     sync.Mutex
	values [][]any
	writes int
}

var _ sheets.TrendMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// WriteTrend stores the rendered table, exactly as a spreadsheet would.
func (m *Mirror) WriteTrend(_ context.Context, points []core.TrendPoint) error {
	rows := sheets.Rows(points)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = rows
	m.writes++
	return nil
}

func (m *Mirror) ReadTrend(_ context.Context) ([]core.TrendPoint, error) {
	m.mu.Lock()
	values := m.values
	m.mu.Unlock()
	return sheets.ParseRows(values)
}

// Writes reports how many times the table was replaced.
func (m *Mirror) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
