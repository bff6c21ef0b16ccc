package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/codec"
	"wealthtrack/internal/core"
	"wealthtrack/internal/log"
	"wealthtrack/internal/sheets/memory"
	"wealthtrack/internal/storage"
	"wealthtrack/internal/store"
)

type staticSource struct {
	records []core.WealthRecord
	err     error
}

func (s staticSource) Records(context.Context) ([]core.WealthRecord, error) {
	return s.records, s.err
}

func newTestWorker(t *testing.T, src RecordSource, mirror *memory.Mirror, debounce time.Duration) *BackupWorker {
	t.Helper()
	w := NewBackupWorker(src, t.TempDir(), debounce, nil, log.Discard())
	if mirror != nil {
		w.mirror = mirror
	}
	w.now = func() time.Time { return time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC) }
	return w
}

func TestFlushWritesBackupAndMirror(t *testing.T) {
	records := []core.WealthRecord{core.SeedRecord(time.UnixMilli(1))}
	mirror := memory.New()
	w := newTestWorker(t, staticSource{records: records}, mirror, time.Millisecond)

	require.NoError(t, w.Flush(context.Background()))

	b, err := os.ReadFile(filepath.Join(w.dir, "wealth-tracker-backup-2025-03-04.json"))
	require.NoError(t, err)
	got, err := codec.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	points, err := mirror.ReadTrend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.CollectTrend(records), points)

	// unchanged trend is not rewritten
	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, 1, mirror.Writes())
	assert.Equal(t, 2, w.Flushes())
}

func TestFlushSourceError(t *testing.T) {
	boom := errors.New("db locked")
	w := newTestWorker(t, staticSource{err: boom}, nil, time.Millisecond)
	assert.ErrorIs(t, w.Flush(context.Background()), boom)
	assert.Zero(t, w.Flushes())
}

func TestKVSource(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	src := KVSource{KV: kv}

	got, err := src.Records(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	s, err := store.Open(ctx, kv, store.Options{Seed: true, Logger: log.Discard()})
	require.NoError(t, err)
	got, err = src.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.List(), got)
}

func TestRunDebouncesBursts(t *testing.T) {
	w := newTestWorker(t, staticSource{records: []core.WealthRecord{}}, nil, 30*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for range 5 {
		require.NoError(t, w.HandleRecordChanged(ctx, amqp.NewRecordChangedMessage("upsert", "2024-Q1")))
		time.Sleep(5 * time.Millisecond)
	}
	require.Eventually(t, func() bool { return w.Flushes() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, w.Flushes())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRunFlushesPendingOnShutdown(t *testing.T) {
	w := newTestWorker(t, staticSource{records: []core.WealthRecord{}}, nil, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, w.HandleRecordChanged(ctx, amqp.NewRecordChangedMessage("clear", "")))
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 1, w.Flushes())
}
