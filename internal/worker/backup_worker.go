package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/codec"
	"wealthtrack/internal/core"
	"wealthtrack/internal/log"
	"wealthtrack/internal/sheets"
	"wealthtrack/internal/storage"
	"wealthtrack/internal/store"
)

// RecordSource yields the current record collection.
type RecordSource interface {
	Records(ctx context.Context) ([]core.WealthRecord, error)
}

// KVSource reads the collection persisted by the record store.
type KVSource struct {
	KV store.KV
}

func (s KVSource) Records(ctx context.Context) ([]core.WealthRecord, error) {
	b, err := s.KV.Get(ctx, store.RecordsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return []core.WealthRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return codec.Decode(b)
}

// BackupWorker turns change notifications into export files and, when a
// mirror is configured, an up to date trend table. Bursts of changes within
// the debounce window produce a single flush.
type BackupWorker struct {
	source   RecordSource
	dir      string
	debounce time.Duration
	mirror   sheets.TrendMirror
	logger   *log.Logger
	now      func() time.Time

	pending chan struct{}
	mu      sync.Mutex
	flushes int
}

func NewBackupWorker(source RecordSource, dir string, debounce time.Duration, mirror sheets.TrendMirror, logger *log.Logger) *BackupWorker {
	return &BackupWorker{
		source:   source,
		dir:      dir,
		debounce: debounce,
		mirror:   mirror,
		logger:   logger.WithComponent(log.ComponentBackup),
		now:      time.Now,
		pending:  make(chan struct{}, 1),
	}
}

// HandleRecordChanged schedules a flush. It never blocks.
func (w *BackupWorker) HandleRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	w.logger.DebugContext(ctx, "Record change received",
		log.FieldOperation, msg.Op, log.FieldRecordID, msg.RecordID)
	select {
	case w.pending <- struct{}{}:
	default:
	}
	return nil
}

// Run flushes after each quiet period following a change, until ctx is done.
// A change still pending at shutdown is flushed before returning.
func (w *BackupWorker) Run(ctx context.Context) error {
	var timer *time.Timer
	var fire <-chan time.Time
	dirty := false

	for {
		select {
		case <-ctx.Done():
			if dirty {
				flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
				err := w.Flush(flushCtx)
				cancel()
				if err != nil {
					w.logger.Error("Final flush failed", log.FieldError, err)
				}
			}
			return ctx.Err()
		case <-w.pending:
			dirty = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			dirty = false
			if err := w.Flush(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Backup flush failed", log.FieldError, err)
			}
		}
	}
}

// Flush writes the backup file and refreshes the mirror concurrently.
func (w *BackupWorker) Flush(ctx context.Context) error {
	records, err := w.source.Records(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := w.writeBackup(records)
		return err
	})
	if w.mirror != nil {
		g.Go(func() error {
			return w.syncMirror(gctx, records)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w.mu.Lock()
	w.flushes++
	w.mu.Unlock()
	return nil
}

// Flushes reports how many flushes completed.
func (w *BackupWorker) Flushes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushes
}

// writeBackup writes today's export file atomically and returns its path.
func (w *BackupWorker) writeBackup(records []core.WealthRecord) (string, error) {
	doc, err := codec.Export(records)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	path := filepath.Join(w.dir, codec.BackupFilename(w.now()))
	tmp, err := os.CreateTemp(w.dir, ".backup-*.json")
	if err != nil {
		return "", fmt.Errorf("create temp backup: %w", err)
	}
	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("install backup: %w", err)
	}

	w.logger.Info("Backup written", log.FieldFile, path, log.FieldRecordCount, len(records), log.FieldBytes, len(doc))
	return path, nil
}

// syncMirror rewrites the trend table only when it differs from what the
// mirror already holds.
func (w *BackupWorker) syncMirror(ctx context.Context, records []core.WealthRecord) error {
	points := core.CollectTrend(records)
	current, err := w.mirror.ReadTrend(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "Reading mirrored trend failed, rewriting", log.FieldError, err)
	} else if slices.Equal(current, points) {
		w.logger.DebugContext(ctx, "Mirrored trend already up to date", log.FieldRecordCount, len(points))
		return nil
	}
	if err := w.mirror.WriteTrend(ctx, points); err != nil {
		return fmt.Errorf("mirror trend: %w", err)
	}
	return nil
}
