// Package store keeps the ordered collection of quarterly snapshots and
// persists it after every change.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"wealthtrack/internal/codec"
	"wealthtrack/internal/core"
	"wealthtrack/internal/log"
	"wealthtrack/internal/storage"
)

// Persisted keys.
const (
	RecordsKey     = "wealth_tracker_records"
	LastQuarterKey = "wealth_tracker_last_quarter"
)

// KV is the persistence the store needs. A missing key is reported with
// storage.ErrNotFound.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Op names a kind of mutation.
type Op string

const (
	OpUpsert      Op = "upsert"
	OpDelete      Op = "delete"
	OpDeleteEntry Op = "delete_entry"
	OpReplace     Op = "replace"
	OpClear       Op = "clear"
)

// Event describes an applied mutation. RecordID is empty for whole-store
// operations.
type Event struct {
	Op       Op
	RecordID string
	At       time.Time
}

// Observer is called after a mutation has been applied and persisted.
type Observer func(ctx context.Context, ev Event)

type Options struct {
	// Seed installs the demo record when nothing has been persisted.
	Seed   bool
	Logger *log.Logger
	Now    func() time.Time
}

// Store is safe for concurrent use. Records are always sorted ascending by
// timestamp, have unique ids and carry every category.
type Store struct {
	mu        sync.RWMutex
	records   []core.WealthRecord
	kv        KV
	logger    *log.Logger
	events    *log.StructuredLogger
	now       func() time.Time
	observers []Observer
}

// Open loads the persisted records from kv. A stored document that cannot be
// decoded is logged and the store starts empty; it is overwritten by the
// next mutation.
func Open(ctx context.Context, kv KV, opts Options) (*Store, error) {
	s := &Store{kv: kv, logger: opts.Logger, now: opts.Now}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentStore)
	s.events = log.NewStructuredLogger(s.logger)
	if s.now == nil {
		s.now = time.Now
	}

	b, err := kv.Get(ctx, RecordsKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if opts.Seed {
			s.records = []core.WealthRecord{core.SeedRecord(s.now())}
			s.persist(ctx)
			s.logger.InfoContext(ctx, "No saved records, installed demo record", log.FieldRecordID, s.records[0].ID)
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load records: %w", err)
	}

	records, err := codec.Decode(b)
	if err != nil {
		s.logger.ErrorContext(ctx, "Saved records are unreadable, starting empty",
			log.FieldError, err, log.FieldBytes, len(b))
		return s, nil
	}
	sortByTimestamp(records)
	s.records = records
	s.logger.InfoContext(ctx, "Records loaded", log.FieldRecordCount, len(records))
	return s, nil
}

// Subscribe registers fn for every subsequent mutation.
func (s *Store) Subscribe(fn Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// List returns a copy of all records in store order.
func (s *Store) List() []core.WealthRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.WealthRecord, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns the record with the given quarter id.
func (s *Store) Get(id string) (core.WealthRecord, bool) {
	id = core.NormalizeQuarterID(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.records[i].Clone(), true
	}
	return core.WealthRecord{}, false
}

// SelectLatest returns the record with the greatest timestamp. On a tie the
// one later in store order wins.
func (s *Store) SelectLatest() (core.WealthRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	best := -1
	for i, r := range s.records {
		if best < 0 || r.Timestamp >= s.records[best].Timestamp {
			best = i
		}
	}
	if best < 0 {
		return core.WealthRecord{}, false
	}
	return s.records[best].Clone(), true
}

// Trend projects every record through the metrics engine.
func (s *Store) Trend() []core.TrendPoint {
	return core.CollectTrend(s.List())
}

// Upsert stores r, replacing any record with the same quarter id. Missing
// categories are filled and entries without an id get a generated one.
// The stored record is returned.
func (s *Store) Upsert(ctx context.Context, r core.WealthRecord) (core.WealthRecord, error) {
	r = r.Clone()
	r.ID = core.NormalizeQuarterID(r.ID)
	r.Data.Fill()
	for _, entries := range r.Data {
		for i := range entries {
			if entries[i].ID == "" {
				entries[i].ID = uuid.NewString()
			}
		}
	}
	if err := r.Validate(); err != nil {
		return core.WealthRecord{}, fmt.Errorf("upsert %q: %w", r.ID, err)
	}

	s.mu.Lock()
	if i := s.index(r.ID); i >= 0 {
		s.records[i] = r
	} else {
		s.records = append(s.records, r)
	}
	sortByTimestamp(s.records)
	s.persist(ctx)
	s.mu.Unlock()

	entries := 0
	for _, list := range r.Data {
		entries += len(list)
	}
	s.events.LogRecordSaved(ctx, r.ID, r.Timestamp, entries)
	s.notify(ctx, Event{Op: OpUpsert, RecordID: r.ID})
	return r.Clone(), nil
}

// DeleteRecord removes the record with the given id. It reports whether
// anything was removed; a miss neither persists nor notifies.
func (s *Store) DeleteRecord(ctx context.Context, id string) bool {
	id = core.NormalizeQuarterID(id)
	s.mu.Lock()
	i := s.index(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.records = slices.Delete(s.records, i, i+1)
	s.persist(ctx)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Record deleted", log.FieldRecordID, id)
	s.notify(ctx, Event{Op: OpDelete, RecordID: id})
	return true
}

// DeleteEntry removes one entry from a record's category. It reports whether
// anything was removed.
func (s *Store) DeleteEntry(ctx context.Context, recordID string, category core.CategoryID, entryID string) bool {
	recordID = core.NormalizeQuarterID(recordID)
	s.mu.Lock()
	i := s.index(recordID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	entries := s.records[i].Data[category]
	j := slices.IndexFunc(entries, func(e core.Entry) bool { return e.ID == entryID })
	if j < 0 {
		s.mu.Unlock()
		return false
	}
	// copy so earlier List results never observe the removal
	kept := make([]core.Entry, 0, len(entries)-1)
	kept = append(kept, entries[:j]...)
	kept = append(kept, entries[j+1:]...)
	s.records[i].Data[category] = kept
	s.persist(ctx)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Entry deleted", log.NewFields().WithEntry(recordID, string(category), entryID).ToSlice()...)
	s.notify(ctx, Event{Op: OpDeleteEntry, RecordID: recordID})
	return true
}

// ReplaceAll substitutes the whole collection, as an import does. Invalid
// input yields a *codec.ImportValidationError and leaves the store as it was.
func (s *Store) ReplaceAll(ctx context.Context, records []core.WealthRecord) error {
	next := make([]core.WealthRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		r = r.Clone()
		r.ID = core.NormalizeQuarterID(r.ID)
		r.Data.Fill()
		if err := r.Validate(); err != nil {
			return &codec.ImportValidationError{Index: i, Reason: err.Error(), Err: err}
		}
		if _, dup := seen[r.ID]; dup {
			return &codec.ImportValidationError{Index: i, Reason: fmt.Sprintf("duplicate quarter id %q", r.ID)}
		}
		seen[r.ID] = struct{}{}
		next = append(next, r)
	}
	sortByTimestamp(next)

	s.mu.Lock()
	s.records = next
	s.persist(ctx)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Records replaced", log.FieldOperation, log.OpImport, log.FieldRecordCount, len(next))
	s.notify(ctx, Event{Op: OpReplace})
	return nil
}

// Clear removes every record and persists the empty collection, so a
// cleared store is not seeded again on the next Open.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.records = []core.WealthRecord{}
	s.persist(ctx)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "All records cleared", log.FieldOperation, log.OpClear)
	s.notify(ctx, Event{Op: OpClear})
}

// Snapshot returns the export document of the current collection.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return codec.Export(s.records)
}

// persist writes the collection; callers hold the write lock. Failures are
// logged and the in-memory state stays authoritative.
func (s *Store) persist(ctx context.Context) {
	b, err := codec.Export(s.records)
	if err == nil {
		err = s.kv.Set(ctx, RecordsKey, b)
	}
	if err != nil {
		fields := log.NewFields()
		fields[log.FieldRecordCount] = len(s.records)
		s.events.LogError(ctx, "Failed to persist records", err, log.ComponentStore, log.OpPersist, fields)
	}
}

func (s *Store) notify(ctx context.Context, ev Event) {
	ev.At = s.now()
	s.mu.RLock()
	observers := slices.Clone(s.observers)
	s.mu.RUnlock()
	for _, fn := range observers {
		fn(ctx, ev)
	}
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.records, func(r core.WealthRecord) bool { return r.ID == id })
}

func sortByTimestamp(records []core.WealthRecord) {
	slices.SortStableFunc(records, func(a, b core.WealthRecord) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
}
