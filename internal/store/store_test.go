package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthtrack/internal/codec"
	"wealthtrack/internal/core"
	"wealthtrack/internal/log"
	"wealthtrack/internal/storage"
)

// failingKV accepts reads from an inner store but rejects every write.
type failingKV struct {
	*storage.Memory
	writes int
}

func (f *failingKV) Set(context.Context, string, []byte) error {
	f.writes++
	return errors.New("disk full")
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) observe(_ context.Context, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func openStore(t *testing.T, kv KV, seed bool) *Store {
	t.Helper()
	s, err := Open(context.Background(), kv, Options{Seed: seed, Logger: log.Discard()})
	require.NoError(t, err)
	return s
}

func record(id string, ts int64) core.WealthRecord {
	return core.WealthRecord{ID: id, Timestamp: ts, Data: core.NewQuarterData()}
}

func TestOpenSeedsAndPersists(t *testing.T) {
	kv := storage.NewMemory()
	s := openStore(t, kv, true)

	require.Equal(t, 1, s.Len())
	latest, ok := s.SelectLatest()
	require.True(t, ok)
	assert.Equal(t, "2024-Q1", latest.ID)

	_, err := kv.Get(context.Background(), RecordsKey)
	require.NoError(t, err)

	again := openStore(t, kv, true)
	assert.Equal(t, s.List(), again.List())
}

func TestOpenWithoutSeedIsEmpty(t *testing.T) {
	s := openStore(t, storage.NewMemory(), false)
	assert.Zero(t, s.Len())
	_, ok := s.SelectLatest()
	assert.False(t, ok)
	assert.Empty(t, s.Trend())
}

func TestOpenUnreadableDocumentStartsEmpty(t *testing.T) {
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(context.Background(), RecordsKey, []byte(`{"broken":`)))
	s := openStore(t, kv, true)
	assert.Zero(t, s.Len())
}

func TestUpsertReplacesAndSorts(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemory(), false)

	for _, r := range []core.WealthRecord{record("2024-Q3", 30), record("2024-Q1", 10), record("2024-Q2", 20)} {
		_, err := s.Upsert(ctx, r)
		require.NoError(t, err)
	}
	ids := func() []string {
		var out []string
		for _, r := range s.List() {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []string{"2024-Q1", "2024-Q2", "2024-Q3"}, ids())

	replaced := record("2024-Q1", 40)
	replaced.Data[core.Bitcoin] = []core.Entry{{ID: "b", Value: 1}}
	_, err := s.Upsert(ctx, replaced)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"2024-Q2", "2024-Q3", "2024-Q1"}, ids())
	got, ok := s.Get("2024-q1")
	require.True(t, ok)
	assert.Equal(t, []core.Entry{{ID: "b", Value: 1}}, got.Data[core.Bitcoin])
}

func TestUpsertFillsCategoriesAndIDs(t *testing.T) {
	s := openStore(t, storage.NewMemory(), false)
	in := core.WealthRecord{ID: " 2025-q2 ", Timestamp: 1, Data: core.QuarterData{
		core.Pension: {{Label: "new", Value: 5}},
	}}
	got, err := s.Upsert(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "2025-Q2", got.ID)
	assert.Len(t, got.Data, len(core.Categories()))
	assert.NotEmpty(t, got.Data[core.Pension][0].ID)
	assert.Empty(t, in.Data[core.Pension][0].ID, "caller's record must not be mutated")
}

func TestUpsertRejectsInvalid(t *testing.T) {
	s := openStore(t, storage.NewMemory(), false)
	_, err := s.Upsert(context.Background(), record("  ", 1))
	assert.ErrorIs(t, err, core.ErrEmptyQuarterID)

	bad := record("Q", 1)
	bad.Data["gold"] = []core.Entry{}
	_, err = s.Upsert(context.Background(), bad)
	assert.ErrorIs(t, err, core.ErrUnknownCategory)
	assert.Zero(t, s.Len())
}

func TestSelectLatestTieGoesToLaterElement(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemory(), false)
	_, _ = s.Upsert(ctx, record("A", 5))
	_, _ = s.Upsert(ctx, record("B", 5))

	latest, ok := s.SelectLatest()
	require.True(t, ok)
	assert.Equal(t, "B", latest.ID)
}

func TestDeleteNoOpLeavesPersistedBytes(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := openStore(t, kv, true)
	rec := &recorder{}
	s.Subscribe(rec.observe)

	before, err := kv.Get(ctx, RecordsKey)
	require.NoError(t, err)

	assert.False(t, s.DeleteRecord(ctx, "1999-Q1"))
	assert.False(t, s.DeleteEntry(ctx, "1999-Q1", core.Bitcoin, "5"))
	assert.False(t, s.DeleteEntry(ctx, "2024-Q1", core.Bitcoin, "nope"))
	assert.False(t, s.DeleteEntry(ctx, "2024-Q1", core.Bonds, "5"))

	after, err := kv.Get(ctx, RecordsKey)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, rec.events)
}

func TestDeleteEntryAndRecord(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemory(), true)
	rec := &recorder{}
	s.Subscribe(rec.observe)

	snapshot := s.List()
	require.True(t, s.DeleteEntry(ctx, "2024-Q1", core.CashNoInterest, "1"))
	got, _ := s.Get("2024-Q1")
	assert.Equal(t, []core.Entry{{ID: "2", Label: "Wallet", Value: 5000}}, got.Data[core.CashNoInterest])
	assert.Len(t, snapshot[0].Data[core.CashNoInterest], 2)

	require.True(t, s.DeleteRecord(ctx, "2024-Q1"))
	assert.Zero(t, s.Len())

	require.Len(t, rec.events, 2)
	assert.Equal(t, OpDeleteEntry, rec.events[0].Op)
	assert.Equal(t, Event{Op: OpDelete, RecordID: "2024-Q1", At: rec.events[1].At}, rec.events[1])
}

func TestReplaceAll(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := openStore(t, kv, true)

	err := s.ReplaceAll(ctx, []core.WealthRecord{record("B", 20), {ID: "A", Timestamp: 10, Data: core.QuarterData{}}})
	require.NoError(t, err)
	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].ID)
	assert.Len(t, list[0].Data, len(core.Categories()))

	reopened := openStore(t, kv, false)
	assert.Equal(t, list, reopened.List())
}

func TestReplaceAllInvalidLeavesStore(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemory(), true)
	before := s.List()

	err := s.ReplaceAll(ctx, []core.WealthRecord{record("A", 1), record("A", 2)})
	var ive *codec.ImportValidationError
	require.ErrorAs(t, err, &ive)
	assert.Equal(t, 1, ive.Index)

	_, err = codec.Import(ctx, []byte(`{"id":"X"}`), s)
	require.ErrorAs(t, err, &ive)
	assert.Equal(t, before, s.List())
}

func TestImportExportRoundTripThroughStore(t *testing.T) {
	ctx := context.Background()
	src := openStore(t, storage.NewMemory(), true)
	_, err := src.Upsert(ctx, record("2024-Q2", time.Now().UnixMilli()))
	require.NoError(t, err)

	doc, err := src.Snapshot()
	require.NoError(t, err)

	dst := openStore(t, storage.NewMemory(), false)
	_, err = codec.Import(ctx, doc, dst)
	require.NoError(t, err)
	assert.Equal(t, src.List(), dst.List())
}

func TestClearPersistsEmptyCollection(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := openStore(t, kv, true)
	rec := &recorder{}
	s.Subscribe(rec.observe)

	s.Clear(ctx)
	assert.Zero(t, s.Len())
	b, err := kv.Get(ctx, RecordsKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))
	require.Len(t, rec.events, 1)
	assert.Equal(t, OpClear, rec.events[0].Op)

	// a cleared store stays empty across restarts, even with seeding on
	assert.Zero(t, openStore(t, kv, true).Len())
}

func TestImportedIDsAreAddressable(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := openStore(t, kv, false)

	_, err := codec.Import(ctx, []byte(`[{"id":"2024-q1","timestamp":1,"data":{}}]`), s)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	got, ok := s.Get("2024-q1")
	require.True(t, ok)
	assert.Equal(t, "2024-Q1", got.ID)

	// saving the same quarter again replaces rather than duplicates
	_, err = s.Upsert(ctx, record("2024-q1", 2))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.DeleteRecord(ctx, "2024-q1"))
	assert.Zero(t, s.Len())
}

func TestReplaceAllNormalizesIDs(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemory(), false)

	require.NoError(t, s.ReplaceAll(ctx, []core.WealthRecord{record(" 2024-q2", 1)}))
	_, ok := s.Get("2024-Q2")
	assert.True(t, ok)

	err := s.ReplaceAll(ctx, []core.WealthRecord{record("2024-q3", 1), record("2024-Q3", 2)})
	var ive *codec.ImportValidationError
	require.ErrorAs(t, err, &ive)
	assert.Equal(t, 1, ive.Index)
	assert.Equal(t, 1, s.Len())
}

func TestPersistenceFailureKeepsMemoryState(t *testing.T) {
	kv := &failingKV{Memory: storage.NewMemory()}
	s := openStore(t, kv, false)
	rec := &recorder{}
	s.Subscribe(rec.observe)

	_, err := s.Upsert(context.Background(), record("Q", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, kv.writes)
	assert.Len(t, rec.events, 1)
}

func TestConcurrentUpserts(t *testing.T) {
	s := openStore(t, storage.NewMemory(), false)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Upsert(context.Background(), record(core.QuarterIDFor(time.Date(2000+i, 1, 1, 0, 0, 0, 0, time.UTC)), int64(100-i)))
		}()
	}
	wg.Wait()

	list := s.List()
	require.Len(t, list, 20)
	for i := 1; i < len(list); i++ {
		assert.LessOrEqual(t, list[i-1].Timestamp, list[i].Timestamp)
	}
}

func TestPrefs(t *testing.T) {
	ctx := context.Background()
	p := NewPrefs(storage.NewMemory())
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	_, ok, err := p.LastQuarter(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "2025-Q3", p.DefaultQuarter(ctx, now))

	require.NoError(t, p.SetLastQuarter(ctx, "2024-q4"))
	assert.Equal(t, "2024-Q4", p.DefaultQuarter(ctx, now))
}
