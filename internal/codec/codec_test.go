package codec

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthtrack/internal/core"
)

type fakeReplacer struct {
	calls   int
	records []core.WealthRecord
	err     error
}

func (f *fakeReplacer) ReplaceAll(_ context.Context, records []core.WealthRecord) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.records = records
	return nil
}

func sample() []core.WealthRecord {
	a := core.SeedRecord(time.UnixMilli(1704067200000))
	b := core.WealthRecord{ID: "2024-Q2", Timestamp: 1711929600000, Data: core.NewQuarterData()}
	b.Data[core.Bonds] = []core.Entry{{ID: "b1", Label: "", Value: -12.75}}
	return []core.WealthRecord{a, b}
}

func TestRoundTrip(t *testing.T) {
	in := sample()
	b, err := Export(in)
	require.NoError(t, err)

	out, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestExportShape(t *testing.T) {
	b, err := Export([]core.WealthRecord{{ID: "2024-Q3", Timestamp: 5, Data: core.QuarterData{}}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "[\n  {"), "expected two-space indentation")

	var doc []map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	data := doc[0]["data"].(map[string]any)
	assert.Len(t, data, len(core.Categories()))
	for _, id := range core.Categories() {
		assert.Equal(t, []any{}, data[string(id)])
	}

	empty, err := Export(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestDecodeRejects(t *testing.T) {
	cases := []struct {
		name  string
		doc   string
		index int
	}{
		{"empty", ``, -1},
		{"not json", `{oops`, -1},
		{"object", `{"id":"2024-Q1","timestamp":1,"data":{}}`, -1},
		{"string", `"hello"`, -1},
		{"null element", `[null]`, 0},
		{"missing id", `[{"timestamp":1,"data":{}}]`, 0},
		{"numeric id", `[{"id":7,"timestamp":1,"data":{}}]`, 0},
		{"missing timestamp", `[{"id":"Q","data":{}}]`, 0},
		{"fractional timestamp", `[{"id":"Q","timestamp":1.5,"data":{}}]`, 0},
		{"string timestamp", `[{"id":"Q","timestamp":"1","data":{}}]`, 0},
		{"missing data", `[{"id":"Q","timestamp":1}]`, 0},
		{"data array", `[{"id":"Q","timestamp":1,"data":[]}]`, 0},
		{"unknown category", `[{"id":"Q","timestamp":1,"data":{"gold":[]}}]`, 0},
		{"entries not array", `[{"id":"Q","timestamp":1,"data":{"bonds":{}}}]`, 0},
		{"duplicate entry", `[{"id":"Q","timestamp":1,"data":{"bonds":[{"id":"a","value":1},{"id":"a","value":2}]}}]`, 0},
		{"duplicate record", `[{"id":"Q","timestamp":1,"data":{}},{"id":"Q","timestamp":2,"data":{}}]`, 1},
		{"duplicate record by case", `[{"id":"2024-Q1","timestamp":1,"data":{}},{"id":" 2024-q1","timestamp":2,"data":{}}]`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.doc))
			var ive *ImportValidationError
			require.True(t, errors.As(err, &ive), "got %v", err)
			assert.Equal(t, tc.index, ive.Index)
			assert.NotEmpty(t, ive.Error())
		})
	}
}

func TestDecodeFillsAndCoerces(t *testing.T) {
	doc := `[{"id":"2024-Q1","timestamp":1704067200000,"data":{"bitcoin":[{"id":"x","label":"btc","value":"1500.5"},{"id":"y","label":null,"value":null}]}}]`
	records, err := Decode([]byte(doc))
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Len(t, r.Data, len(core.Categories()))
	assert.Equal(t, 1500.5, r.Data[core.Bitcoin][0].Value)
	assert.Equal(t, 0.0, r.Data[core.Bitcoin][1].Value)
	assert.Equal(t, []core.Entry{}, r.Data[core.Pension])
}

func TestDecodeNormalizesQuarterIDs(t *testing.T) {
	records, err := Decode([]byte(`[{"id":" 2024-q1 ","timestamp":1,"data":{}}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-Q1", records[0].ID)
}

func TestImport(t *testing.T) {
	b, err := Export(sample())
	require.NoError(t, err)

	dst := &fakeReplacer{}
	got, err := Import(context.Background(), b, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, dst.calls)
	assert.Equal(t, got, dst.records)
}

func TestImportInvalidLeavesDestinationAlone(t *testing.T) {
	dst := &fakeReplacer{}
	_, err := Import(context.Background(), []byte(`{"not":"an array"}`), dst)

	var ive *ImportValidationError
	require.ErrorAs(t, err, &ive)
	assert.Zero(t, dst.calls)
}

func TestImportReplacerFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := Import(context.Background(), []byte(`[]`), &fakeReplacer{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestBackupFilename(t *testing.T) {
	got := BackupFilename(time.Date(2025, 2, 3, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, "wealth-tracker-backup-2025-02-03.json", got)
}
