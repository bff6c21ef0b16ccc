// Package codec reads and writes the portable export document: a JSON array
// of quarterly records, the same shape that is persisted.
package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wealthtrack/internal/core"
)

// BackupPrefix is the file name prefix of export documents.
const BackupPrefix = "wealth-tracker-backup-"

// ImportValidationError reports why a document cannot be restored.
// Index is the offending element, or -1 when the document itself is wrong.
type ImportValidationError struct {
	Index  int
	Reason string
	Err    error
}

func (e *ImportValidationError) Error() string {
	if e.Index < 0 {
		return "invalid import document: " + e.Reason
	}
	return fmt.Sprintf("invalid import document: record %d: %s", e.Index, e.Reason)
}

func (e *ImportValidationError) Unwrap() error { return e.Err }

// Replacer substitutes the whole record collection.
type Replacer interface {
	ReplaceAll(ctx context.Context, records []core.WealthRecord) error
}

// Export encodes records as a two-space indented JSON array. Every record is
// written with all categories present; nil input produces "[]".
func Export(records []core.WealthRecord) ([]byte, error) {
	out := make([]core.WealthRecord, 0, len(records))
	for _, r := range records {
		r = r.Clone()
		r.Data.Fill()
		out = append(out, r)
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return b, nil
}

// Decode parses and validates an export document. On success every record
// has all categories present and a normalized quarter id, so ids that only
// differ in case count as duplicates.
func Decode(data []byte) ([]core.WealthRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &ImportValidationError{Index: -1, Reason: "empty document"}
	}
	if !json.Valid(trimmed) {
		return nil, &ImportValidationError{Index: -1, Reason: "not valid JSON"}
	}
	if trimmed[0] != '[' {
		return nil, &ImportValidationError{Index: -1, Reason: "top-level value must be an array of records"}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, &ImportValidationError{Index: -1, Reason: err.Error(), Err: err}
	}

	records := make([]core.WealthRecord, 0, len(elems))
	seen := make(map[string]int, len(elems))
	for i, raw := range elems {
		r, err := decodeRecord(raw)
		if err != nil {
			var ive *ImportValidationError
			if errors.As(err, &ive) {
				ive.Index = i
				return nil, ive
			}
			return nil, &ImportValidationError{Index: i, Reason: err.Error(), Err: err}
		}
		if prev, dup := seen[r.ID]; dup {
			return nil, &ImportValidationError{Index: i, Reason: fmt.Sprintf("duplicate quarter id %q (also record %d)", r.ID, prev)}
		}
		seen[r.ID] = i
		records = append(records, r)
	}
	return records, nil
}

type wireRecord struct {
	ID        *string                    `json:"id"`
	Timestamp json.RawMessage            `json:"timestamp"`
	Data      map[string]json.RawMessage `json:"data"`
}

func decodeRecord(raw json.RawMessage) (core.WealthRecord, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return core.WealthRecord{}, &ImportValidationError{Reason: "record must be an object"}
	}

	var w wireRecord
	if err := json.Unmarshal(raw, &w); err != nil {
		return core.WealthRecord{}, err
	}

	if w.ID == nil || strings.TrimSpace(*w.ID) == "" {
		return core.WealthRecord{}, core.ErrEmptyQuarterID
	}
	if w.Timestamp == nil {
		return core.WealthRecord{}, errors.New("missing timestamp")
	}
	ts, err := strconv.ParseInt(string(w.Timestamp), 10, 64)
	if err != nil {
		return core.WealthRecord{}, fmt.Errorf("timestamp %s is not an integer", w.Timestamp)
	}
	if w.Data == nil {
		return core.WealthRecord{}, errors.New("missing data object")
	}

	r := core.WealthRecord{ID: core.NormalizeQuarterID(*w.ID), Timestamp: ts, Data: make(core.QuarterData, len(w.Data))}
	for key, rawEntries := range w.Data {
		id, err := core.ParseCategoryID(key)
		if err != nil {
			return core.WealthRecord{}, err
		}
		var entries []core.Entry
		if err := json.Unmarshal(rawEntries, &entries); err != nil {
			return core.WealthRecord{}, fmt.Errorf("category %s: entries must be an array of {id,label,value}", id)
		}
		if entries == nil {
			entries = []core.Entry{}
		}
		r.Data[id] = entries
	}
	r.Data.Fill()

	if err := r.Validate(); err != nil {
		return core.WealthRecord{}, err
	}
	return r, nil
}

// Import decodes data and hands the records to dst, replacing everything it
// held. Nothing is replaced when decoding fails.
func Import(ctx context.Context, data []byte, dst Replacer) ([]core.WealthRecord, error) {
	records, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := dst.ReplaceAll(ctx, records); err != nil {
		return nil, fmt.Errorf("replace records: %w", err)
	}
	return records, nil
}

// BackupFilename names an export taken at t.
func BackupFilename(t time.Time) string {
	return BackupPrefix + t.Format(time.DateOnly) + ".json"
}
