package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type (
	// Entry is one line item inside a category of a quarterly snapshot.
	Entry struct {
		ID    string  `json:"id"`
		Label string  `json:"label"`
		Value float64 `json:"value"`
	}

	// QuarterData maps every category to its entries. A well-formed value
	// holds a key for each category, with an empty list when nothing was recorded.
	QuarterData map[CategoryID][]Entry

	// WealthRecord is a quarterly snapshot. ID is the quarter identifier
	// ("2024-Q1") and Timestamp the save instant in Unix milliseconds.
	WealthRecord struct {
		ID        string      `json:"id"`
		Timestamp int64       `json:"timestamp"`
		Data      QuarterData `json:"data"`
	}
)

var (
	ErrEmptyQuarterID   = errors.New("empty quarter id")
	ErrQuarterIDTooLong = errors.New("quarter id too long (max 32 characters)")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrMissingCategory  = errors.New("missing category")
	ErrEmptyEntryID     = errors.New("empty entry id")
	ErrDuplicateEntryID = errors.New("duplicate entry id")
)

// NewQuarterData returns data with every category present and empty.
func NewQuarterData() QuarterData {
	d := make(QuarterData, len(categories))
	for _, id := range categories {
		d[id] = []Entry{}
	}
	return d
}

// NewRecord builds a record for quarter id saved at now. Missing categories
// in data are filled in.
func NewRecord(id string, data QuarterData, now time.Time) WealthRecord {
	r := WealthRecord{
		ID:        NormalizeQuarterID(id),
		Timestamp: now.UnixMilli(),
		Data:      data.Clone(),
	}
	r.Data.Fill()
	return r
}

// NormalizeQuarterID trims and upper-cases a quarter identifier.
func NormalizeQuarterID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// QuarterIDFor returns the calendar quarter containing t, e.g. "2025-Q2".
func QuarterIDFor(t time.Time) string {
	return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
}

// Fill adds an empty list for every missing category and replaces
// non-finite values with zero.
func (d QuarterData) Fill() {
	for _, id := range categories {
		entries, ok := d[id]
		if !ok || entries == nil {
			d[id] = []Entry{}
			continue
		}
		for i := range entries {
			if math.IsNaN(entries[i].Value) || math.IsInf(entries[i].Value, 0) {
				entries[i].Value = 0
			}
		}
	}
}

// Clone returns a deep copy of d.
func (d QuarterData) Clone() QuarterData {
	if d == nil {
		return NewQuarterData()
	}
	out := make(QuarterData, len(d))
	for id, entries := range d {
		cp := make([]Entry, len(entries))
		copy(cp, entries)
		out[id] = cp
	}
	return out
}

// Clone returns a deep copy of r.
func (r WealthRecord) Clone() WealthRecord {
	r.Data = r.Data.Clone()
	return r
}

// Validate checks the structural invariants of a record: a usable quarter
// id, only known categories, every category present and entry ids unique
// within each category.
func (r WealthRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyQuarterID
	}
	if len(r.ID) > 32 {
		return ErrQuarterIDTooLong
	}
	for id := range r.Data {
		if !id.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, string(id))
		}
	}
	for _, id := range categories {
		entries, ok := r.Data[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingCategory, id)
		}
		seen := make(map[string]struct{}, len(entries))
		for _, e := range entries {
			if e.ID == "" {
				return fmt.Errorf("%s: %w", id, ErrEmptyEntryID)
			}
			if _, dup := seen[e.ID]; dup {
				return fmt.Errorf("%s: %w %q", id, ErrDuplicateEntryID, e.ID)
			}
			seen[e.ID] = struct{}{}
		}
	}
	return nil
}

// UnmarshalJSON accepts entry values written as numbers or numeric strings.
// Anything else (null, empty or non-numeric strings) decodes as zero.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID    string          `json:"id"`
		Label *string         `json:"label"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.ID = raw.ID
	e.Label = ""
	if raw.Label != nil {
		e.Label = *raw.Label
	}
	e.Value = coerceValue(raw.Value)
	return nil
}

func coerceValue(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
	}
	return 0
}
