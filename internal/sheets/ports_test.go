package sheets

import (
	"strings"
	"testing"

	"wealthtrack/internal/core"
)

func TestRowsRoundTrip(t *testing.T) {
	points := []core.TrendPoint{
		{Label: "2024-Q1", TotalAssets: 3743000, DisposableAssets: 243000, TotalMarketIndex: 170000},
		{Label: "2024-Q2", TotalAssets: -5.5},
	}
	got, err := ParseRows(Rows(points))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 || got[0] != points[0] || got[1] != points[1] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestParseRowsAsReturnedBySheets(t *testing.T) {
	// the API returns formatted strings and may reorder or trim columns
	values := [][]any{
		{"Market index", "Quarter", "Total assets", "Disposable assets"},
		{"170,000", "2024-Q1", "3,743,000", "243,000"},
		{"", "", "", ""},
		{"", "2024-Q2"},
	}
	got, err := ParseRows(values)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}
	if got[0].TotalAssets != 3743000 || got[0].TotalMarketIndex != 170000 {
		t.Fatalf("unexpected first point: %+v", got[0])
	}
	if got[1] != (core.TrendPoint{Label: "2024-Q2"}) {
		t.Fatalf("short rows should read as zero: %+v", got[1])
	}
}

func TestParseRowsErrors(t *testing.T) {
	if _, err := ParseRows([][]any{{"Quarter", "Total assets"}}); err == nil || !strings.Contains(err.Error(), "Disposable assets") {
		t.Fatalf("expected missing header error, got %v", err)
	}
	values := Rows(nil)
	values = append(values, []any{"Q", "lots", "0", "0"})
	if _, err := ParseRows(values); err == nil {
		t.Fatalf("expected invalid number error")
	}
	if got, err := ParseRows(nil); err != nil || len(got) != 0 {
		t.Fatalf("empty sheet should parse to nothing: %v %v", got, err)
	}
}
