// Package sheets mirrors the quarterly trend table into a spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"wealthtrack/internal/core"
)

// Ports for outbound adapters.
type (
	TrendWriter interface {
		// WriteTrend replaces the mirrored table with points.
		WriteTrend(ctx context.Context, points []core.TrendPoint) error
	}

	TrendReader interface {
		// ReadTrend returns what is currently mirrored.
		ReadTrend(ctx context.Context) ([]core.TrendPoint, error)
	}

	TrendMirror interface {
		TrendWriter
		TrendReader
	}
)

// Header is the first row of the mirrored table.
var Header = []string{"Quarter", "Total assets", "Disposable assets", "Market index"}

// Rows renders points as a values matrix, header first.
func Rows(points []core.TrendPoint) [][]any {
	out := make([][]any, 0, len(points)+1)
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	out = append(out, header)
	for _, p := range points {
		out = append(out, []any{p.Label, p.TotalAssets, p.DisposableAssets, p.TotalMarketIndex})
	}
	return out
}

// ParseRows is the inverse of Rows. Columns are located by header name so
// a reordered sheet still reads back; blank rows are skipped.
func ParseRows(values [][]any) ([]core.TrendPoint, error) {
	if len(values) == 0 {
		return []core.TrendPoint{}, nil
	}
	headers := toStrings(values[0])
	cols := make([]int, len(Header))
	var missing []string
	for i, h := range Header {
		cols[i] = indexOf(headers, h)
		if cols[i] < 0 {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected trend header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	out := make([]core.TrendPoint, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		label := strings.TrimSpace(safeGet(row, cols[0]))
		if label == "" {
			continue
		}
		p := core.TrendPoint{Label: label}
		var err error
		if p.TotalAssets, err = parseNumber(safeGet(row, cols[1])); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if p.DisposableAssets, err = parseNumber(safeGet(row, cols[2])); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if p.TotalMarketIndex, err = parseNumber(safeGet(row, cols[3])); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}
