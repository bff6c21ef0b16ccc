package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"wealthtrack/internal/core"
)

func trendMarkdown(points []core.TrendPoint) string {
	var b strings.Builder
	b.WriteString("# Trend\n\n")
	if len(points) == 0 {
		b.WriteString("No records yet.\n")
		return b.String()
	}
	b.WriteString("| Quarter | Total assets | Disposable assets | Market index |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, p := range points {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", p.Label,
			core.FormatCurrency(p.TotalAssets),
			core.FormatCurrency(p.DisposableAssets),
			core.FormatCurrency(p.TotalMarketIndex))
	}
	return b.String()
}

func recordMarkdown(r core.WealthRecord) string {
	m := core.ComputeMetrics(r)
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.ID)
	fmt.Fprintf(&b, "- **Total assets:** %s\n", core.FormatCurrency(m.Metrics.TotalAssets))
	fmt.Fprintf(&b, "- **Disposable assets:** %s\n", core.FormatCurrency(m.Metrics.DisposableAssets))
	fmt.Fprintf(&b, "- **Market index:** %s\n\n", core.FormatCurrency(m.Metrics.TotalMarketIndex))

	b.WriteString("| Category | Entry | Value |\n")
	b.WriteString("|---|---|---:|\n")
	for _, ct := range m.Categories {
		if ct.Count == 0 {
			continue
		}
		for _, e := range r.Data[ct.ID] {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", ct.Label, escapeCell(e.Label), core.FormatCurrency(e.Value))
		}
		fmt.Fprintf(&b, "| **%s total** | | **%s** |\n", ct.Label, core.FormatCurrency(ct.Sum))
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

// printMarkdown styles md for the terminal unless plain is set.
func printMarkdown(w io.Writer, md string, plain bool) error {
	if plain {
		_, err := io.WriteString(w, md)
		return err
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
