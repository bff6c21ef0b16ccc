package advice

import (
	"fmt"
	"strings"

	"wealthtrack/internal/core"
)

const systemInstruction = "You are a professional wealth advisor. Analyze the provided portfolio and give concise advice in %s."

// BuildPrompt renders the user prompt for one quarter.
func BuildPrompt(r core.WealthRecord, m core.GlobalMetrics, language string) string {
	var b strings.Builder
	b.WriteString("Analyze this user's asset allocation for the current quarter and provide 3-4 professional financial insights.\n\n")
	fmt.Fprintf(&b, "Quarter: %s\n\n", r.ID)
	b.WriteString("Data summary:\n")
	fmt.Fprintf(&b, "- Total Assets: %s\n", formatAmount(m.TotalAssets))
	fmt.Fprintf(&b, "- Disposable Assets: %s\n", formatAmount(m.DisposableAssets))
	fmt.Fprintf(&b, "- Market Index Exposure (Pension + Index Funds): %s\n\n", formatAmount(m.TotalMarketIndex))

	b.WriteString("Category breakdown (summarized):\n")
	for _, id := range core.Categories() {
		fmt.Fprintf(&b, "- %s: %s\n", id, formatAmount(core.SumEntries(r.Data[id])))
	}

	b.WriteString("\nConsider:\n")
	b.WriteString("1. Diversification (Bitcoin, Stocks, Bonds, Cash)\n")
	b.WriteString("2. Liquidity (Cash vs Real Estate)\n")
	b.WriteString("3. Long-term strategy (Index funds vs Individual stocks)\n\n")
	fmt.Fprintf(&b, "Respond in a professional, encouraging tone. Keep it concise in %s.\n", language)
	return b.String()
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
