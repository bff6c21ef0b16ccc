package core

import "iter"

// TrendPoint is one quarter on the trend chart.
type TrendPoint struct {
	Label            string  `json:"label"`
	TotalAssets      float64 `json:"totalAssets"`
	DisposableAssets float64 `json:"disposableAssets"`
	TotalMarketIndex float64 `json:"totalMarketIndex"`
}

// ProjectTrend yields one point per record in the given order. Nothing is
// computed until the sequence is ranged over, and it can be ranged over
// again with the same result.
func ProjectTrend(records []WealthRecord) iter.Seq[TrendPoint] {
	return func(yield func(TrendPoint) bool) {
		for _, r := range records {
			m := Global(r)
			p := TrendPoint{
				Label:            r.ID,
				TotalAssets:      m.TotalAssets,
				DisposableAssets: m.DisposableAssets,
				TotalMarketIndex: m.TotalMarketIndex,
			}
			if !yield(p) {
				return
			}
		}
	}
}

// CollectTrend materializes ProjectTrend, returning an empty non-nil slice
// for no records.
func CollectTrend(records []WealthRecord) []TrendPoint {
	out := make([]TrendPoint, 0, len(records))
	for p := range ProjectTrend(records) {
		out = append(out, p)
	}
	return out
}
