package core

import "math"

type (
	// GlobalMetrics are the headline figures of one snapshot.
	GlobalMetrics struct {
		TotalAssets      float64 `json:"totalAssets"`
		DisposableAssets float64 `json:"disposableAssets"`
		TotalMarketIndex float64 `json:"totalMarketIndex"`
	}

	// ChartSlice is one segment of a distribution chart.
	ChartSlice struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
		Color string  `json:"color"`
	}

	// CategoryTotal is the per-category breakdown shown next to the entry list.
	CategoryTotal struct {
		CategoryMeta
		Count int     `json:"count"`
		Sum   float64 `json:"sum"`
	}

	// QuarterMetrics bundles everything derived from a single record.
	QuarterMetrics struct {
		Metrics               GlobalMetrics   `json:"metrics"`
		TotalAssetsChart      []ChartSlice    `json:"totalAssetsChart"`
		DisposableAssetsChart []ChartSlice    `json:"disposableAssetsChart"`
		Categories            []CategoryTotal `json:"categories"`
	}
)

// SumEntries adds up entry values. Non-finite values count as zero.
func SumEntries(entries []Entry) float64 {
	var sum float64
	for _, e := range entries {
		if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
			continue
		}
		sum += e.Value
	}
	return sum
}

// ComputeMetrics aggregates one record. Categories absent from the data
// count as empty, so a partially filled record still yields metrics.
func ComputeMetrics(r WealthRecord) QuarterMetrics {
	out := QuarterMetrics{
		TotalAssetsChart:      []ChartSlice{},
		DisposableAssetsChart: []ChartSlice{},
		Categories:            make([]CategoryTotal, 0, len(categories)),
	}
	sums := make(map[CategoryID]float64, len(categories))
	for _, id := range categories {
		entries := r.Data[id]
		sum := SumEntries(entries)
		sums[id] = sum
		out.Metrics.TotalAssets += sum

		meta := id.Meta()
		out.Categories = append(out.Categories, CategoryTotal{CategoryMeta: meta, Count: len(entries), Sum: sum})
		if sum == 0 {
			continue
		}
		slice := ChartSlice{Name: meta.Label, Value: sum, Color: meta.Color}
		out.TotalAssetsChart = append(out.TotalAssetsChart, slice)
		if id != RealEstate {
			out.DisposableAssetsChart = append(out.DisposableAssetsChart, slice)
		}
	}
	out.Metrics.DisposableAssets = out.Metrics.TotalAssets - sums[RealEstate]
	out.Metrics.TotalMarketIndex = sums[Pension] + sums[StocksIndex]
	return out
}

// Global is a shorthand for ComputeMetrics(r).Metrics.
func Global(r WealthRecord) GlobalMetrics {
	return ComputeMetrics(r).Metrics
}
