package viewutil

import "github.com/imishinist/mlflow-runs/internal/models"

// Range is the spread of one metric across the visible runs.
type Range struct {
	Min float64
	Max float64
}

// Normalize maps v into [0, 1] within the range. A single-value range maps
// everything to 0.
func (r Range) Normalize(v float64) float64 {
	if r.Max == r.Min {
		return 0
	}
	n := (v - r.Min) / (r.Max - r.Min)
	switch {
	case n < 0:
		return 0
	case n > 1:
		return 1
	}
	return n
}

// ComputeMetricRanges returns the min and max of every metric key reported
// by at least one run.
func ComputeMetricRanges(metricsByRunID map[string]map[string]models.Metric) map[string]Range {
	ranges := make(map[string]Range)
	for _, metrics := range metricsByRunID {
		for key, m := range metrics {
			r, seen := ranges[key]
			if !seen {
				ranges[key] = Range{Min: m.Value, Max: m.Value}
				continue
			}
			if m.Value < r.Min {
				r.Min = m.Value
			}
			if m.Value > r.Max {
				r.Max = m.Value
			}
			ranges[key] = r
		}
	}
	return ranges
}
