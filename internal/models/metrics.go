package models

import "sort"

// Metric is one logged metric value. Step and Timestamp are only meaningful
// when the metric belongs to a history sequence.
type Metric struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step"`
}

// After reports whether m was logged later than other: by step, then by
// timestamp.
func (m Metric) After(other Metric) bool {
	if m.Step != other.Step {
		return m.Step > other.Step
	}
	return m.Timestamp >= other.Timestamp
}

// MetricHistory is the full history of one metric key for one run.
type MetricHistory struct {
	RunID   string   `json:"run_id"`
	Key     string   `json:"key"`
	Metrics []Metric `json:"metrics"`
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
