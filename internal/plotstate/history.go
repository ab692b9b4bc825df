package plotstate

import (
	"sort"

	"github.com/imishinist/mlflow-runs/internal/models"
	timeutils "github.com/imishinist/mlflow-runs/internal/time"
)

// ChartType is how the plotted histories are drawn.
type ChartType string

const (
	ChartLine ChartType = "line"
	ChartBar  ChartType = "bar"
)

// Series is the history of one metric of one run.
type Series struct {
	RunID       string
	DisplayName string
	MetricKey   string
	History     []models.Metric
}

// PredictChartType draws bars when every series has exactly one point.
func PredictChartType(series []Series) ChartType {
	if len(series) == 0 {
		return ChartLine
	}
	for _, s := range series {
		if len(s.History) != 1 {
			return ChartLine
		}
	}
	return ChartBar
}

// SortHistory sorts history in place for the x-axis mode: by step then
// timestamp on the step axis, by timestamp otherwise.
func SortHistory(history []models.Metric, x XAxis) {
	cmp := timeutils.CompareByTimestamp
	if x == XAxisStep {
		cmp = timeutils.CompareByStepAndTimestamp
	}
	sort.SliceStable(history, func(i, j int) bool {
		return cmp(history[i], history[j]) < 0
	})
}

// XValues returns the x coordinate of every point: the step, the wall time
// in ms, or seconds since the earliest point of the history.
func XValues(history []models.Metric, x XAxis) []float64 {
	out := make([]float64, len(history))
	if len(history) == 0 {
		return out
	}
	minTs := history[0].Timestamp
	for _, m := range history {
		if m.Timestamp < minTs {
			minTs = m.Timestamp
		}
	}
	for i, m := range history {
		switch x {
		case XAxisStep:
			out[i] = float64(m.Step)
		case XAxisRelative:
			out[i] = timeutils.RelativeSeconds(m.Timestamp, minTs)
		default:
			out[i] = float64(m.Timestamp)
		}
	}
	return out
}

// FilterSeries keeps the series of the selected metric keys, each sorted for
// the x-axis mode.
func (s State) FilterSeries(all []Series) []Series {
	selected := make(map[string]bool, len(s.SelectedMetricKeys))
	for _, k := range s.SelectedMetricKeys {
		selected[k] = true
	}
	var out []Series
	for _, series := range all {
		if !selected[series.MetricKey] {
			continue
		}
		series.History = append([]models.Metric(nil), series.History...)
		SortHistory(series.History, s.XAxis)
		out = append(out, series)
	}
	return out
}
