package plotstate

import "math"

// WithYAxisLogScale switches the y axis between linear and log scale. An
// explicit y range is converted to the new scale; a range whose lower bound
// is not positive can't be shown on a log axis, so the chart autoranges and
// the old range is kept for switching back.
func (s State) WithYAxisLogScale(log bool) State {
	next := s.clone()
	next.YAxisLogScale = log
	y := s.Layout.YAxis
	if y == nil {
		return next
	}
	switch {
	case len(y.Range) != 2:
		axis := y.clone()
		axis.Type = scaleType(log)
		next.Layout.YAxis = axis
	case s.YAxisLogScale:
		if y.AutoRange {
			next.Layout.YAxis = &Axis{Type: "linear", Range: append([]float64(nil), y.Range...)}
		} else {
			next.Layout.YAxis = &Axis{Type: "linear", Range: []float64{math.Pow(10, y.Range[0]), math.Pow(10, y.Range[1])}}
		}
	case y.Range[0] <= 0:
		next.Layout.YAxis = &Axis{Type: "log", Range: append([]float64(nil), y.Range...), AutoRange: true}
	default:
		next.Layout.YAxis = &Axis{Type: "log", Range: []float64{math.Log10(y.Range[0]), math.Log10(y.Range[1])}}
	}
	return next
}

func scaleType(log bool) string {
	if log {
		return "log"
	}
	return "linear"
}

// WithXAxis changes the x-axis mode and resets the x axis to autorange.
func (s State) WithXAxis(mode XAxis) State {
	next := s.clone()
	next.XAxis = mode
	axisType := "linear"
	if mode == XAxisWall {
		axisType = "date"
	}
	next.Layout.XAxis = &Axis{AutoRange: true, Type: axisType}
	return next
}

// Relayout is a zoom or reset reported by the chart.
type Relayout struct {
	XRange     []float64
	YRange     []float64
	XAutoRange bool
	YAutoRange bool
}

// WithRelayout merges a chart relayout into the layout. A new range replaces
// the axis configuration; an autorange reset wins over a range.
func (s State) WithRelayout(ev Relayout) State {
	next := s.clone()
	if len(ev.XRange) == 2 {
		next.Layout.XAxis = &Axis{Range: append([]float64(nil), ev.XRange...)}
	}
	if len(ev.YRange) == 2 {
		next.Layout.YAxis = &Axis{Range: append([]float64(nil), ev.YRange...)}
	}
	if ev.XAutoRange {
		next.Layout.XAxis = &Axis{AutoRange: true}
	}
	if ev.YAutoRange {
		next.Layout.YAxis = &Axis{AutoRange: true}
	}
	return next
}

// ToggleRun adds runID to the highlighted runs or removes it.
func (s State) ToggleRun(runID string) State {
	next := s.clone()
	for i, id := range next.SelectedRunIDs {
		if id == runID {
			next.SelectedRunIDs = append(next.SelectedRunIDs[:i], next.SelectedRunIDs[i+1:]...)
			return next
		}
	}
	next.SelectedRunIDs = append(next.SelectedRunIDs, runID)
	return next
}

// OnlyRun highlights runID alone.
func (s State) OnlyRun(runID string) State {
	next := s.clone()
	next.SelectedRunIDs = []string{runID}
	return next
}

// WithMetricKeys replaces the plotted metrics.
func (s State) WithMetricKeys(keys []string) State {
	next := s.clone()
	next.SelectedMetricKeys = append([]string{}, keys...)
	return next
}

// WithLineSmoothness sets the spline smoothing of the plotted lines.
func (s State) WithLineSmoothness(v float64) State {
	next := s.clone()
	next.LineSmoothness = v
	return next
}

// WithShowPoint toggles markers on every history point.
func (s State) WithShowPoint(show bool) State {
	next := s.clone()
	next.ShowPoint = show
	return next
}
