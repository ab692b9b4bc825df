package plotstate_test

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/imishinist/mlflow-runs/internal/models"
	"github.com/imishinist/mlflow-runs/internal/plotstate"
)

func fullState() plotstate.State {
	s := plotstate.New("7", "val loss", []string{"r1", "r2"})
	s.SelectedMetricKeys = []string{"val loss", "acc"}
	s.XAxis = plotstate.XAxisRelative
	s.YAxisLogScale = true
	s.LineSmoothness = 0.35
	s.ShowPoint = true
	s.Layout = plotstate.Layout{
		XAxis: &plotstate.Axis{AutoRange: true, Type: "linear"},
		YAxis: &plotstate.Axis{Range: []float64{-1, 2.5}, Type: "log"},
	}
	s.SelectedRunIDs = []string{"r2"}
	return s
}

func TestRouteRoundTrip(t *testing.T) {
	s := fullState()
	route, err := plotstate.Route(s)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(route, "/metric/val%20loss?"), route)

	got, err := plotstate.Decode(route)
	require.NoError(t, err)
	require.Equal(t, s, got)

	got, err = plotstate.Decode("http://localhost:5000/#" + route)
	require.NoError(t, err)
	require.Equal(t, s.SelectedRunIDs, got.SelectedRunIDs)
}

func TestEncode(t *testing.T) {
	values, err := plotstate.Encode(fullState())
	require.NoError(t, err)
	require.Equal(t, `["r1","r2"]`, values.Get("runs"))
	require.Equal(t, "7", values.Get("experiment"))
	require.Equal(t, `["val loss","acc"]`, values.Get("plot_metric_keys"))
	require.Equal(t, "relative", values.Get("x_axis"))
	require.Equal(t, "log", values.Get("y_axis_scale"))
	require.Equal(t, "0.35", values.Get("line_smoothing"))
	require.Equal(t, "true", values.Get("show_point"))
	require.Equal(t, `["r2"]`, values.Get("selected_run_ids"))
	require.JSONEq(t, `{"xaxis":{"autorange":true,"type":"linear"},"yaxis":{"range":[-1,2.5],"type":"log"}}`,
		values.Get("plot_layout"))
}

func TestDecodeDefaults(t *testing.T) {
	got, err := plotstate.Decode("/metric/loss?runs=%5B%22r1%22%5D")
	require.NoError(t, err)
	require.Equal(t, plotstate.New("", "loss", []string{"r1"}), got)
	require.Equal(t, []string{"loss"}, got.SelectedMetricKeys)
	require.Equal(t, plotstate.XAxisStep, got.XAxis)
	require.False(t, got.YAxisLogScale)
	require.Zero(t, got.LineSmoothness)
	require.False(t, got.ShowPoint)
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"runs":      "runs=" + url.QueryEscape("[r1"),
		"x axis":    "x_axis=epoch",
		"smoothing": "line_smoothing=abc",
		"layout":    "plot_layout=" + url.QueryEscape(`{"yaxis":1}`),
	}
	for name, q := range cases {
		_, err := plotstate.Decode(q)
		require.Error(t, err, name)
	}
}

func TestWithYAxisLogScale(t *testing.T) {
	s := plotstate.New("1", "loss", nil)
	s.Layout.YAxis = &plotstate.Axis{Range: []float64{1, 100}}

	logged := s.WithYAxisLogScale(true)
	require.True(t, logged.YAxisLogScale)
	require.Equal(t, &plotstate.Axis{Type: "log", Range: []float64{0, 2}}, logged.Layout.YAxis)
	require.Equal(t, []float64{1, 100}, s.Layout.YAxis.Range)

	back := logged.WithYAxisLogScale(false)
	require.Equal(t, &plotstate.Axis{Type: "linear", Range: []float64{1, 100}}, back.Layout.YAxis)
}

func TestWithYAxisLogScale_NegativeRange(t *testing.T) {
	s := plotstate.New("1", "loss", nil)
	s.Layout.YAxis = &plotstate.Axis{Range: []float64{-5, 10}}

	logged := s.WithYAxisLogScale(true)
	require.Equal(t, &plotstate.Axis{Type: "log", Range: []float64{-5, 10}, AutoRange: true}, logged.Layout.YAxis)

	back := logged.WithYAxisLogScale(false)
	require.Equal(t, &plotstate.Axis{Type: "linear", Range: []float64{-5, 10}}, back.Layout.YAxis)
}

func TestWithYAxisLogScale_ZeroLowerBound(t *testing.T) {
	s := plotstate.New("1", "acc", []string{"r1"}).
		WithRelayout(plotstate.Relayout{YRange: []float64{0, 1}})

	logged := s.WithYAxisLogScale(true)
	require.Equal(t, &plotstate.Axis{Type: "log", Range: []float64{0, 1}, AutoRange: true}, logged.Layout.YAxis)

	route, err := plotstate.Route(logged)
	require.NoError(t, err)
	decoded, err := plotstate.Decode(route)
	require.NoError(t, err)
	require.Equal(t, logged.Layout, decoded.Layout)

	back := logged.WithYAxisLogScale(false)
	require.Equal(t, &plotstate.Axis{Type: "linear", Range: []float64{0, 1}}, back.Layout.YAxis)
}

func TestWithYAxisLogScale_NoRange(t *testing.T) {
	s := plotstate.New("1", "loss", nil)
	require.Nil(t, s.WithYAxisLogScale(true).Layout.YAxis)

	s.Layout.YAxis = &plotstate.Axis{AutoRange: true}
	require.Equal(t, &plotstate.Axis{AutoRange: true, Type: "log"}, s.WithYAxisLogScale(true).Layout.YAxis)
}

func TestWithXAxis(t *testing.T) {
	s := plotstate.New("1", "loss", nil).WithRelayout(plotstate.Relayout{XRange: []float64{3, 9}})

	wall := s.WithXAxis(plotstate.XAxisWall)
	require.Equal(t, plotstate.XAxisWall, wall.XAxis)
	require.Equal(t, &plotstate.Axis{AutoRange: true, Type: "date"}, wall.Layout.XAxis)

	step := wall.WithXAxis(plotstate.XAxisStep)
	require.Equal(t, &plotstate.Axis{AutoRange: true, Type: "linear"}, step.Layout.XAxis)
}

func TestWithRelayout(t *testing.T) {
	s := plotstate.New("1", "loss", nil)
	s.Layout.YAxis = &plotstate.Axis{Type: "log", Range: []float64{0, 1}}

	zoomed := s.WithRelayout(plotstate.Relayout{XRange: []float64{1, 5}})
	require.Equal(t, &plotstate.Axis{Range: []float64{1, 5}}, zoomed.Layout.XAxis)
	require.Equal(t, s.Layout.YAxis, zoomed.Layout.YAxis)

	reset := zoomed.WithRelayout(plotstate.Relayout{YRange: []float64{2, 3}, YAutoRange: true})
	require.Equal(t, &plotstate.Axis{AutoRange: true}, reset.Layout.YAxis)
	require.Equal(t, zoomed.Layout.XAxis, reset.Layout.XAxis)
}

func TestRunSelection(t *testing.T) {
	s := plotstate.New("1", "loss", []string{"a", "b", "c"})
	s = s.ToggleRun("a").ToggleRun("b")
	require.Equal(t, []string{"a", "b"}, s.SelectedRunIDs)
	s = s.ToggleRun("a")
	require.Equal(t, []string{"b"}, s.SelectedRunIDs)
	require.Equal(t, []string{"c"}, s.OnlyRun("c").SelectedRunIDs)

	keys := s.WithMetricKeys([]string{"acc"})
	require.Equal(t, []string{"acc"}, keys.SelectedMetricKeys)
	require.Equal(t, []string{"loss"}, s.SelectedMetricKeys)
}

func TestPredictChartType(t *testing.T) {
	one := []models.Metric{{Value: 1}}
	two := []models.Metric{{Value: 1}, {Value: 2}}
	require.Equal(t, plotstate.ChartLine, plotstate.PredictChartType(nil))
	require.Equal(t, plotstate.ChartBar, plotstate.PredictChartType([]plotstate.Series{{History: one}, {History: one}}))
	require.Equal(t, plotstate.ChartLine, plotstate.PredictChartType([]plotstate.Series{{History: one}, {History: two}}))
}

func TestSortHistoryAndXValues(t *testing.T) {
	history := []models.Metric{
		{Step: 2, Timestamp: 1000, Value: 3},
		{Step: 1, Timestamp: 3000, Value: 2},
		{Step: 1, Timestamp: 2000, Value: 1},
	}
	plotstate.SortHistory(history, plotstate.XAxisStep)
	require.Equal(t, []float64{1, 1, 2}, plotstate.XValues(history, plotstate.XAxisStep))
	require.Equal(t, 1.0, history[0].Value)

	plotstate.SortHistory(history, plotstate.XAxisRelative)
	require.Equal(t, []float64{0, 1, 2}, plotstate.XValues(history, plotstate.XAxisRelative))
	require.Equal(t, []float64{1000, 2000, 3000}, plotstate.XValues(history, plotstate.XAxisWall))
}

func TestFilterSeries(t *testing.T) {
	s := plotstate.New("1", "loss", nil)
	all := []plotstate.Series{
		{MetricKey: "loss", History: []models.Metric{{Step: 2}, {Step: 1}}},
		{MetricKey: "acc", History: []models.Metric{{Step: 1}}},
	}
	got := s.FilterSeries(all)
	require.Len(t, got, 1)
	require.Equal(t, int64(1), got[0].History[0].Step)
	require.Equal(t, int64(2), all[0].History[0].Step)
}

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeScheduler struct {
	now    time.Time
	timers []*fakeTimer
}

func (s *fakeScheduler) Now() time.Time { return s.now }

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) plotstate.Timer {
	t := &fakeTimer{at: s.now.Add(d), f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.now = s.now.Add(d)
	for _, t := range s.timers {
		if !t.stopped && !t.fired && !t.at.After(s.now) {
			t.fired = true
			t.f()
		}
	}
}

func newClicker() (*plotstate.LegendClicker, *fakeScheduler, *[]string, *[]string) {
	sched := &fakeScheduler{now: time.Unix(1000, 0)}
	var clicks, doubles []string
	l := plotstate.NewLegendClicker(sched,
		func(id string) { clicks = append(clicks, id) },
		func(id string) { doubles = append(doubles, id) })
	return l, sched, &clicks, &doubles
}

func TestLegendClicker_SingleClick(t *testing.T) {
	l, sched, clicks, doubles := newClicker()
	l.Click("r1")
	sched.Advance(309 * time.Millisecond)
	require.Empty(t, *clicks)
	sched.Advance(time.Millisecond)
	require.Equal(t, []string{"r1"}, *clicks)
	require.Empty(t, *doubles)
}

func TestLegendClicker_DoubleClick(t *testing.T) {
	l, sched, clicks, doubles := newClicker()
	l.Click("r1")
	sched.Advance(100 * time.Millisecond)
	l.Click("r1")
	require.Equal(t, []string{"r1"}, *doubles)

	sched.Advance(time.Second)
	require.Empty(t, *clicks)

	// the next click starts a new pair
	l.Click("r2")
	sched.Advance(plotstate.SingleClickDelay)
	require.Equal(t, []string{"r2"}, *clicks)
}

func TestLegendClicker_SlowClicks(t *testing.T) {
	l, sched, clicks, doubles := newClicker()
	l.Click("r1")
	sched.Advance(305 * time.Millisecond)
	l.Click("r2")
	sched.Advance(5 * time.Millisecond)
	require.Equal(t, []string{"r1"}, *clicks)

	sched.Advance(50 * time.Millisecond)
	l.Click("r2")
	require.Equal(t, []string{"r2"}, *doubles)
	sched.Advance(time.Second)
	require.Equal(t, []string{"r1"}, *clicks)
}
