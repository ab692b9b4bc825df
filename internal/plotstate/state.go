// Package plotstate holds the metric plot view that is shared through its
// URL: selected metrics, axes, smoothing, and the runs highlighted in the
// legend.
package plotstate

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-querystring/query"
)

// XAxis selects what the x coordinate of a history point is.
type XAxis string

const (
	XAxisStep     XAxis = "step"
	XAxisWall     XAxis = "wall"
	XAxisRelative XAxis = "relative"
)

// ParseXAxis validates an x-axis mode.
func ParseXAxis(s string) (XAxis, error) {
	switch x := XAxis(s); x {
	case XAxisStep, XAxisWall, XAxisRelative:
		return x, nil
	}
	return "", fmt.Errorf("invalid x axis: %q (valid: step, wall, relative)", s)
}

// Axis is the explicit configuration of one plot axis. A nil Range with
// AutoRange set lets the chart pick the bounds.
type Axis struct {
	Range     []float64 `json:"range,omitempty"`
	AutoRange bool      `json:"autorange,omitempty"`
	Type      string    `json:"type,omitempty"`
}

func (a *Axis) clone() *Axis {
	if a == nil {
		return nil
	}
	c := *a
	if a.Range != nil {
		c.Range = append([]float64(nil), a.Range...)
	}
	return &c
}

// Layout carries the axes the user zoomed or configured.
type Layout struct {
	XAxis *Axis `json:"xaxis,omitempty"`
	YAxis *Axis `json:"yaxis,omitempty"`
}

func (l Layout) clone() Layout {
	return Layout{XAxis: l.XAxis.clone(), YAxis: l.YAxis.clone()}
}

// State is everything needed to reproduce a metric plot.
type State struct {
	RunIDs       []string
	MetricKey    string
	ExperimentID string

	SelectedMetricKeys []string
	XAxis              XAxis
	YAxisLogScale      bool
	LineSmoothness     float64
	ShowPoint          bool
	Layout             Layout
	SelectedRunIDs     []string
}

// New returns the default plot of metricKey over runIDs.
func New(experimentID, metricKey string, runIDs []string) State {
	s := State{
		RunIDs:             append([]string{}, runIDs...),
		MetricKey:          metricKey,
		ExperimentID:       experimentID,
		SelectedMetricKeys: []string{},
		XAxis:              XAxisStep,
		SelectedRunIDs:     []string{},
	}
	if metricKey != "" {
		s.SelectedMetricKeys = append(s.SelectedMetricKeys, metricKey)
	}
	return s
}

func (s State) clone() State {
	c := s
	c.RunIDs = append([]string{}, s.RunIDs...)
	c.SelectedMetricKeys = append([]string{}, s.SelectedMetricKeys...)
	c.SelectedRunIDs = append([]string{}, s.SelectedRunIDs...)
	c.Layout = s.Layout.clone()
	return c
}

// jsonParam encodes a value as JSON inside a single query parameter.
type jsonParam struct{ v any }

func (p jsonParam) EncodeValues(key string, values *url.Values) error {
	b, err := json.Marshal(p.v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	values.Set(key, string(b))
	return nil
}

type routeParams struct {
	Runs           jsonParam `url:"runs"`
	Experiment     string    `url:"experiment,omitempty"`
	PlotMetricKeys jsonParam `url:"plot_metric_keys"`
	PlotLayout     jsonParam `url:"plot_layout"`
	XAxis          string    `url:"x_axis"`
	YAxisScale     string    `url:"y_axis_scale"`
	LineSmoothing  float64   `url:"line_smoothing"`
	ShowPoint      bool      `url:"show_point"`
	SelectedRunIDs jsonParam `url:"selected_run_ids"`
}

// Encode returns the query parameters of s.
func Encode(s State) (url.Values, error) {
	s = s.clone()
	if len(s.SelectedMetricKeys) == 0 && s.MetricKey != "" {
		s.SelectedMetricKeys = []string{s.MetricKey}
	}
	if s.XAxis == "" {
		s.XAxis = XAxisStep
	}
	scale := "linear"
	if s.YAxisLogScale {
		scale = "log"
	}
	return query.Values(routeParams{
		Runs:           jsonParam{s.RunIDs},
		Experiment:     s.ExperimentID,
		PlotMetricKeys: jsonParam{s.SelectedMetricKeys},
		PlotLayout:     jsonParam{s.Layout},
		XAxis:          string(s.XAxis),
		YAxisScale:     scale,
		LineSmoothing:  s.LineSmoothness,
		ShowPoint:      s.ShowPoint,
		SelectedRunIDs: jsonParam{s.SelectedRunIDs},
	})
}

// Route returns the shareable path of the plot.
func Route(s State) (string, error) {
	values, err := Encode(s)
	if err != nil {
		return "", err
	}
	return "/metric/" + url.PathEscape(s.MetricKey) + "?" + values.Encode(), nil
}

// Decode parses a plot route, a full URL or a bare query string. Parameters
// that are missing fall back to the defaults of New.
func Decode(raw string) (State, error) {
	var metricKey, rawQuery string
	if strings.Contains(raw, "/metric/") || strings.HasPrefix(raw, "http") {
		u, err := url.Parse(raw)
		if err != nil {
			return State{}, fmt.Errorf("invalid plot url: %w", err)
		}
		// the web UI routes inside the fragment
		if strings.Contains(u.Fragment, "/metric/") {
			if u, err = url.Parse(u.EscapedFragment()); err != nil {
				return State{}, fmt.Errorf("invalid plot url: %w", err)
			}
		}
		if i := strings.Index(u.Path, "/metric/"); i >= 0 {
			metricKey = u.Path[i+len("/metric/"):]
		}
		rawQuery = u.RawQuery
	} else {
		rawQuery = strings.TrimPrefix(raw, "?")
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return State{}, fmt.Errorf("invalid plot query: %w", err)
	}

	s := New(values.Get("experiment"), metricKey, nil)
	if err := decodeJSON(values, "runs", &s.RunIDs); err != nil {
		return State{}, err
	}
	if values.Has("plot_metric_keys") {
		s.SelectedMetricKeys = nil
		if err := decodeJSON(values, "plot_metric_keys", &s.SelectedMetricKeys); err != nil {
			return State{}, err
		}
	}
	if err := decodeJSON(values, "plot_layout", &s.Layout); err != nil {
		return State{}, err
	}
	if err := decodeJSON(values, "selected_run_ids", &s.SelectedRunIDs); err != nil {
		return State{}, err
	}
	if v := values.Get("x_axis"); v != "" {
		if s.XAxis, err = ParseXAxis(v); err != nil {
			return State{}, err
		}
	}
	s.YAxisLogScale = values.Get("y_axis_scale") == "log"
	s.ShowPoint = values.Get("show_point") == "true"
	if v := values.Get("line_smoothing"); v != "" {
		if s.LineSmoothness, err = strconv.ParseFloat(v, 64); err != nil {
			return State{}, fmt.Errorf("invalid line_smoothing %q: %w", v, err)
		}
	}
	if s.RunIDs == nil {
		s.RunIDs = []string{}
	}
	if s.SelectedMetricKeys == nil {
		s.SelectedMetricKeys = []string{}
	}
	if s.SelectedRunIDs == nil {
		s.SelectedRunIDs = []string{}
	}
	return s, nil
}

func decodeJSON(values url.Values, key string, into any) error {
	v := values.Get(key)
	if v == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(v), into); err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	return nil
}
