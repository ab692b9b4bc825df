// Package tui is the interactive run browser.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/imishinist/mlflow-runs/internal/models"
	"github.com/imishinist/mlflow-runs/internal/plotstate"
	"github.com/imishinist/mlflow-runs/internal/render"
	"github.com/imishinist/mlflow-runs/internal/runtable"
	"github.com/imishinist/mlflow-runs/internal/viewstate"
)

// Fetcher loads the runs of an experiment.
type Fetcher interface {
	SearchRuns(ctx context.Context, experimentID, filter string, lifecycle models.LifecycleStage) (*models.RunSet, error)
}

// RunsMsg delivers the result of a run search.
type RunsMsg struct {
	Runs *models.RunSet
	Err  error
}

// LegendMsg reports a resolved legend click.
type LegendMsg struct {
	RunID  string
	Double bool
}

type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputParams
	inputMetrics
)

type Model struct {
	ctx          context.Context
	ctrl         *runtable.Controller
	fetcher      Fetcher
	experimentID string
	logger       zerolog.Logger

	grid      render.Grid
	cursorRow int
	cursorCol int

	mode  inputMode
	input textinput.Model
	help  help.Model

	plot    plotstate.State
	clicker *plotstate.LegendClicker
	legend  chan LegendMsg

	loading bool
	status  string
	err     error

	width, height int
}

type Option func(*Model)

// WithScheduler sets the clock of the legend double-click detection.
func WithScheduler(s plotstate.Scheduler) Option {
	return func(m *Model) {
		m.clicker = plotstate.NewLegendClicker(s, m.onLegendClick, m.onLegendDoubleClick)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

func New(ctrl *runtable.Controller, fetcher Fetcher, experimentID string, opts ...Option) *Model {
	input := textinput.New()
	input.Prompt = "> "

	m := &Model{
		ctx:          context.Background(),
		ctrl:         ctrl,
		fetcher:      fetcher,
		experimentID: experimentID,
		logger:       zerolog.Nop(),
		input:        input,
		help:         help.New(),
		plot:         plotstate.New(experimentID, "", nil),
		legend:       make(chan LegendMsg, 16),
	}
	m.clicker = plotstate.NewLegendClicker(nil, m.onLegendClick, m.onLegendDoubleClick)
	for _, opt := range opts {
		opt(m)
	}
	m.refresh()
	return m
}

func (m *Model) onLegendClick(runID string) {
	m.sendLegend(LegendMsg{RunID: runID})
}

func (m *Model) onLegendDoubleClick(runID string) {
	m.sendLegend(LegendMsg{RunID: runID, Double: true})
}

// sendLegend never blocks the timer goroutine; a full queue drops the click.
func (m *Model) sendLegend(msg LegendMsg) {
	select {
	case m.legend <- msg:
	default:
		m.logger.Debug().Str("run", msg.RunID).Msg("legend queue full, dropping click")
	}
}

func (m *Model) waitLegend() tea.Cmd {
	ch := m.legend
	return func() tea.Msg {
		return <-ch
	}
}

func (m *Model) Init() tea.Cmd {
	req, err := m.ctrl.Search()
	if err != nil {
		req = runtable.SearchRequest{Lifecycle: m.ctrl.Lifecycle()}
	}
	return tea.Batch(m.fetch(req), m.waitLegend())
}

func (m *Model) fetch(req runtable.SearchRequest) tea.Cmd {
	if m.fetcher == nil {
		return nil
	}
	m.loading = true
	ctx, fetcher, experimentID := m.ctx, m.fetcher, m.experimentID
	filter := req.Filter()
	m.logger.Debug().Str("filter", filter).Str("lifecycle", string(req.Lifecycle)).Msg("fetching runs")
	return func() tea.Msg {
		set, err := fetcher.SearchRuns(ctx, experimentID, filter, req.Lifecycle)
		if err != nil {
			return RunsMsg{Err: err}
		}
		return RunsMsg{Runs: req.Refine(set)}
	}
}

// refresh rebuilds the grid and keeps the cursor inside it.
func (m *Model) refresh() {
	m.grid = render.BuildGrid(m.ctrl)
	m.cursorRow = clamp(m.cursorRow, len(m.grid.RunIDs))
	m.cursorCol = clamp(m.cursorCol, len(m.grid.Columns))
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RunsMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.ctrl.SetRuns(msg.Runs)
		m.refresh()
		return m, nil
	case LegendMsg:
		if msg.Double {
			m.plot = m.plot.OnlyRun(msg.RunID)
		} else {
			m.plot = m.plot.ToggleRun(msg.RunID)
		}
		m.status = fmt.Sprintf("plot highlights %d run(s)", len(m.plot.SelectedRunIDs))
		return m, m.waitLegend()
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(10, msg.Width-4)
		return m, nil
	case tea.KeyMsg:
		if m.mode != inputNone {
			return m, m.handleInputKey(msg)
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Commit):
		m.stopEditing()
		return m.search()
	case key.Matches(msg, keys.Cancel):
		m.stopEditing()
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	switch m.mode {
	case inputSearch:
		m.ctrl.SetSearchInput(m.input.Value())
	case inputParams:
		m.ctrl.SetParamFilterInput(m.input.Value())
	case inputMetrics:
		m.ctrl.SetMetricFilterInput(m.input.Value())
	}
	return cmd
}

func (m *Model) startEditing(mode inputMode) tea.Cmd {
	m.mode = mode
	switch mode {
	case inputSearch:
		m.input.Placeholder = "metrics.rmse < 1 and params.model = 'tree'"
		m.input.SetValue(m.ctrl.SearchInput())
	case inputParams:
		m.input.Placeholder = "alpha, lr"
		m.input.SetValue(m.ctrl.ParamFilterInput())
	case inputMetrics:
		m.input.Placeholder = "rmse, r2"
		m.input.SetValue(m.ctrl.MetricFilterInput())
	}
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) stopEditing() {
	m.mode = inputNone
	m.input.Blur()
}

// IsEditing reports whether a filter or search field has focus.
func (m *Model) IsEditing() bool { return m.mode != inputNone }

func (m *Model) search() tea.Cmd {
	req, err := m.ctrl.Search()
	m.refresh()
	if err != nil {
		return nil
	}
	return m.fetch(req)
}

func (m *Model) currentRun() (string, bool) {
	if len(m.grid.RunIDs) == 0 {
		return "", false
	}
	return m.grid.RunIDs[m.cursorRow], true
}

func (m *Model) currentColumn() (render.Column, bool) {
	if len(m.grid.Columns) == 0 {
		return render.Column{}, false
	}
	return m.grid.Columns[m.cursorCol], true
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.status = ""
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, keys.Up):
		m.cursorRow = clamp(m.cursorRow-1, len(m.grid.RunIDs))
	case key.Matches(msg, keys.Down):
		m.cursorRow = clamp(m.cursorRow+1, len(m.grid.RunIDs))
	case key.Matches(msg, keys.Left):
		m.cursorCol = clamp(m.cursorCol-1, len(m.grid.Columns))
	case key.Matches(msg, keys.Right):
		m.cursorCol = clamp(m.cursorCol+1, len(m.grid.Columns))
	case key.Matches(msg, keys.Select):
		m.click(runtable.ModifierNone)
	case key.Matches(msg, keys.Range):
		m.click(runtable.ModifierShift)
	case key.Matches(msg, keys.Family):
		m.click(runtable.ModifierCtrl)
	case key.Matches(msg, keys.All):
		m.ctrl.CheckAll()
	case key.Matches(msg, keys.Expand):
		if id, ok := m.currentRun(); ok {
			m.ctrl.ToggleExpand(id)
		}
	case key.Matches(msg, keys.Sort):
		if col, ok := m.currentColumn(); ok && col.Sortable() {
			m.ctrl.SortBy(col.IsMetric(), col.IsParam(), col.Key)
		}
	case key.Matches(msg, keys.Bag):
		m.toggleBag()
	case key.Matches(msg, keys.Mode):
		m.ctrl.SetShowMultiColumns(!m.ctrl.View().ShowMultiColumns)
	case key.Matches(msg, keys.Search):
		return m.startEditing(inputSearch)
	case key.Matches(msg, keys.Params):
		return m.startEditing(inputParams)
	case key.Matches(msg, keys.Metrics):
		return m.startEditing(inputMetrics)
	case key.Matches(msg, keys.Deleted):
		next := models.LifecycleDeleted
		if m.ctrl.Lifecycle() == models.LifecycleDeleted {
			next = models.LifecycleActive
		}
		req, err := m.ctrl.SetLifecycleFilter(next)
		m.refresh()
		if err != nil {
			return nil
		}
		return m.fetch(req)
	case key.Matches(msg, keys.Clear):
		req := m.ctrl.Clear()
		m.refresh()
		return m.fetch(req)
	case key.Matches(msg, keys.Legend):
		if id, ok := m.currentRun(); ok {
			m.clicker.Click(id)
		}
	case key.Matches(msg, keys.PlotURL):
		route, err := m.PlotRoute()
		if err != nil {
			m.err = err
		} else {
			m.status = route
		}
	}
	m.refresh()
	return nil
}

func (m *Model) click(mod runtable.Modifier) {
	if id, ok := m.currentRun(); ok {
		m.ctrl.Click(id, mod)
	}
}

func (m *Model) toggleBag() {
	col, ok := m.currentColumn()
	if !ok || (!col.IsParam() && !col.IsMetric()) {
		return
	}
	isParam := col.IsParam()
	if viewstate.IsUnbagged(m.ctrl.View(), isParam, col.Key) {
		m.ctrl.Bag(isParam, col.Key)
		return
	}
	m.ctrl.Unbag(isParam, col.Key)
}

// PlotRoute links the plot of the metric under the cursor, or the first
// metric, for the selected runs or every displayed run.
func (m *Model) PlotRoute() (string, error) {
	metricKey := ""
	if col, ok := m.currentColumn(); ok && col.IsMetric() {
		metricKey = col.Key
	} else if metricKeys := m.ctrl.MetricKeys(); len(metricKeys) > 0 {
		metricKey = metricKeys[0]
	}
	if metricKey == "" {
		return "", fmt.Errorf("no metric to plot")
	}
	runIDs := m.ctrl.Selected()
	if len(runIDs) == 0 {
		runIDs = m.ctrl.DisplayOrder()
	}
	state := plotstate.New(m.experimentID, metricKey, runIDs)
	state.SelectedRunIDs = append(state.SelectedRunIDs, m.plot.SelectedRunIDs...)
	return plotstate.Route(state)
}

// PlotState returns the legend highlight state.
func (m *Model) PlotState() plotstate.State { return m.plot }

// Cursor returns the focused row's run id and the focused column.
func (m *Model) Cursor() (string, render.Column) {
	id, _ := m.currentRun()
	col, _ := m.currentColumn()
	return id, col
}

func (m *Model) Status() string { return m.status }

func (m *Model) Err() error { return m.err }

func (m *Model) Loading() bool { return m.loading }
