// Package runtable holds the state machine behind the experiment run table:
// sort, selection, expansion, column bagging, display mode and the search
// inputs. It is independent of how the table is drawn.
package runtable

import (
	"github.com/imishinist/mlflow-runs/internal/keyfilter"
	"github.com/imishinist/mlflow-runs/internal/models"
	"github.com/imishinist/mlflow-runs/internal/search"
	"github.com/imishinist/mlflow-runs/internal/viewstate"
	"github.com/imishinist/mlflow-runs/internal/viewutil"
)

// Modifier is the keyboard modifier held during a checkbox click.
type Modifier int

const (
	ModifierNone Modifier = iota
	// ModifierShift selects or deselects the range from the last clicked row.
	ModifierShift
	// ModifierCtrl also applies the toggle to the run's direct children.
	ModifierCtrl
)

// SearchRequest is what a committed search asks the backend for.
type SearchRequest struct {
	ParamKeyFilter  keyfilter.KeyFilter
	MetricKeyFilter keyfilter.KeyFilter
	SearchInput     string
	Clauses         []search.Clause
	Lifecycle       models.LifecycleStage
}

// Filter returns the server-side filter string of the request.
func (r SearchRequest) Filter() string {
	return search.FilterString(r.Clauses)
}

// Refine drops the runs of a search result that don't satisfy the request's
// clauses. Tracking servers differ in which filter terms they honor.
func (r SearchRequest) Refine(set *models.RunSet) *models.RunSet {
	if set == nil || len(r.Clauses) == 0 {
		return set
	}
	return set.Subset(search.FilterRuns(set, r.Clauses))
}

// Controller owns the run table state. Every committing action is persisted
// right away; typing into the filter and search inputs is not.
type Controller struct {
	persister *viewstate.Persister
	view      models.ViewState

	runs   *models.RunSet
	rows   []viewutil.RowMetadata
	order  []string
	ranges map[string]viewutil.Range

	selected map[string]bool
	// lastCheckboxIndex is the display index of the last clicked checkbox,
	// or -1. It anchors shift-click range selection.
	lastCheckboxIndex int

	paramFilter  keyfilter.KeyFilter
	metricFilter keyfilter.KeyFilter
	lifecycle    models.LifecycleStage

	paramFilterInput  string
	metricFilterInput string
	searchInput       string
	searchErr         string
}

// New restores the persisted view and page state of the persister's scope.
// A nil persister keeps everything in memory.
func New(persister *viewstate.Persister) *Controller {
	view := models.DefaultViewState()
	var page models.PageState
	if persister != nil {
		view = persister.LoadView()
		page = persister.LoadPage()
	}
	c := &Controller{
		persister:         persister,
		view:              view,
		runs:              models.NewRunSet(),
		selected:          map[string]bool{},
		lastCheckboxIndex: -1,
		lifecycle:         models.LifecycleActive,
		paramFilter:       keyfilter.New(page.ParamKeyFilterString),
		metricFilter:      keyfilter.New(page.MetricKeyFilterString),
		searchInput:       page.SearchInput,
	}
	c.paramFilterInput = c.paramFilter.FilterString()
	c.metricFilterInput = c.metricFilter.FilterString()
	c.recompute()
	return c
}

func (c *Controller) persist() {
	c.persister.SaveView(c.view)
}

// SetRuns replaces the table data. Runs that are no longer displayed drop
// out of the selection.
func (c *Controller) SetRuns(runs *models.RunSet) {
	if runs == nil {
		runs = models.NewRunSet()
	}
	c.runs = runs
	c.lastCheckboxIndex = -1
	c.recompute()
}

func (c *Controller) recompute() {
	c.rows = viewutil.GetRowRenderMetadata(viewutil.RowInput{
		Runs:         c.runs,
		Sort:         c.view.Sort,
		RunsExpanded: c.view.RunsExpanded,
	})
	c.order = viewutil.RunIDsSortedByDisplayOrder(c.rows)
	c.ranges = viewutil.ComputeMetricRanges(c.runs.Metrics)
	c.pruneSelection()
}

func (c *Controller) pruneSelection() {
	displayed := make(map[string]bool, len(c.order))
	for _, id := range c.order {
		displayed[id] = true
	}
	for id := range c.selected {
		if !displayed[id] {
			delete(c.selected, id)
		}
	}
}

func (c *Controller) indexOf(runID string) int {
	for i, id := range c.order {
		if id == runID {
			return i
		}
	}
	return -1
}

// View returns a copy of the persisted view state.
func (c *Controller) View() models.ViewState { return c.view.Clone() }

func (c *Controller) Runs() *models.RunSet { return c.runs }

func (c *Controller) Rows() []viewutil.RowMetadata { return c.rows }

// DisplayOrder returns run ids in the order they are displayed.
func (c *Controller) DisplayOrder() []string { return append([]string(nil), c.order...) }

func (c *Controller) MetricRanges() map[string]viewutil.Range { return c.ranges }

// ParamKeys returns the param columns after the committed param filter.
func (c *Controller) ParamKeys() []string { return c.paramFilter.Apply(c.runs.ParamKeys()) }

// MetricKeys returns the metric columns after the committed metric filter.
func (c *Controller) MetricKeys() []string { return c.metricFilter.Apply(c.runs.MetricKeys()) }

func (c *Controller) LastCheckboxIndex() int { return c.lastCheckboxIndex }

func (c *Controller) Lifecycle() models.LifecycleStage { return c.lifecycle }

func (c *Controller) SearchError() string { return c.searchErr }

func (c *Controller) ParamFilterInput() string  { return c.paramFilterInput }
func (c *Controller) MetricFilterInput() string { return c.metricFilterInput }
func (c *Controller) SearchInput() string       { return c.searchInput }
