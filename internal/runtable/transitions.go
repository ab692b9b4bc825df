package runtable

import (
	"github.com/imishinist/mlflow-runs/internal/keyfilter"
	"github.com/imishinist/mlflow-runs/internal/models"
	"github.com/imishinist/mlflow-runs/internal/search"
	"github.com/imishinist/mlflow-runs/internal/viewstate"
	"github.com/imishinist/mlflow-runs/internal/viewutil"
)

// SortBy handles a click on a column header: the current sort column flips
// direction, any other column becomes the sort column, descending.
func (c *Controller) SortBy(isMetric, isParam bool, key string) {
	ascending := false
	if c.view.Sort.SameColumn(isMetric, isParam, key) {
		ascending = !c.view.Sort.Ascending
	}
	c.SetSort(isMetric, isParam, key, ascending)
}

// SetSort sorts by a column in an explicit direction.
func (c *Controller) SetSort(isMetric, isParam bool, key string, ascending bool) {
	if isMetric && isParam {
		isParam = false
	}
	c.view.Sort = models.SortState{Key: key, IsMetric: isMetric, IsParam: isParam, Ascending: ascending}
	c.lastCheckboxIndex = -1
	c.recompute()
	c.persist()
}

// Click toggles the checkbox of runID.
func (c *Controller) Click(runID string, mod Modifier) {
	idx := c.indexOf(runID)
	if idx < 0 {
		return
	}
	switch {
	case mod == ModifierShift && c.lastCheckboxIndex >= 0 && c.lastCheckboxIndex < len(c.order):
		c.selectRange(c.lastCheckboxIndex, idx)
	case mod == ModifierCtrl:
		c.toggleWithChildren(runID)
	default:
		c.setSelected(runID, !c.selected[runID])
	}
	c.lastCheckboxIndex = idx
	c.persist()
}

// selectRange applies one state to every row between the anchor and idx.
// A selected anchor deselects the range; an unselected anchor selects it.
func (c *Controller) selectRange(anchor, idx int) {
	selectRange := !c.selected[c.order[anchor]]
	lo, hi := anchor, idx
	if lo > hi {
		lo, hi = hi, lo
	}
	for i := lo; i <= hi; i++ {
		c.setSelected(c.order[i], selectRange)
	}
}

func (c *Controller) toggleWithChildren(runID string) {
	next := !c.selected[runID]
	batch := []string{runID}
	for _, child := range c.runs.Children[runID] {
		if c.indexOf(child) >= 0 {
			batch = append(batch, child)
		}
	}
	for _, id := range batch {
		c.setSelected(id, next)
	}
}

func (c *Controller) setSelected(runID string, selected bool) {
	if selected {
		c.selected[runID] = true
	} else {
		delete(c.selected, runID)
	}
}

// IsSelected reports whether runID's checkbox is checked.
func (c *Controller) IsSelected(runID string) bool { return c.selected[runID] }

// Selected returns the selected run ids in display order.
func (c *Controller) Selected() []string {
	out := make([]string, 0, len(c.selected))
	for _, id := range c.order {
		if c.selected[id] {
			out = append(out, id)
		}
	}
	return out
}

// IsAllChecked reports whether every displayed run is selected.
func (c *Controller) IsAllChecked() bool {
	return len(c.order) > 0 && len(c.selected) == len(c.order)
}

// CheckAll selects every displayed run, or clears the selection when all
// are already selected.
func (c *Controller) CheckAll() {
	if c.IsAllChecked() {
		c.selected = map[string]bool{}
	} else {
		for _, id := range c.order {
			c.selected[id] = true
		}
	}
	c.persist()
}

// ToggleExpand opens or closes the expander of runID. Closing it hides the
// direct children and removes them from the selection.
func (c *Controller) ToggleExpand(runID string) {
	open := !viewutil.IsExpanderOpen(c.view.RunsExpanded, runID)
	if c.view.RunsExpanded == nil {
		c.view.RunsExpanded = map[string]bool{}
	}
	if c.view.RunsHiddenByExpander == nil {
		c.view.RunsHiddenByExpander = map[string]bool{}
	}
	c.view.RunsExpanded[runID] = open
	for _, child := range c.runs.Children[runID] {
		c.view.RunsHiddenByExpander[child] = !open
		if !open {
			delete(c.selected, child)
		}
	}
	c.lastCheckboxIndex = -1
	c.recompute()
	c.persist()
}

// Bag collapses a column into the shared summary cell.
func (c *Controller) Bag(isParam bool, key string) {
	viewstate.AddBagged(&c.view, isParam, key)
	c.persist()
}

// Unbag splits a column out of the summary cell into its own column.
func (c *Controller) Unbag(isParam bool, key string) {
	viewstate.RemoveBagged(&c.view, isParam, key)
	c.persist()
}

// UnbaggedKeys returns the split-out columns of one kind.
func (c *Controller) UnbaggedKeys(isParam bool) []string {
	if isParam {
		return append([]string(nil), c.view.UnbaggedParams...)
	}
	return append([]string(nil), c.view.UnbaggedMetrics...)
}

// ShowBaggedColumn reports whether the summary column of one kind is shown.
func (c *Controller) ShowBaggedColumn(isParam bool) bool {
	if isParam {
		return viewutil.ShouldShowBaggedColumn(c.view.UnbaggedParams, c.ParamKeys())
	}
	return viewutil.ShouldShowBaggedColumn(c.view.UnbaggedMetrics, c.MetricKeys())
}

// BaggedKeys returns the keys runID shows inside the summary cell of one kind.
func (c *Controller) BaggedKeys(runID string, isParam bool) []string {
	if isParam {
		params := c.runs.Params[runID]
		return viewutil.BaggedKeys(c.ParamKeys(), c.view.UnbaggedParams, func(k string) bool {
			_, ok := params[k]
			return ok
		})
	}
	metrics := c.runs.Metrics[runID]
	return viewutil.BaggedKeys(c.MetricKeys(), c.view.UnbaggedMetrics, func(k string) bool {
		_, ok := metrics[k]
		return ok
	})
}

// SetShowMultiColumns switches between the grid and the compact view.
func (c *Controller) SetShowMultiColumns(show bool) {
	c.view.ShowMultiColumns = show
	c.persist()
}

// SetParamFilterInput records a keystroke in the param filter field.
func (c *Controller) SetParamFilterInput(s string) { c.paramFilterInput = s }

// SetMetricFilterInput records a keystroke in the metric filter field.
func (c *Controller) SetMetricFilterInput(s string) { c.metricFilterInput = s }

// SetSearchInput records a keystroke in the search field.
func (c *Controller) SetSearchInput(s string) { c.searchInput = s }

// SetLifecycleFilter switches between active and deleted runs and searches
// right away. The stage is kept only when the search input parses.
func (c *Controller) SetLifecycleFilter(stage models.LifecycleStage) (SearchRequest, error) {
	prev := c.lifecycle
	c.lifecycle = stage
	req, err := c.Search()
	if err != nil {
		c.lifecycle = prev
	}
	return req, err
}

// Search commits the current inputs. A malformed search input leaves the
// displayed runs alone and is reported through SearchError.
func (c *Controller) Search() (SearchRequest, error) {
	clauses, err := search.Parse(c.searchInput)
	if err != nil {
		c.searchErr = err.Error()
		c.persist()
		return SearchRequest{}, err
	}
	c.searchErr = ""
	c.paramFilter = keyfilter.New(c.paramFilterInput)
	c.metricFilter = keyfilter.New(c.metricFilterInput)
	c.paramFilterInput = c.paramFilter.FilterString()
	c.metricFilterInput = c.metricFilter.FilterString()

	c.persister.SavePage(models.PageState{
		ParamKeyFilterString:  c.paramFilterInput,
		MetricKeyFilterString: c.metricFilterInput,
		SearchInput:           c.searchInput,
	})
	c.persist()
	return SearchRequest{
		ParamKeyFilter:  c.paramFilter,
		MetricKeyFilter: c.metricFilter,
		SearchInput:     c.searchInput,
		Clauses:         clauses,
		Lifecycle:       c.lifecycle,
	}, nil
}

// Clear resets the view to its defaults, keeping the display mode, and
// returns the search for every active run.
func (c *Controller) Clear() SearchRequest {
	showMulti := c.view.ShowMultiColumns
	c.view = models.DefaultViewState()
	c.view.ShowMultiColumns = showMulti
	c.selected = map[string]bool{}
	c.lastCheckboxIndex = -1
	c.paramFilterInput, c.metricFilterInput, c.searchInput = "", "", ""
	c.paramFilter, c.metricFilter = keyfilter.KeyFilter{}, keyfilter.KeyFilter{}
	c.lifecycle = models.LifecycleActive
	c.searchErr = ""
	c.recompute()
	c.persister.SavePage(models.PageState{})
	c.persist()
	return SearchRequest{Lifecycle: models.LifecycleActive}
}
