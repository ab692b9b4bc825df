package viewutil

import (
	"sort"

	"github.com/imishinist/mlflow-runs/internal/models"
)

// DefaultExpanded is the expander state of a parent run the user never
// toggled.
const DefaultExpanded = true

// RowMetadata describes one displayed row of the run table.
type RowMetadata struct {
	RunID        string
	IsParent     bool
	HasExpander  bool
	ExpanderOpen bool
	ChildrenIDs  []string
	Depth        int
}

type RowInput struct {
	Runs         *models.RunSet
	Sort         models.SortState
	RunsExpanded map[string]bool
}

// IsExpanderOpen reports the expander state of runID, defaulting to open.
func IsExpanderOpen(runsExpanded map[string]bool, runID string) bool {
	if open, ok := runsExpanded[runID]; ok {
		return open
	}
	return DefaultExpanded
}

// GetRowRenderMetadata flattens the run tree into display rows. Root runs
// (no parent, or a parent outside the set) are sorted by the sort column
// with run id as the final tiebreaker; children follow their parent and are
// sorted only among their siblings. Children of a collapsed parent are left
// out.
func GetRowRenderMetadata(in RowInput) []RowMetadata {
	runs := in.Runs
	if runs == nil || runs.Len() == 0 {
		return nil
	}

	values := make(map[string]SortValue, runs.Len())
	for _, id := range runs.Order {
		values[id] = ComputeSortValue(in.Sort, runs.Metrics[id], runs.Params[id], runs.Infos[id], runs.Tags[id])
	}
	order := func(ids []string) []string {
		sorted := append([]string(nil), ids...)
		sort.SliceStable(sorted, func(i, j int) bool {
			a, b := sorted[i], sorted[j]
			c := CompareSortValues(values[a], values[b])
			if !in.Sort.Ascending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
			return a < b
		})
		return sorted
	}

	var roots []string
	for _, id := range runs.Order {
		parent := runs.Infos[id].ParentRunID
		if parent == "" || parent == id || !runs.Has(parent) {
			roots = append(roots, id)
		}
	}

	rows := make([]RowMetadata, 0, runs.Len())
	visited := make(map[string]bool, runs.Len())
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if visited[id] {
			return
		}
		visited[id] = true
		children := runs.Children[id]
		open := IsExpanderOpen(in.RunsExpanded, id)
		rows = append(rows, RowMetadata{
			RunID:        id,
			IsParent:     depth == 0,
			HasExpander:  len(children) > 0,
			ExpanderOpen: open,
			ChildrenIDs:  append([]string(nil), children...),
			Depth:        depth,
		})
		if !open {
			for _, child := range children {
				markHidden(runs, child, visited)
			}
			return
		}
		for _, child := range order(children) {
			walk(child, depth+1)
		}
	}
	for _, id := range order(roots) {
		walk(id, 0)
	}

	// Runs caught in a parent cycle are unreachable from any root; show them
	// at the top level instead of dropping them.
	var orphans []string
	for _, id := range runs.Order {
		if !visited[id] {
			orphans = append(orphans, id)
		}
	}
	for _, id := range order(orphans) {
		walk(id, 0)
	}
	return rows
}

func markHidden(runs *models.RunSet, id string, visited map[string]bool) {
	if visited[id] {
		return
	}
	visited[id] = true
	for _, child := range runs.Children[id] {
		markHidden(runs, child, visited)
	}
}

// RunIDsSortedByDisplayOrder returns the run ids of rows in display order;
// range selection indexes into this slice.
func RunIDsSortedByDisplayOrder(rows []RowMetadata) []string {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.RunID
	}
	return ids
}
