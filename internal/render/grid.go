// Package render lays out the run table for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/imishinist/mlflow-runs/internal/csvexport"
	"github.com/imishinist/mlflow-runs/internal/models"
	"github.com/imishinist/mlflow-runs/internal/runtable"
	timeutils "github.com/imishinist/mlflow-runs/internal/time"
	"github.com/imishinist/mlflow-runs/internal/viewutil"
)

type ColumnKind int

const (
	ColumnInfo ColumnKind = iota
	ColumnParam
	ColumnMetric
	// ColumnBaggedParams and ColumnBaggedMetrics hold every key of their kind
	// that has not been split out.
	ColumnBaggedParams
	ColumnBaggedMetrics
)

// Column is one header of the table.
type Column struct {
	Title string
	Kind  ColumnKind
	// Key is the sort key of info columns and the param or metric key
	// otherwise. Bagged columns have none.
	Key string
}

func (c Column) IsParam() bool  { return c.Kind == ColumnParam }
func (c Column) IsMetric() bool { return c.Kind == ColumnMetric }

// Sortable reports whether clicking the header sorts the table.
func (c Column) Sortable() bool {
	return c.Key != "" && c.Kind != ColumnBaggedParams && c.Kind != ColumnBaggedMetrics
}

var infoColumns = []Column{
	{Title: "Date", Kind: ColumnInfo, Key: models.SortKeyStartTime},
	{Title: "Duration", Kind: ColumnInfo},
	{Title: "User", Kind: ColumnInfo, Key: models.SortKeyUser},
	{Title: "Run Name", Kind: ColumnInfo, Key: models.SortKeyRunName},
	{Title: "Source", Kind: ColumnInfo, Key: models.SortKeySource},
	{Title: "Version", Kind: ColumnInfo, Key: models.SortKeySourceVersion},
}

// Grid is the table content before styling. Cells line up with Columns;
// the first two cells of every row are the checkbox and the expander.
type Grid struct {
	Columns []Column
	Rows    [][]string
	RunIDs  []string
	// Heat holds the normalized metric value of metric cells, keyed by row
	// and column index.
	Heat map[[2]int]float64

	Sort models.SortState
}

// PrefixColumns is the number of cells before Columns in each row.
const PrefixColumns = 2

// BuildGrid lays out the controller's rows in its current display mode.
func BuildGrid(c *runtable.Controller) Grid {
	view := c.View()
	g := Grid{Sort: view.Sort, Heat: map[[2]int]float64{}}
	g.Columns = append(g.Columns, infoColumns...)

	paramKeys, metricKeys := c.ParamKeys(), c.MetricKeys()
	if view.ShowMultiColumns {
		for _, k := range paramKeys {
			g.Columns = append(g.Columns, Column{Title: k, Kind: ColumnParam, Key: k})
		}
		for _, k := range metricKeys {
			g.Columns = append(g.Columns, Column{Title: k, Kind: ColumnMetric, Key: k})
		}
	} else {
		for _, k := range c.UnbaggedKeys(true) {
			g.Columns = append(g.Columns, Column{Title: k, Kind: ColumnParam, Key: k})
		}
		if c.ShowBaggedColumn(true) {
			g.Columns = append(g.Columns, Column{Title: "Parameters", Kind: ColumnBaggedParams})
		}
		for _, k := range c.UnbaggedKeys(false) {
			g.Columns = append(g.Columns, Column{Title: k, Kind: ColumnMetric, Key: k})
		}
		if c.ShowBaggedColumn(false) {
			g.Columns = append(g.Columns, Column{Title: "Metrics", Kind: ColumnBaggedMetrics})
		}
	}

	runs := c.Runs()
	ranges := c.MetricRanges()
	for _, meta := range c.Rows() {
		id := meta.RunID
		info := runs.Infos[id]
		tags := runs.Tags[id]
		params := runs.Params[id]
		metrics := runs.Metrics[id]

		row := []string{checkbox(c.IsSelected(id)), expander(meta)}
		for _, col := range g.Columns {
			switch col.Kind {
			case ColumnInfo:
				row = append(row, infoCell(col, meta, info, tags))
			case ColumnParam:
				row = append(row, params[col.Key].Value)
			case ColumnMetric:
				m, ok := metrics[col.Key]
				if !ok {
					row = append(row, "")
					continue
				}
				g.Heat[[2]int{len(g.Rows), len(row)}] = ranges[col.Key].Normalize(m.Value)
				row = append(row, csvexport.FormatMetric(m.Value))
			case ColumnBaggedParams:
				row = append(row, baggedCell(c.BaggedKeys(id, true), func(k string) string { return params[k].Value }))
			case ColumnBaggedMetrics:
				row = append(row, baggedCell(c.BaggedKeys(id, false), func(k string) string {
					return csvexport.FormatMetric(metrics[k].Value)
				}))
			}
		}
		g.Rows = append(g.Rows, row)
		g.RunIDs = append(g.RunIDs, id)
	}
	return g
}

func checkbox(selected bool) string {
	if selected {
		return "[x]"
	}
	return "[ ]"
}

func expander(meta viewutil.RowMetadata) string {
	switch {
	case !meta.HasExpander:
		return ""
	case meta.ExpanderOpen:
		return "▾"
	default:
		return "▸"
	}
}

func infoCell(col Column, meta viewutil.RowMetadata, info models.RunRecord, tags map[string]string) string {
	switch col.Title {
	case "Date":
		return timeutils.FormatMillis(info.StartTime)
	case "Duration":
		return timeutils.FormatDuration(info.StartTime, info.EndTime)
	case "User":
		if u := tags[models.TagUser]; u != "" {
			return u
		}
		return info.UserID
	case "Run Name":
		return strings.Repeat("  ", meta.Depth) + viewutil.RunDisplayName(info, tags)
	case "Source":
		if s := tags[models.TagSourceName]; s != "" {
			return s
		}
		return info.SourceName
	case "Version":
		v := info.SourceVersion
		if v == "" {
			v = tags[models.TagSourceVersion]
		}
		if len(v) > 6 {
			v = v[:6]
		}
		return v
	}
	return ""
}

func baggedCell(keys []string, value func(string) string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, value(k)))
	}
	return strings.Join(parts, ", ")
}

// Headers returns the header titles with the sort direction marked on the
// sorted column.
func (g Grid) Headers() []string {
	headers := []string{"", ""}
	for _, col := range g.Columns {
		title := col.Title
		if col.Sortable() && g.Sort.SameColumn(col.IsMetric(), col.IsParam(), col.Key) {
			if g.Sort.Ascending {
				title += " ↑"
			} else {
				title += " ↓"
			}
		}
		headers = append(headers, title)
	}
	return headers
}
