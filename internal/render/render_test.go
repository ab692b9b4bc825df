package render_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imishinist/mlflow-runs/internal/models"
	"github.com/imishinist/mlflow-runs/internal/render"
	"github.com/imishinist/mlflow-runs/internal/runtable"
)

func controller() *runtable.Controller {
	set := models.NewRunSet()
	set.Add(models.RunRecord{RunID: "p", StartTime: 2, UserID: "alice", SourceVersion: "abcdef123"},
		[]models.Param{{Key: "alpha", Value: "0.1"}, {Key: "lr", Value: "0.01"}},
		[]models.Metric{{Key: "acc", Value: 0.5}},
		map[string]string{models.TagRunName: "parent"})
	set.Add(models.RunRecord{RunID: "c", StartTime: 1},
		[]models.Param{{Key: "alpha", Value: "0.2"}},
		[]models.Metric{{Key: "acc", Value: 0.9}},
		map[string]string{models.TagParentRunID: "p"})
	c := runtable.New(nil)
	c.SetRuns(set)
	return c
}

func titles(g render.Grid) []string {
	var out []string
	for _, col := range g.Columns {
		out = append(out, col.Title)
	}
	return out
}

func TestBuildGrid_MultiColumn(t *testing.T) {
	c := controller()
	c.Click("c", runtable.ModifierNone)
	g := render.BuildGrid(c)

	require.Equal(t, []string{"Date", "Duration", "User", "Run Name", "Source", "Version", "alpha", "lr", "acc"}, titles(g))
	require.Equal(t, []string{"p", "c"}, g.RunIDs)

	require.Equal(t, "[ ]", g.Rows[0][0])
	require.Equal(t, "▾", g.Rows[0][1])
	require.Equal(t, "alice", g.Rows[0][4])
	require.Equal(t, "parent", g.Rows[0][5])
	require.Equal(t, "abcdef", g.Rows[0][7])
	require.Equal(t, "0.01", g.Rows[0][9])

	require.Equal(t, "[x]", g.Rows[1][0])
	require.Equal(t, "", g.Rows[1][1])
	require.Equal(t, "  Run c", g.Rows[1][5])
	require.Equal(t, "", g.Rows[1][9])
	require.Equal(t, "0.9", g.Rows[1][10])

	require.Equal(t, 0.0, g.Heat[[2]int{0, 10}])
	require.Equal(t, 1.0, g.Heat[[2]int{1, 10}])
}

func TestBuildGrid_Compact(t *testing.T) {
	c := controller()
	c.SetShowMultiColumns(false)
	c.Unbag(true, "alpha")
	g := render.BuildGrid(c)

	require.Equal(t, []string{"Date", "Duration", "User", "Run Name", "Source", "Version", "alpha", "Parameters", "Metrics"}, titles(g))
	require.Equal(t, "0.1", g.Rows[0][8])
	require.Equal(t, "lr: 0.01", g.Rows[0][9])
	require.Equal(t, "acc: 0.5", g.Rows[0][10])
	require.Equal(t, "", g.Rows[1][9])

	c.Unbag(true, "lr")
	g = render.BuildGrid(c)
	require.NotContains(t, titles(g), "Parameters")
}

func TestHeadersMarkSort(t *testing.T) {
	c := controller()
	g := render.BuildGrid(c)
	require.Equal(t, "Date ↓", g.Headers()[2])

	c.SortBy(true, false, "acc")
	c.SortBy(true, false, "acc")
	g = render.BuildGrid(c)
	headers := g.Headers()
	require.Equal(t, "acc ↑", headers[len(headers)-1])
	require.Equal(t, "Date", headers[2])
}

func TestCollapsedRowsAreHidden(t *testing.T) {
	c := controller()
	c.ToggleExpand("p")
	g := render.BuildGrid(c)
	require.Equal(t, []string{"p"}, g.RunIDs)
	require.Equal(t, "▸", g.Rows[0][1])
}

func TestRender(t *testing.T) {
	out := render.BuildGrid(controller()).String()
	require.True(t, strings.Contains(out, "Run Name"))
	require.True(t, strings.Contains(out, "parent"))
	require.True(t, strings.Contains(out, "0.9"))

	cursor := render.BuildGrid(controller()).Render(render.Cursor{Row: 1, Column: 0})
	require.Contains(t, cursor, "Run c")
}

func projectRun() *models.RunSet {
	set := models.NewRunSet()
	set.Add(models.RunRecord{RunID: "r1", UserID: "alice", Status: models.RunStatusFinished, StartTime: 1000, EndTime: 91000},
		[]models.Param{{Key: "lr", Value: "0.1"}, {Key: "alpha", Value: "a b"}},
		[]models.Metric{{Key: "acc", Value: 0.75}},
		map[string]string{
			models.TagRunName:       "tuned",
			models.TagSourceType:    "PROJECT",
			models.TagSourceName:    "https://github.com/org/proj",
			models.TagSourceVersion: "abc123",
			models.TagEntryPoint:    "train",
		})
	return set
}

func TestRunCommand(t *testing.T) {
	set := projectRun()
	cmd := render.RunCommand(set.Infos["r1"], set.Params["r1"], set.Tags["r1"])
	require.Equal(t, "mlflow run https://github.com/org/proj -v abc123 -e train -P 'alpha=a b' -P lr=0.1", cmd)

	local := models.RunRecord{RunID: "r2", SourceType: "LOCAL"}
	require.Empty(t, render.RunCommand(local, nil, nil))

	latest := models.RunRecord{SourceType: "PROJECT", SourceName: "proj", SourceVersion: "latest"}
	require.Equal(t, "mlflow run proj", render.RunCommand(latest, nil, map[string]string{models.TagEntryPoint: "main"}))
}

func TestRunDetail(t *testing.T) {
	out := render.RunDetail(projectRun(), "r1")
	for _, want := range []string{"tuned", "Git Commit", "abc123", "Entry Point", "train", "alice", "1.5min", "FINISHED", "Run Command", "mlflow run", "Parameters", "alpha", "Metrics", "0.75", "Tags", models.TagSourceType} {
		require.Contains(t, out, want)
	}
	require.Less(t, strings.Index(out, "Parameters"), strings.Index(out, "Metrics"))
	require.Less(t, strings.Index(out, "Metrics"), strings.Index(out, "Tags"))
}
