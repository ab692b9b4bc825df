package viewutil_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imishinist/mlflow-runs/internal/models"
	"github.com/imishinist/mlflow-runs/internal/viewutil"
)

type testRun struct {
	id      string
	parent  string
	start   int64
	metrics map[string]float64
	params  map[string]string
}

func buildRuns(runs ...testRun) *models.RunSet {
	set := models.NewRunSet()
	for _, r := range runs {
		var metrics []models.Metric
		for k, v := range r.metrics {
			metrics = append(metrics, models.Metric{Key: k, Value: v})
		}
		var params []models.Param
		for k, v := range r.params {
			params = append(params, models.Param{Key: k, Value: v})
		}
		tags := map[string]string{}
		if r.parent != "" {
			tags[models.TagParentRunID] = r.parent
		}
		set.Add(models.RunRecord{RunID: r.id, StartTime: r.start}, params, metrics, tags)
	}
	return set
}

func TestComputeSortValue(t *testing.T) {
	metrics := map[string]models.Metric{"acc": {Key: "acc", Value: 0.9}}
	params := map[string]models.Param{"lr": {Key: "lr", Value: "0.1"}}
	info := models.RunRecord{RunID: "r1", UserID: "alice", StartTime: 42}
	tags := map[string]string{models.TagRunName: "baseline", "team": "ml"}

	v := viewutil.ComputeSortValue(models.SortState{Key: "acc", IsMetric: true}, metrics, params, info, tags)
	require.Equal(t, viewutil.NumberValue(0.9), v)

	v = viewutil.ComputeSortValue(models.SortState{Key: "lr", IsParam: true}, metrics, params, info, tags)
	require.Equal(t, viewutil.TextValue("0.1"), v)

	v = viewutil.ComputeSortValue(models.SortState{Key: "missing", IsMetric: true}, metrics, params, info, tags)
	require.False(t, v.IsDefined())

	v = viewutil.ComputeSortValue(models.SortState{Key: models.SortKeyStartTime}, metrics, params, info, tags)
	require.Equal(t, viewutil.NumberValue(42), v)

	v = viewutil.ComputeSortValue(models.SortState{Key: models.SortKeyUser}, metrics, params, info, tags)
	require.Equal(t, viewutil.TextValue("alice"), v)

	v = viewutil.ComputeSortValue(models.SortState{Key: models.SortKeyRunName}, metrics, params, info, tags)
	require.Equal(t, viewutil.TextValue("baseline"), v)

	v = viewutil.ComputeSortValue(models.SortState{Key: "tags.team"}, metrics, params, info, tags)
	require.Equal(t, viewutil.TextValue("ml"), v)

	v = viewutil.ComputeSortValue(models.SortState{Key: models.SortKeyEndTime}, metrics, params, info, tags)
	require.False(t, v.IsDefined(), "unknown end time is undefined")
}

func TestCompareSortValues_UndefinedFirst(t *testing.T) {
	undef := viewutil.SortValue{}
	require.Equal(t, -1, viewutil.CompareSortValues(undef, viewutil.NumberValue(-1e9)))
	require.Equal(t, -1, viewutil.CompareSortValues(undef, viewutil.TextValue("")))
	require.Equal(t, 0, viewutil.CompareSortValues(undef, undef))
	require.Equal(t, -1, viewutil.CompareSortValues(viewutil.NumberValue(1), viewutil.TextValue("a")))
	require.Equal(t, 1, viewutil.CompareSortValues(viewutil.TextValue("b"), viewutil.TextValue("a")))
}

func TestComputeMetricRanges(t *testing.T) {
	ranges := viewutil.ComputeMetricRanges(map[string]map[string]models.Metric{
		"r1": {"acc": {Value: 0.5}, "loss": {Value: 3}},
		"r2": {"acc": {Value: 0.9}},
		"r3": {},
	})
	require.Equal(t, viewutil.Range{Min: 0.5, Max: 0.9}, ranges["acc"])
	require.Equal(t, viewutil.Range{Min: 3, Max: 3}, ranges["loss"])
	require.Len(t, ranges, 2)
	for _, r := range ranges {
		require.LessOrEqual(t, r.Min, r.Max)
	}
	require.Equal(t, 0.0, ranges["loss"].Normalize(3))
	require.InDelta(t, 0.5, ranges["acc"].Normalize(0.7), 1e-9)
}

func TestGetRowRenderMetadata_SortsRootsAndNestsChildren(t *testing.T) {
	runs := buildRuns(
		testRun{id: "p1", metrics: map[string]float64{"acc": 0.5}},
		testRun{id: "p2", metrics: map[string]float64{"acc": 0.9}},
		testRun{id: "c1", parent: "p1", metrics: map[string]float64{"acc": 0.1}},
		testRun{id: "c2", parent: "p1", metrics: map[string]float64{"acc": 0.99}},
		testRun{id: "none"},
	)
	rows := viewutil.GetRowRenderMetadata(viewutil.RowInput{
		Runs: runs,
		Sort: models.SortState{Key: "acc", IsMetric: true},
	})
	require.Equal(t, []string{"p2", "p1", "c2", "c1", "none"}, viewutil.RunIDsSortedByDisplayOrder(rows))

	p1 := rows[1]
	require.True(t, p1.IsParent)
	require.True(t, p1.HasExpander)
	require.True(t, p1.ExpanderOpen)
	require.Equal(t, []string{"c1", "c2"}, p1.ChildrenIDs)
	require.False(t, rows[2].IsParent)
	require.Equal(t, 1, rows[2].Depth)

	rows = viewutil.GetRowRenderMetadata(viewutil.RowInput{
		Runs: runs,
		Sort: models.SortState{Key: "acc", IsMetric: true, Ascending: true},
	})
	require.Equal(t, []string{"none", "p1", "c1", "c2", "p2"}, viewutil.RunIDsSortedByDisplayOrder(rows))
}

func TestGetRowRenderMetadata_CollapsedParentHidesChildren(t *testing.T) {
	runs := buildRuns(
		testRun{id: "p", start: 10},
		testRun{id: "c", parent: "p", start: 11},
		testRun{id: "gc", parent: "c", start: 12},
	)
	rows := viewutil.GetRowRenderMetadata(viewutil.RowInput{
		Runs:         runs,
		Sort:         models.DefaultSortState(),
		RunsExpanded: map[string]bool{"p": false},
	})
	require.Len(t, rows, 1)
	require.False(t, rows[0].ExpanderOpen)

	rows = viewutil.GetRowRenderMetadata(viewutil.RowInput{Runs: runs, Sort: models.DefaultSortState()})
	require.Equal(t, []string{"p", "c", "gc"}, viewutil.RunIDsSortedByDisplayOrder(rows))
	require.Equal(t, 2, rows[2].Depth)
}

func TestGetRowRenderMetadata_ParentOutsideSetIsRoot(t *testing.T) {
	runs := buildRuns(
		testRun{id: "orphan", parent: "gone", start: 1},
		testRun{id: "other", start: 2},
	)
	rows := viewutil.GetRowRenderMetadata(viewutil.RowInput{Runs: runs, Sort: models.DefaultSortState()})
	require.Equal(t, []string{"other", "orphan"}, viewutil.RunIDsSortedByDisplayOrder(rows))
	for _, row := range rows {
		require.True(t, row.IsParent)
	}
}

func TestGetRowRenderMetadata_CycleDoesNotDropRuns(t *testing.T) {
	runs := buildRuns(
		testRun{id: "a", parent: "b"},
		testRun{id: "b", parent: "a"},
	)
	rows := viewutil.GetRowRenderMetadata(viewutil.RowInput{Runs: runs, Sort: models.DefaultSortState()})
	require.ElementsMatch(t, []string{"a", "b"}, viewutil.RunIDsSortedByDisplayOrder(rows))
}

func TestGetRowRenderMetadata_StableAcrossCalls(t *testing.T) {
	runs := buildRuns(
		testRun{id: "r3", metrics: map[string]float64{"acc": 1}},
		testRun{id: "r1", metrics: map[string]float64{"acc": 1}},
		testRun{id: "r2", metrics: map[string]float64{"acc": 1}},
		testRun{id: "r4"},
	)
	in := viewutil.RowInput{Runs: runs, Sort: models.SortState{Key: "acc", IsMetric: true}}
	first := viewutil.RunIDsSortedByDisplayOrder(viewutil.GetRowRenderMetadata(in))
	require.Equal(t, []string{"r1", "r2", "r3", "r4"}, first)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, viewutil.RunIDsSortedByDisplayOrder(viewutil.GetRowRenderMetadata(in)))
	}
}

func TestShouldShowBaggedColumn(t *testing.T) {
	require.True(t, viewutil.ShouldShowBaggedColumn(nil, nil))
	require.True(t, viewutil.ShouldShowBaggedColumn([]string{"a"}, []string{"a", "b"}))
	require.False(t, viewutil.ShouldShowBaggedColumn([]string{"a", "b"}, []string{"a", "b"}))
}

func TestBaggedKeys(t *testing.T) {
	present := map[string]bool{"a": true, "c": true}
	got := viewutil.BaggedKeys([]string{"a", "b", "c"}, []string{"c"}, func(k string) bool { return present[k] })
	require.Equal(t, []string{"a"}, got)
}

func TestRunDisplayName(t *testing.T) {
	require.Equal(t, "n", viewutil.RunDisplayName(models.RunRecord{RunID: "x", RunName: "n"}, nil))
	require.Equal(t, "t", viewutil.RunDisplayName(models.RunRecord{RunID: "x"}, map[string]string{models.TagRunName: "t"}))
	require.Equal(t, "Run x", viewutil.RunDisplayName(models.RunRecord{RunID: "x"}, nil))
}
