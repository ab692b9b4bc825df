package search_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imishinist/mlflow-runs/internal/models"
	"github.com/imishinist/mlflow-runs/internal/search"
)

func TestParse_Valid(t *testing.T) {
	clauses, err := search.Parse(`metrics.rmse < 1 and params.model = "tree"`)
	require.NoError(t, err)
	require.Equal(t, []search.Clause{
		{Type: search.TypeMetric, Key: "rmse", Comparator: "<", Value: "1", Number: 1},
		{Type: search.TypeParam, Key: "model", Comparator: "=", Value: "tree"},
	}, clauses)
}

func TestParse_AliasesAndQuotedKeys(t *testing.T) {
	clauses, err := search.Parse("metric.`val loss` >= -0.5 AND tags.\"team name\" != 'ml' AND attr.status = 'FINISHED'")
	require.NoError(t, err)
	require.Len(t, clauses, 3)
	require.Equal(t, search.Clause{Type: search.TypeMetric, Key: "val loss", Comparator: ">=", Value: "-0.5", Number: -0.5}, clauses[0])
	require.Equal(t, search.TypeTag, clauses[1].Type)
	require.Equal(t, "team name", clauses[1].Key)
	require.Equal(t, search.TypeAttribute, clauses[2].Type)
}

func TestParse_Blank(t *testing.T) {
	clauses, err := search.Parse("   ")
	require.NoError(t, err)
	require.Empty(t, clauses)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown type":        `foo.bar = 'x'`,
		"metric string":       `metrics.acc = 'high'`,
		"param unquoted":      `params.model = 3`,
		"param comparator":    `params.model > 'a'`,
		"missing value":       `metrics.acc >`,
		"dangling and":        `metrics.acc > 1 and`,
		"missing and":         `metrics.acc > 1 metrics.b < 2`,
		"unterminated string": `params.model = 'tree`,
		"bad attribute":       `attributes.color = 'red'`,
		"bad operator":        `metrics.acc => 1`,
		"bare word":           `hello`,
		"missing key":         `metrics. > 1`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := search.Parse(input)
			require.Error(t, err)
			var perr *search.ParseError
			require.ErrorAs(t, err, &perr)
			require.NotEmpty(t, perr.Message)
		})
	}
}

func TestMatches(t *testing.T) {
	target := search.Target{
		Info:    models.RunRecord{RunID: "r1", Status: models.RunStatusFinished},
		Params:  map[string]models.Param{"model": {Key: "model", Value: "tree"}},
		Metrics: map[string]models.Metric{"rmse": {Key: "rmse", Value: 0.7}},
		Tags:    map[string]string{"team": "ml"},
	}
	match := func(input string) bool {
		clauses, err := search.Parse(input)
		require.NoError(t, err)
		return search.Matches(clauses, target)
	}
	require.True(t, match(`metrics.rmse < 1 and params.model = "tree"`))
	require.False(t, match(`metrics.rmse > 1`))
	require.False(t, match(`metrics.missing < 1`))
	require.True(t, match(`tags.team != 'infra'`))
	require.True(t, match(`attribute.status = 'FINISHED'`))
	require.True(t, match(``))
}

func TestFilterRuns(t *testing.T) {
	set := models.NewRunSet()
	set.Add(models.RunRecord{RunID: "a"}, nil, []models.Metric{{Key: "acc", Value: 0.9}}, nil)
	set.Add(models.RunRecord{RunID: "b"}, nil, []models.Metric{{Key: "acc", Value: 0.2}}, nil)
	set.Add(models.RunRecord{RunID: "c"}, nil, nil, nil)
	clauses, err := search.Parse("metrics.acc > 0.5")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, search.FilterRuns(set, clauses))
}

func TestFilterString(t *testing.T) {
	clauses, err := search.Parse("metrics.rmse < 1 and params.model = \"tree\" and tags.`my tag` = \"it's\"")
	require.NoError(t, err)
	require.Equal(t,
		"metrics.rmse < 1 AND params.model = 'tree' AND tags.`my tag` = \"it's\"",
		search.FilterString(clauses))

	reparsed, err := search.Parse(search.FilterString(clauses))
	require.NoError(t, err)
	require.Equal(t, clauses, reparsed)
}
