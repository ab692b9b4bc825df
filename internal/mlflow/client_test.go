package mlflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/databricks/databricks-sdk-go/service/ml"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/mlflow-runs/internal/config"
	"github.com/imishinist/mlflow-runs/internal/mlflow"
	"github.com/imishinist/mlflow-runs/internal/models"
	"github.com/imishinist/mlflow-runs/internal/requests"
)

type fakeExperiments struct {
	mu sync.Mutex

	experiment *ml.Experiment
	runs       []ml.Run
	history    map[string][]ml.Metric
	historyErr error
	mutateErr  error

	searches     []ml.SearchRuns
	historyCalls int
	tags         []ml.SetTag
	deleted      []string
	restored     []string
}

func (f *fakeExperiments) GetExperiment(_ context.Context, req ml.GetExperimentRequest) (*ml.GetExperimentResponse, error) {
	if f.experiment == nil || f.experiment.ExperimentId != req.ExperimentId {
		return nil, errors.New("RESOURCE_DOES_NOT_EXIST")
	}
	return &ml.GetExperimentResponse{Experiment: f.experiment}, nil
}

func (f *fakeExperiments) SearchRunsAll(_ context.Context, req ml.SearchRuns) ([]ml.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, req)
	return f.runs, nil
}

func (f *fakeExperiments) GetRun(_ context.Context, req ml.GetRunRequest) (*ml.GetRunResponse, error) {
	for i := range f.runs {
		if info := f.runs[i].Info; info != nil && info.RunId == req.RunId {
			return &ml.GetRunResponse{Run: &f.runs[i]}, nil
		}
	}
	return nil, errors.New("RESOURCE_DOES_NOT_EXIST")
}

func (f *fakeExperiments) GetHistoryAll(_ context.Context, req ml.GetHistoryRequest) ([]ml.Metric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[req.RunId+"/"+req.MetricKey], nil
}

func (f *fakeExperiments) SetTag(_ context.Context, req ml.SetTag) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.tags = append(f.tags, req)
	return nil
}

func (f *fakeExperiments) DeleteRun(_ context.Context, req ml.DeleteRun) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.deleted = append(f.deleted, req.RunId)
	return nil
}

func (f *fakeExperiments) RestoreRun(_ context.Context, req ml.RestoreRun) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.restored = append(f.restored, req.RunId)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		TrackingURI:      "http://localhost:5000",
		TimeAlignment:    "floor",
		XAxis:            "step",
		HistoryCacheSize: 8,
		HistoryFetchQPS:  1000,
	}
}

func newClient(t *testing.T, svc *fakeExperiments) (*mlflow.Client, *requests.Tracker) {
	t.Helper()
	tracker := requests.NewTracker()
	dispatcher := requests.NewDispatcher(&requests.CounterGenerator{Prefix: "req-"}, tracker)
	c, err := mlflow.NewClientWithService(svc, testConfig(), mlflow.WithDispatcher(dispatcher))
	require.NoError(t, err)
	return c, tracker
}

func TestGetExperiment(t *testing.T) {
	svc := &fakeExperiments{experiment: &ml.Experiment{
		ExperimentId: "1", Name: "demo", LifecycleStage: "active", CreationTime: 100,
	}}
	c, _ := newClient(t, svc)

	exp, err := c.GetExperiment(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, &models.Experiment{
		ExperimentID: "1", Name: "demo", LifecycleStage: models.LifecycleActive, CreationTime: 100,
	}, exp)

	_, err = c.GetExperiment(context.Background(), "2")
	require.ErrorContains(t, err, "failed to get experiment 2")
}

func TestSearchRuns(t *testing.T) {
	svc := &fakeExperiments{runs: []ml.Run{
		{
			Info: &ml.RunInfo{RunId: "p", ExperimentId: "1", UserId: "alice", Status: ml.RunInfoStatusFinished, StartTime: 10, LifecycleStage: "active"},
			Data: &ml.RunData{
				Params:  []ml.Param{{Key: "alpha", Value: "0.1"}},
				Metrics: []ml.Metric{{Key: "acc", Value: 0.9, Step: 3}},
				Tags: []ml.RunTag{
					{Key: models.TagRunName, Value: "parent"},
					{Key: models.TagSourceName, Value: "train.py"},
				},
			},
		},
		{
			Info: &ml.RunInfo{RunUuid: "c", ExperimentId: "1", StartTime: 11},
			Data: &ml.RunData{Tags: []ml.RunTag{{Key: models.TagParentRunID, Value: "p"}}},
		},
		{Data: &ml.RunData{}},
	}}
	c, _ := newClient(t, svc)

	set, err := c.SearchRuns(context.Background(), "1", "metrics.acc > 0.5", models.LifecycleActive)
	require.NoError(t, err)
	require.Equal(t, []string{"p", "c"}, set.Order)
	require.Equal(t, "parent", set.Infos["p"].RunName)
	require.Equal(t, "train.py", set.Infos["p"].SourceName)
	require.Equal(t, models.RunStatusFinished, set.Infos["p"].Status)
	require.Equal(t, "0.1", set.Params["p"]["alpha"].Value)
	require.Equal(t, 0.9, set.Metrics["p"]["acc"].Value)
	require.Equal(t, []string{"c"}, set.Children["p"])

	require.Len(t, svc.searches, 1)
	require.Equal(t, ml.SearchRuns{
		ExperimentIds: []string{"1"},
		Filter:        "metrics.acc > 0.5",
		RunViewType:   ml.ViewTypeActiveOnly,
	}, svc.searches[0])

	_, err = c.SearchRuns(context.Background(), "1", "", models.LifecycleDeleted)
	require.NoError(t, err)
	require.Equal(t, ml.ViewTypeDeletedOnly, svc.searches[1].RunViewType)
}

func TestGetExperiment_DeletedStage(t *testing.T) {
	svc := &fakeExperiments{experiment: &ml.Experiment{ExperimentId: "3", LifecycleStage: "deleted"}}
	c, _ := newClient(t, svc)

	exp, err := c.GetExperiment(context.Background(), "3")
	require.NoError(t, err)
	require.Equal(t, models.LifecycleDeleted, exp.LifecycleStage)
}

func TestGetRun(t *testing.T) {
	svc := &fakeExperiments{runs: []ml.Run{{
		Info: &ml.RunInfo{RunId: "r1", ExperimentId: "1", UserId: "alice", Status: ml.RunInfoStatusFinished, StartTime: 10, EndTime: 70},
		Data: &ml.RunData{
			Params:  []ml.Param{{Key: "lr", Value: "0.1"}},
			Metrics: []ml.Metric{{Key: "acc", Value: 0.8, Step: 3}},
			Tags:    []ml.RunTag{{Key: models.TagRunName, Value: "best"}},
		},
	}}}
	c, _ := newClient(t, svc)

	set, err := c.GetRun(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, []string{"r1"}, set.Order)
	require.Equal(t, "best", set.Infos["r1"].RunName)
	require.Equal(t, int64(70), set.Infos["r1"].EndTime)
	require.Equal(t, "0.1", set.Params["r1"]["lr"].Value)
	require.Equal(t, 0.8, set.Metrics["r1"]["acc"].Value)

	_, err = c.GetRun(context.Background(), "missing")
	require.ErrorContains(t, err, "failed to get run missing")
}

func TestRenameRun(t *testing.T) {
	svc := &fakeExperiments{}
	c, _ := newClient(t, svc)

	require.ErrorIs(t, c.RenameRun(context.Background(), "r1", "  "), mlflow.ErrInvalidRunName)
	require.Empty(t, svc.tags)

	require.NoError(t, c.RenameRun(context.Background(), "r1", " best run "))
	require.Equal(t, []ml.SetTag{{RunId: "r1", Key: models.TagRunName, Value: "best run"}}, svc.tags)

	svc.mutateErr = errors.New("PERMISSION_DENIED")
	err := c.RenameRun(context.Background(), "r1", "x")
	require.ErrorContains(t, err, "PERMISSION_DENIED")
}

func TestDeleteRestore(t *testing.T) {
	svc := &fakeExperiments{}
	c, _ := newClient(t, svc)

	require.NoError(t, c.DeleteRun(context.Background(), "r1"))
	require.NoError(t, c.RestoreRun(context.Background(), "r1"))
	require.Equal(t, []string{"r1"}, svc.deleted)
	require.Equal(t, []string{"r1"}, svc.restored)

	svc.mutateErr = errors.New("boom")
	require.ErrorContains(t, c.DeleteRun(context.Background(), "r2"), "failed to delete run r2")
	require.ErrorContains(t, c.RestoreRun(context.Background(), "r2"), "failed to restore run r2")
}

func TestGetMetricHistoryIsCached(t *testing.T) {
	svc := &fakeExperiments{history: map[string][]ml.Metric{
		"r1/loss": {{Key: "loss", Value: 2, Step: 1, Timestamp: 100}, {Key: "loss", Value: 1, Step: 2, Timestamp: 200}},
	}}
	c, _ := newClient(t, svc)

	first, err := c.GetMetricHistory(context.Background(), "r1", "loss")
	require.NoError(t, err)
	require.Equal(t, []models.Metric{
		{Key: "loss", Value: 2, Step: 1, Timestamp: 100},
		{Key: "loss", Value: 1, Step: 2, Timestamp: 200},
	}, first)

	second, err := c.GetMetricHistory(context.Background(), "r1", "loss")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, svc.historyCalls)
}

func TestGetMetricHistories(t *testing.T) {
	svc := &fakeExperiments{history: map[string][]ml.Metric{
		"r1/loss": {{Key: "loss", Value: 1}},
		"r2/loss": {{Key: "loss", Value: 2}},
		"r2/acc":  {{Key: "acc", Value: 0.5}},
	}}
	c, tracker := newClient(t, svc)

	set := models.NewRunSet()
	set.Add(models.RunRecord{RunID: "r1"}, nil, []models.Metric{{Key: "loss"}}, nil)
	set.Add(models.RunRecord{RunID: "r2"}, nil, []models.Metric{{Key: "loss"}, {Key: "acc"}}, nil)

	fetches := mlflow.PlanHistoryFetches(set, []string{"r1", "r2"}, []string{"loss", "acc"})
	require.Equal(t, []mlflow.HistoryFetch{
		{RunID: "r1", MetricKey: "loss"},
		{RunID: "r2", MetricKey: "loss"},
		{RunID: "r2", MetricKey: "acc"},
	}, fetches)

	ids, histories, err := c.GetMetricHistories(context.Background(), fetches)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	require.Equal(t, "r2", histories[2].RunID)
	require.Equal(t, "acc", histories[2].Key)
	require.Equal(t, 0.5, histories[2].Metrics[0].Value)

	status, err := tracker.State(ids...)
	require.NoError(t, err)
	require.Equal(t, requests.StatusSuccess, status)
	require.Same(t, tracker, c.Requests())
}

func TestGetMetricHistories_Error(t *testing.T) {
	svc := &fakeExperiments{historyErr: errors.New("unavailable")}
	c, tracker := newClient(t, svc)

	ids, histories, err := c.GetMetricHistories(context.Background(), []mlflow.HistoryFetch{{RunID: "r1", MetricKey: "loss"}})
	require.ErrorContains(t, err, "unavailable")
	require.Nil(t, histories)

	status, stateErr := tracker.State(ids...)
	require.Equal(t, requests.StatusError, status)
	require.ErrorContains(t, stateErr, "unavailable")
}
