package mlflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/mlflow-runs/internal/models"
)

// ErrInvalidRunName is returned for an empty new run name.
var ErrInvalidRunName = errors.New("invalid run name")

// SearchRuns fetches the runs of an experiment in one lifecycle stage. The
// filter uses the tracking server's search syntax; an empty filter matches
// every run.
func (c *Client) SearchRuns(ctx context.Context, experimentID, filter string, lifecycle models.LifecycleStage) (*models.RunSet, error) {
	viewType := ml.ViewTypeActiveOnly
	if lifecycle == models.LifecycleDeleted {
		viewType = ml.ViewTypeDeletedOnly
	}

	c.logger.Debug().Str("experiment", experimentID).Str("filter", filter).Str("lifecycle", string(lifecycle)).Msg("searching runs")
	runs, err := c.experiments.SearchRunsAll(ctx, ml.SearchRuns{
		ExperimentIds: []string{experimentID},
		Filter:        filter,
		RunViewType:   viewType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search runs: %w", err)
	}

	set := models.NewRunSet()
	for _, run := range runs {
		info, params, metrics, tags, ok := convertRun(run)
		if !ok {
			c.logger.Warn().Msg("skipping run without info")
			continue
		}
		set.Add(info, params, metrics, tags)
	}
	return set, nil
}

// GetRun fetches one run with its params, latest metrics and tags, as a set
// holding that run alone.
func (c *Client) GetRun(ctx context.Context, runID string) (*models.RunSet, error) {
	resp, err := c.experiments.GetRun(ctx, ml.GetRunRequest{RunId: runID})
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	if resp == nil || resp.Run == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	info, params, metrics, tags, ok := convertRun(*resp.Run)
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	set := models.NewRunSet()
	set.Add(info, params, metrics, tags)
	return set, nil
}

func convertRun(run ml.Run) (models.RunRecord, []models.Param, []models.Metric, map[string]string, bool) {
	if run.Info == nil {
		return models.RunRecord{}, nil, nil, nil, false
	}
	tags := make(map[string]string)
	var params []models.Param
	var metrics []models.Metric
	if run.Data != nil {
		for _, tag := range run.Data.Tags {
			tags[tag.Key] = tag.Value
		}
		for _, p := range run.Data.Params {
			params = append(params, models.Param{Key: p.Key, Value: p.Value})
		}
		for _, m := range run.Data.Metrics {
			metrics = append(metrics, convertMetric(m))
		}
	}

	info := run.Info
	runID := info.RunId
	if runID == "" {
		runID = info.RunUuid
	}
	runName := info.RunName
	if runName == "" {
		runName = tags[models.TagRunName]
	}
	lifecycle, _ := models.ParseLifecycleStage(info.LifecycleStage)

	return models.RunRecord{
		RunID:          runID,
		ExperimentID:   info.ExperimentId,
		RunName:        runName,
		UserID:         info.UserId,
		Status:         models.RunStatus(info.Status),
		LifecycleStage: lifecycle,
		StartTime:      info.StartTime,
		EndTime:        info.EndTime,
		SourceType:     tags[models.TagSourceType],
		SourceName:     tags[models.TagSourceName],
		SourceVersion:  tags[models.TagSourceVersion],
		ArtifactURI:    info.ArtifactUri,
	}, params, metrics, tags, true
}

func convertMetric(m ml.Metric) models.Metric {
	return models.Metric{Key: m.Key, Value: m.Value, Timestamp: m.Timestamp, Step: m.Step}
}

// RenameRun sets the display name of a run. The failure, if any, is
// returned to the caller to show next to the name field.
func (c *Client) RenameRun(ctx context.Context, runID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidRunName
	}
	if err := c.experiments.SetTag(ctx, ml.SetTag{
		RunId: runID,
		Key:   models.TagRunName,
		Value: name,
	}); err != nil {
		return fmt.Errorf("failed to rename run %s: %w", runID, err)
	}
	return nil
}

func (c *Client) DeleteRun(ctx context.Context, runID string) error {
	if err := c.experiments.DeleteRun(ctx, ml.DeleteRun{RunId: runID}); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	return nil
}

func (c *Client) RestoreRun(ctx context.Context, runID string) error {
	if err := c.experiments.RestoreRun(ctx, ml.RestoreRun{RunId: runID}); err != nil {
		return fmt.Errorf("failed to restore run %s: %w", runID, err)
	}
	return nil
}
