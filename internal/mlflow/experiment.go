package mlflow

import (
	"context"
	"fmt"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/mlflow-runs/internal/models"
)

func (c *Client) GetExperiment(ctx context.Context, experimentID string) (*models.Experiment, error) {
	resp, err := c.experiments.GetExperiment(ctx, ml.GetExperimentRequest{
		ExperimentId: experimentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment %s: %w", experimentID, err)
	}
	if resp == nil || resp.Experiment == nil {
		return nil, fmt.Errorf("experiment %s not found", experimentID)
	}

	exp := resp.Experiment
	stage, ok := models.ParseLifecycleStage(exp.LifecycleStage)
	if !ok {
		c.logger.Debug().Str("experiment", experimentID).Str("stage", exp.LifecycleStage).Msg("unknown lifecycle stage")
	}
	return &models.Experiment{
		ExperimentID:     exp.ExperimentId,
		Name:             exp.Name,
		ArtifactLocation: exp.ArtifactLocation,
		LifecycleStage:   stage,
		CreationTime:     exp.CreationTime,
	}, nil
}
