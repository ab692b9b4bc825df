package mlflow

import (
	"context"
	"fmt"

	"github.com/databricks/databricks-sdk-go/service/ml"
	"golang.org/x/sync/errgroup"

	"github.com/imishinist/mlflow-runs/internal/models"
)

// maxHistoryFetches bounds the history requests in flight at once.
const maxHistoryFetches = 4

type historyKey struct {
	runID, metricKey string
}

// GetMetricHistory returns every logged value of one metric of one run.
// Results are cached; a history is refetched only after eviction.
func (c *Client) GetMetricHistory(ctx context.Context, runID, metricKey string) ([]models.Metric, error) {
	key := historyKey{runID, metricKey}
	if cached, ok := c.history.Get(key); ok {
		return cached.([]models.Metric), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	points, err := c.experiments.GetHistoryAll(ctx, ml.GetHistoryRequest{
		RunId:     runID,
		MetricKey: metricKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get history of %s for run %s: %w", metricKey, runID, err)
	}

	history := make([]models.Metric, 0, len(points))
	for _, p := range points {
		history = append(history, convertMetric(p))
	}
	c.history.Add(key, history)
	return history, nil
}

// HistoryFetch is one history to load: a metric of a run.
type HistoryFetch struct {
	RunID     string
	MetricKey string
}

// PlanHistoryFetches lists the histories to load for runIDs and metricKeys,
// skipping metrics a run never logged.
func PlanHistoryFetches(set *models.RunSet, runIDs, metricKeys []string) []HistoryFetch {
	var out []HistoryFetch
	for _, runID := range runIDs {
		latest := set.Metrics[runID]
		for _, key := range metricKeys {
			if _, ok := latest[key]; ok {
				out = append(out, HistoryFetch{RunID: runID, MetricKey: key})
			}
		}
	}
	return out
}

// GetMetricHistories loads several histories concurrently, rate limited and
// tracked under one request id each. It returns the request ids and the
// histories in fetch order; the first failure cancels the rest.
func (c *Client) GetMetricHistories(ctx context.Context, fetches []HistoryFetch) ([]string, []models.MetricHistory, error) {
	ids := make([]string, len(fetches))
	out := make([]models.MetricHistory, len(fetches))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxHistoryFetches)
	for i, f := range fetches {
		g.Go(func() error {
			id, err := c.dispatcher.Do(ctx, func(ctx context.Context) error {
				history, err := c.GetMetricHistory(ctx, f.RunID, f.MetricKey)
				if err != nil {
					return err
				}
				out[i] = models.MetricHistory{RunID: f.RunID, Key: f.MetricKey, Metrics: history}
				return nil
			})
			ids[i] = id
			c.logger.Debug().Str("request", id).Str("run", f.RunID).Str("metric", f.MetricKey).Err(err).Msg("history fetch")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return ids, nil, err
	}
	return ids, out, nil
}
