package mlflow

import (
	"context"
	"fmt"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/ml"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/imishinist/mlflow-runs/internal/config"
	"github.com/imishinist/mlflow-runs/internal/requests"
)

// ExperimentsService is the part of the tracking API the client calls.
// The Databricks workspace client's Experiments field satisfies it.
type ExperimentsService interface {
	GetExperiment(ctx context.Context, request ml.GetExperimentRequest) (*ml.GetExperimentResponse, error)
	SearchRunsAll(ctx context.Context, request ml.SearchRuns) ([]ml.Run, error)
	GetRun(ctx context.Context, request ml.GetRunRequest) (*ml.GetRunResponse, error)
	GetHistoryAll(ctx context.Context, request ml.GetHistoryRequest) ([]ml.Metric, error)
	SetTag(ctx context.Context, request ml.SetTag) error
	DeleteRun(ctx context.Context, request ml.DeleteRun) error
	RestoreRun(ctx context.Context, request ml.RestoreRun) error
}

type Client struct {
	experiments ExperimentsService
	config      *config.Config
	logger      zerolog.Logger

	history    *lru.Cache
	limiter    *rate.Limiter
	dispatcher *requests.Dispatcher
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger for request tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithDispatcher tracks history fetches through d instead of a private one.
func WithDispatcher(d *requests.Dispatcher) Option {
	return func(c *Client) { c.dispatcher = d }
}

func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var databricksConfig *databricks.Config

	if cfg.IsDatabricks() {
		databricksConfig = &databricks.Config{}

		if cfg.TrackingURI == "databricks" {
			// use DATABRICKS_HOST, or the default profile when unset
			if cfg.DatabricksHost != "" {
				databricksConfig.Host = cfg.DatabricksHost
			}
		} else if profile := cfg.GetDatabricksProfile(); profile != "" {
			databricksConfig.Profile = profile
		} else {
			databricksConfig.Host = cfg.TrackingURI
		}

		// an explicit token overrides the profile
		if cfg.DatabricksToken != "" {
			databricksConfig.Token = cfg.DatabricksToken
		}
	} else {
		databricksConfig = &databricks.Config{
			Host: cfg.TrackingURI,
			// plain tracking servers don't authenticate
			Token: "dummy-token-for-regular-mlflow",
		}
	}

	ws, err := databricks.NewWorkspaceClient(databricksConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}

	return NewClientWithService(ws.Experiments, cfg, opts...)
}

// NewClientWithService builds a client over an existing experiments service.
func NewClientWithService(svc ExperimentsService, cfg *config.Config, opts ...Option) (*Client, error) {
	size := cfg.HistoryCacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create history cache: %w", err)
	}
	qps := cfg.HistoryFetchQPS
	if qps <= 0 {
		qps = 10
	}

	c := &Client{
		experiments: svc,
		config:      cfg,
		logger:      zerolog.Nop(),
		history:     cache,
		limiter:     rate.NewLimiter(rate.Limit(qps), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dispatcher == nil {
		c.dispatcher = requests.NewDispatcher(requests.UUIDGenerator{}, requests.NewTracker())
	}
	return c, nil
}

// Requests exposes the state of the history fetches the client issued.
func (c *Client) Requests() *requests.Tracker {
	return c.dispatcher.Tracker()
}
