package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imishinist/mlflow-runs/internal/config"
	"github.com/imishinist/mlflow-runs/internal/logging"
	"github.com/imishinist/mlflow-runs/internal/mlflow"
	"github.com/imishinist/mlflow-runs/internal/models"
	"github.com/imishinist/mlflow-runs/internal/runtable"
	"github.com/imishinist/mlflow-runs/internal/viewstate"
)

var rootCmd = &cobra.Command{
	Use:   "mlflow-runs",
	Short: "MLflow experiment run browser",
	Long: `A command line tool for browsing the runs of an MLflow experiment.
Sorts, filters and exports the run table, keeps per-experiment view
settings between invocations, and builds shareable metric plot links.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

// trackingClient is what the commands need from the tracking server.
type trackingClient interface {
	GetExperiment(ctx context.Context, experimentID string) (*models.Experiment, error)
	SearchRuns(ctx context.Context, experimentID, filter string, lifecycle models.LifecycleStage) (*models.RunSet, error)
	GetRun(ctx context.Context, runID string) (*models.RunSet, error)
	GetMetricHistories(ctx context.Context, fetches []mlflow.HistoryFetch) ([]string, []models.MetricHistory, error)
	RenameRun(ctx context.Context, runID, name string) error
	DeleteRun(ctx context.Context, runID string) error
	RestoreRun(ctx context.Context, runID string) error
}

var (
	// appFs backs the view-state files.
	appFs afero.Fs = afero.NewOsFs()

	newTrackingClient = func(cfg *config.Config, logger zerolog.Logger) (trackingClient, error) {
		client, err := mlflow.NewClient(cfg, mlflow.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return client, nil
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("tracking-uri", "", "MLflow tracking URI (overrides MLFLOW_TRACKING_URI)")
	rootCmd.PersistentFlags().String("experiment-id", "", "Experiment ID (overrides MLFLOW_EXPERIMENT_ID)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug/info/warn/error)")
	rootCmd.PersistentFlags().String("view-state-dir", "", "Directory for saved view settings")
	rootCmd.PersistentFlags().Bool("no-persist", false, "Keep view settings in memory for this invocation only")
	viper.BindPFlag("tracking_uri", rootCmd.PersistentFlags().Lookup("tracking-uri"))
	viper.BindPFlag("experiment_id", rootCmd.PersistentFlags().Lookup("experiment-id"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("view_state_dir", rootCmd.PersistentFlags().Lookup("view-state-dir"))
}

func initConfig() {
	// Environment variables
	viper.SetEnvPrefix("MLFLOW")
	viper.AutomaticEnv()

	// Also bind Databricks environment variables
	viper.BindEnv("databricks_host", "DATABRICKS_HOST")
	viper.BindEnv("databricks_token", "DATABRICKS_TOKEN")

	// Set defaults
	viper.SetDefault("tracking_uri", "http://localhost:5000")
	viper.SetDefault("time_resolution", "")
	viper.SetDefault("time_alignment", "floor")
	viper.SetDefault("x_axis", "step")
	viper.SetDefault("view_state_dir", defaultViewStateDir())
	viper.SetDefault("history_cache_size", 256)
	viper.SetDefault("history_fetch_qps", 10)
	viper.SetDefault("log_level", "warn")
}

func defaultViewStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "mlflow-runs")
}

// session is the state shared by commands that work on one experiment.
type session struct {
	cfg        *config.Config
	logger     zerolog.Logger
	client     trackingClient
	experiment *models.Experiment
	persister  *viewstate.Persister
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)

	experimentID, err := cfg.RequireExperiment()
	if err != nil {
		return nil, err
	}
	client, err := newTrackingClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}
	experiment, err := client.GetExperiment(cmd.Context(), experimentID)
	if err != nil {
		return nil, err
	}

	var store viewstate.Store = viewstate.NewFileStore(appFs, cfg.ViewStateDir)
	if noPersist, _ := cmd.Flags().GetBool("no-persist"); noPersist {
		store = viewstate.NewMemoryStore()
	}
	scope := viewstate.ScopeForExperiment(experiment.ExperimentID, experiment.CreationTime)
	logger.Debug().Str("scope", scope).Str("dir", cfg.ViewStateDir).Msg("opened view state")

	return &session{
		cfg:        cfg,
		logger:     logger,
		client:     client,
		experiment: experiment,
		persister:  viewstate.NewPersister(store, scope, logger),
	}, nil
}

func (s *session) controller() *runtable.Controller {
	return runtable.New(s.persister)
}

// fetch runs the search and loads the result into ctrl.
func (s *session) fetch(ctx context.Context, ctrl *runtable.Controller, req runtable.SearchRequest) error {
	set, err := s.client.SearchRuns(ctx, s.experiment.ExperimentID, req.Filter(), req.Lifecycle)
	if err != nil {
		return err
	}
	ctrl.SetRuns(req.Refine(set))
	return nil
}

// searchFlags are the filter flags shared by the runs commands.
func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().String("search", "", "Search expression, e.g. \"metrics.rmse < 1 and params.model = 'tree'\"")
	cmd.Flags().String("params", "", "Comma separated param columns to show")
	cmd.Flags().String("metrics", "", "Comma separated metric columns to show")
	cmd.Flags().String("lifecycle", "", "Run lifecycle stage (active/deleted)")
}

// applySearchFlags commits the filter flags the user set, or the saved
// filters otherwise, and loads the matching runs.
func (s *session) applySearchFlags(cmd *cobra.Command, ctrl *runtable.Controller) error {
	flags := cmd.Flags()
	if flags.Changed("search") {
		v, _ := flags.GetString("search")
		ctrl.SetSearchInput(v)
	}
	if flags.Changed("params") {
		v, _ := flags.GetString("params")
		ctrl.SetParamFilterInput(v)
	}
	if flags.Changed("metrics") {
		v, _ := flags.GetString("metrics")
		ctrl.SetMetricFilterInput(v)
	}

	var req runtable.SearchRequest
	var err error
	if flags.Changed("lifecycle") {
		v, _ := flags.GetString("lifecycle")
		stage, ok := models.ParseLifecycleStage(v)
		if !ok {
			return fmt.Errorf("invalid lifecycle: %s (valid: active, deleted)", v)
		}
		req, err = ctrl.SetLifecycleFilter(stage)
	} else {
		req, err = ctrl.Search()
	}
	if err != nil {
		return fmt.Errorf("invalid search: %w", err)
	}
	return s.fetch(cmd.Context(), ctrl, req)
}
