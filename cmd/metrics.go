package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-runs/internal/config"
	"github.com/imishinist/mlflow-runs/internal/csvexport"
	"github.com/imishinist/mlflow-runs/internal/mlflow"
	"github.com/imishinist/mlflow-runs/internal/plotstate"
	"github.com/imishinist/mlflow-runs/internal/render"
	timeutils "github.com/imishinist/mlflow-runs/internal/time"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Inspect metric histories",
	Long:  "Print metric histories and build metric plot links",
}

var metricsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the history of metrics",
	Long: `Print the full history of one or more metrics for the given runs, or
for every displayed run when no --run-id is given.`,
	RunE: metricsHistory,
}

var metricsPlotURLCmd = &cobra.Command{
	Use:   "plot-url",
	Short: "Build a metric plot link",
	Long: `Build the link of a metric plot, either from scratch or by applying
changes to an existing link given with --from.`,
	RunE: metricsPlotURL,
}

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.AddCommand(metricsHistoryCmd)
	metricsCmd.AddCommand(metricsPlotURLCmd)

	// History command flags
	addSearchFlags(metricsHistoryCmd)
	metricsHistoryCmd.Flags().StringArray("run-id", []string{}, "Run ID (repeatable; default: displayed runs)")
	metricsHistoryCmd.Flags().StringArray("key", []string{}, "Metric key (repeatable, required)")
	metricsHistoryCmd.Flags().String("x-axis", "", "X axis (step/wall/relative)")
	metricsHistoryCmd.Flags().String("time-resolution", "", "Time resolution (1m/5m/1h)")
	metricsHistoryCmd.Flags().String("time-alignment", "", "Time alignment (floor/ceil/round)")
	metricsHistoryCmd.Flags().Bool("csv", false, "Write CSV instead of a table")
	metricsHistoryCmd.MarkFlagRequired("key")

	// Plot link flags
	metricsPlotURLCmd.Flags().String("from", "", "Existing plot link or route to start from")
	metricsPlotURLCmd.Flags().String("metric", "", "Metric the plot is opened for")
	metricsPlotURLCmd.Flags().StringSlice("runs", []string{}, "Runs to plot")
	metricsPlotURLCmd.Flags().StringSlice("metrics", []string{}, "Metric keys to plot")
	metricsPlotURLCmd.Flags().String("x-axis", "", "X axis (step/wall/relative)")
	metricsPlotURLCmd.Flags().Bool("log-y", false, "Use a log scale for the y axis")
	metricsPlotURLCmd.Flags().Float64("smoothing", 0, "Line smoothness")
	metricsPlotURLCmd.Flags().Bool("show-point", false, "Draw the data points")
	metricsPlotURLCmd.Flags().StringArray("toggle-run", []string{}, "Toggle the highlight of a run (repeatable)")
	metricsPlotURLCmd.Flags().String("only-run", "", "Highlight only this run")
	metricsPlotURLCmd.Flags().String("x-range", "", "X axis range as min,max, or auto")
	metricsPlotURLCmd.Flags().String("y-range", "", "Y axis range as min,max, or auto")
	metricsPlotURLCmd.Flags().String("base-url", "", "Tracking UI address (default: tracking URI)")
}

func metricsHistory(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}

	// Parse flags
	runIDs, _ := cmd.Flags().GetStringArray("run-id")
	keys, _ := cmd.Flags().GetStringArray("key")
	asCSV, _ := cmd.Flags().GetBool("csv")
	xAxis, resolution, alignment, err := historyOptions(cmd, s.cfg)
	if err != nil {
		return err
	}

	ctrl := s.controller()
	if err := s.applySearchFlags(cmd, ctrl); err != nil {
		return err
	}
	if len(runIDs) == 0 {
		runIDs = ctrl.DisplayOrder()
	}
	set := ctrl.Runs()

	fetches := mlflow.PlanHistoryFetches(set, runIDs, keys)
	if len(fetches) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No metric history.")
		return nil
	}
	_, histories, err := s.client.GetMetricHistories(cmd.Context(), fetches)
	if err != nil {
		return err
	}

	all := make([]plotstate.Series, 0, len(histories))
	for _, h := range histories {
		points, err := timeutils.AlignHistory(h.Metrics, resolution, alignment)
		if err != nil {
			return err
		}
		all = append(all, plotstate.Series{
			RunID:       h.RunID,
			DisplayName: firstNonEmpty(set.Infos[h.RunID].RunName, h.RunID),
			MetricKey:   h.Key,
			History:     points,
		})
	}
	state := plotstate.New(s.experiment.ExperimentID, keys[0], runIDs).WithMetricKeys(keys).WithXAxis(xAxis)
	series := state.FilterSeries(all)
	s.logger.Debug().Int("series", len(series)).Str("chart", string(plotstate.PredictChartType(series))).Msg("loaded metric history")

	headers := []string{"Run", "Metric", "Step", "Timestamp", "X", "Value"}
	var rows [][]string
	for _, sr := range series {
		xs := plotstate.XValues(sr.History, xAxis)
		for i, m := range sr.History {
			rows = append(rows, []string{
				sr.DisplayName,
				sr.MetricKey,
				strconv.FormatInt(m.Step, 10),
				timeutils.FormatMillis(m.Timestamp),
				csvexport.FormatMetric(xs[i]),
				csvexport.FormatMetric(m.Value),
			})
		}
	}

	if asCSV {
		fmt.Fprint(cmd.OutOrStdout(), csvexport.TableToCSV(headers, rows))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.Table(headers, rows))
	return nil
}

// historyOptions resolves the x axis and time bucketing from flags, falling
// back to the configuration.
func historyOptions(cmd *cobra.Command, cfg *config.Config) (plotstate.XAxis, string, string, error) {
	xFlag, _ := cmd.Flags().GetString("x-axis")
	resolution, _ := cmd.Flags().GetString("time-resolution")
	alignment, _ := cmd.Flags().GetString("time-alignment")

	if xFlag == "" {
		xFlag = cfg.XAxis
	}
	if resolution == "" {
		resolution = cfg.TimeResolution
	}
	if alignment == "" {
		alignment = cfg.TimeAlignment
	}

	xAxis, err := plotstate.ParseXAxis(xFlag)
	if err != nil {
		return "", "", "", err
	}
	return xAxis, resolution, alignment, nil
}

func metricsPlotURL(cmd *cobra.Command, args []string) error {
	cfg := config.New()
	flags := cmd.Flags()

	from, _ := flags.GetString("from")
	var state plotstate.State
	if from != "" {
		var err error
		state, err = plotstate.Decode(from)
		if err != nil {
			return err
		}
	} else {
		metric, _ := flags.GetString("metric")
		runs, _ := flags.GetStringSlice("runs")
		if metric == "" {
			return fmt.Errorf("--metric is required without --from")
		}
		state = plotstate.New(cfg.ExperimentID, metric, runs)
	}

	if flags.Changed("runs") && from != "" {
		runs, _ := flags.GetStringSlice("runs")
		state.RunIDs = runs
	}
	if flags.Changed("metrics") {
		keys, _ := flags.GetStringSlice("metrics")
		state = state.WithMetricKeys(keys)
	}
	if flags.Changed("x-axis") {
		v, _ := flags.GetString("x-axis")
		x, err := plotstate.ParseXAxis(v)
		if err != nil {
			return err
		}
		state = state.WithXAxis(x)
	}

	// Ranges are given in linear units, before any scale change.
	var relayout plotstate.Relayout
	var err error
	if v, _ := flags.GetString("x-range"); v != "" {
		relayout.XRange, relayout.XAutoRange, err = parseRange(v)
		if err != nil {
			return err
		}
	}
	if v, _ := flags.GetString("y-range"); v != "" {
		relayout.YRange, relayout.YAutoRange, err = parseRange(v)
		if err != nil {
			return err
		}
	}
	state = state.WithRelayout(relayout)

	if flags.Changed("log-y") {
		v, _ := flags.GetBool("log-y")
		state = state.WithYAxisLogScale(v)
	}
	if flags.Changed("smoothing") {
		v, _ := flags.GetFloat64("smoothing")
		state = state.WithLineSmoothness(v)
	}
	if flags.Changed("show-point") {
		v, _ := flags.GetBool("show-point")
		state = state.WithShowPoint(v)
	}

	toggles, _ := flags.GetStringArray("toggle-run")
	for _, runID := range toggles {
		state = state.ToggleRun(runID)
	}
	if v, _ := flags.GetString("only-run"); v != "" {
		state = state.OnlyRun(v)
	}

	route, err := plotstate.Route(state)
	if err != nil {
		return err
	}
	base, _ := flags.GetString("base-url")
	if base == "" {
		base = cfg.TrackingURI
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s/#%s\n", strings.TrimRight(base, "/"), route)
	return nil
}

// parseRange reads "min,max" or "auto".
func parseRange(s string) ([]float64, bool, error) {
	if strings.EqualFold(strings.TrimSpace(s), "auto") {
		return nil, true, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, false, fmt.Errorf("invalid range: %s (expected min,max or auto)", s)
	}
	out := make([]float64, 2)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, false, fmt.Errorf("invalid range: %s: %w", s, err)
		}
		out[i] = v
	}
	if out[0] > out[1] {
		return nil, false, fmt.Errorf("invalid range: %s (min is greater than max)", s)
	}
	return out, false, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
