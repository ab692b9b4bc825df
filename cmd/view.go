package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-runs/internal/parser"
	"github.com/imishinist/mlflow-runs/internal/runtable"
	"github.com/imishinist/mlflow-runs/internal/viewstate"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Manage saved view settings",
	Long:  "Show, change, export and import the run table settings saved for an experiment",
}

var viewShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved view settings",
	RunE:  viewShow,
}

var viewSortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Sort the run table by a column",
	Long: `Sort the run table by a column. Sorting by the current column again
flips the direction unless --asc or --desc is given.`,
	RunE: viewSort,
}

var viewBagCmd = &cobra.Command{
	Use:   "bag KEY",
	Short: "Collapse a column into the Parameters/Metrics cell",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return viewBagging(cmd, args[0], true) },
}

var viewUnbagCmd = &cobra.Command{
	Use:   "unbag KEY",
	Short: "Split a column out of the Parameters/Metrics cell",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return viewBagging(cmd, args[0], false) },
}

var viewExpandCmd = &cobra.Command{
	Use:   "expand RUN_ID",
	Short: "Open or close the child runs of a parent run",
	Args:  cobra.ExactArgs(1),
	RunE:  viewExpand,
}

var viewModeCmd = &cobra.Command{
	Use:       "mode grid|compact",
	Short:     "Switch between one column per key and the compact view",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"grid", "compact"},
	RunE:      viewMode,
}

var viewResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset sort, filters and columns to the defaults",
	RunE:  viewReset,
}

var viewExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the saved view settings to a file",
	RunE:  viewExport,
}

var viewImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load view settings from a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  viewImport,
}

func init() {
	rootCmd.AddCommand(viewCmd)
	viewCmd.AddCommand(viewShowCmd, viewSortCmd, viewBagCmd, viewUnbagCmd, viewExpandCmd,
		viewModeCmd, viewResetCmd, viewExportCmd, viewImportCmd)

	viewShowCmd.Flags().String("format", "yaml", "Output format (yaml/json)")

	viewSortCmd.Flags().String("key", "", "Column key to sort by (required)")
	viewSortCmd.Flags().Bool("metric", false, "The key names a metric")
	viewSortCmd.Flags().Bool("param", false, "The key names a param")
	viewSortCmd.Flags().Bool("asc", false, "Sort ascending")
	viewSortCmd.Flags().Bool("desc", false, "Sort descending")
	viewSortCmd.MarkFlagRequired("key")
	viewSortCmd.MarkFlagsMutuallyExclusive("metric", "param")
	viewSortCmd.MarkFlagsMutuallyExclusive("asc", "desc")

	for _, c := range []*cobra.Command{viewBagCmd, viewUnbagCmd} {
		c.Flags().Bool("metric", false, "The key names a metric")
		c.Flags().Bool("param", false, "The key names a param")
		c.MarkFlagsMutuallyExclusive("metric", "param")
		c.MarkFlagsOneRequired("metric", "param")
	}

	viewExportCmd.Flags().String("output", "", "Output file; the extension picks the format (default: stdout)")
	viewExportCmd.Flags().String("format", "", "Output format when writing to stdout (yaml/json)")
}

func exportFile(s *session, ctrl *runtable.Controller) *parser.ViewStateFile {
	return &parser.ViewStateFile{
		Version:    viewstate.StoreVersion,
		Experiment: s.experiment.ExperimentID,
		View:       ctrl.View(),
		Page:       s.persister.LoadPage(),
	}
}

func viewShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	formatFlag, _ := cmd.Flags().GetString("format")
	format, err := parser.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	return parser.WriteViewState(cmd.OutOrStdout(), exportFile(s, s.controller()), format)
}

func viewSort(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	key, _ := cmd.Flags().GetString("key")
	isMetric, _ := cmd.Flags().GetBool("metric")
	isParam, _ := cmd.Flags().GetBool("param")
	asc, _ := cmd.Flags().GetBool("asc")
	desc, _ := cmd.Flags().GetBool("desc")

	ctrl := s.controller()
	if asc || desc {
		ctrl.SetSort(isMetric, isParam, key, asc)
	} else {
		ctrl.SortBy(isMetric, isParam, key)
	}

	sort := ctrl.View().Sort
	direction := "descending"
	if sort.Ascending {
		direction = "ascending"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sorted by %s (%s)\n", sort.Key, direction)
	return nil
}

func viewBagging(cmd *cobra.Command, key string, bag bool) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	isParam, _ := cmd.Flags().GetBool("param")

	ctrl := s.controller()
	if bag {
		ctrl.Bag(isParam, key)
	} else {
		ctrl.Unbag(isParam, key)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Split-out columns: %v\n", ctrl.UnbaggedKeys(isParam))
	return nil
}

func viewExpand(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	ctrl := s.controller()
	req, err := ctrl.Search()
	if err != nil {
		return fmt.Errorf("invalid saved search: %w", err)
	}
	if err := s.fetch(cmd.Context(), ctrl, req); err != nil {
		return err
	}

	runID := args[0]
	if len(ctrl.Runs().Children[runID]) == 0 {
		return fmt.Errorf("run %s has no child runs", runID)
	}
	ctrl.ToggleExpand(runID)

	state := "collapsed"
	if ctrl.View().RunsExpanded[runID] {
		state = "expanded"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run %s %s\n", runID, state)
	return nil
}

func viewMode(cmd *cobra.Command, args []string) error {
	var show bool
	switch args[0] {
	case "grid":
		show = true
	case "compact":
		show = false
	default:
		return fmt.Errorf("invalid mode: %s (valid: grid, compact)", args[0])
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	s.controller().SetShowMultiColumns(show)
	return nil
}

func viewReset(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	s.controller().Clear()
	fmt.Fprintln(cmd.OutOrStdout(), "View settings reset")
	return nil
}

func viewExport(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	formatFlag, _ := cmd.Flags().GetString("format")

	var format parser.Format
	var w io.Writer = cmd.OutOrStdout()
	switch {
	case formatFlag != "":
		format, err = parser.ParseFormat(formatFlag)
	case output != "":
		format, err = parser.FormatFromPath(output)
	default:
		format = parser.FormatYAML
	}
	if err != nil {
		return err
	}

	if output != "" {
		f, err := appFs.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return parser.WriteViewState(w, exportFile(s, s.controller()), format)
}

func viewImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	format, err := parser.FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := appFs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	file, err := parser.ParseViewState(f, format)
	if err != nil {
		return err
	}
	if file.Version != "" && file.Version != viewstate.StoreVersion {
		return fmt.Errorf("unsupported view state version: %s (expected %s)", file.Version, viewstate.StoreVersion)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	if file.Experiment != "" && file.Experiment != s.experiment.ExperimentID {
		s.logger.Warn().Str("file", file.Experiment).Str("experiment", s.experiment.ExperimentID).
			Msg("importing view settings saved for another experiment")
	}
	s.persister.SaveView(file.View)
	s.persister.SavePage(file.Page)
	fmt.Fprintf(cmd.OutOrStdout(), "Imported view settings from %s\n", path)
	return nil
}
