package cmd

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-runs/internal/csvexport"
	"github.com/imishinist/mlflow-runs/internal/render"
	"github.com/imishinist/mlflow-runs/internal/tui"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Browse the runs of an experiment",
	Long:  "List, export and interactively browse the runs of an MLflow experiment",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the run table",
	Long:  "Print the run table using the saved sort, columns and filters",
	RunE:  runsList,
}

var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run table as CSV",
	Long:  "Export the displayed runs with their params and metrics as CSV",
	RunE:  runsExport,
}

var runsBrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse runs interactively",
	Long:  "Open the interactive run table",
	RunE:  runsBrowse,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsBrowseCmd)

	addSearchFlags(runsListCmd)
	addSearchFlags(runsExportCmd)
	runsExportCmd.Flags().String("output", "", "Output file (default: stdout)")
}

func runsList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	ctrl := s.controller()
	if err := s.applySearchFlags(cmd, ctrl); err != nil {
		return err
	}

	grid := render.BuildGrid(ctrl)
	if len(grid.Rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), grid.String())
	return nil
}

func runsExport(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	ctrl := s.controller()
	if err := s.applySearchFlags(cmd, ctrl); err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := appFs.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := csvexport.WriteRunsCSV(w, ctrl.Runs(), ctrl.DisplayOrder(), ctrl.ParamKeys(), ctrl.MetricKeys()); err != nil {
		return err
	}
	s.logger.Info().Int("runs", len(ctrl.DisplayOrder())).Str("output", output).Msg("exported runs")
	return nil
}

func runsBrowse(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	model := tui.New(s.controller(), s.client, s.experiment.ExperimentID,
		tui.WithLogger(s.logger),
		tui.WithContext(cmd.Context()),
	)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run browser: %w", err)
	}
	return nil
}
