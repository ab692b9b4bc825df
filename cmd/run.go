package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-runs/internal/render"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Manage MLflow runs",
	Long:  "Show, rename, delete and restore MLflow runs",
}

var runShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show an MLflow run",
	Long:  "Print the metadata, run command, params, metrics and tags of a run",
	RunE:  runShow,
}

var runRenameCmd = &cobra.Command{
	Use:   "rename",
	Short: "Rename an MLflow run",
	Long:  "Set the display name of an existing MLflow run",
	RunE:  runRename,
}

var runDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete MLflow runs",
	Long:  "Move runs to the deleted lifecycle stage",
	RunE:  func(cmd *cobra.Command, args []string) error { return runLifecycle(cmd, true) },
}

var runRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore deleted MLflow runs",
	Long:  "Move deleted runs back to the active lifecycle stage",
	RunE:  func(cmd *cobra.Command, args []string) error { return runLifecycle(cmd, false) },
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.AddCommand(runShowCmd)
	runCmd.AddCommand(runRenameCmd)
	runCmd.AddCommand(runDeleteCmd)
	runCmd.AddCommand(runRestoreCmd)

	// Show command flags
	runShowCmd.Flags().String("run-id", "", "Run ID to show (required)")
	runShowCmd.MarkFlagRequired("run-id")

	// Rename command flags
	runRenameCmd.Flags().String("run-id", "", "Run ID to rename (required)")
	runRenameCmd.Flags().String("name", "", "New run name (required)")
	runRenameCmd.MarkFlagRequired("run-id")
	runRenameCmd.MarkFlagRequired("name")

	// Delete/restore command flags
	for _, c := range []*cobra.Command{runDeleteCmd, runRestoreCmd} {
		c.Flags().StringArray("run-id", []string{}, "Run ID (repeatable, required)")
		c.MarkFlagRequired("run-id")
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	runID, _ := cmd.Flags().GetString("run-id")

	set, err := s.client.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.RunDetail(set, runID))
	return nil
}

func runRename(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}

	// Parse flags
	runID, _ := cmd.Flags().GetString("run-id")
	name, _ := cmd.Flags().GetString("name")

	if err := s.client.RenameRun(cmd.Context(), runID, processEscapeSequences(name)); err != nil {
		return fmt.Errorf("failed to rename run: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run renamed successfully\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run ID: %s\n", runID)
	fmt.Fprintf(cmd.OutOrStdout(), "Name: %s\n", strings.TrimSpace(name))
	return nil
}

func runLifecycle(cmd *cobra.Command, deleteRuns bool) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	runIDs, _ := cmd.Flags().GetStringArray("run-id")

	verb := "restored"
	op := s.client.RestoreRun
	if deleteRuns {
		verb = "deleted"
		op = s.client.DeleteRun
	}
	for _, runID := range runIDs {
		if err := op(cmd.Context(), runID); err != nil {
			return fmt.Errorf("failed to update run %s: %w", runID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Run %s %s\n", runID, verb)
	}
	return nil
}

// processEscapeSequences processes common escape sequences in strings
func processEscapeSequences(s string) string {
	s = strings.ReplaceAll(s, "\\t", "\t")
	s = strings.ReplaceAll(s, "\\\\", "\\")
	return s
}
