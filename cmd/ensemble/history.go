package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ensemble-cli/ensemble/pkg/models"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [workflow]",
	Short: "Show recent workflow executions",
	Long: `List recent workflow executions, newest first. Pass a workflow
name to filter to that workflow's runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats [workflow]",
	Short: "Aggregate execution statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWorkflowStats,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Maximum executions to show")
	historyCmd.AddCommand(historyStatsCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	workflowName := ""
	if len(args) == 1 {
		workflowName = args[0]
	}

	executions, err := a.tracker.List(workflowName, historyLimit)
	if err != nil {
		return err
	}
	if len(executions) == 0 {
		fmt.Println("No workflow executions recorded yet.")
		return nil
	}

	for _, exec := range executions {
		status := statusColor(exec.Status)
		fmt.Printf("%s  %-28s %-10s %d/%d steps  %.1fs\n",
			exec.StartTime.Format("2006-01-02 15:04"),
			exec.WorkflowName, status,
			exec.CompletedSteps, exec.TotalSteps, exec.DurationSeconds)
		fmt.Printf("  %s\n", truncateTask(exec.TaskDescription, 100))
	}
	return nil
}

func statusColor(status models.WorkflowStatus) string {
	switch status {
	case models.WorkflowCompleted:
		return color.GreenString(string(status))
	case models.WorkflowPartial:
		return color.YellowString(string(status))
	case models.WorkflowFailed:
		return color.RedString(string(status))
	}
	return string(status)
}

func truncateTask(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
