package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent runs and per-agent totals",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "Maximum runs to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	db, err := a.openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	total, successful, err := db.CountRuns()
	if err != nil {
		return err
	}
	if total == 0 {
		fmt.Println("No runs recorded yet. Try 'ensemble run \"a task\"'.")
		return nil
	}

	color.Cyan("%d runs recorded, %d successful (%.0f%%)\n",
		total, successful, float64(successful)/float64(total)*100)

	runs, err := db.RecentRuns(statusLimit)
	if err != nil {
		return err
	}
	fmt.Println("Recent runs:")
	for _, r := range runs {
		outcome := color.GreenString("ok")
		if !r.Success {
			outcome = color.RedString("failed")
		}
		mode := r.Mode
		if r.Workflow != "" {
			mode = "workflow:" + r.Workflow
		}
		fmt.Printf("  %s  %-8s %-10s %-24s %s  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			outcome, r.TaskType, mode, r.Duration.Round(time.Millisecond),
			truncateTask(r.Description, 60))
	}

	aggregates, err := db.AgentAggregates()
	if err != nil {
		return err
	}
	if len(aggregates) > 0 {
		fmt.Println("\nAgents:")
		for _, agg := range aggregates {
			fmt.Printf("  %-18s %d runs, %.0f%% success, %d tokens, $%.4f, %s avg\n",
				agg.AgentName, agg.Runs, agg.SuccessRate(),
				agg.TotalTokens, agg.TotalCost, agg.AvgDuration.Round(time.Millisecond))
		}
	}
	return nil
}
