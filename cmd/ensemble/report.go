package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ensemble-cli/ensemble/internal/learning"
)

var (
	reportExportPath     string
	reportMinOccurrences int
	reportSaveTemplate   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Learning reports and workflow analysis",
	RunE:  runReport,
}

var reportAnalyzeCmd = &cobra.Command{
	Use:   "analyze <workflow>",
	Short: "Analyze a workflow's history and suggest improvements",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportAnalyze,
}

var reportPatternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Detect recurring task patterns in execution history",
	RunE:  runReportPatterns,
}

var reportTimeoutsCmd = &cobra.Command{
	Use:   "timeouts <workflow>",
	Short: "Suggest per-step timeouts from observed durations",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportTimeouts,
}

func init() {
	reportCmd.Flags().StringVarP(&reportExportPath, "output", "o", "", "Write the report as markdown to this path")
	reportPatternsCmd.Flags().IntVar(&reportMinOccurrences, "min", 3, "Minimum occurrences before a pattern is reported")
	reportPatternsCmd.Flags().StringVar(&reportSaveTemplate, "save", "", "Generate a workflow template from the top pattern under this name")

	reportCmd.AddCommand(reportAnalyzeCmd)
	reportCmd.AddCommand(reportPatternsCmd)
	reportCmd.AddCommand(reportTimeoutsCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if reportExportPath != "" {
		if err := a.skills.ExportReport(reportExportPath); err != nil {
			return err
		}
		color.Green("Report written to %s", reportExportPath)
		return nil
	}

	report := a.skills.LearningReport()
	if report.TotalTasks == 0 {
		fmt.Println("No task outcomes recorded yet.")
		return nil
	}

	color.Cyan("Learning report")
	fmt.Printf("Tasks:        %d (%.1f%% success)\n", report.TotalTasks, report.SuccessRate)
	fmt.Printf("Total cost:   $%.4f\n", report.TotalCost)
	fmt.Printf("Total time:   %.1fs (%.1fs avg per task)\n", report.TotalTime, report.AvgTimePerTask)
	fmt.Printf("Patterns:     %d learned, %d agents tracked\n", report.LearnedPatterns, report.AgentsTracked)

	if len(report.TaskTypes) > 0 {
		fmt.Println("\nTask types:")
		types := make([]string, 0, len(report.TaskTypes))
		for tt := range report.TaskTypes {
			types = append(types, tt)
		}
		sort.Strings(types)
		for _, tt := range types {
			fmt.Printf("  %-16s %d\n", tt, report.TaskTypes[tt])
		}
	}

	if len(report.AgentRankings) > 0 {
		fmt.Println("\nAgent success rates:")
		agents := make([]string, 0, len(report.AgentRankings))
		for name := range report.AgentRankings {
			agents = append(agents, name)
		}
		sort.Slice(agents, func(i, j int) bool {
			ri, rj := report.AgentRankings[agents[i]], report.AgentRankings[agents[j]]
			if ri != rj {
				return ri > rj
			}
			return agents[i] < agents[j]
		})
		for _, name := range agents {
			fmt.Printf("  %-18s %.1f%%\n", name, report.AgentRankings[name])
		}
	}
	return nil
}

func runReportAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	learner := learning.NewLearner(a.tracker)
	analysis, err := learner.AnalyzeWorkflow(args[0])
	if err != nil {
		return err
	}

	color.Cyan(analysis.WorkflowName)
	fmt.Printf("Executions: %d, success rate %.1f%%, avg duration %.1fs\n",
		analysis.Stats.TotalExecutions, analysis.Stats.SuccessRate, analysis.Stats.AverageDuration)

	if len(analysis.Improvements) == 0 {
		color.Green("No improvements suggested.")
		return nil
	}
	fmt.Println("\nSuggested improvements:")
	for _, imp := range analysis.Improvements {
		if imp.StepID != "" {
			color.Yellow("  [%s] step %s: %s", imp.Type, imp.StepID, imp.Recommendation)
		} else {
			color.Yellow("  [%s] %s", imp.Type, imp.Recommendation)
		}
	}
	return nil
}

func runReportPatterns(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	learner := learning.NewLearner(a.tracker)
	patterns, err := learner.DetectTaskPatterns(reportMinOccurrences)
	if err != nil {
		return err
	}
	if len(patterns) == 0 {
		fmt.Printf("No task patterns occur %d or more times yet.\n", reportMinOccurrences)
		return nil
	}

	for _, p := range patterns {
		fmt.Printf("%-40s x%d, %.0f%% success, %.1fs avg\n",
			color.YellowString(p.Keywords), p.Occurrences, p.SuccessRate, p.AvgDuration)
		fmt.Printf("  agents: %s\n", strings.Join(p.AgentSequence, " → "))
		for _, sample := range p.SampleTasks {
			fmt.Printf("  e.g. %s\n", truncateTask(sample, 80))
		}
	}

	if reportSaveTemplate != "" {
		wf := learner.GenerateTemplate(patterns[0], reportSaveTemplate)
		path, err := a.workflows.SaveLearned(wf)
		if err != nil {
			return err
		}
		color.Green("\nLearned workflow written to %s", path)
	}
	return nil
}

func runReportTimeouts(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	learner := learning.NewLearner(a.tracker)
	timeouts, err := learner.OptimizeTimeouts(args[0])
	if err != nil {
		return err
	}
	if len(timeouts) == 0 {
		fmt.Println("No completed steps to learn timeouts from.")
		return nil
	}

	steps := make([]string, 0, len(timeouts))
	for id := range timeouts {
		steps = append(steps, id)
	}
	sort.Strings(steps)

	fmt.Println("Suggested step timeouts (observed average x1.5):")
	for _, id := range steps {
		fmt.Printf("  %-20s %ds\n", id, timeouts[id])
	}
	return nil
}
