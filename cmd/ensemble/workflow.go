package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ensemble-cli/ensemble/internal/workflow"
)

var workflowCmd = &cobra.Command{
	Use:     "workflow",
	Aliases: []string{"workflows", "wf"},
	Short:   "Manage workflow templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all workflows by priority",
	RunE:  runWorkflowList,
}

var workflowShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a workflow's steps and gates",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowShow,
}

var workflowCreateCmd = &cobra.Command{
	Use:   "create <name> [description]",
	Short: "Scaffold a new custom workflow",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runWorkflowCreate,
}

var workflowValidateCmd = &cobra.Command{
	Use:   "validate <name>",
	Short: "Validate a workflow definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowValidate,
}

var workflowDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a custom workflow",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowDelete,
}

var workflowExportCmd = &cobra.Command{
	Use:   "export <name> <path>",
	Short: "Export a workflow to a YAML or JSON file",
	Args:  cobra.ExactArgs(2),
	RunE:  runWorkflowExport,
}

var workflowImportCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import a workflow file as a custom workflow",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowImport,
}

var workflowStatsCmd = &cobra.Command{
	Use:   "stats [name]",
	Short: "Show execution statistics for one workflow or all",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWorkflowStats,
}

var workflowMatchCmd = &cobra.Command{
	Use:   "match <task description>",
	Short: "Show which workflows match a task and why",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWorkflowMatch,
}

func init() {
	workflowCmd.AddCommand(workflowListCmd)
	workflowCmd.AddCommand(workflowShowCmd)
	workflowCmd.AddCommand(workflowCreateCmd)
	workflowCmd.AddCommand(workflowValidateCmd)
	workflowCmd.AddCommand(workflowDeleteCmd)
	workflowCmd.AddCommand(workflowExportCmd)
	workflowCmd.AddCommand(workflowImportCmd)
	workflowCmd.AddCommand(workflowStatsCmd)
	workflowCmd.AddCommand(workflowMatchCmd)
}

func runWorkflowList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.workflows.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No workflows found. Run 'ensemble init' to install the templates.")
		return nil
	}

	for _, e := range entries {
		wf := e.Workflow
		fmt.Printf("%-28s %-8s %-8s %d steps  %s\n",
			color.YellowString(wf.Name), e.Source, wf.Priority, len(wf.Steps), wf.Description)
	}
	return nil
}

func runWorkflowShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	wf, source, err := a.workflows.Get(args[0])
	if err != nil {
		return err
	}

	color.Cyan("%s v%s (%s)", wf.Name, wf.Version, source)
	fmt.Println(wf.Description)
	if len(wf.TaskTypes) > 0 {
		fmt.Printf("Task types: %s\n", strings.Join(wf.TaskTypes, ", "))
	}
	if len(wf.Tags) > 0 {
		fmt.Printf("Tags:       %s\n", strings.Join(wf.Tags, ", "))
	}

	fmt.Println("\nSteps:")
	for i, step := range wf.Steps {
		req := "required"
		if !step.Required {
			req = "optional"
		}
		fmt.Printf("  %d. %s (%s, %s)\n", i+1, step.Name, step.Agent, req)
		if len(step.DependsOn) > 0 {
			fmt.Printf("     depends on: %s\n", strings.Join(step.DependsOn, ", "))
		}
		if len(step.Outputs) > 0 {
			fmt.Printf("     outputs: %s\n", strings.Join(step.Outputs, ", "))
		}
	}

	for _, gate := range wf.QualityGates {
		fmt.Printf("\nGate %s after %s (%s)\n", gate.Name, gate.AfterStep, gate.Type)
	}
	return nil
}

func runWorkflowCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	path, err := a.workflows.Create(args[0], description)
	if err != nil {
		return err
	}
	color.Green("Created %s", path)
	fmt.Println("Edit the file to add steps, then run 'ensemble workflow validate'.")
	return nil
}

func runWorkflowValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	wf, _, err := a.workflows.Get(args[0])
	if err != nil {
		return err
	}

	problems, warnings := workflow.Validate(wf)
	for _, w := range warnings {
		color.Yellow("warning: %s", w)
	}
	if len(problems) == 0 {
		color.Green("✓ %s is valid", wf.Name)
		return nil
	}
	for _, p := range problems {
		color.Red("✗ %s", p)
	}
	return fmt.Errorf("%d problems found", len(problems))
}

func runWorkflowDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.workflows.Delete(args[0]); err != nil {
		return err
	}
	color.Green("Deleted %s", args[0])
	return nil
}

func runWorkflowExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.workflows.Export(args[0], args[1]); err != nil {
		return err
	}
	color.Green("Exported %s to %s", args[0], args[1])
	return nil
}

func runWorkflowImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	wf, err := a.workflows.Import(args[0])
	if err != nil {
		return err
	}
	color.Green("Imported %s (%d steps)", wf.Name, len(wf.Steps))
	return nil
}

func runWorkflowStats(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		stats, err := a.tracker.WorkflowStats(args[0])
		if err != nil {
			return err
		}
		if stats.TotalExecutions == 0 {
			fmt.Printf("No executions recorded for %s\n", args[0])
			return nil
		}
		color.Cyan(stats.WorkflowName)
		fmt.Printf("Executions: %d (%d completed, %d partial, %d failed)\n",
			stats.TotalExecutions, stats.Completed, stats.Partial, stats.Failed)
		fmt.Printf("Success rate: %.1f%%, avg duration %.1fs\n", stats.SuccessRate, stats.AverageDuration)
		for id, s := range stats.Steps {
			fmt.Printf("  %-20s %d runs, %.0f%% success, %.1fs avg\n",
				id, s.Executions, s.SuccessRate, s.AverageDuration)
		}
		return nil
	}

	stats, err := a.tracker.GlobalStats()
	if err != nil {
		return err
	}
	if stats.TotalExecutions == 0 {
		fmt.Println("No workflow executions recorded yet.")
		return nil
	}
	fmt.Printf("Executions: %d (%d completed, %d partial, %d failed)\n",
		stats.TotalExecutions, stats.Completed, stats.Partial, stats.Failed)
	fmt.Printf("Total time: %.1fs\n", stats.TotalDuration)
	fmt.Println("\nMost used:")
	for _, u := range stats.MostUsed {
		fmt.Printf("  %-28s %d runs, %.0f%% success\n", u.Name, u.Executions, u.SuccessRate)
	}
	return nil
}

func runWorkflowMatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	task := strings.Join(args, " ")
	results, err := a.workflows.Match(task)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No workflows match. The task would run with direct agent selection.")
		return nil
	}

	for _, r := range results {
		fmt.Printf("%-28s score %-3d %s relevance  (%s)\n",
			color.YellowString(r.Entry.Workflow.Name), r.Score, r.Relevance,
			strings.Join(r.Reasons, "; "))
	}
	return nil
}
