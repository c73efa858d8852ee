package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ensemble-cli/ensemble/internal/orchestrator"
	"github.com/ensemble-cli/ensemble/internal/registry"
	"github.com/ensemble-cli/ensemble/internal/tui"
	"github.com/ensemble-cli/ensemble/internal/workflow"
	"github.com/ensemble-cli/ensemble/pkg/models"
)

var (
	runProject     string
	runMaxAgents   int
	runWorkflow    string
	runNoWorkflows bool
	runTUI         bool
	runYes         bool
)

var runCmd = &cobra.Command{
	Use:   "run <task description>",
	Short: "Execute a task with the best-suited agents",
	Long: `Analyze a task, select agents, and execute it.

When the task matches a workflow template well enough, the workflow
runs instead of direct agent selection. Use --workflow to force a
specific template or --no-workflows to always run direct.

Examples:
  ensemble run "Fix the login bug in auth.py"
  ensemble run "Build a todo web app" --project todo-app
  ensemble run "Add search" --workflow feature-implementation --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runProject, "project", "p", "", "Run inside a named project (created if missing)")
	runCmd.Flags().IntVar(&runMaxAgents, "max-agents", 0, "Cap the number of agents (0 uses the config default)")
	runCmd.Flags().StringVarP(&runWorkflow, "workflow", "w", "", "Run a specific workflow template")
	runCmd.Flags().BoolVar(&runNoWorkflows, "no-workflows", false, "Skip workflow matching and run agents directly")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show live progress in a TUI")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Pass manual quality gates without prompting")
}

func runRun(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.buildOrchestrator(); err != nil {
		return err
	}

	// Pick up external edits to registry.json while agents run.
	if w, err := registry.Watch(a.registry); err == nil {
		defer w.Close()
	} else {
		log.Printf("[run] registry watch unavailable: %v", err)
	}

	taskCtx := &models.TaskContext{}
	if runProject != "" {
		if !a.projects.Exists(runProject) {
			if _, err := a.projects.Create(runProject, ""); err != nil {
				return err
			}
			color.Green("Created project %s", runProject)
		}
		taskCtx.ProjectPath = a.projects.Path(runProject)
	}

	wf, err := selectWorkflow(a, task)
	if err != nil {
		return err
	}
	if wf != nil {
		return runViaWorkflow(a, wf, task, taskCtx)
	}
	return runDirect(a, task, taskCtx)
}

// selectWorkflow picks the workflow to run, if any: the one named by
// --workflow, or the best match above the configured threshold.
func selectWorkflow(a *app, task string) (*models.Workflow, error) {
	if runNoWorkflows {
		return nil, nil
	}
	if runWorkflow != "" {
		wf, _, err := a.workflows.Get(runWorkflow)
		return wf, err
	}

	match, err := a.workflows.BestMatch(task, a.cfg.Workflow.MatchThreshold)
	if err != nil || match == nil {
		return nil, err
	}
	color.Cyan("Matched workflow %s (score %d, %s relevance)",
		match.Entry.Workflow.Name, match.Score, match.Relevance)
	return match.Entry.Workflow, nil
}

func runViaWorkflow(a *app, wf *models.Workflow, task string, taskCtx *models.TaskContext) error {
	projectDir := taskCtx.ProjectPath
	if projectDir == "" {
		projectDir = a.baseDir
	}

	exec := workflow.NewExecutor(a.registry, a.orch, a.tracker)
	if !runYes {
		exec.Confirm = confirmPrompt
	}
	exec.OnEvent = func(e workflow.ExecEvent) {
		switch e.Stage {
		case "step_start":
			color.Yellow("→ %s", e.Message)
		case "step_done":
			fmt.Printf("  %s\n", e.Message)
		case "step_skipped":
			color.Yellow("  skipped: %s", e.Message)
		default:
			fmt.Println(e.Message)
		}
	}

	execution, err := exec.Execute(context.Background(), wf, task, projectDir)
	if err != nil {
		return err
	}

	switch execution.Status {
	case models.WorkflowCompleted:
		color.Green("\nWorkflow completed: %d/%d steps in %.1fs",
			execution.CompletedSteps, execution.TotalSteps, execution.DurationSeconds)
	case models.WorkflowPartial:
		color.Yellow("\nWorkflow partially completed: %d done, %d failed",
			execution.CompletedSteps, execution.FailedSteps)
	default:
		color.Red("\nWorkflow failed: %d/%d steps completed",
			execution.CompletedSteps, execution.TotalSteps)
		os.Exit(1)
	}
	return nil
}

func runDirect(a *app, task string, taskCtx *models.TaskContext) error {
	opts := orchestrator.Options{
		MaxAgents: runMaxAgents,
		Context:   taskCtx,
	}

	var result *orchestrator.TaskResult
	var err error

	if runTUI {
		err = tui.Run(task, func(onEvent func(orchestrator.Event)) (bool, time.Duration, error) {
			opts.OnEvent = onEvent
			result, err = a.orch.ExecuteTask(context.Background(), task, opts)
			if err != nil {
				return false, 0, err
			}
			return result.Success, result.Duration, nil
		})
		if err != nil {
			return err
		}
	} else {
		opts.OnEvent = printEvent
		result, err = a.orch.ExecuteTask(context.Background(), task, opts)
		if err != nil {
			return err
		}
	}

	if result == nil {
		return nil
	}
	printResults(result)
	if !result.Success {
		os.Exit(1)
	}
	return nil
}

func printEvent(e orchestrator.Event) {
	switch e.Stage {
	case "analysis":
		color.Cyan(e.Message)
	case "agent_start":
		color.Yellow("→ %s", e.Message)
	case "agent_done":
		if e.Result != nil && e.Result.Success {
			color.Green("✓ %s", e.Message)
		} else {
			color.Red("✗ %s", e.Message)
		}
	}
}

func printResults(result *orchestrator.TaskResult) {
	fmt.Println()
	for _, r := range result.Results {
		if r.Success {
			color.Green("%s succeeded (%d files, %s)", r.AgentName, len(r.FilesCreated), r.Duration.Round(time.Millisecond))
			for _, f := range r.FilesCreated {
				fmt.Printf("  %s\n", f)
			}
		} else {
			color.Red("%s failed: %s", r.AgentName, r.Error)
		}
	}
	if result.Success {
		color.Green("\nTask %s completed in %s", result.TaskID, result.Duration.Round(time.Millisecond))
	} else {
		color.Red("\nTask %s failed", result.TaskID)
	}
}

// confirmPrompt asks a yes/no question on stdin.
func confirmPrompt(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
