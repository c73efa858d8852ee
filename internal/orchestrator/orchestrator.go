// Package orchestrator coordinates agent selection and execution for
// a task, and records outcomes for learning.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ensemble-cli/ensemble/internal/claude"
	"github.com/ensemble-cli/ensemble/internal/config"
	"github.com/ensemble-cli/ensemble/internal/registry"
	"github.com/ensemble-cli/ensemble/internal/router"
	"github.com/ensemble-cli/ensemble/pkg/models"
)

// ErrNoArtifacts is returned when an agent exits cleanly but produced
// no files in its workspace. A clean exit without output is a failed
// task, not a quiet success.
var ErrNoArtifacts = errors.New("agent completed without creating any files")

// OutcomeRecorder receives task outcomes as agents finish.
// The skills history implements it.
type OutcomeRecorder interface {
	Record(outcome models.TaskOutcome) error
}

// RunRecorder persists run summaries. The state store implements it.
type RunRecorder interface {
	RecordRun(run RunRecord) error
}

// RunRecord summarizes one completed task for the state store.
type RunRecord struct {
	ID          string
	Description string
	TaskType    string
	Mode        string
	Workflow    string
	Project     string
	Success     bool
	Duration    time.Duration
	StartedAt   time.Time
	Outcomes    []models.TaskOutcome
}

// Event reports orchestration progress to the CLI or TUI.
type Event struct {
	// Stage is one of: analysis, agent_start, agent_done, task_done.
	Stage string
	// Agent is set for agent_start and agent_done events.
	Agent string
	// Message is a human-readable progress line.
	Message string
	// Result is set on agent_done.
	Result *models.AgentResult
}

// Options modify a single ExecuteTask call.
type Options struct {
	// MaxAgents caps the number of agents; zero uses the config default.
	MaxAgents int
	// Context carries files, constraints, and prior results into prompts.
	Context *models.TaskContext
	// OnEvent, when set, receives progress events.
	OnEvent func(Event)
}

// TaskResult is the aggregate outcome of a task execution.
type TaskResult struct {
	TaskID      string
	Description string
	Analysis    models.TaskAnalysis
	Assignments []models.Assignment
	Results     []models.AgentResult
	Success     bool
	Duration    time.Duration
}

// Orchestrator drives agents against tasks.
type Orchestrator struct {
	registry *registry.Registry
	router   *router.Router
	runner   claude.Runner
	cfg      *config.Config

	// expectFiles is true for executors that work in the filesystem
	// (the CLI). The API executor returns text only.
	expectFiles bool

	// baseDir anchors workspace and instruction paths.
	baseDir string

	outcomes OutcomeRecorder
	runs     RunRecorder
}

// New creates an Orchestrator.
func New(reg *registry.Registry, rtr *router.Router, runner claude.Runner, cfg *config.Config, baseDir string, expectFiles bool) *Orchestrator {
	return &Orchestrator{
		registry:    reg,
		router:      rtr,
		runner:      runner,
		cfg:         cfg,
		baseDir:     baseDir,
		expectFiles: expectFiles,
	}
}

// SetOutcomeRecorder wires in the skills history.
func (o *Orchestrator) SetOutcomeRecorder(r OutcomeRecorder) {
	o.outcomes = r
}

// SetRunRecorder wires in the state store.
func (o *Orchestrator) SetRunRecorder(r RunRecorder) {
	o.runs = r
}

// ExecuteTask analyzes a task, selects agents, and runs them.
// Primary agents run sequentially; supporting agents run in parallel
// when the analysis allows it. Overall success requires every primary
// agent to succeed.
func (o *Orchestrator) ExecuteTask(ctx context.Context, description string, opts Options) (*TaskResult, error) {
	maxAgents := opts.MaxAgents
	if maxAgents <= 0 {
		maxAgents = o.cfg.Defaults.MaxAgents
	}

	taskID := uuid.New().String()[:8]
	start := time.Now()

	assignments, analysis := o.router.SelectAgents(description, maxAgents)
	if len(assignments) == 0 {
		return nil, fmt.Errorf("no agents available for task")
	}

	o.emit(opts, Event{
		Stage:   "analysis",
		Message: fmt.Sprintf("task %s classified as %s (%s), %d agent(s) assigned", taskID, analysis.TaskType, analysis.Complexity, len(assignments)),
	})

	result := &TaskResult{
		TaskID:      taskID,
		Description: description,
		Analysis:    analysis,
		Assignments: assignments,
	}

	var primary, secondary []models.Assignment
	for _, a := range assignments {
		if a.Priority == models.PriorityPrimary {
			primary = append(primary, a)
		} else {
			secondary = append(secondary, a)
		}
	}

	var outcomes []models.TaskOutcome
	primaryOK := true

	for _, a := range primary {
		agentResult := o.runAssignment(ctx, taskID, description, analysis, a, opts)
		result.Results = append(result.Results, agentResult)
		outcomes = append(outcomes, o.record(taskID, description, analysis, agentResult))
		if !agentResult.Success {
			primaryOK = false
		}
	}

	if len(secondary) > 0 {
		var secondaryResults []models.AgentResult
		if analysis.CanParallelize {
			secondaryResults = o.runParallel(ctx, taskID, description, analysis, secondary, opts)
		} else {
			for _, a := range secondary {
				secondaryResults = append(secondaryResults, o.runAssignment(ctx, taskID, description, analysis, a, opts))
			}
		}
		for _, r := range secondaryResults {
			result.Results = append(result.Results, r)
			outcomes = append(outcomes, o.record(taskID, description, analysis, r))
		}
	}

	result.Success = primaryOK
	result.Duration = time.Since(start)

	o.emit(opts, Event{
		Stage:   "task_done",
		Message: fmt.Sprintf("task %s finished in %s (success=%v)", taskID, result.Duration.Round(time.Millisecond), result.Success),
	})

	if o.runs != nil {
		project := ""
		if opts.Context != nil {
			project = opts.Context.ProjectPath
		}
		run := RunRecord{
			ID:          taskID,
			Description: description,
			TaskType:    analysis.TaskType,
			Mode:        "direct",
			Project:     project,
			Success:     result.Success,
			Duration:    result.Duration,
			StartedAt:   start,
			Outcomes:    outcomes,
		}
		if err := o.runs.RecordRun(run); err != nil {
			log.Printf("[orchestrator] record run: %v", err)
		}
	}

	return result, nil
}

// runParallel executes assignments concurrently and returns results in
// assignment order.
func (o *Orchestrator) runParallel(ctx context.Context, taskID, description string, analysis models.TaskAnalysis, assignments []models.Assignment, opts Options) []models.AgentResult {
	results := make([]models.AgentResult, len(assignments))
	var wg sync.WaitGroup

	for i, a := range assignments {
		wg.Add(1)
		go func(i int, a models.Assignment) {
			defer wg.Done()
			results[i] = o.runAssignment(ctx, taskID, description, analysis, a, opts)
		}(i, a)
	}
	wg.Wait()

	return results
}

func (o *Orchestrator) runAssignment(ctx context.Context, taskID, description string, analysis models.TaskAnalysis, a models.Assignment, opts Options) models.AgentResult {
	o.emit(opts, Event{
		Stage:   "agent_start",
		Agent:   a.Agent.Name,
		Message: fmt.Sprintf("%s starting (%s, confidence %.2f)", a.Agent.Name, a.Priority, a.Confidence),
	})

	prompt := router.BuildPrompt(a.Agent, description, opts.Context)
	result := o.ExecuteAgent(ctx, a.Agent, prompt, taskID, opts.Context)

	o.emit(opts, Event{
		Stage:   "agent_done",
		Agent:   a.Agent.Name,
		Message: fmt.Sprintf("%s finished (success=%v)", a.Agent.Name, result.Success),
		Result:  &result,
	})
	return result
}

// ExecuteAgent runs a single agent against a prompt in its own
// workspace and detects files the run created. The workflow executor
// also drives steps through this path.
func (o *Orchestrator) ExecuteAgent(ctx context.Context, agent *models.AgentDefinition, prompt, taskID string, taskCtx *models.TaskContext) models.AgentResult {
	result := models.AgentResult{AgentName: agent.Name}

	workspace := filepath.Join(o.baseDir, o.cfg.Paths.WorkspaceDir, agent.Name, taskID)
	if taskCtx != nil && taskCtx.ProjectPath != "" {
		workspace = taskCtx.ProjectPath
	}
	if err := os.MkdirAll(workspace, 0755); err != nil {
		result.Error = fmt.Sprintf("create workspace: %v", err)
		return result
	}
	result.Workspace = workspace

	instructions := registry.Instructions(o.baseDir, agent)
	fullPrompt := router.BuildFullPrompt(instructions, prompt)

	// The prompt files stay in the workspace for post-mortems.
	if err := os.WriteFile(filepath.Join(workspace, promptFile), []byte(prompt), 0644); err != nil {
		result.Error = fmt.Sprintf("write prompt: %v", err)
		return result
	}
	if err := os.WriteFile(filepath.Join(workspace, fullPromptFile), []byte(fullPrompt), 0644); err != nil {
		result.Error = fmt.Sprintf("write full prompt: %v", err)
		return result
	}

	before, err := snapshotFiles(workspace)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	runResult, runErr := o.runner.Run(ctx, claude.RunRequest{
		Prompt:       fullPrompt,
		SystemPrompt: agent.SystemPrompt,
		Model:        agent.Model,
		AllowedTools: agent.Tools,
		Dir:          workspace,
		Timeout:      o.cfg.Timeouts.Agent,
	})
	if runResult != nil {
		result.Output = runResult.Output
		result.Duration = runResult.Duration
		result.TokensUsed = runResult.TokensUsed
		result.Cost = runResult.Cost
	}
	if runErr != nil {
		result.Error = runErr.Error()
		return result
	}

	after, err := snapshotFiles(workspace)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.FilesCreated = newFiles(before, after)

	if o.expectFiles && len(result.FilesCreated) == 0 {
		result.Error = ErrNoArtifacts.Error()
		return result
	}

	result.Success = true
	return result
}

// record updates registry metrics and the skills history for a result,
// returning the outcome for the run record.
func (o *Orchestrator) record(taskID, description string, analysis models.TaskAnalysis, r models.AgentResult) models.TaskOutcome {
	if err := o.registry.UpdateMetrics(r.AgentName, r.Success, r.TokensUsed, r.Cost, r.Duration); err != nil {
		log.Printf("[orchestrator] update metrics for %s: %v", r.AgentName, err)
	}

	outcome := models.TaskOutcome{
		TaskID:          taskID,
		AgentName:       r.AgentName,
		TaskDescription: description,
		TaskType:        analysis.TaskType,
		Success:         r.Success,
		Duration:        r.Duration,
		TokensUsed:      r.TokensUsed,
		Cost:            r.Cost,
		ErrorMessage:    r.Error,
		Timestamp:       time.Now(),
	}
	if o.outcomes != nil {
		if err := o.outcomes.Record(outcome); err != nil {
			log.Printf("[orchestrator] record outcome: %v", err)
		}
	}
	return outcome
}

func (o *Orchestrator) emit(opts Options, e Event) {
	if opts.OnEvent != nil {
		opts.OnEvent(e)
	}
}
