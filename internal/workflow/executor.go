package workflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ensemble-cli/ensemble/internal/history"
	"github.com/ensemble-cli/ensemble/internal/registry"
	"github.com/ensemble-cli/ensemble/pkg/models"
)

// AgentExecutor runs one agent against a prompt. The orchestrator
// satisfies this so workflow steps execute through the same path as
// direct tasks.
type AgentExecutor interface {
	ExecuteAgent(ctx context.Context, agent *models.AgentDefinition, prompt, taskID string, taskCtx *models.TaskContext) models.AgentResult
}

// ConfirmFunc asks the user a yes/no question for manual quality
// gates. A nil ConfirmFunc passes every manual gate, for unattended
// runs.
type ConfirmFunc func(prompt string) bool

// ExecEvent reports step-level progress during a workflow run.
type ExecEvent struct {
	// Stage is one of: workflow_start, step_start, step_done,
	// step_skipped, gate, workflow_done.
	Stage   string
	StepID  string
	Message string
}

// Executor drives a workflow's steps through an AgentExecutor and
// records the run in history.
type Executor struct {
	registry *registry.Registry
	agents   AgentExecutor
	tracker  *history.Tracker

	// Confirm handles manual quality gates.
	Confirm ConfirmFunc
	// OnEvent, when set, receives progress events.
	OnEvent func(ExecEvent)
}

// NewExecutor creates an executor.
func NewExecutor(reg *registry.Registry, agents AgentExecutor, tracker *history.Tracker) *Executor {
	return &Executor{registry: reg, agents: agents, tracker: tracker}
}

// Execute runs a workflow against a task in projectDir. Steps run in
// template order. A failed required step stops the run; failed
// optional steps are recorded and skipped past. The returned execution
// is always non-nil once tracking starts, even when err is set.
func (e *Executor) Execute(ctx context.Context, wf *models.Workflow, task, projectDir string) (*models.Execution, error) {
	if problems, _ := Validate(wf); len(problems) > 0 {
		return nil, fmt.Errorf("workflow %s is invalid: %s", wf.Name, problems[0])
	}

	execID := e.tracker.StartExecution(wf.Name, wf.Version, task, projectDir)
	e.emit(ExecEvent{Stage: "workflow_start", Message: fmt.Sprintf("workflow %s v%s started (%d steps)", wf.Name, wf.Version, len(wf.Steps))})

	e.logHooks("pre_workflow", wf.Hooks.PreWorkflow)

	completed := make(map[string]bool)
	started, failed := 0, 0
	stopped, gateRejected := false, false

	for _, step := range wf.Steps {
		if stopped {
			break
		}

		if unmet := unmetDeps(step, completed); len(unmet) > 0 {
			reason := fmt.Sprintf("dependencies not satisfied: %s", strings.Join(unmet, ", "))
			e.tracker.StartStep(execID, step.ID, step.Name, step.Agent)
			started++
			if step.Required {
				e.tracker.FailStep(execID, step.ID, reason)
				failed++
				e.emit(ExecEvent{Stage: "step_done", StepID: step.ID, Message: reason})
				e.logHooks("on_error", wf.Hooks.OnError)
				stopped = true
			} else {
				e.tracker.SkipStep(execID, step.ID, reason)
				e.emit(ExecEvent{Stage: "step_skipped", StepID: step.ID, Message: reason})
			}
			continue
		}

		started++
		ok := e.runStep(ctx, execID, wf, step, task, projectDir)
		if ok {
			completed[step.ID] = true
		} else {
			failed++
			if step.Required {
				e.logHooks("on_error", wf.Hooks.OnError)
				stopped = true
				continue
			}
		}

		if ok && !e.runGates(execID, wf, step.ID) {
			stopped = true
			gateRejected = true
		}
	}

	e.logHooks("post_workflow", wf.Hooks.PostWorkflow)

	// Progress outweighs failure: the run succeeds when nothing
	// failed, or when some steps completed and not everything failed.
	// A rejected required gate fails the run outright.
	success := !gateRejected &&
		(failed == 0 || (len(completed) > 0 && failed < started))

	exec, err := e.tracker.CompleteExecution(execID, success)
	if exec != nil {
		e.emit(ExecEvent{Stage: "workflow_done", Message: fmt.Sprintf("workflow %s finished: %s (%d/%d steps)", wf.Name, exec.Status, exec.CompletedSteps, exec.TotalSteps)})
	}
	return exec, err
}

// runStep executes one step and validates its outputs. It returns true
// when the step completed with passing validation.
func (e *Executor) runStep(ctx context.Context, execID string, wf *models.Workflow, step models.Step, task, projectDir string) bool {
	e.tracker.StartStep(execID, step.ID, step.Name, step.Agent)
	e.emit(ExecEvent{Stage: "step_start", StepID: step.ID, Message: fmt.Sprintf("%s (%s)", step.Name, step.Agent)})

	agent, err := e.registry.Get(step.Agent)
	if err != nil {
		e.tracker.FailStep(execID, step.ID, fmt.Sprintf("agent %s not in registry", step.Agent))
		e.emit(ExecEvent{Stage: "step_done", StepID: step.ID, Message: fmt.Sprintf("failed: unknown agent %s", step.Agent)})
		return false
	}

	stepCtx := ctx
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, time.Duration(step.Timeout)*time.Second)
		defer cancel()
	}

	prompt := stepPrompt(step, task)
	taskID := fmt.Sprintf("%s_%s", execID, step.ID)
	result := e.agents.ExecuteAgent(stepCtx, agent, prompt, taskID, &models.TaskContext{ProjectPath: projectDir})

	if !result.Success {
		e.tracker.FailStep(execID, step.ID, result.Error)
		e.emit(ExecEvent{Stage: "step_done", StepID: step.ID, Message: fmt.Sprintf("failed: %s", result.Error)})
		return false
	}

	validationErrs := checkOutputs(projectDir, step)
	if len(validationErrs) > 0 {
		e.tracker.FailStep(execID, step.ID, fmt.Sprintf("output validation failed: %s", strings.Join(validationErrs, "; ")))
		e.emit(ExecEvent{Stage: "step_done", StepID: step.ID, Message: fmt.Sprintf("validation failed: %s", validationErrs[0])})
		return false
	}

	e.tracker.CompleteStep(execID, step.ID, result.FilesCreated, true, nil)
	e.emit(ExecEvent{Stage: "step_done", StepID: step.ID, Message: fmt.Sprintf("completed (%d files)", len(result.FilesCreated))})
	return true
}

// runGates processes quality gates following a step. It returns false
// when a required gate fails and the workflow must stop.
func (e *Executor) runGates(execID string, wf *models.Workflow, stepID string) bool {
	for _, gate := range wf.QualityGates {
		if gate.AfterStep != stepID {
			continue
		}

		passed := true
		switch gate.Type {
		case "manual":
			if e.Confirm != nil {
				e.tracker.RecordIntervention(execID)
				passed = e.Confirm(fmt.Sprintf("Quality gate %q: %s. Continue?", gate.Name, gate.Description))
			} else {
				log.Printf("[workflow] manual gate %s passed automatically (no confirmer)", gate.Name)
			}
		default:
			// Automatic gates pass; step validation already ran.
		}

		e.tracker.RecordQualityGate(execID, gate.Name, passed)
		e.emit(ExecEvent{Stage: "gate", StepID: stepID, Message: fmt.Sprintf("gate %s: passed=%v", gate.Name, passed)})

		if !passed && gate.Required {
			return false
		}
	}
	return true
}

func unmetDeps(step models.Step, completed map[string]bool) []string {
	var unmet []string
	for _, dep := range step.DependsOn {
		if !completed[dep] {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

// stepPrompt builds the prompt an agent receives for a workflow step.
func stepPrompt(step models.Step, task string) string {
	var b strings.Builder
	b.WriteString(step.Action)
	b.WriteString("\n\nOverall task: ")
	b.WriteString(task)
	if len(step.Outputs) > 0 {
		b.WriteString("\n\nExpected outputs:\n")
		for _, out := range step.Outputs {
			fmt.Fprintf(&b, "- %s\n", out)
		}
	}
	return b.String()
}

func (e *Executor) logHooks(point string, hooks []models.Hook) {
	for _, h := range hooks {
		log.Printf("[workflow] %s hook: %s", point, h.Action)
	}
}

func (e *Executor) emit(ev ExecEvent) {
	if e.OnEvent != nil {
		e.OnEvent(ev)
	}
}
