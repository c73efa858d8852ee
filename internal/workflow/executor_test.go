package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ensemble-cli/ensemble/internal/history"
	"github.com/ensemble-cli/ensemble/internal/registry"
	"github.com/ensemble-cli/ensemble/pkg/models"
)

// fakeAgents satisfies AgentExecutor. Each call writes the step's
// configured files into the project directory, or fails the named step.
type fakeAgents struct {
	// files maps agent name to files written on each call.
	files map[string][]string
	// failAgent makes calls for that agent fail.
	failAgent string
	calls     []string
}

func (f *fakeAgents) ExecuteAgent(ctx context.Context, agent *models.AgentDefinition, prompt, taskID string, taskCtx *models.TaskContext) models.AgentResult {
	f.calls = append(f.calls, agent.Name)
	result := models.AgentResult{AgentName: agent.Name}

	if agent.Name == f.failAgent {
		result.Error = "agent exploded"
		return result
	}
	for _, name := range f.files[agent.Name] {
		path := filepath.Join(taskCtx.ProjectPath, name)
		if err := os.WriteFile(path, []byte("line\nline\nline\n"), 0644); err != nil {
			result.Error = err.Error()
			return result
		}
		result.FilesCreated = append(result.FilesCreated, name)
	}
	result.Success = true
	return result
}

func testExecutor(t *testing.T, agents AgentExecutor) (*Executor, string) {
	t.Helper()
	dir := t.TempDir()

	reg, err := registry.Load(filepath.Join(dir, "agents", "registry.json"))
	if err != nil {
		t.Fatalf("registry.Load() error = %v", err)
	}
	tracker, err := history.NewTracker(filepath.Join(dir, "history"))
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}

	project := filepath.Join(dir, "project")
	if err := os.MkdirAll(project, 0755); err != nil {
		t.Fatal(err)
	}
	return NewExecutor(reg, agents, tracker), project
}

func simpleWorkflow() *models.Workflow {
	return &models.Workflow{
		Name:    "two-step",
		Version: "1.0.0",
		Steps: []models.Step{
			{ID: "write", Name: "Write", Agent: "code_writer", Action: "write code", Required: true, Outputs: []string{"main.py"}},
			{ID: "check", Name: "Check", Agent: "tester", Action: "check it", Required: true, DependsOn: []string{"write"}},
		},
	}
}

func TestExecute_AllStepsComplete(t *testing.T) {
	agents := &fakeAgents{files: map[string][]string{
		"code_writer": {"main.py"},
		"tester":      {"notes.md"},
	}}
	exec, project := testExecutor(t, agents)

	result, err := exec.Execute(context.Background(), simpleWorkflow(), "build the thing", project)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status != models.WorkflowCompleted {
		t.Errorf("Status = %q, want completed", result.Status)
	}
	if result.CompletedSteps != 2 || result.FailedSteps != 0 {
		t.Errorf("steps = %d completed / %d failed, want 2/0", result.CompletedSteps, result.FailedSteps)
	}
	if len(agents.calls) != 2 || agents.calls[0] != "code_writer" || agents.calls[1] != "tester" {
		t.Errorf("agent calls = %v, want [code_writer tester]", agents.calls)
	}
}

func TestExecute_RequiredFailureStops(t *testing.T) {
	agents := &fakeAgents{failAgent: "code_writer"}
	exec, project := testExecutor(t, agents)

	result, err := exec.Execute(context.Background(), simpleWorkflow(), "build", project)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status != models.WorkflowFailed {
		t.Errorf("Status = %q, want failed", result.Status)
	}
	if len(agents.calls) != 1 {
		t.Errorf("agent calls = %v, tester ran after required failure", agents.calls)
	}
	rec := result.StepRecord("write")
	if rec == nil || rec.Status != models.StepFailed {
		t.Fatalf("write step record = %+v, want failed", rec)
	}
}

func TestExecute_OptionalFailureContinues(t *testing.T) {
	wf := &models.Workflow{
		Name:    "with-optional",
		Version: "1.0.0",
		Steps: []models.Step{
			{ID: "research", Name: "Research", Agent: "researcher", Action: "look around", Required: false},
			{ID: "write", Name: "Write", Agent: "code_writer", Action: "write", Required: true},
		},
	}
	agents := &fakeAgents{
		failAgent: "researcher",
		files:     map[string][]string{"code_writer": {"main.py"}},
	}
	exec, project := testExecutor(t, agents)

	result, err := exec.Execute(context.Background(), wf, "build", project)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	// One failed optional step alongside a completed one is partial.
	if result.Status != models.WorkflowPartial {
		t.Errorf("Status = %q, want partial", result.Status)
	}
	if len(agents.calls) != 2 {
		t.Errorf("agent calls = %v, want both agents", agents.calls)
	}
}

func TestExecute_SkipsStepWithFailedOptionalDependency(t *testing.T) {
	wf := &models.Workflow{
		Name:    "dep-chain",
		Version: "1.0.0",
		Steps: []models.Step{
			{ID: "research", Name: "Research", Agent: "researcher", Action: "look", Required: false},
			{ID: "summarize", Name: "Summarize", Agent: "docs_writer", Action: "summarize research", Required: false, DependsOn: []string{"research"}},
			{ID: "write", Name: "Write", Agent: "code_writer", Action: "write", Required: true},
		},
	}
	agents := &fakeAgents{
		failAgent: "researcher",
		files:     map[string][]string{"code_writer": {"main.py"}},
	}
	exec, project := testExecutor(t, agents)

	result, err := exec.Execute(context.Background(), wf, "build", project)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	rec := result.StepRecord("summarize")
	if rec == nil || rec.Status != models.StepSkipped {
		t.Fatalf("summarize record = %+v, want skipped", rec)
	}
	if result.SkippedSteps != 1 {
		t.Errorf("SkippedSteps = %d, want 1", result.SkippedSteps)
	}
	// docs_writer never ran.
	for _, call := range agents.calls {
		if call == "docs_writer" {
			t.Error("skipped step's agent was executed")
		}
	}
}

func TestExecute_OutputValidationFailsStep(t *testing.T) {
	// code_writer succeeds but never writes the declared output.
	agents := &fakeAgents{files: map[string][]string{"code_writer": {"other.py"}}}
	exec, project := testExecutor(t, agents)

	wf := &models.Workflow{
		Name:    "strict",
		Version: "1.0.0",
		Steps: []models.Step{
			{ID: "write", Name: "Write", Agent: "code_writer", Action: "write", Required: true, Outputs: []string{"main.py"}},
		},
	}
	result, err := exec.Execute(context.Background(), wf, "build", project)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status != models.WorkflowFailed {
		t.Errorf("Status = %q, want failed", result.Status)
	}
	rec := result.StepRecord("write")
	if rec == nil || rec.Status != models.StepFailed {
		t.Fatalf("step record = %+v, want failed", rec)
	}
}

func TestExecute_ManualGateStopsWhenRejected(t *testing.T) {
	agents := &fakeAgents{files: map[string][]string{
		"code_writer": {"main.py"},
		"tester":      {"notes.md"},
	}}
	exec, project := testExecutor(t, agents)
	exec.Confirm = func(prompt string) bool { return false }

	wf := simpleWorkflow()
	wf.QualityGates = []models.QualityGate{
		{Name: "review", AfterStep: "write", Type: "manual", Required: true},
	}

	result, err := exec.Execute(context.Background(), wf, "build", project)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(agents.calls) != 1 {
		t.Errorf("agent calls = %v, want stop after rejected gate", agents.calls)
	}
	if len(result.QualityGatesFailed) != 1 || result.QualityGatesFailed[0] != "review" {
		t.Errorf("QualityGatesFailed = %v", result.QualityGatesFailed)
	}
	if result.UserInterventions != 1 {
		t.Errorf("UserInterventions = %d, want 1", result.UserInterventions)
	}
	if result.Status != models.WorkflowFailed {
		t.Errorf("Status = %q, want failed after rejected required gate", result.Status)
	}
}

func TestExecute_AutomaticGatePasses(t *testing.T) {
	agents := &fakeAgents{files: map[string][]string{
		"code_writer": {"main.py"},
		"tester":      {"notes.md"},
	}}
	exec, project := testExecutor(t, agents)

	wf := simpleWorkflow()
	wf.QualityGates = []models.QualityGate{
		{Name: "auto-check", AfterStep: "write", Type: "automatic", Required: true},
	}

	result, err := exec.Execute(context.Background(), wf, "build", project)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status != models.WorkflowCompleted {
		t.Errorf("Status = %q, want completed", result.Status)
	}
	if len(result.QualityGatesPassed) != 1 {
		t.Errorf("QualityGatesPassed = %v, want [auto-check]", result.QualityGatesPassed)
	}
}

func TestExecute_RejectsInvalidWorkflow(t *testing.T) {
	exec, project := testExecutor(t, &fakeAgents{})

	wf := &models.Workflow{Name: "broken", Version: "1.0.0"}
	if _, err := exec.Execute(context.Background(), wf, "task", project); err == nil {
		t.Error("Execute() accepted workflow with no steps")
	}
}

func TestExecute_EmitsEvents(t *testing.T) {
	agents := &fakeAgents{files: map[string][]string{
		"code_writer": {"main.py"},
		"tester":      {"notes.md"},
	}}
	exec, project := testExecutor(t, agents)

	var stages []string
	exec.OnEvent = func(e ExecEvent) { stages = append(stages, e.Stage) }

	if _, err := exec.Execute(context.Background(), simpleWorkflow(), "build", project); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := []string{"workflow_start", "step_start", "step_done", "step_start", "step_done", "workflow_done"}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stages[%d] = %q, want %q", i, stages[i], want[i])
		}
	}
}
