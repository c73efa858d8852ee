package models

import (
	"time"

	"gopkg.in/yaml.v3"
)

// WorkflowStatus represents the overall state of a workflow execution.
type WorkflowStatus string

const (
	// WorkflowRunning indicates the workflow is still executing.
	WorkflowRunning WorkflowStatus = "running"
	// WorkflowCompleted indicates all steps finished without failure.
	WorkflowCompleted WorkflowStatus = "completed"
	// WorkflowFailed indicates the workflow produced no completed steps.
	WorkflowFailed WorkflowStatus = "failed"
	// WorkflowPartial indicates some steps completed and some failed.
	WorkflowPartial WorkflowStatus = "partial"
)

// Valid returns true if the status is a known value.
func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowRunning, WorkflowCompleted, WorkflowFailed, WorkflowPartial:
		return true
	}
	return false
}

// StepStatus represents the state of a single workflow step.
type StepStatus string

const (
	// StepPending indicates the step has not started.
	StepPending StepStatus = "pending"
	// StepRunning indicates the step is executing.
	StepRunning StepStatus = "running"
	// StepCompleted indicates the step finished and validated.
	StepCompleted StepStatus = "completed"
	// StepFailed indicates the step errored or failed validation.
	StepFailed StepStatus = "failed"
	// StepSkipped indicates an optional step was not run.
	StepSkipped StepStatus = "skipped"
)

// Valid returns true if the status is a known value.
func (s StepStatus) Valid() bool {
	switch s {
	case StepPending, StepRunning, StepCompleted, StepFailed, StepSkipped:
		return true
	}
	return false
}

// ValidationRule describes a post-step check on produced outputs.
type ValidationRule struct {
	// Type is one of output_exists, min_lines, syntax_valid, custom.
	Type string `yaml:"type" json:"type"`
	// File names the output the rule applies to.
	File string `yaml:"file,omitempty" json:"file,omitempty"`
	// Value is the minimum line count for min_lines rules.
	Value int `yaml:"value,omitempty" json:"value,omitempty"`
	// Language selects the checker for syntax_valid rules (json, html).
	Language string `yaml:"language,omitempty" json:"language,omitempty"`
	// Check names the custom check (e.g. all_tests_pass).
	Check string `yaml:"check,omitempty" json:"check,omitempty"`
}

// Step is one unit of work in a workflow, executed by a named agent.
type Step struct {
	ID         string           `yaml:"id" json:"id"`
	Name       string           `yaml:"name" json:"name"`
	Agent      string           `yaml:"agent" json:"agent"`
	Action     string           `yaml:"action" json:"action"`
	Required   bool             `yaml:"required" json:"required"`
	DependsOn  []string         `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Outputs    []string         `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Validation []ValidationRule `yaml:"validation,omitempty" json:"validation,omitempty"`
	// Timeout is the per-step limit in seconds. Zero means the
	// configured agent timeout applies.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// UnmarshalYAML decodes a step with Required defaulting to true, so a
// step is required unless the template says otherwise.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	type rawStep Step
	raw := rawStep{Required: true}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*s = Step(raw)
	return nil
}

// QualityGate pauses a workflow for a check between steps.
type QualityGate struct {
	// Name identifies the gate in history records.
	Name string `yaml:"name" json:"name"`
	// AfterStep names the step the gate follows.
	AfterStep string `yaml:"after_step" json:"after_step"`
	// Description explains what is being verified.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Type is "manual" (prompts the user) or "automatic" (passes through).
	Type string `yaml:"type,omitempty" json:"type,omitempty"`
	// Required gates stop the workflow on failure.
	Required bool `yaml:"required,omitempty" json:"required,omitempty"`
}

// Hook is an advisory action logged at a workflow boundary.
// Hooks are informational, not executed commands.
type Hook struct {
	Action      string `yaml:"action" json:"action"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Hooks groups the hook points of a workflow.
type Hooks struct {
	PreWorkflow  []Hook `yaml:"pre_workflow,omitempty" json:"pre_workflow,omitempty"`
	PostWorkflow []Hook `yaml:"post_workflow,omitempty" json:"post_workflow,omitempty"`
	OnError      []Hook `yaml:"on_error,omitempty" json:"on_error,omitempty"`
}

// Workflow is a reusable multi-step template matched against tasks.
type Workflow struct {
	Name           string        `yaml:"name" json:"name"`
	Version        string        `yaml:"version" json:"version"`
	Description    string        `yaml:"description" json:"description"`
	Author         string        `yaml:"author,omitempty" json:"author,omitempty"`
	Created        string        `yaml:"created,omitempty" json:"created,omitempty"`
	Updated        string        `yaml:"updated,omitempty" json:"updated,omitempty"`
	TaskTypes      []string      `yaml:"task_types,omitempty" json:"task_types,omitempty"`
	AgentsRequired []string      `yaml:"agents_required,omitempty" json:"agents_required,omitempty"`
	AgentsOptional []string      `yaml:"agents_optional,omitempty" json:"agents_optional,omitempty"`
	Steps          []Step        `yaml:"steps" json:"steps"`
	Hooks          Hooks         `yaml:"hooks,omitempty" json:"hooks,omitempty"`
	QualityGates   []QualityGate `yaml:"quality_gates,omitempty" json:"quality_gates,omitempty"`
	Tags           []string      `yaml:"tags,omitempty" json:"tags,omitempty"`
	// Priority orders workflows in listings: high, medium, or low.
	Priority string `yaml:"priority,omitempty" json:"priority,omitempty"`
	// UsageCount and SuccessRate are updated from execution history.
	UsageCount  int     `yaml:"usage_count,omitempty" json:"usage_count,omitempty"`
	SuccessRate float64 `yaml:"success_rate,omitempty" json:"success_rate,omitempty"`
	// EstimatedDuration is the expected runtime in seconds.
	EstimatedDuration int `yaml:"estimated_duration,omitempty" json:"estimated_duration,omitempty"`
}

// Step returns the step with the given ID, or nil.
func (w *Workflow) Step(id string) *Step {
	for i := range w.Steps {
		if w.Steps[i].ID == id {
			return &w.Steps[i]
		}
	}
	return nil
}

// RequiredSteps returns the count of steps marked required.
func (w *Workflow) RequiredSteps() int {
	n := 0
	for _, s := range w.Steps {
		if s.Required {
			n++
		}
	}
	return n
}

// StepRecord captures one step's outcome inside an execution record.
type StepRecord struct {
	StepID           string     `json:"step_id"`
	StepName         string     `json:"step_name"`
	Agent            string     `json:"agent"`
	Status           StepStatus `json:"status"`
	StartTime        *time.Time `json:"start_time,omitempty"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	DurationSeconds  float64    `json:"duration_seconds"`
	Outputs          []string   `json:"outputs,omitempty"`
	ValidationPassed bool       `json:"validation_passed"`
	ValidationErrors []string   `json:"validation_errors,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
}

// Execution is the durable record of one workflow run.
type Execution struct {
	ExecutionID        string         `json:"execution_id"`
	WorkflowName       string         `json:"workflow_name"`
	WorkflowVersion    string         `json:"workflow_version"`
	TaskDescription    string         `json:"task_description"`
	Status             WorkflowStatus `json:"status"`
	StartTime          time.Time      `json:"start_time"`
	EndTime            *time.Time     `json:"end_time,omitempty"`
	DurationSeconds    float64        `json:"duration_seconds"`
	Steps              []StepRecord   `json:"steps"`
	TotalSteps         int            `json:"total_steps"`
	CompletedSteps     int            `json:"completed_steps"`
	FailedSteps        int            `json:"failed_steps"`
	SkippedSteps       int            `json:"skipped_steps"`
	QualityGatesPassed []string       `json:"quality_gates_passed,omitempty"`
	QualityGatesFailed []string       `json:"quality_gates_failed,omitempty"`
	UserInterventions  int            `json:"user_interventions"`
	OutputsGenerated   []string       `json:"outputs_generated,omitempty"`
	ProjectPath        string         `json:"project_path,omitempty"`
}

// StepRecord returns the record for the given step ID, or nil.
func (e *Execution) StepRecord(stepID string) *StepRecord {
	for i := range e.Steps {
		if e.Steps[i].StepID == stepID {
			return &e.Steps[i]
		}
	}
	return nil
}
