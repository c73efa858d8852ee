package models

// Complexity classifies how demanding a task looks from its description.
type Complexity string

const (
	// ComplexitySimple covers single-step tasks with no risky signals.
	ComplexitySimple Complexity = "simple"
	// ComplexityMedium covers tasks with one high or two medium signals.
	ComplexityMedium Complexity = "medium"
	// ComplexityComplex covers tasks with two or more high signals.
	ComplexityComplex Complexity = "complex"
)

// Valid returns true if the complexity is a known value.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexitySimple, ComplexityMedium, ComplexityComplex:
		return true
	}
	return false
}

// Multiplier returns the subtask estimation factor for the complexity.
func (c Complexity) Multiplier() float64 {
	switch c {
	case ComplexityMedium:
		return 1.5
	case ComplexityComplex:
		return 2.0
	default:
		return 1.0
	}
}

// TaskAnalysis is the router's assessment of a task description.
type TaskAnalysis struct {
	TaskType             string     `json:"task_type"`
	RequiredCapabilities []string   `json:"required_capabilities"`
	Complexity           Complexity `json:"complexity"`
	CanParallelize       bool       `json:"can_parallelize"`
	EstimatedSubtasks    int        `json:"estimated_subtasks"`
	Keywords             []string   `json:"keywords"`
}

// TaskContext carries optional inputs that shape prompt construction.
type TaskContext struct {
	// Files lists paths the agent should consider.
	Files []string
	// PreviousResults holds outputs from earlier steps in a workflow.
	PreviousResults []string
	// Constraints lists requirements the agent must honor.
	Constraints []string
	// ProjectPath overrides the workspace when the task targets a project.
	ProjectPath string
}
