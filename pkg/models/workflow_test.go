package models

import "testing"

func TestWorkflowStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status WorkflowStatus
		want   bool
	}{
		{"running", WorkflowRunning, true},
		{"completed", WorkflowCompleted, true},
		{"failed", WorkflowFailed, true},
		{"partial", WorkflowPartial, true},
		{"empty", WorkflowStatus(""), false},
		{"unknown", WorkflowStatus("paused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStepStatus_Valid(t *testing.T) {
	valid := []StepStatus{StepPending, StepRunning, StepCompleted, StepFailed, StepSkipped}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("Valid() = false for %q, want true", s)
		}
	}
	if StepStatus("cancelled").Valid() {
		t.Error("Valid() = true for unknown status, want false")
	}
}

func TestWorkflow_Step(t *testing.T) {
	w := &Workflow{
		Steps: []Step{
			{ID: "design", Name: "Design"},
			{ID: "build", Name: "Build"},
		},
	}

	if got := w.Step("build"); got == nil || got.Name != "Build" {
		t.Errorf("Step(build) = %v, want Build step", got)
	}
	if got := w.Step("deploy"); got != nil {
		t.Errorf("Step(deploy) = %v, want nil", got)
	}
}

func TestWorkflow_RequiredSteps(t *testing.T) {
	w := &Workflow{
		Steps: []Step{
			{ID: "a", Required: true},
			{ID: "b", Required: false},
			{ID: "c", Required: true},
		},
	}
	if got := w.RequiredSteps(); got != 2 {
		t.Errorf("RequiredSteps() = %d, want 2", got)
	}
}
