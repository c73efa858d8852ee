package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ensemble-cli/ensemble/pkg/models"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tracker, err := NewTracker(filepath.Join(t.TempDir(), "history"))
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	return tracker
}

func TestTracker_CompletedExecution(t *testing.T) {
	tracker := newTestTracker(t)

	id := tracker.StartExecution("bug-fix", "1.0.0", "fix the login bug", "")
	if id == "" {
		t.Fatal("StartExecution returned empty ID")
	}

	tracker.StartStep(id, "reproduce", "Reproduce Bug", "tester")
	tracker.CompleteStep(id, "reproduce", []string{"repro.md"}, true, nil)
	tracker.StartStep(id, "fix", "Fix Bug", "code_writer")
	tracker.CompleteStep(id, "fix", []string{"fix.py"}, true, nil)
	tracker.RecordQualityGate(id, "fix-review", true)

	exec, err := tracker.CompleteExecution(id, true)
	if err != nil {
		t.Fatalf("CompleteExecution() error = %v", err)
	}

	if exec.Status != models.WorkflowCompleted {
		t.Errorf("Status = %q, want completed", exec.Status)
	}
	if exec.TotalSteps != 2 || exec.CompletedSteps != 2 || exec.FailedSteps != 0 {
		t.Errorf("step counts = %d/%d/%d, want 2/2/0", exec.TotalSteps, exec.CompletedSteps, exec.FailedSteps)
	}
	if len(exec.OutputsGenerated) != 2 {
		t.Errorf("OutputsGenerated = %v, want 2 entries", exec.OutputsGenerated)
	}
	if len(exec.QualityGatesPassed) != 1 || exec.QualityGatesPassed[0] != "fix-review" {
		t.Errorf("QualityGatesPassed = %v", exec.QualityGatesPassed)
	}
}

func TestTracker_StatusDerivation(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		failed    int
		success   bool
		want      models.WorkflowStatus
	}{
		{"all completed", 2, 0, true, models.WorkflowCompleted},
		{"mixed is partial", 1, 1, false, models.WorkflowPartial},
		{"all failed", 0, 2, false, models.WorkflowFailed},
		{"success flag false without failures", 1, 0, false, models.WorkflowFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker(t)
			id := tracker.StartExecution("feature-implementation", "1.0.0", "task", "")

			n := 0
			for i := 0; i < tt.completed; i++ {
				stepID := "c" + string(rune('0'+n))
				tracker.StartStep(id, stepID, stepID, "code_writer")
				tracker.CompleteStep(id, stepID, nil, true, nil)
				n++
			}
			for i := 0; i < tt.failed; i++ {
				stepID := "f" + string(rune('0'+n))
				tracker.StartStep(id, stepID, stepID, "code_writer")
				tracker.FailStep(id, stepID, "boom")
				n++
			}

			exec, err := tracker.CompleteExecution(id, tt.success)
			if err != nil {
				t.Fatalf("CompleteExecution() error = %v", err)
			}
			if exec.Status != tt.want {
				t.Errorf("Status = %q, want %q", exec.Status, tt.want)
			}
		})
	}
}

func TestTracker_PersistsToFile(t *testing.T) {
	tracker := newTestTracker(t)

	id := tracker.StartExecution("code-review", "1.0.0", "review it", "")
	tracker.StartStep(id, "analyze", "Analyze", "code_analyst")
	tracker.CompleteStep(id, "analyze", nil, true, nil)
	if _, err := tracker.CompleteExecution(id, true); err != nil {
		t.Fatalf("CompleteExecution() error = %v", err)
	}

	entries, err := os.ReadDir(tracker.Dir())
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history files = %d, want 1", len(entries))
	}
	name := entries[0].Name()
	if !strings.Contains(name, "code-review") || !strings.HasSuffix(name, ".json") {
		t.Errorf("history filename = %q", name)
	}
}

func TestTracker_ListFiltersAndLimits(t *testing.T) {
	tracker := newTestTracker(t)

	for i := 0; i < 3; i++ {
		id := tracker.StartExecution("bug-fix", "1.0.0", "task", "")
		tracker.StartStep(id, "s", "s", "tester")
		tracker.CompleteStep(id, "s", nil, true, nil)
		if _, err := tracker.CompleteExecution(id, true); err != nil {
			t.Fatalf("CompleteExecution() error = %v", err)
		}
	}
	id := tracker.StartExecution("documentation", "1.0.0", "task", "")
	tracker.StartStep(id, "s", "s", "docs_writer")
	tracker.CompleteStep(id, "s", nil, true, nil)
	if _, err := tracker.CompleteExecution(id, true); err != nil {
		t.Fatalf("CompleteExecution() error = %v", err)
	}

	all, err := tracker.List("", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("List all = %d, want 4", len(all))
	}

	bugs, err := tracker.List("bug-fix", 2)
	if err != nil {
		t.Fatalf("List(bug-fix) error = %v", err)
	}
	if len(bugs) != 2 {
		t.Errorf("List(bug-fix, 2) = %d, want 2", len(bugs))
	}
	for _, e := range bugs {
		if e.WorkflowName != "bug-fix" {
			t.Errorf("WorkflowName = %q, want bug-fix", e.WorkflowName)
		}
	}
}

func TestTracker_SkipAndIntervention(t *testing.T) {
	tracker := newTestTracker(t)

	id := tracker.StartExecution("feature-implementation", "1.0.0", "task", "")
	tracker.StartStep(id, "docs", "Write Docs", "docs_writer")
	tracker.SkipStep(id, "docs", "optional step skipped")
	tracker.RecordIntervention(id)

	exec, err := tracker.CompleteExecution(id, true)
	if err != nil {
		t.Fatalf("CompleteExecution() error = %v", err)
	}
	if exec.SkippedSteps != 1 {
		t.Errorf("SkippedSteps = %d, want 1", exec.SkippedSteps)
	}
	if exec.UserInterventions != 1 {
		t.Errorf("UserInterventions = %d, want 1", exec.UserInterventions)
	}
	if rec := exec.StepRecord("docs"); rec == nil || rec.Status != models.StepSkipped {
		t.Errorf("step record = %+v, want skipped", rec)
	}
}

func TestWorkflowStats(t *testing.T) {
	tracker := newTestTracker(t)

	// Two completed runs and one with a failure.
	for i := 0; i < 2; i++ {
		id := tracker.StartExecution("bug-fix", "1.0.0", "task", "")
		tracker.StartStep(id, "fix", "Fix", "code_writer")
		tracker.CompleteStep(id, "fix", nil, true, nil)
		if _, err := tracker.CompleteExecution(id, true); err != nil {
			t.Fatal(err)
		}
	}
	id := tracker.StartExecution("bug-fix", "1.0.0", "task", "")
	tracker.StartStep(id, "fix", "Fix", "code_writer")
	tracker.FailStep(id, "fix", "boom")
	if _, err := tracker.CompleteExecution(id, false); err != nil {
		t.Fatal(err)
	}

	stats, err := tracker.WorkflowStats("bug-fix")
	if err != nil {
		t.Fatalf("WorkflowStats() error = %v", err)
	}
	if stats.TotalExecutions != 3 {
		t.Errorf("TotalExecutions = %d, want 3", stats.TotalExecutions)
	}
	if stats.Completed != 2 || stats.Failed != 1 {
		t.Errorf("Completed/Failed = %d/%d, want 2/1", stats.Completed, stats.Failed)
	}
	if got := stats.SuccessRate; got < 66 || got > 67 {
		t.Errorf("SuccessRate = %.2f, want ~66.67", got)
	}

	step, ok := stats.Steps["fix"]
	if !ok {
		t.Fatal("no stats for step fix")
	}
	if step.Executions != 3 || step.Completed != 2 || step.Failed != 1 {
		t.Errorf("step stats = %+v", step)
	}
}

func TestGlobalStats_MostUsed(t *testing.T) {
	tracker := newTestTracker(t)

	counts := map[string]int{
		"bug-fix":                3,
		"code-review":            2,
		"documentation":          1,
		"feature-implementation": 1,
		"web-app-development":    1,
		"custom-one":             1,
	}
	for name, n := range counts {
		for i := 0; i < n; i++ {
			id := tracker.StartExecution(name, "1.0.0", "task", "")
			tracker.StartStep(id, "s", "s", "code_writer")
			tracker.CompleteStep(id, "s", nil, true, nil)
			if _, err := tracker.CompleteExecution(id, true); err != nil {
				t.Fatal(err)
			}
		}
	}

	stats, err := tracker.GlobalStats()
	if err != nil {
		t.Fatalf("GlobalStats() error = %v", err)
	}
	if stats.TotalExecutions != 9 {
		t.Errorf("TotalExecutions = %d, want 9", stats.TotalExecutions)
	}
	if len(stats.MostUsed) != 5 {
		t.Fatalf("MostUsed = %d entries, want 5", len(stats.MostUsed))
	}
	if stats.MostUsed[0].Name != "bug-fix" || stats.MostUsed[0].Executions != 3 {
		t.Errorf("MostUsed[0] = %+v, want bug-fix x3", stats.MostUsed[0])
	}
	if stats.MostUsed[1].Name != "code-review" {
		t.Errorf("MostUsed[1] = %+v, want code-review", stats.MostUsed[1])
	}
}
