package learning

import (
	"path/filepath"
	"testing"

	"github.com/ensemble-cli/ensemble/internal/history"
)

func newLearner(t *testing.T) (*Learner, *history.Tracker) {
	t.Helper()
	tracker, err := history.NewTracker(filepath.Join(t.TempDir(), "history"))
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	return NewLearner(tracker), tracker
}

// runExecution records one workflow run where flaky steps fail when
// fail is true.
func runExecution(t *testing.T, tracker *history.Tracker, workflow, task string, failFix bool) {
	t.Helper()
	id := tracker.StartExecution(workflow, "1.0.0", task, "")

	tracker.StartStep(id, "diagnose", "Diagnose", "code_analyst")
	tracker.CompleteStep(id, "diagnose", nil, true, nil)

	tracker.StartStep(id, "fix", "Fix", "code_writer")
	if failFix {
		tracker.FailStep(id, "fix", "did not compile")
	} else {
		tracker.CompleteStep(id, "fix", nil, true, nil)
	}

	tracker.StartStep(id, "docs", "Docs", "docs_writer")
	tracker.SkipStep(id, "docs", "optional")

	if _, err := tracker.CompleteExecution(id, !failFix); err != nil {
		t.Fatal(err)
	}
}

func TestAnalyzeWorkflow(t *testing.T) {
	learner, tracker := newLearner(t)

	// Two failures out of four runs: fix step fails 50%, workflow
	// succeeds 50%, docs step always skipped.
	for i := 0; i < 4; i++ {
		runExecution(t, tracker, "bug-fix", "fix the parser", i%2 == 0)
	}

	analysis, err := learner.AnalyzeWorkflow("bug-fix")
	if err != nil {
		t.Fatalf("AnalyzeWorkflow() error = %v", err)
	}

	types := make(map[string]bool)
	for _, imp := range analysis.Improvements {
		types[imp.Type] = true
	}
	for _, want := range []string{"high_failure_rate", "frequently_skipped", "low_success_rate"} {
		if !types[want] {
			t.Errorf("improvements missing %q: %+v", want, analysis.Improvements)
		}
	}
}

func TestAnalyzeWorkflow_NoHistory(t *testing.T) {
	learner, _ := newLearner(t)
	if _, err := learner.AnalyzeWorkflow("never-run"); err == nil {
		t.Error("AnalyzeWorkflow() succeeded with no history")
	}
}

func TestDetectTaskPatterns(t *testing.T) {
	learner, tracker := newLearner(t)

	for i := 0; i < 3; i++ {
		runExecution(t, tracker, "bug-fix", "repair broken parser module", false)
	}
	runExecution(t, tracker, "bug-fix", "something entirely different here", false)

	patterns, err := learner.DetectTaskPatterns(3)
	if err != nil {
		t.Fatalf("DetectTaskPatterns() error = %v", err)
	}
	if len(patterns) != 1 {
		t.Fatalf("patterns = %d, want 1", len(patterns))
	}

	p := patterns[0]
	if p.Occurrences != 3 {
		t.Errorf("Occurrences = %d, want 3", p.Occurrences)
	}
	if p.SuccessRate != 1.0 {
		t.Errorf("SuccessRate = %.2f, want 1.0", p.SuccessRate)
	}
	// Completed steps only: diagnose then fix.
	want := []string{"code_analyst", "code_writer"}
	if len(p.AgentSequence) != len(want) {
		t.Fatalf("AgentSequence = %v, want %v", p.AgentSequence, want)
	}
	for i := range want {
		if p.AgentSequence[i] != want[i] {
			t.Errorf("AgentSequence[%d] = %q, want %q", i, p.AgentSequence[i], want[i])
		}
	}
}

func TestGenerateTemplate(t *testing.T) {
	learner, _ := newLearner(t)

	pattern := Pattern{
		Keywords:      "broken module parser repair",
		Occurrences:   3,
		AgentSequence: []string{"code_analyst", "code_writer", "code_writer"},
		AvgDuration:   120,
		SuccessRate:   0.9,
	}
	wf := learner.GenerateTemplate(pattern, "learned-parser-repair")

	if wf.Name != "learned-parser-repair" || wf.Version != "1.0.0" {
		t.Errorf("wf = %s v%s", wf.Name, wf.Version)
	}
	if wf.Author != "learning-system" {
		t.Errorf("Author = %q", wf.Author)
	}
	if len(wf.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(wf.Steps))
	}
	if len(wf.AgentsRequired) != 2 {
		t.Errorf("AgentsRequired = %v, want deduplicated pair", wf.AgentsRequired)
	}
	if wf.Steps[0].Name != "Code Analyst Task" {
		t.Errorf("Steps[0].Name = %q", wf.Steps[0].Name)
	}
	if len(wf.Steps[1].DependsOn) != 1 || wf.Steps[1].DependsOn[0] != "step1" {
		t.Errorf("Steps[1].DependsOn = %v", wf.Steps[1].DependsOn)
	}
	if wf.EstimatedDuration != 120 {
		t.Errorf("EstimatedDuration = %d", wf.EstimatedDuration)
	}
	if wf.Steps[0].Timeout != 300 {
		t.Errorf("Steps[0].Timeout = %d, want 300", wf.Steps[0].Timeout)
	}
}

func TestOptimizeTimeouts(t *testing.T) {
	learner, tracker := newLearner(t)
	runExecution(t, tracker, "bug-fix", "fix it", false)

	timeouts, err := learner.OptimizeTimeouts("bug-fix")
	if err != nil {
		t.Fatalf("OptimizeTimeouts() error = %v", err)
	}
	// Steps completed near-instantly in the test, so the 60s floor
	// applies to every completed step.
	for _, id := range []string{"diagnose", "fix"} {
		if timeouts[id] != 60 {
			t.Errorf("timeouts[%s] = %d, want 60", id, timeouts[id])
		}
	}
	// Skipped steps get no suggestion.
	if _, ok := timeouts["docs"]; ok {
		t.Error("skipped step received a timeout suggestion")
	}
}
