package learning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ensemble-cli/ensemble/pkg/models"
)

func outcome(agent, taskType string, success bool, dur time.Duration) models.TaskOutcome {
	return models.TaskOutcome{
		TaskID:          "t1",
		AgentName:       agent,
		TaskDescription: "some task",
		TaskType:        taskType,
		Success:         success,
		Duration:        dur,
		Cost:            0.05,
		Prompt:          "do the thing carefully",
		Timestamp:       time.Now(),
	}
}

func newSkills(t *testing.T) *SkillsHistory {
	t.Helper()
	s, err := LoadSkills(filepath.Join(t.TempDir(), "agents", "skills_history.json"))
	if err != nil {
		t.Fatalf("LoadSkills() error = %v", err)
	}
	return s
}

func TestSkills_RecordAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skills_history.json")

	s, err := LoadSkills(path)
	if err != nil {
		t.Fatalf("LoadSkills() error = %v", err)
	}
	if err := s.Record(outcome("code_writer", "implementation", true, 10*time.Second)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	reloaded, err := LoadSkills(path)
	if err != nil {
		t.Fatalf("LoadSkills() reload error = %v", err)
	}
	perf := reloaded.Performance("code_writer")
	if perf.TotalTasks != 1 || perf.SuccessRate != 100 {
		t.Errorf("Performance = %+v, want 1 task at 100%%", perf)
	}
}

func TestSkills_BestPromptNeedsThreeSuccesses(t *testing.T) {
	s := newSkills(t)

	for i := 0; i < 2; i++ {
		if err := s.Record(outcome("code_writer", "implementation", true, time.Second)); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.BestPrompt("implementation", "code_writer"); got != "" {
		t.Errorf("BestPrompt after 2 successes = %q, want empty", got)
	}

	if err := s.Record(outcome("code_writer", "implementation", true, time.Second)); err != nil {
		t.Fatal(err)
	}
	if got := s.BestPrompt("implementation", "code_writer"); got != "do the thing carefully" {
		t.Errorf("BestPrompt after 3 successes = %q", got)
	}

	// Failures never create patterns.
	if err := s.Record(outcome("tester", "testing", false, time.Second)); err != nil {
		t.Fatal(err)
	}
	if got := s.BestPrompt("testing", "tester"); got != "" {
		t.Errorf("BestPrompt from failures = %q, want empty", got)
	}
}

func TestSkills_SuggestImprovements(t *testing.T) {
	s := newSkills(t)

	// Six implementation tasks with one success: well under 70%.
	for i := 0; i < 6; i++ {
		o := outcome("code_writer", "implementation", i == 0, time.Second)
		if !o.Success {
			o.ErrorMessage = "command not found: claude"
		}
		if err := s.Record(o); err != nil {
			t.Fatal(err)
		}
	}

	suggestions := s.SuggestImprovements("code_writer")
	var hasLowRate, hasRecurring bool
	for _, sug := range suggestions {
		if strings.Contains(sug, "Low success rate") {
			hasLowRate = true
		}
		if strings.Contains(sug, "Recurring error") {
			hasRecurring = true
		}
	}
	if !hasLowRate {
		t.Errorf("suggestions = %v, want low success rate warning", suggestions)
	}
	if !hasRecurring {
		t.Errorf("suggestions = %v, want recurring error warning", suggestions)
	}

	if got := s.SuggestImprovements("unknown_agent"); len(got) != 1 || !strings.Contains(got[0], "No performance data") {
		t.Errorf("SuggestImprovements(unknown) = %v", got)
	}
}

func TestSkills_SuggestImprovements_GoodAgent(t *testing.T) {
	s := newSkills(t)
	if err := s.Record(outcome("tester", "testing", true, time.Second)); err != nil {
		t.Fatal(err)
	}

	got := s.SuggestImprovements("tester")
	if len(got) != 1 || !strings.Contains(got[0], "good") {
		t.Errorf("SuggestImprovements = %v, want the all-good message", got)
	}
}

func TestSkills_LearningReport(t *testing.T) {
	s := newSkills(t)
	if err := s.Record(outcome("code_writer", "implementation", true, 10*time.Second)); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(outcome("tester", "testing", false, 20*time.Second)); err != nil {
		t.Fatal(err)
	}

	report := s.LearningReport()
	if report.TotalTasks != 2 {
		t.Errorf("TotalTasks = %d, want 2", report.TotalTasks)
	}
	if report.SuccessRate != 50 {
		t.Errorf("SuccessRate = %.1f, want 50", report.SuccessRate)
	}
	if report.AvgTimePerTask != 15 {
		t.Errorf("AvgTimePerTask = %.1f, want 15", report.AvgTimePerTask)
	}
	if report.TaskTypes["implementation"] != 1 || report.TaskTypes["testing"] != 1 {
		t.Errorf("TaskTypes = %v", report.TaskTypes)
	}
	if report.AgentRankings["code_writer"] != 100 || report.AgentRankings["tester"] != 0 {
		t.Errorf("AgentRankings = %v", report.AgentRankings)
	}
}

func TestSkills_ExportReport(t *testing.T) {
	s := newSkills(t)
	if err := s.Record(outcome("code_writer", "implementation", true, time.Second)); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "report.md")
	if err := s.ExportReport(path); err != nil {
		t.Fatalf("ExportReport() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"# Agent Skills Report", "code_writer", "Success Rate"} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestSkills_HistoryCap(t *testing.T) {
	s := newSkills(t)
	s.outcomes = make([]models.TaskOutcome, maxOutcomes)

	if err := s.Record(outcome("code_writer", "implementation", true, time.Second)); err != nil {
		t.Fatal(err)
	}
	if len(s.outcomes) != maxOutcomes {
		t.Errorf("outcomes = %d, want capped at %d", len(s.outcomes), maxOutcomes)
	}
}
