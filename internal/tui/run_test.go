package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ensemble-cli/ensemble/internal/orchestrator"
	"github.com/ensemble-cli/ensemble/pkg/models"
)

func TestRunModel_TracksAgents(t *testing.T) {
	m := NewRunModel("build a widget")

	m.apply(orchestrator.Event{Stage: "analysis", Message: "classified as implementation"})
	m.apply(orchestrator.Event{Stage: "agent_start", Agent: "code_writer", Message: "starting"})
	m.apply(orchestrator.Event{Stage: "agent_done", Agent: "code_writer", Result: &models.AgentResult{Success: true}})

	if len(m.agents) != 1 {
		t.Fatalf("agents = %d, want 1", len(m.agents))
	}
	if m.agents[0].status != "done" {
		t.Errorf("status = %q, want done", m.agents[0].status)
	}

	view := m.View()
	for _, want := range []string{"build a widget", "classified as implementation", "code_writer"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestRunModel_FailedAgentShowsError(t *testing.T) {
	m := NewRunModel("task")
	m.apply(orchestrator.Event{Stage: "agent_start", Agent: "tester"})
	m.apply(orchestrator.Event{Stage: "agent_done", Agent: "tester", Result: &models.AgentResult{Success: false, Error: "exit status 1"}})

	if m.agents[0].status != "failed" {
		t.Errorf("status = %q, want failed", m.agents[0].status)
	}
	if !strings.Contains(m.View(), "exit status 1") {
		t.Error("view missing agent error")
	}
}

func TestRunModel_DoneQuits(t *testing.T) {
	m := NewRunModel("task")

	_, cmd := m.Update(DoneMsg{Success: true, Duration: time.Second})
	if cmd == nil {
		t.Fatal("Update(DoneMsg) returned no command")
	}
	if !m.done || !m.success {
		t.Errorf("done=%v success=%v, want true/true", m.done, m.success)
	}
	if !strings.Contains(m.View(), "Task completed") {
		t.Error("view missing completion line")
	}
}

func TestRunModel_QuitKey(t *testing.T) {
	m := NewRunModel("task")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("Update(q) returned no command")
	}
	if !m.quitting {
		t.Error("quitting not set")
	}
}
