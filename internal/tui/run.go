// Package tui provides the terminal user interface for Ensemble.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ensemble-cli/ensemble/internal/orchestrator"
)

// EventMsg wraps an orchestrator event for the TUI.
type EventMsg struct {
	Event orchestrator.Event
}

// DoneMsg signals that the task has finished.
type DoneMsg struct {
	Success  bool
	Duration time.Duration
	Err      error
}

// agentRow tracks one agent's progress line.
type agentRow struct {
	name    string
	status  string
	message string
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC857"))
)

// RunModel is the bubbletea model for a live task run.
type RunModel struct {
	description string
	spinner     spinner.Model

	analysis string
	agents   []agentRow
	done     bool
	success  bool
	duration time.Duration
	err      error
	quitting bool
}

// NewRunModel creates the run progress model.
func NewRunModel(description string) *RunModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle
	return &RunModel{description: description, spinner: sp}
}

// Init starts the spinner.
func (m *RunModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles events from the orchestrator and the terminal.
func (m *RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case EventMsg:
		m.apply(msg.Event)
		return m, nil

	case DoneMsg:
		m.done = true
		m.success = msg.Success
		m.duration = msg.Duration
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *RunModel) apply(e orchestrator.Event) {
	switch e.Stage {
	case "analysis":
		m.analysis = e.Message
	case "agent_start":
		m.agents = append(m.agents, agentRow{name: e.Agent, status: "running", message: e.Message})
	case "agent_done":
		for i := range m.agents {
			if m.agents[i].name != e.Agent {
				continue
			}
			if e.Result != nil && e.Result.Success {
				m.agents[i].status = "done"
			} else {
				m.agents[i].status = "failed"
				if e.Result != nil {
					m.agents[i].message = e.Result.Error
				}
			}
		}
	}
}

// View renders the run progress.
func (m *RunModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Ensemble"))
	b.WriteString("  ")
	b.WriteString(m.description)
	b.WriteString("\n\n")

	if m.analysis != "" {
		b.WriteString(dimStyle.Render(m.analysis))
		b.WriteString("\n\n")
	}

	for _, row := range m.agents {
		switch row.status {
		case "done":
			b.WriteString(successStyle.Render("✓ " + row.name))
		case "failed":
			b.WriteString(failStyle.Render("✗ " + row.name))
			if row.message != "" {
				b.WriteString(dimStyle.Render("  " + row.message))
			}
		default:
			b.WriteString(m.spinner.View())
			b.WriteString(runningStyle.Render(row.name))
		}
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString("\n")
		if m.success {
			b.WriteString(successStyle.Render(fmt.Sprintf("Task completed in %s", m.duration.Round(time.Millisecond))))
		} else {
			msg := "Task failed"
			if m.err != nil {
				msg = fmt.Sprintf("Task failed: %v", m.err)
			}
			b.WriteString(failStyle.Render(msg))
		}
		b.WriteString("\n")
	} else if !m.quitting {
		b.WriteString(dimStyle.Render("\nq to quit\n"))
	}
	return b.String()
}

// Run executes fn while displaying live progress, forwarding
// orchestrator events into the program. It returns fn's error.
func Run(description string, fn func(onEvent func(orchestrator.Event)) (bool, time.Duration, error)) error {
	model := NewRunModel(description)
	p := tea.NewProgram(model)

	go func() {
		success, duration, err := fn(func(e orchestrator.Event) {
			p.Send(EventMsg{Event: e})
		})
		p.Send(DoneMsg{Success: success, Duration: duration, Err: err})
	}()

	_, err := p.Run()
	return err
}
