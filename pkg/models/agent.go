// Package models defines the core data types shared across Ensemble.
package models

import "time"

// DefaultModel is the Claude model used when an agent does not pin one.
const DefaultModel = "claude-sonnet-4-5"

// SkillLevel represents an agent's proficiency tier.
// Agents progress through levels as they complete tasks successfully.
type SkillLevel string

const (
	// SkillNovice is the starting level for new agents.
	SkillNovice SkillLevel = "novice"
	// SkillIntermediate requires 5+ tasks with a 75%+ success rate.
	SkillIntermediate SkillLevel = "intermediate"
	// SkillExpert requires 20+ tasks with an 85%+ success rate.
	SkillExpert SkillLevel = "expert"
	// SkillMaster requires 50+ tasks with a 90%+ success rate.
	SkillMaster SkillLevel = "master"
)

// Valid returns true if the skill level is a known value.
func (s SkillLevel) Valid() bool {
	switch s {
	case SkillNovice, SkillIntermediate, SkillExpert, SkillMaster:
		return true
	}
	return false
}

// Bonus returns the scoring multiplier applied when ranking agents
// by skill during selection.
func (s SkillLevel) Bonus() float64 {
	switch s {
	case SkillIntermediate:
		return 1.2
	case SkillExpert:
		return 1.5
	case SkillMaster:
		return 2.0
	default:
		return 1.0
	}
}

// ConfidenceMultiplier returns the multiplier applied to assignment
// confidence. It is flatter than Bonus so a master agent with a poor
// capability match does not crowd out a well-matched novice.
func (s SkillLevel) ConfidenceMultiplier() float64 {
	switch s {
	case SkillNovice:
		return 0.8
	case SkillExpert:
		return 1.2
	case SkillMaster:
		return 1.5
	default:
		return 1.0
	}
}

// AgentMetrics tracks an agent's execution history.
type AgentMetrics struct {
	TotalTasks        int        `json:"total_tasks"`
	SuccessfulTasks   int        `json:"successful_tasks"`
	FailedTasks       int        `json:"failed_tasks"`
	TotalTokens       int64      `json:"total_tokens_used"`
	TotalCost         float64    `json:"total_cost"`
	AvgCompletionTime float64    `json:"avg_completion_time"`
	LastUsed          *time.Time `json:"last_used,omitempty"`
}

// SuccessRate returns the percentage of tasks that succeeded.
// Returns 0 when the agent has no history.
func (m AgentMetrics) SuccessRate() float64 {
	if m.TotalTasks == 0 {
		return 0
	}
	return float64(m.SuccessfulTasks) / float64(m.TotalTasks) * 100
}

// AgentDefinition describes a specialist agent: what it can do and
// how to prompt the underlying model for it.
type AgentDefinition struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Role         string       `json:"role"`
	Tools        []string     `json:"tools"`
	Capabilities []string     `json:"capabilities"`
	SystemPrompt string       `json:"system_prompt"`
	Model        string       `json:"model"`
	SkillLevel   SkillLevel   `json:"skill_level"`
	Metrics      AgentMetrics `json:"metrics"`
}

// HasCapability reports whether the agent lists the given capability.
func (a *AgentDefinition) HasCapability(capability string) bool {
	for _, c := range a.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// EffectiveSuccessRate returns the success rate used for scoring.
// Agents with no history are treated as 50% so new agents still get work.
func (a *AgentDefinition) EffectiveSuccessRate() float64 {
	if a.Metrics.TotalTasks == 0 {
		return 50
	}
	return a.Metrics.SuccessRate()
}

// AssignmentPriority ranks an agent's role within a task.
type AssignmentPriority string

const (
	// PriorityPrimary marks the agent responsible for the task outcome.
	PriorityPrimary AssignmentPriority = "primary"
	// PrioritySupporting marks agents that augment the primary.
	PrioritySupporting AssignmentPriority = "supporting"
	// PriorityOptional marks agents that may be skipped under load.
	PriorityOptional AssignmentPriority = "optional"
)

// Assignment pairs an agent with a task role and a selection confidence.
type Assignment struct {
	Agent      *AgentDefinition   `json:"agent"`
	Priority   AssignmentPriority `json:"priority"`
	Confidence float64            `json:"confidence"`
	Reason     string             `json:"reason"`
}

// AgentResult captures the outcome of a single agent invocation.
type AgentResult struct {
	AgentName    string        `json:"agent_name"`
	Success      bool          `json:"success"`
	Output       string        `json:"output,omitempty"`
	Error        string        `json:"error,omitempty"`
	FilesCreated []string      `json:"files_created,omitempty"`
	Workspace    string        `json:"workspace,omitempty"`
	Duration     time.Duration `json:"duration"`
	TokensUsed   int64         `json:"tokens_used,omitempty"`
	Cost         float64       `json:"cost,omitempty"`
}

// TaskOutcome is the durable record of one agent execution, kept in
// the skills history for learning.
type TaskOutcome struct {
	TaskID          string        `json:"task_id"`
	AgentName       string        `json:"agent_name"`
	TaskDescription string        `json:"task_description"`
	TaskType        string        `json:"task_type"`
	Success         bool          `json:"success"`
	Duration        time.Duration `json:"duration"`
	TokensUsed      int64         `json:"tokens_used"`
	Cost            float64       `json:"cost"`
	ErrorMessage    string        `json:"error_message,omitempty"`
	Prompt          string        `json:"prompt_used,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
}
