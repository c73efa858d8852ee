// Package learning tracks task outcomes and workflow history to
// improve agent prompts, suggest fixes, and generate new workflows.
package learning

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ensemble-cli/ensemble/pkg/models"
)

// maxOutcomes caps the skills history to the most recent records.
const maxOutcomes = 1000

// reusableSuccessCount is how many successes a prompt pattern needs
// before it is offered for reuse.
const reusableSuccessCount = 3

// PromptPattern records a prompt that keeps succeeding for a given
// task type and agent.
type PromptPattern struct {
	PatternID    string    `json:"pattern_id"`
	TaskType     string    `json:"task_type"`
	Template     string    `json:"template"`
	SuccessCount int       `json:"success_count"`
	AvgDuration  float64   `json:"avg_execution_time"`
	LastUsed     time.Time `json:"last_used"`
}

// TaskTypeStats counts attempts and successes per task type.
type TaskTypeStats struct {
	Count   int `json:"count"`
	Success int `json:"success"`
}

// AgentInsights accumulates per-agent learning signals.
type AgentInsights struct {
	TaskTypes    map[string]*TaskTypeStats `json:"task_types"`
	CommonErrors map[string]int            `json:"common_errors"`
	BestTasks    []TaskRecord              `json:"best_tasks,omitempty"`
}

// TaskRecord is a compact note about one fast successful task.
type TaskRecord struct {
	TaskID      string    `json:"task_id"`
	Description string    `json:"description"`
	Duration    float64   `json:"execution_time"`
	Timestamp   time.Time `json:"timestamp"`
}

// SkillsHistory persists task outcomes and the patterns learned from
// them. It satisfies the orchestrator's OutcomeRecorder.
type SkillsHistory struct {
	path string

	mu       sync.Mutex
	outcomes []models.TaskOutcome
	patterns map[string]*PromptPattern
	insights map[string]*AgentInsights
}

type skillsFile struct {
	Outcomes []models.TaskOutcome      `json:"outcomes"`
	Patterns map[string]*PromptPattern `json:"prompt_patterns"`
	Insights map[string]*AgentInsights `json:"agent_insights"`
}

// LoadSkills loads the skills history from path, starting empty when
// the file does not exist yet.
func LoadSkills(path string) (*SkillsHistory, error) {
	s := &SkillsHistory{
		path:     path,
		patterns: make(map[string]*PromptPattern),
		insights: make(map[string]*AgentInsights),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read skills history: %w", err)
	}

	var file skillsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse skills history: %w", err)
	}
	s.outcomes = file.Outcomes
	if file.Patterns != nil {
		s.patterns = file.Patterns
	}
	if file.Insights != nil {
		s.insights = file.Insights
	}
	return s, nil
}

// Record adds an outcome, updates insights and patterns, and persists.
func (s *SkillsHistory) Record(outcome models.TaskOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outcomes = append(s.outcomes, outcome)
	if len(s.outcomes) > maxOutcomes {
		s.outcomes = s.outcomes[len(s.outcomes)-maxOutcomes:]
	}

	s.updateInsights(outcome)
	if outcome.Success {
		s.learnPattern(outcome)
	}
	return s.save()
}

func (s *SkillsHistory) updateInsights(outcome models.TaskOutcome) {
	ins := s.insights[outcome.AgentName]
	if ins == nil {
		ins = &AgentInsights{
			TaskTypes:    make(map[string]*TaskTypeStats),
			CommonErrors: make(map[string]int),
		}
		s.insights[outcome.AgentName] = ins
	}

	stats := ins.TaskTypes[outcome.TaskType]
	if stats == nil {
		stats = &TaskTypeStats{}
		ins.TaskTypes[outcome.TaskType] = stats
	}
	stats.Count++
	if outcome.Success {
		stats.Success++
	}

	if outcome.ErrorMessage != "" {
		ins.CommonErrors[truncate(outcome.ErrorMessage, 100)]++
	}

	if outcome.Success {
		ins.BestTasks = append(ins.BestTasks, TaskRecord{
			TaskID:      outcome.TaskID,
			Description: truncate(outcome.TaskDescription, 100),
			Duration:    outcome.Duration.Seconds(),
			Timestamp:   outcome.Timestamp,
		})
		sort.Slice(ins.BestTasks, func(i, j int) bool {
			return ins.BestTasks[i].Duration < ins.BestTasks[j].Duration
		})
		if len(ins.BestTasks) > 10 {
			ins.BestTasks = ins.BestTasks[:10]
		}
	}
}

func (s *SkillsHistory) learnPattern(outcome models.TaskOutcome) {
	key := patternKey(outcome.TaskType, outcome.AgentName)

	if p, ok := s.patterns[key]; ok {
		p.SuccessCount++
		total := p.AvgDuration*float64(p.SuccessCount-1) + outcome.Duration.Seconds()
		p.AvgDuration = total / float64(p.SuccessCount)
		p.LastUsed = outcome.Timestamp
		return
	}
	s.patterns[key] = &PromptPattern{
		PatternID:    key,
		TaskType:     outcome.TaskType,
		Template:     outcome.Prompt,
		SuccessCount: 1,
		AvgDuration:  outcome.Duration.Seconds(),
		LastUsed:     outcome.Timestamp,
	}
}

func patternKey(taskType, agentName string) string {
	return taskType + "_" + agentName
}

// BestPrompt returns a proven prompt template for the task type and
// agent, or empty when no pattern has enough successes yet.
func (s *SkillsHistory) BestPrompt(taskType, agentName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patterns[patternKey(taskType, agentName)]
	if !ok || p.SuccessCount < reusableSuccessCount {
		return ""
	}
	return p.Template
}

// AgentPerformance summarizes recorded outcomes for one agent.
type AgentPerformance struct {
	TotalTasks      int                      `json:"total_tasks"`
	SuccessRate     float64                  `json:"success_rate"`
	AvgDuration     float64                  `json:"avg_execution_time"`
	TotalCost       float64                  `json:"total_cost"`
	TaskPerformance map[string]TaskTypeStats `json:"task_type_performance,omitempty"`
}

// Performance computes an agent's aggregate performance.
func (s *SkillsHistory) Performance(agentName string) AgentPerformance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.performanceLocked(agentName)
}

func (s *SkillsHistory) performanceLocked(agentName string) AgentPerformance {
	var perf AgentPerformance
	var totalTime float64

	for _, o := range s.outcomes {
		if o.AgentName != agentName {
			continue
		}
		perf.TotalTasks++
		totalTime += o.Duration.Seconds()
		perf.TotalCost += o.Cost
		if o.Success {
			perf.SuccessRate++
		}
	}
	if perf.TotalTasks == 0 {
		return perf
	}
	perf.SuccessRate = perf.SuccessRate / float64(perf.TotalTasks) * 100
	perf.AvgDuration = totalTime / float64(perf.TotalTasks)

	if ins := s.insights[agentName]; ins != nil {
		perf.TaskPerformance = make(map[string]TaskTypeStats, len(ins.TaskTypes))
		for tt, stats := range ins.TaskTypes {
			perf.TaskPerformance[tt] = *stats
		}
	}
	return perf
}

// SuggestImprovements generates advice for an agent from its insights.
func (s *SkillsHistory) SuggestImprovements(agentName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ins := s.insights[agentName]
	if ins == nil {
		return []string{"No performance data available yet"}
	}

	var suggestions []string

	taskTypes := make([]string, 0, len(ins.TaskTypes))
	for tt := range ins.TaskTypes {
		taskTypes = append(taskTypes, tt)
	}
	sort.Strings(taskTypes)
	for _, tt := range taskTypes {
		stats := ins.TaskTypes[tt]
		if stats.Count < 5 {
			continue
		}
		rate := float64(stats.Success) / float64(stats.Count) * 100
		if rate < 70 {
			suggestions = append(suggestions, fmt.Sprintf(
				"Low success rate (%.1f%%) on %s tasks. Consider additional training or tool access.", rate, tt))
		}
	}

	if msg, count := mostCommonError(ins.CommonErrors); count >= 3 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Recurring error (x%d): %s. Review error handling or tool permissions.", count, msg))
	}

	perf := s.performanceLocked(agentName)
	if perf.TotalTasks >= 10 && perf.AvgDuration > 300 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Average execution time is high (%.1fs). Consider task decomposition.", perf.AvgDuration))
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions, "Performance is good. Continue current approach.")
	}
	return suggestions
}

func mostCommonError(errors map[string]int) (string, int) {
	best, bestCount := "", 0
	for msg, count := range errors {
		if count > bestCount || (count == bestCount && msg < best) {
			best, bestCount = msg, count
		}
	}
	return best, bestCount
}

// Report summarizes all recorded learning data.
type Report struct {
	TotalTasks      int                `json:"total_tasks"`
	SuccessRate     float64            `json:"overall_success_rate"`
	TotalCost       float64            `json:"total_cost"`
	TotalTime       float64            `json:"total_time"`
	AvgTimePerTask  float64            `json:"avg_time_per_task"`
	TaskTypes       map[string]int     `json:"task_type_distribution"`
	AgentRankings   map[string]float64 `json:"agent_rankings"`
	LearnedPatterns int                `json:"learned_patterns"`
	AgentsTracked   int                `json:"agents_tracked"`
}

// LearningReport aggregates everything recorded so far.
func (s *SkillsHistory) LearningReport() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := Report{
		TaskTypes:       make(map[string]int),
		AgentRankings:   make(map[string]float64),
		LearnedPatterns: len(s.patterns),
		AgentsTracked:   len(s.insights),
	}

	successful := 0
	agents := make(map[string]bool)
	for _, o := range s.outcomes {
		report.TotalTasks++
		report.TotalCost += o.Cost
		report.TotalTime += o.Duration.Seconds()
		report.TaskTypes[o.TaskType]++
		agents[o.AgentName] = true
		if o.Success {
			successful++
		}
	}
	if report.TotalTasks == 0 {
		return report
	}
	report.SuccessRate = float64(successful) / float64(report.TotalTasks) * 100
	report.AvgTimePerTask = report.TotalTime / float64(report.TotalTasks)

	for agent := range agents {
		report.AgentRankings[agent] = s.performanceLocked(agent).SuccessRate
	}
	return report
}

// ExportReport writes a human-readable markdown report to path.
func (s *SkillsHistory) ExportReport(path string) error {
	report := s.LearningReport()

	var b strings.Builder
	b.WriteString("# Agent Skills Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
	b.WriteString("## Overall Statistics\n\n")
	fmt.Fprintf(&b, "- Total Tasks: %d\n", report.TotalTasks)
	fmt.Fprintf(&b, "- Success Rate: %.2f%%\n", report.SuccessRate)
	fmt.Fprintf(&b, "- Total Cost: $%.2f\n", report.TotalCost)
	fmt.Fprintf(&b, "- Average Time per Task: %.1fs\n\n", report.AvgTimePerTask)

	b.WriteString("## Agent Performance Rankings\n\n")
	ranked := make([]string, 0, len(report.AgentRankings))
	for agent := range report.AgentRankings {
		ranked = append(ranked, agent)
	}
	sort.Slice(ranked, func(i, j int) bool {
		ri, rj := report.AgentRankings[ranked[i]], report.AgentRankings[ranked[j]]
		if ri != rj {
			return ri > rj
		}
		return ranked[i] < ranked[j]
	})
	for _, agent := range ranked {
		fmt.Fprintf(&b, "- %s: %.1f%% success rate\n", agent, report.AgentRankings[agent])
	}

	b.WriteString("\n## Task Type Distribution\n\n")
	types := make([]string, 0, len(report.TaskTypes))
	for tt := range report.TaskTypes {
		types = append(types, tt)
	}
	sort.Strings(types)
	for _, tt := range types {
		fmt.Fprintf(&b, "- %s: %d tasks\n", tt, report.TaskTypes[tt])
	}

	b.WriteString("\n## Improvement Suggestions\n")
	s.mu.Lock()
	agents := make([]string, 0, len(s.insights))
	for agent := range s.insights {
		agents = append(agents, agent)
	}
	s.mu.Unlock()
	sort.Strings(agents)
	for _, agent := range agents {
		fmt.Fprintf(&b, "\n### %s\n\n", agent)
		for _, suggestion := range s.SuggestImprovements(agent) {
			fmt.Fprintf(&b, "- %s\n", suggestion)
		}
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}

// save persists the history. Caller holds the lock.
func (s *SkillsHistory) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create skills directory: %w", err)
	}
	data, err := json.MarshalIndent(skillsFile{
		Outcomes: s.outcomes,
		Patterns: s.patterns,
		Insights: s.insights,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode skills history: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write skills history: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
