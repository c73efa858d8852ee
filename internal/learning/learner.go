package learning

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ensemble-cli/ensemble/internal/history"
	"github.com/ensemble-cli/ensemble/pkg/models"
)

// Improvement is one recommendation from workflow analysis.
type Improvement struct {
	Type           string  `json:"type"`
	StepID         string  `json:"step_id,omitempty"`
	Rate           float64 `json:"rate,omitempty"`
	Recommendation string  `json:"recommendation"`
}

// Analysis is the result of analyzing one workflow's history.
type Analysis struct {
	WorkflowName string                 `json:"workflow_name"`
	Stats        *history.WorkflowStats `json:"statistics"`
	Improvements []Improvement          `json:"improvements"`
}

// Pattern is a cluster of similar past tasks that could become a
// workflow template.
type Pattern struct {
	Keywords      string   `json:"keywords"`
	Occurrences   int      `json:"occurrences"`
	AgentSequence []string `json:"agent_sequence"`
	AvgDuration   float64  `json:"avg_duration"`
	SuccessRate   float64  `json:"success_rate"`
	SampleTasks   []string `json:"sample_tasks"`
}

// Learner mines execution history for workflow improvements and new
// templates.
type Learner struct {
	tracker *history.Tracker
}

// NewLearner creates a learner over a history tracker.
func NewLearner(tracker *history.Tracker) *Learner {
	return &Learner{tracker: tracker}
}

// AnalyzeWorkflow inspects a workflow's history and suggests changes.
// Steps failing over 20% of the time, steps skipped over 80% of the
// time, and workflows succeeding under 70% each produce a
// recommendation.
func (l *Learner) AnalyzeWorkflow(workflowName string) (*Analysis, error) {
	stats, err := l.tracker.WorkflowStats(workflowName)
	if err != nil {
		return nil, err
	}
	if stats.TotalExecutions == 0 {
		return nil, fmt.Errorf("no execution history for workflow %q", workflowName)
	}

	analysis := &Analysis{WorkflowName: workflowName, Stats: stats}

	stepIDs := make([]string, 0, len(stats.Steps))
	for id := range stats.Steps {
		stepIDs = append(stepIDs, id)
	}
	sort.Strings(stepIDs)

	for _, id := range stepIDs {
		step := stats.Steps[id]
		failureRate := float64(step.Failed) / float64(step.Executions)
		if failureRate > 0.2 {
			analysis.Improvements = append(analysis.Improvements, Improvement{
				Type:   "high_failure_rate",
				StepID: id,
				Rate:   failureRate,
				Recommendation: fmt.Sprintf("Step %q fails %.0f%% of the time. Add validation or break it into smaller steps.",
					id, failureRate*100),
			})
		}

		skipRate := float64(step.Skipped) / float64(step.Executions)
		if skipRate > 0.8 {
			analysis.Improvements = append(analysis.Improvements, Improvement{
				Type:   "frequently_skipped",
				StepID: id,
				Rate:   skipRate,
				Recommendation: fmt.Sprintf("Step %q is skipped %.0f%% of the time. Consider removing it.",
					id, skipRate*100),
			})
		}
	}

	if stats.SuccessRate < 70 {
		analysis.Improvements = append(analysis.Improvements, Improvement{
			Type: "low_success_rate",
			Rate: stats.SuccessRate / 100,
			Recommendation: fmt.Sprintf("Workflow succeeds only %.0f%% of the time. Review failing steps and error handling.",
				stats.SuccessRate),
		})
	}
	return analysis, nil
}

// DetectTaskPatterns groups past executions by task keywords and
// returns clusters seen at least minOccurrences times, most frequent
// first.
func (l *Learner) DetectTaskPatterns(minOccurrences int) ([]Pattern, error) {
	executions, err := l.tracker.List("", 500)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]*models.Execution)
	for _, exec := range executions {
		keywords := extractKeywords(exec.TaskDescription)
		if len(keywords) > 5 {
			keywords = keywords[:5]
		}
		key := strings.Join(keywords, " ")
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], exec)
	}

	var patterns []Pattern
	for key, execs := range groups {
		if len(execs) < minOccurrences {
			continue
		}

		sequence := commonAgentSequence(execs)
		if len(sequence) == 0 {
			continue
		}

		var totalDuration float64
		completed := 0
		var samples []string
		for i, exec := range execs {
			totalDuration += exec.DurationSeconds
			if exec.Status == models.WorkflowCompleted {
				completed++
			}
			if i < 3 {
				samples = append(samples, exec.TaskDescription)
			}
		}

		patterns = append(patterns, Pattern{
			Keywords:      key,
			Occurrences:   len(execs),
			AgentSequence: sequence,
			AvgDuration:   totalDuration / float64(len(execs)),
			SuccessRate:   float64(completed) / float64(len(execs)),
			SampleTasks:   samples,
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Occurrences != patterns[j].Occurrences {
			return patterns[i].Occurrences > patterns[j].Occurrences
		}
		return patterns[i].Keywords < patterns[j].Keywords
	})
	return patterns, nil
}

// commonAgentSequence returns the most frequent sequence of agents
// across the completed steps of the given executions.
func commonAgentSequence(executions []*models.Execution) []string {
	counts := make(map[string]int)
	sequences := make(map[string][]string)

	for _, exec := range executions {
		var seq []string
		for _, step := range exec.Steps {
			if step.Status == models.StepCompleted {
				seq = append(seq, step.Agent)
			}
		}
		if len(seq) == 0 {
			continue
		}
		key := strings.Join(seq, ">")
		counts[key]++
		sequences[key] = seq
	}

	best, bestCount := "", 0
	for key, count := range counts {
		if count > bestCount || (count == bestCount && key < best) {
			best, bestCount = key, count
		}
	}
	return sequences[best]
}

var learnerStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "should": true, "could": true, "may": true,
	"might": true, "must": true, "can": true, "this": true, "that": true,
	"these": true, "those": true, "i": true, "you": true, "he": true,
	"she": true, "it": true, "we": true, "they": true,
}

func extractKeywords(text string) []string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:")
		if len(word) > 3 && !learnerStopWords[word] {
			keywords = append(keywords, word)
		}
	}
	sort.Strings(keywords)
	return keywords
}

// GenerateTemplate builds a workflow from a detected pattern, one step
// per agent in the common sequence.
func (l *Learner) GenerateTemplate(pattern Pattern, name string) *models.Workflow {
	now := time.Now().Format("2006-01-02")
	wf := &models.Workflow{
		Name:              name,
		Version:           "1.0.0",
		Description:       fmt.Sprintf("Auto-generated workflow based on %d similar tasks", pattern.Occurrences),
		Author:            "learning-system",
		Created:           now,
		Updated:           now,
		TaskTypes:         strings.Fields(pattern.Keywords),
		Tags:              []string{"auto-generated", "learned"},
		Priority:          "medium",
		SuccessRate:       pattern.SuccessRate,
		EstimatedDuration: int(pattern.AvgDuration),
	}

	seen := make(map[string]bool)
	for _, agent := range pattern.AgentSequence {
		if !seen[agent] {
			wf.AgentsRequired = append(wf.AgentsRequired, agent)
			seen[agent] = true
		}
	}

	for i, agent := range pattern.AgentSequence {
		step := models.Step{
			ID:       fmt.Sprintf("step%d", i+1),
			Name:     titleCase(agent) + " Task",
			Agent:    agent,
			Action:   fmt.Sprintf("Perform %s tasks based on requirements", agent),
			Required: true,
			Timeout:  300,
		}
		if i > 0 {
			step.DependsOn = []string{fmt.Sprintf("step%d", i)}
		}
		wf.Steps = append(wf.Steps, step)
	}
	return wf
}

func titleCase(agent string) string {
	words := strings.Split(agent, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// OptimizeTimeouts suggests per-step timeouts from observed durations:
// the average plus a 50% buffer, never below 60 seconds.
func (l *Learner) OptimizeTimeouts(workflowName string) (map[string]int, error) {
	stats, err := l.tracker.WorkflowStats(workflowName)
	if err != nil {
		return nil, err
	}

	timeouts := make(map[string]int)
	for id, step := range stats.Steps {
		if step.Completed == 0 {
			continue
		}
		suggested := int(step.AverageDuration * 1.5)
		if suggested < 60 {
			suggested = 60
		}
		timeouts[id] = suggested
	}
	return timeouts, nil
}
