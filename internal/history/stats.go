package history

import (
	"sort"

	"github.com/ensemble-cli/ensemble/pkg/models"
)

// StepStats aggregates outcomes for one step across executions.
type StepStats struct {
	StepID          string  `json:"step_id"`
	Executions      int     `json:"executions"`
	Completed       int     `json:"completed"`
	Failed          int     `json:"failed"`
	Skipped         int     `json:"skipped"`
	SuccessRate     float64 `json:"success_rate"`
	AverageDuration float64 `json:"average_duration_seconds"`
}

// WorkflowStats aggregates history for a single workflow.
type WorkflowStats struct {
	WorkflowName    string               `json:"workflow_name"`
	TotalExecutions int                  `json:"total_executions"`
	Completed       int                  `json:"completed"`
	Partial         int                  `json:"partial"`
	Failed          int                  `json:"failed"`
	SuccessRate     float64              `json:"success_rate"`
	AverageDuration float64              `json:"average_duration_seconds"`
	Steps           map[string]StepStats `json:"steps"`
}

// WorkflowStats computes aggregate statistics for one workflow from
// its execution history.
func (t *Tracker) WorkflowStats(workflowName string) (*WorkflowStats, error) {
	executions, err := t.List(workflowName, 0)
	if err != nil {
		return nil, err
	}

	stats := &WorkflowStats{
		WorkflowName: workflowName,
		Steps:        make(map[string]StepStats),
	}
	if len(executions) == 0 {
		return stats, nil
	}

	var totalDuration float64
	stepDurations := make(map[string]float64)

	for _, exec := range executions {
		stats.TotalExecutions++
		totalDuration += exec.DurationSeconds

		switch exec.Status {
		case models.WorkflowCompleted:
			stats.Completed++
		case models.WorkflowPartial:
			stats.Partial++
		case models.WorkflowFailed:
			stats.Failed++
		}

		for _, step := range exec.Steps {
			s := stats.Steps[step.StepID]
			s.StepID = step.StepID
			s.Executions++
			switch step.Status {
			case models.StepCompleted:
				s.Completed++
			case models.StepFailed:
				s.Failed++
			case models.StepSkipped:
				s.Skipped++
			}
			stepDurations[step.StepID] += step.DurationSeconds
			stats.Steps[step.StepID] = s
		}
	}

	stats.SuccessRate = float64(stats.Completed) / float64(stats.TotalExecutions) * 100
	stats.AverageDuration = totalDuration / float64(stats.TotalExecutions)

	for id, s := range stats.Steps {
		if s.Executions > 0 {
			s.SuccessRate = float64(s.Completed) / float64(s.Executions) * 100
			s.AverageDuration = stepDurations[id] / float64(s.Executions)
		}
		stats.Steps[id] = s
	}
	return stats, nil
}

// WorkflowUsage names a workflow and how often it has run.
type WorkflowUsage struct {
	Name        string  `json:"name"`
	Executions  int     `json:"executions"`
	Completed   int     `json:"completed"`
	SuccessRate float64 `json:"success_rate"`
}

// GlobalStats summarizes all recorded history.
type GlobalStats struct {
	TotalExecutions int             `json:"total_executions"`
	Completed       int             `json:"completed"`
	Partial         int             `json:"partial"`
	Failed          int             `json:"failed"`
	TotalDuration   float64         `json:"total_duration_seconds"`
	MostUsed        []WorkflowUsage `json:"most_used"`
}

// GlobalStats aggregates every execution on disk and reports the five
// most used workflows.
func (t *Tracker) GlobalStats() (*GlobalStats, error) {
	executions, err := t.List("", 0)
	if err != nil {
		return nil, err
	}

	stats := &GlobalStats{}
	usage := make(map[string]*WorkflowUsage)

	for _, exec := range executions {
		stats.TotalExecutions++
		stats.TotalDuration += exec.DurationSeconds

		switch exec.Status {
		case models.WorkflowCompleted:
			stats.Completed++
		case models.WorkflowPartial:
			stats.Partial++
		case models.WorkflowFailed:
			stats.Failed++
		}

		u := usage[exec.WorkflowName]
		if u == nil {
			u = &WorkflowUsage{Name: exec.WorkflowName}
			usage[exec.WorkflowName] = u
		}
		u.Executions++
		if exec.Status == models.WorkflowCompleted {
			u.Completed++
		}
	}

	for _, u := range usage {
		if u.Executions > 0 {
			u.SuccessRate = float64(u.Completed) / float64(u.Executions) * 100
		}
		stats.MostUsed = append(stats.MostUsed, *u)
	}
	sort.Slice(stats.MostUsed, func(i, j int) bool {
		if stats.MostUsed[i].Executions != stats.MostUsed[j].Executions {
			return stats.MostUsed[i].Executions > stats.MostUsed[j].Executions
		}
		return stats.MostUsed[i].Name < stats.MostUsed[j].Name
	})
	if len(stats.MostUsed) > 5 {
		stats.MostUsed = stats.MostUsed[:5]
	}
	return stats, nil
}
