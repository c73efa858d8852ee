// Package history records workflow executions as JSON files, one per
// run, and aggregates them into statistics.
package history

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

// Tracker manages in-flight execution records and persists them on
// completion. One file per execution keeps the history greppable and
// safe to prune by hand.
type Tracker struct {
	dir string

	mu      sync.Mutex
	current map[string]*models.Execution
}

// NewTracker creates a tracker writing into dir.
func NewTracker(dir string) (*Tracker, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	return &Tracker{
		dir:     dir,
		current: make(map[string]*models.Execution),
	}, nil
}

// Dir returns the history directory.
func (t *Tracker) Dir() string {
	return t.dir
}

// StartExecution begins tracking a workflow run and returns its ID.
func (t *Tracker) StartExecution(workflowName, workflowVersion, taskDescription, projectPath string) string {
	now := time.Now()
	id := now.Format("20060102_150405.000000")
	id = strings.ReplaceAll(id, ".", "_")

	exec := &models.Execution{
		ExecutionID:     id,
		WorkflowName:    workflowName,
		WorkflowVersion: workflowVersion,
		TaskDescription: taskDescription,
		Status:          models.WorkflowRunning,
		StartTime:       now,
		ProjectPath:     projectPath,
	}

	t.mu.Lock()
	t.current[id] = exec
	t.mu.Unlock()
	return id
}

// StartStep begins tracking a step within an execution.
func (t *Tracker) StartStep(execID, stepID, stepName, agent string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	exec, ok := t.current[execID]
	if !ok {
		return
	}

	now := time.Now()
	exec.Steps = append(exec.Steps, models.StepRecord{
		StepID:           stepID,
		StepName:         stepName,
		Agent:            agent,
		Status:           models.StepRunning,
		StartTime:        &now,
		ValidationPassed: true,
	})
	exec.TotalSteps++
}

// CompleteStep marks a step completed with its outputs and validation
// outcome.
func (t *Tracker) CompleteStep(execID, stepID string, outputs []string, validationPassed bool, validationErrors []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	exec, ok := t.current[execID]
	if !ok {
		return
	}
	step := exec.StepRecord(stepID)
	if step == nil {
		return
	}

	now := time.Now()
	step.Status = models.StepCompleted
	step.EndTime = &now
	if step.StartTime != nil {
		step.DurationSeconds = now.Sub(*step.StartTime).Seconds()
	}
	if len(outputs) > 0 {
		step.Outputs = outputs
		exec.OutputsGenerated = append(exec.OutputsGenerated, outputs...)
	}
	step.ValidationPassed = validationPassed
	step.ValidationErrors = validationErrors
	exec.CompletedSteps++
}

// FailStep marks a step failed.
func (t *Tracker) FailStep(execID, stepID, errorMessage string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	exec, ok := t.current[execID]
	if !ok {
		return
	}
	step := exec.StepRecord(stepID)
	if step == nil {
		return
	}

	now := time.Now()
	step.Status = models.StepFailed
	step.EndTime = &now
	step.ErrorMessage = errorMessage
	if step.StartTime != nil {
		step.DurationSeconds = now.Sub(*step.StartTime).Seconds()
	}
	exec.FailedSteps++
}

// SkipStep marks an already-tracked step skipped.
func (t *Tracker) SkipStep(execID, stepID, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	exec, ok := t.current[execID]
	if !ok {
		return
	}
	step := exec.StepRecord(stepID)
	if step == nil {
		return
	}
	step.Status = models.StepSkipped
	step.ErrorMessage = reason
	exec.SkippedSteps++
}

// RecordQualityGate records a gate result against an execution.
func (t *Tracker) RecordQualityGate(execID, gateName string, passed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	exec, ok := t.current[execID]
	if !ok {
		return
	}
	if passed {
		exec.QualityGatesPassed = append(exec.QualityGatesPassed, gateName)
	} else {
		exec.QualityGatesFailed = append(exec.QualityGatesFailed, gateName)
	}
}

// RecordIntervention notes that the user intervened during a run.
func (t *Tracker) RecordIntervention(execID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if exec, ok := t.current[execID]; ok {
		exec.UserInterventions++
	}
}

// CompleteExecution finalizes an execution, derives its status, writes
// the record to disk, and drops it from the in-flight set.
//
// Status: no failed steps means completed; failures alongside
// completed steps mean partial; otherwise failed.
func (t *Tracker) CompleteExecution(execID string, success bool) (*models.Execution, error) {
	t.mu.Lock()
	exec, ok := t.current[execID]
	if ok {
		delete(t.current, execID)
	}
	t.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("execution %s not tracked", execID)
	}

	now := time.Now()
	exec.EndTime = &now
	exec.DurationSeconds = now.Sub(exec.StartTime).Seconds()

	switch {
	case success && exec.FailedSteps == 0:
		exec.Status = models.WorkflowCompleted
	case exec.FailedSteps > 0 && exec.CompletedSteps > 0:
		exec.Status = models.WorkflowPartial
	default:
		exec.Status = models.WorkflowFailed
	}

	if err := t.save(exec); err != nil {
		return exec, err
	}
	return exec, nil
}

// save writes an execution record to its history file.
func (t *Tracker) save(exec *models.Execution) error {
	filename := fmt.Sprintf("%s_%s_%s.json",
		exec.StartTime.Format("2006-01-02"), exec.WorkflowName, exec.ExecutionID)
	path := filepath.Join(t.dir, filename)

	data, err := json.MarshalIndent(exec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode execution: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write execution history: %w", err)
	}
	return nil
}

// List returns past executions, newest first. An empty workflowName
// matches all workflows; limit <= 0 means no limit.
func (t *Tracker) List(workflowName string, limit int) ([]*models.Execution, error) {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return nil, fmt.Errorf("read history directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if workflowName != "" && !strings.Contains(e.Name(), workflowName) {
			continue
		}
		names = append(names, e.Name())
	}
	// Filenames start with the date and the execution ID is a
	// timestamp, so lexical order is chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	var executions []*models.Execution
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(t.dir, name))
		if err != nil {
			continue
		}
		var exec models.Execution
		if err := json.Unmarshal(data, &exec); err != nil {
			continue
		}
		executions = append(executions, &exec)
	}
	return executions, nil
}
