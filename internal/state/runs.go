package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ensemble-cli/ensemble/internal/orchestrator"
)

// Compile-time check that DB satisfies the orchestrator's recorder.
var _ orchestrator.RunRecorder = (*DB)(nil)

// Run is one persisted task run.
type Run struct {
	ID          string
	Description string
	TaskType    string
	Mode        string
	Workflow    string
	Project     string
	Success     bool
	Duration    time.Duration
	StartedAt   time.Time
}

// AgentAggregate summarizes the outcomes recorded for one agent.
type AgentAggregate struct {
	AgentName   string
	Runs        int
	Successes   int
	TotalTokens int64
	TotalCost   float64
	AvgDuration time.Duration
}

// SuccessRate returns the agent's success percentage across runs.
func (a AgentAggregate) SuccessRate() float64 {
	if a.Runs == 0 {
		return 0
	}
	return float64(a.Successes) / float64(a.Runs) * 100
}

// RecordRun persists a run summary and its per-agent outcomes in one
// transaction.
func (db *DB) RecordRun(run orchestrator.RunRecord) error {
	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (id, description, task_type, mode, workflow, project, success, duration_ms, started_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, run.Description, run.TaskType, run.Mode, run.Workflow, run.Project,
			boolToInt(run.Success), run.Duration.Milliseconds(), formatTime(run.StartedAt))
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, o := range run.Outcomes {
			_, err := tx.Exec(`
				INSERT INTO outcomes (run_id, agent_name, success, tokens_used, cost, duration_ms, error_message)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, run.ID, o.AgentName, boolToInt(o.Success), o.TokensUsed, o.Cost,
				o.Duration.Milliseconds(), o.ErrorMessage)
			if err != nil {
				return fmt.Errorf("insert outcome: %w", err)
			}
		}
		return nil
	})
}

// RecentRuns returns the most recent runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := db.Query(`
		SELECT id, description, task_type, mode, COALESCE(workflow, ''), COALESCE(project, ''),
		       success, duration_ms, started_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var success int
		var durationMS int64
		var startedAt string
		if err := rows.Scan(&r.ID, &r.Description, &r.TaskType, &r.Mode, &r.Workflow, &r.Project,
			&success, &durationMS, &startedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Success = success != 0
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := parseTime(startedAt); err == nil {
			r.StartedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// AgentAggregates returns per-agent statistics across all recorded
// outcomes, ordered by run count.
func (db *DB) AgentAggregates() ([]AgentAggregate, error) {
	rows, err := db.Query(`
		SELECT agent_name, COUNT(*), SUM(success), SUM(tokens_used), SUM(cost), AVG(duration_ms)
		FROM outcomes
		GROUP BY agent_name
		ORDER BY COUNT(*) DESC, agent_name
	`)
	if err != nil {
		return nil, fmt.Errorf("query agent aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []AgentAggregate
	for rows.Next() {
		var a AgentAggregate
		var avgMS float64
		if err := rows.Scan(&a.AgentName, &a.Runs, &a.Successes, &a.TotalTokens, &a.TotalCost, &avgMS); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		a.AvgDuration = time.Duration(avgMS) * time.Millisecond
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

// CountRuns returns total and successful run counts.
func (db *DB) CountRuns() (total, successful int, err error) {
	row := db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(success), 0) FROM runs`)
	if err := row.Scan(&total, &successful); err != nil {
		return 0, 0, fmt.Errorf("count runs: %w", err)
	}
	return total, successful, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
