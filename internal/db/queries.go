package db

import (
	"database/sql"
	"fmt"

	"github.com/lucasnoah/voicepipe/internal/pipeline"
)

// Run represents a row in the runs table.
type Run struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	FailedStage   string `json:"failed_stage,omitempty"`
	Error         string `json:"error,omitempty"`
	ArtifactName  string `json:"artifact_name,omitempty"`
	ArtifactBytes int64  `json:"artifact_bytes"`
	TranscriptLen int    `json:"transcript_len"`
	DurationMs    int64  `json:"duration_ms"`
	CreatedAt     string `json:"created_at"`
}

// StageEvent represents a row in the stage_events table.
type StageEvent struct {
	ID         int    `json:"id"`
	RunID      string `json:"run_id"`
	Position   int    `json:"position"`
	Stage      string `json:"stage"`
	Success    bool   `json:"success"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// LogRun inserts one completed or failed pipeline run.
func (d *DB) LogRun(run Run) error {
	_, err := d.conn.Exec(
		`INSERT INTO runs (id, status, failed_stage, error, artifact_name, artifact_bytes, transcript_len, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Status, nullable(run.FailedStage), nullable(run.Error),
		nullable(run.ArtifactName), run.ArtifactBytes, run.TranscriptLen, run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("log run: %w", err)
	}
	return nil
}

// LogStageOutcomes inserts the full outcome sequence for a run, preserving
// execution order via position.
func (d *DB) LogStageOutcomes(runID string, outcomes []pipeline.StageOutcome) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, o := range outcomes {
		if _, err := tx.Exec(
			`INSERT INTO stage_events (run_id, position, stage, success, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, i, string(o.Stage), o.Success, o.DurationMs, nullable(o.Error),
		); err != nil {
			return fmt.Errorf("log stage outcome %q: %w", o.Stage, err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns the most recent runs, newest first.
func (d *DB) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.Query(
		`SELECT id, status, failed_stage, error, artifact_name, artifact_bytes, transcript_len, duration_ms, created_at
		 FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var failedStage, errMsg, name sql.NullString
		if err := rows.Scan(&r.ID, &r.Status, &failedStage, &errMsg, &name, &r.ArtifactBytes, &r.TranscriptLen, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.FailedStage = failedStage.String
		r.Error = errMsg.String
		r.ArtifactName = name.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunStages returns the stage outcome sequence for one run, in execution order.
func (d *DB) RunStages(runID string) ([]StageEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, position, stage, success, duration_ms, error, timestamp
		 FROM stage_events WHERE run_id = ? ORDER BY position ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("run stages: %w", err)
	}
	defer rows.Close()

	var events []StageEvent
	for rows.Next() {
		var e StageEvent
		var errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &e.Position, &e.Stage, &e.Success, &e.DurationMs, &errMsg, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan stage event: %w", err)
		}
		e.Error = errMsg.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// nullable maps "" to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
