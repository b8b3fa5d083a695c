// Package results archives test runs and per-command outcomes to the
// SQLite result store. Each run gets a UUID; command records hang off
// their run and survive harness restarts.
package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence operations for test results. The
// SQLite implementation is the only production one; tests may
// substitute fakes.
type Repository interface {
	// StartRun inserts a new run in the running state and returns it.
	StartRun(ctx context.Context, harnessID, name string) (*Run, error)

	// FinishRun closes out a run with the given outcome.
	// Returns ErrRunNotFound if the run does not exist and ErrRunFinished
	// if it was already closed.
	FinishRun(ctx context.Context, runID string, outcome Outcome) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns retrieves runs newest first, bounded by limit.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// RecordCommand appends one command outcome to a run.
	RecordCommand(ctx context.Context, rec *CommandRecord) error

	// ListCommands retrieves a run's command records in insertion order.
	ListCommands(ctx context.Context, runID string) ([]CommandRecord, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed repository. The db
// parameter should be an open connection with migrations applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// StartRun inserts a new run in the running state.
func (r *SQLiteRepository) StartRun(ctx context.Context, harnessID, name string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		HarnessID: harnessID,
		Name:      name,
		StartedAt: time.Now().UTC(),
		Outcome:   OutcomeRunning,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO test_runs (id, harness_id, name, started_at, outcome)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.HarnessID, run.Name, run.StartedAt.Format(time.RFC3339Nano), string(run.Outcome),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return run, nil
}

// FinishRun closes out a run with the given outcome.
func (r *SQLiteRepository) FinishRun(ctx context.Context, runID string, outcome Outcome) error {
	existing, err := r.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if existing.FinishedAt != nil {
		return fmt.Errorf("%w: %s", ErrRunFinished, runID)
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE test_runs SET finished_at = ?, outcome = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), string(outcome), runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (r *SQLiteRepository) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, harness_id, name, started_at, finished_at, outcome
		FROM test_runs WHERE id = ?`, runID)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves runs newest first.
func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, harness_id, name, started_at, finished_at, outcome
		FROM test_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// RecordCommand appends one command outcome to a run.
func (r *SQLiteRepository) RecordCommand(ctx context.Context, rec *CommandRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	var errText any
	if rec.Error != "" {
		errText = rec.Error
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO command_records (run_id, device, action, command, output, error, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Device, rec.Action, rec.Command, rec.Output, errText,
		rec.Duration.Milliseconds(), rec.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting command record: %w", err)
	}

	rec.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading command record id: %w", err)
	}
	return nil
}

// ListCommands retrieves a run's command records in insertion order.
func (r *SQLiteRepository) ListCommands(ctx context.Context, runID string) ([]CommandRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, device, action, command, output, error, duration_ms, recorded_at
		FROM command_records WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying command records: %w", err)
	}
	defer rows.Close()

	var records []CommandRecord
	for rows.Next() {
		var rec CommandRecord
		var errText sql.NullString
		var durationMS int64
		var recordedAt string
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Device, &rec.Action, &rec.Command,
			&rec.Output, &errText, &durationMS, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning command record: %w", err)
		}
		rec.Error = errText.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command records: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt string
	var finishedAt sql.NullString
	var outcome string

	if err := row.Scan(&run.ID, &run.HarnessID, &run.Name, &startedAt, &finishedAt, &outcome); err != nil {
		return nil, err
	}

	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err == nil {
			run.FinishedAt = &t
		}
	}
	run.Outcome = Outcome(outcome)
	return &run, nil
}
