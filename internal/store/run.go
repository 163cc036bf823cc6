package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/formcheck/internal/exercise"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusFinished  RunStatus = "finished"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one analysis of a frame stream.
type Run struct {
	ID         string            `json:"id"`
	Exercise   exercise.Exercise `json:"exercise"`
	Source     string            `json:"source"`
	Status     RunStatus         `json:"status"`
	RepCount   int               `json:"rep_count"`
	Frames     int               `json:"frames"`
	Skipped    int               `json:"skipped"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// RunRepository provides CRUD operations for runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a new run. StartedAt defaults to now and Status to running.
func (r *RunRepository) Create(run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}

	_, err := r.db.Exec(
		`INSERT INTO runs (id, exercise, source, status, rep_count, frames, skipped, error, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Exercise), run.Source, string(run.Status),
		run.RepCount, run.Frames, run.Skipped, run.Error, run.StartedAt,
	)
	return err
}

// Finish stores the final counters and status of a run and stamps FinishedAt.
func (r *RunRepository) Finish(run *Run) error {
	now := time.Now()
	run.FinishedAt = &now

	result, err := r.db.Exec(
		`UPDATE runs SET status = ?, rep_count = ?, frames = ?, skipped = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		string(run.Status), run.RepCount, run.Frames, run.Skipped, run.Error, now, run.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

const runColumns = `id, exercise, source, status, rep_count, frames, skipped, error, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var ex, status string
	var finished sql.NullTime

	err := row.Scan(&run.ID, &ex, &run.Source, &status, &run.RepCount, &run.Frames,
		&run.Skipped, &run.Error, &run.StartedAt, &finished)
	if err != nil {
		return nil, err
	}

	run.Exercise = exercise.Exercise(ex)
	run.Status = RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List retrieves runs, most recent first. A limit of zero or less returns all runs.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Delete removes a run and its reps.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteExcept removes every run other than id, together with its reps.
func (r *RunRepository) DeleteExcept(id string) error {
	_, err := r.db.Exec(`DELETE FROM runs WHERE id <> ?`, id)
	return err
}
