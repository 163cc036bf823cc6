package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/pose"
)

// Rep is a stored repetition.
type Rep struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	exercise.RepEvent
}

// RepRepository provides append and query operations for reps.
type RepRepository struct {
	db *sql.DB
}

// Reps returns the rep repository for this store.
func (s *Store) Reps() *RepRepository {
	return &RepRepository{db: s.db}
}

// Record appends a repetition to a run.
func (r *RepRepository) Record(ctx context.Context, runID string, at time.Time, ev exercise.RepEvent) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO reps (run_id, timestamp, exercise, rep_count, primary_metric, secondary_metric, error_tag, feedback, side, frame)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, at, string(ev.Exercise), ev.RepIndex, ev.PrimaryMetric, ev.SecondaryMetric,
		string(ev.ErrorTag), ev.Feedback, string(ev.Side), ev.Frame,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListByRun retrieves the reps of a run in rep order.
func (r *RepRepository) ListByRun(runID string) ([]Rep, error) {
	rows, err := r.db.Query(
		`SELECT id, run_id, timestamp, exercise, rep_count, primary_metric, secondary_metric, error_tag, feedback, side, frame
		 FROM reps
		 WHERE run_id = ?
		 ORDER BY rep_count, id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reps := []Rep{}
	for rows.Next() {
		var rep Rep
		var ex, tag, side string
		err := rows.Scan(&rep.ID, &rep.RunID, &rep.Timestamp, &ex, &rep.RepIndex,
			&rep.PrimaryMetric, &rep.SecondaryMetric, &tag, &rep.Feedback, &side, &rep.Frame)
		if err != nil {
			return nil, err
		}
		rep.Exercise = exercise.Exercise(ex)
		rep.ErrorTag = exercise.ErrorTag(tag)
		rep.Side = pose.Side(side)
		reps = append(reps, rep)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reps, nil
}

// Events returns the rep events of a run in rep order.
func (r *RepRepository) Events(runID string) ([]exercise.RepEvent, error) {
	reps, err := r.ListByRun(runID)
	if err != nil {
		return nil, err
	}
	events := make([]exercise.RepEvent, len(reps))
	for i := range reps {
		events[i] = reps[i].RepEvent
	}
	return events, nil
}

// DeleteByRun removes all reps of a run.
func (r *RepRepository) DeleteByRun(runID string) error {
	_, err := r.db.Exec(`DELETE FROM reps WHERE run_id = ?`, runID)
	return err
}

// RepSink records events of one run into the reps table.
type RepSink struct {
	store *Store
	runID string
	now   func() time.Time
}

// NewRepSink creates a sink bound to a run that must already exist.
func NewRepSink(s *Store, runID string) *RepSink {
	return &RepSink{store: s, runID: runID, now: time.Now}
}

// Record implements exercise.Sink.
func (s *RepSink) Record(ctx context.Context, ev exercise.RepEvent) error {
	_, err := s.store.Reps().Record(ctx, s.runID, s.now(), ev)
	return err
}

// Clear drops the history of every other run.
func (s *RepSink) Clear(ctx context.Context) error {
	_, err := s.store.db.ExecContext(ctx, `DELETE FROM runs WHERE id <> ?`, s.runID)
	return err
}
