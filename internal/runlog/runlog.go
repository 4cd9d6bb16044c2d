// CLAUDE:SUMMARY Non-blocking run history recorder: one run_log row per orchestrated pipeline run.
// Package runlog records pipeline run outcomes in the run_log table.
//
// Recording is best-effort: a failing write is logged but never blocks or
// fails the pipeline itself.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Entry is one pipeline run outcome.
type Entry struct {
	RunID         string `json:"run_id"`
	StartedAt     int64  `json:"started_at"`
	FinishedAt    int64  `json:"finished_at"`
	IngestOK      bool   `json:"ingest_ok"`
	MostExpensive int    `json:"most_expensive"`
	OdsUsers      int    `json:"ods_users"`
	Error         string `json:"error,omitempty"`
}

// Recorder writes and reads run history.
type Recorder struct {
	db    *sql.DB
	newID func() string
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithIDGenerator sets a custom run ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(r *Recorder) { r.newID = gen }
}

// NewRecorder creates a Recorder on the given database. Run IDs default to
// "run_" + UUIDv7 (time-sortable).
func NewRecorder(db *sql.DB, opts ...Option) *Recorder {
	r := &Recorder{
		db: db,
		newID: func() string {
			return "run_" + uuid.Must(uuid.NewV7()).String()
		},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewRunID produces an identifier for a run about to start.
func (r *Recorder) NewRunID() string {
	return r.newID()
}

// Record writes one run entry. Non-blocking: errors are logged via slog but
// do not propagate, so a failing run log never fails the pipeline.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if e.RunID == "" {
		e.RunID = r.newID()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO run_log (run_id, started_at, finished_at, ingest_ok,
			most_expensive, ods_users, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.StartedAt, e.FinishedAt, e.IngestOK,
		e.MostExpensive, e.OdsUsers, e.Error)
	if err != nil {
		slog.Error("runlog: record failed", "run_id", e.RunID, "error", err)
	}
}

// Recent returns the latest runs, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, ingest_ok,
			most_expensive, ods_users, error
		FROM run_log ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.StartedAt, &e.FinishedAt, &e.IngestOK,
			&e.MostExpensive, &e.OdsUsers, &e.Error); err != nil {
			return nil, fmt.Errorf("runlog: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
