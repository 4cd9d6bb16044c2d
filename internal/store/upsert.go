// CLAUDE:SUMMARY Generic bulk upsert writer: single-statement INSERT ... ON CONFLICT DO UPDATE.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Relation names a target table and its column list, in insert order.
type Relation struct {
	Table   string
	Columns []string
}

// UpsertOptions control conflict handling for Upsert.
type UpsertOptions struct {
	// ConflictKey is the column used to detect an existing row. Default: "id".
	ConflictKey string
	// Exclude lists columns that are never updated on conflict.
	Exclude []string
}

// Upsert inserts rows into rel as one multi-row statement; on conflict of the
// conflict key, every column not excluded is updated to the incoming value.
// The statement is all-or-nothing: a failure leaves the relation untouched.
// Empty input is a no-op that returns 0 and logs a warning, so a degraded
// upstream source is distinguishable from a write failure.
func (s *Store) Upsert(ctx context.Context, rel Relation, rows [][]any, opts UpsertOptions) (int, error) {
	if len(rows) == 0 {
		slog.Warn("store: upsert called with no rows", "table", rel.Table)
		return 0, nil
	}
	if opts.ConflictKey == "" {
		opts.ConflictKey = "id"
	}

	for i, row := range rows {
		if len(row) != len(rel.Columns) {
			return 0, fmt.Errorf("store: upsert %s: row %d has %d values, want %d",
				rel.Table, i, len(row), len(rel.Columns))
		}
	}

	excluded := make(map[string]bool, len(opts.Exclude)+1)
	excluded[opts.ConflictKey] = true
	for _, c := range opts.Exclude {
		excluded[c] = true
	}

	var updates []string
	for _, col := range rel.Columns {
		if !excluded[col] {
			updates = append(updates, col+"=excluded."+col)
		}
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(rel.Columns)), ",") + ")"
	values := make([]string, len(rows))
	args := make([]any, 0, len(rows)*len(rel.Columns))
	for i, row := range rows {
		values[i] = placeholder
		args = append(args, row...)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES %s",
		rel.Table, strings.Join(rel.Columns, ", "), strings.Join(values, ","))
	if len(updates) == 0 {
		fmt.Fprintf(&b, " ON CONFLICT(%s) DO NOTHING", opts.ConflictKey)
	} else {
		fmt.Fprintf(&b, " ON CONFLICT(%s) DO UPDATE SET %s",
			opts.ConflictKey, strings.Join(updates, ", "))
	}

	if _, err := s.DB.ExecContext(ctx, b.String(), args...); err != nil {
		return 0, fmt.Errorf("store: upsert %s: %w", rel.Table, err)
	}
	return len(rows), nil
}
