// CLAUDE:SUMMARY Top-10-by-price snapshot rebuild: clear, select, insert in one transaction.
package derive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/storefeed/internal/store"
)

// topN is the fixed size of the most_expensive ranking.
const topN = 10

// MostExpensive rebuilds the most_expensive projection: a snapshot of the
// ten priciest products, ordered by price descending, with no reference back
// to the source product id.
type MostExpensive struct {
	store  *store.Store
	logger *slog.Logger
}

// NewMostExpensive creates the builder.
func NewMostExpensive(s *store.Store, logger *slog.Logger) *MostExpensive {
	if logger == nil {
		logger = slog.Default()
	}
	return &MostExpensive{store: s, logger: logger}
}

// Name returns the projection name used in run summaries.
func (m *MostExpensive) Name() string { return "most_expensive" }

// Rebuild clears and repopulates the projection inside one transaction and
// returns the number of rows inserted. Ties on price break by natural
// relation order. An empty products relation yields 0 without error.
func (m *MostExpensive) Rebuild(ctx context.Context) (int, error) {
	n, err := m.rebuild(ctx)
	if err != nil {
		var rerr *RebuildError
		if !errors.As(err, &rerr) {
			err = &RebuildError{Projection: m.Name(), Cause: err}
		}
		return 0, err
	}
	m.logger.Debug("derive: most_expensive rebuilt", "rows", n)
	return n, nil
}

func (m *MostExpensive) rebuild(ctx context.Context) (int, error) {
	tx, err := m.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM most_expensive`); err != nil {
		return 0, &RebuildError{Projection: m.Name(), Phase: PhaseClear, Cause: err}
	}

	type rank struct {
		name     string
		price    float64
		category string
	}
	var ranks []rank

	rows, err := tx.QueryContext(ctx,
		`SELECT title, price, category FROM products ORDER BY price DESC LIMIT ?`, topN)
	if err != nil {
		return 0, &RebuildError{Projection: m.Name(), Phase: PhaseFetch, Cause: err}
	}
	for rows.Next() {
		var r rank
		if err := rows.Scan(&r.name, &r.price, &r.category); err != nil {
			rows.Close()
			return 0, &RebuildError{Projection: m.Name(), Phase: PhaseFetch, Cause: err}
		}
		ranks = append(ranks, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, &RebuildError{Projection: m.Name(), Phase: PhaseFetch, Cause: err}
	}
	rows.Close()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO most_expensive (product_name, price, category) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, &RebuildError{Projection: m.Name(), Phase: PhaseInsert, Cause: err}
	}
	defer stmt.Close()

	for _, r := range ranks {
		if _, err := stmt.ExecContext(ctx, r.name, r.price, r.category); err != nil {
			return 0, &RebuildError{Projection: m.Name(), Phase: PhaseInsert, Cause: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &RebuildError{Projection: m.Name(), Phase: PhaseInsert, Cause: err}
	}
	return len(ranks), nil
}
