// Package derive recomputes the analytical projections from the primary
// relations.
//
// Each projection is rebuilt from scratch (clear, select, insert) inside one
// transaction; builders fail independently and the run summary degrades the
// failed one to a zero count instead of aborting the other.
package derive

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/storefeed/internal/store"
)

// Builder rebuilds one derived projection and reports how many rows landed.
type Builder interface {
	Name() string
	Rebuild(ctx context.Context) (int, error)
}

// Runner executes every projection builder independently.
type Runner struct {
	builders []Builder
	logger   *slog.Logger
}

// NewRunner creates a Runner over the standard projections.
func NewRunner(s *store.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		builders: []Builder{
			NewMostExpensive(s, logger),
			NewOdsUsers(s, logger),
		},
		logger: logger,
	}
}

// RunAll rebuilds every projection and returns a complete name → count
// summary. A failing builder is logged and recorded as 0; the others still
// run. RunAll never returns an error.
func (r *Runner) RunAll(ctx context.Context) map[string]int {
	results := make(map[string]int, len(r.builders))
	for _, b := range r.builders {
		n, err := b.Rebuild(ctx)
		if err != nil {
			r.logger.Error("derive: rebuild failed", "projection", b.Name(), "error", err)
			n = 0
		}
		results[b.Name()] = n
	}
	return results
}
