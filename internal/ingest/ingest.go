// CLAUDE:SUMMARY Ingestion runner driving each loader through fetch → transform → upsert.
package ingest

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/storefeed/internal/fetch"
	"github.com/hazyhaar/storefeed/internal/store"
)

// Runner sequences the primary ingestion across all loaders.
type Runner struct {
	fetcher *fetch.Fetcher
	store   *store.Store
	loaders []Loader
	logger  *slog.Logger
}

// NewRunner creates a Runner over the given loaders.
func NewRunner(f *fetch.Fetcher, s *store.Store, loaders []Loader, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{fetcher: f, store: s, loaders: loaders, logger: logger}
}

// Run executes fetch → transform → upsert for each loader in order and
// reports overall success. The first transform or upsert failure aborts the
// run: the primary relations are consistency-first, so a partially valid
// payload never lands. An empty fetch result is a legitimate zero-row run.
func (r *Runner) Run(ctx context.Context) bool {
	for _, l := range r.loaders {
		log := r.logger.With("entity", l.Name())

		raw := r.fetcher.Fetch(ctx, l.URL(), l.Name())

		rows, err := l.Transform(raw)
		if err != nil {
			log.Error("ingest: transform failed", "error", err)
			return false
		}

		n, err := r.store.Upsert(ctx, l.Relation(), rows, store.UpsertOptions{ConflictKey: "id"})
		if err != nil {
			log.Error("ingest: upsert failed", "error", err)
			return false
		}
		log.Info("ingest: upserted", "rows", n)
	}
	return true
}
