// Package ingest runs the primary ingestion: fetch raw records from each
// upstream source, transform them to relation rows, bulk-upsert them.
//
// One Loader per entity kind supplies the source endpoint, the target
// relation, and a pure transform; the Runner drives all loaders through the
// same fetch → transform → upsert sequence.
package ingest

import (
	"github.com/hazyhaar/storefeed/internal/fetch"
	"github.com/hazyhaar/storefeed/internal/store"
)

// Loader describes one entity kind ingested from an upstream source.
type Loader interface {
	// Name is the entity name used in logs and as the collection key in the
	// upstream JSON envelope.
	Name() string

	// URL is the upstream endpoint to fetch.
	URL() string

	// Relation is the target relation for the upsert writer.
	Relation() store.Relation

	// Transform maps raw records to relation rows, in Relation column order.
	// Pure. A missing or malformed required field on any single record fails
	// the whole batch: primary ingestion is consistency-first, so a partially
	// valid upstream payload is treated as an upstream defect, not defaulted.
	Transform(raw []fetch.RawRecord) ([][]any, error)
}
