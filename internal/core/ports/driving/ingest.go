package driving

import (
	"context"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
)

// Ingestor runs the one-shot ingestion pipeline.
type Ingestor interface {
	// EnsureCollection creates the target collection if it is absent.
	EnsureCollection(ctx context.Context) error

	// Run ensures the collection, then fetches, chunks, embeds and inserts
	// every source in order. Recoverable failures are recorded in the
	// report; only a collection failure or cancellation returns an error.
	Run(ctx context.Context, sources []domain.Source) (*domain.RunReport, error)

	// Collection returns the schema records are written to.
	Collection() domain.CollectionSchema
}
