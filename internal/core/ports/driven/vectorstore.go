package driven

import (
	"context"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
)

// VectorStore owns collection lifecycle and record insertion.
// Update, delete and query operations are deliberately absent.
type VectorStore interface {
	// EnsureCollection creates the collection if it is absent.
	// Calling it again with the same schema is a no-op. If the collection
	// exists with a different dimension or metric, it returns
	// *domain.CollectionConfigError and leaves the collection untouched.
	EnsureCollection(ctx context.Context, schema domain.CollectionSchema) error

	// Insert stores one record and returns its ID.
	// It returns *domain.DimensionMismatchError if the vector length differs
	// from the collection dimension and *domain.StoreUnavailableError on
	// connectivity or authorisation failures. No partial record is stored.
	Insert(ctx context.Context, collection string, rec domain.Record) (string, error)

	// Close releases resources.
	Close() error
}
