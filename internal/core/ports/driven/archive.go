package driven

import (
	"context"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
)

// DocumentArchive keeps a snapshot of each fetched document's text.
// Snapshots are write-only from the loader's point of view.
type DocumentArchive interface {
	// Put stores the document and returns its location.
	Put(ctx context.Context, doc *domain.Document) (string, error)
}
