package driven

import (
	"context"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
)

// Fetcher retrieves a page's rendered content and strips its markup.
//
// Failures are returned as *domain.FetchError. Implementations must release
// any browser or network resources they acquire before returning, on both
// success and failure paths.
type Fetcher interface {
	// Fetch renders url and returns its text.
	Fetch(ctx context.Context, url string) (*domain.Document, error)

	// Close releases resources shared across fetches.
	Close() error
}
