package driven

import (
	"context"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
)

// Normaliser converts rendered page markup into a plain-text Document.
type Normaliser interface {
	// Name identifies the normaliser in logs.
	Name() string

	// Normalise strips all markup from body and returns the remaining text.
	// sourceURL is recorded on the document for provenance.
	Normalise(ctx context.Context, sourceURL string, body []byte) (*domain.Document, error)
}
