// Package docconv provides a Normaliser backed by code.sajari.com/docconv.
// It produces cleaner text than the regex normaliser on pages with heavy
// navigation chrome, optionally using readability scoring to keep only the
// main article body.
package docconv

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"code.sajari.com/docconv"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-loader/internal/normalisers/html"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser converts HTML with docconv.
type Normaliser struct {
	useReadability bool
}

// New creates a docconv normaliser.
func New(useReadability bool) *Normaliser {
	return &Normaliser{useReadability: useReadability}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	if n.useReadability {
		return "readability"
	}
	return "docconv"
}

// Normalise converts page markup into a plain-text document.
func (n *Normaliser) Normalise(ctx context.Context, sourceURL string, body []byte) (*domain.Document, error) {
	if body == nil {
		return nil, domain.ErrInvalidInput
	}

	text, _, err := docconv.ConvertHTML(bytes.NewReader(body), n.useReadability)
	if err != nil {
		return nil, fmt.Errorf("docconv: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &domain.Document{
		SourceURL: sourceURL,
		Title:     html.ExtractTitle(string(body), sourceURL),
		Content:   compact(text),
		FetchedAt: time.Now(),
	}, nil
}

// compact trims every line and drops blank ones.
func compact(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
