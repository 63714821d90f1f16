package driven

import "github.com/custodia-labs/sercha-loader/internal/core/domain"

// Chunker splits document text into ordered, overlapping chunks.
// Implementations are pure: the same text always yields the same chunks.
type Chunker interface {
	// Split returns the chunks of text. Empty text yields no chunks.
	Split(text string) []domain.Chunk

	// ChunkSize returns the maximum chunk length in characters.
	ChunkSize() int

	// Overlap returns the number of characters shared by consecutive chunks.
	Overlap() int
}
