// Package chunker provides a fixed-size, overlapping text chunker.
package chunker

import (
	"github.com/custodia-labs/sercha-loader/internal/core/domain"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 512

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 100

// Processor splits document text into fixed-size chunks.
// Sizes are measured in runes so multi-byte characters are never split.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
// Values below 1 keep the default.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap > 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't reach chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
		if p.overlap == 0 {
			p.overlap = p.chunkSize - 1
		}
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the maximum chunk length in characters.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the number of characters shared by consecutive chunks.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Split divides text into windows of at most chunkSize runes. Each window
// starts chunkSize-overlap runes after the previous one, and the last window
// ends exactly at the end of the text, so dropping the first overlap runes of
// every chunk but the first reconstructs the input.
func (p *Processor) Split(text string) []domain.Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	total := len(runes)
	step := p.chunkSize - p.overlap

	chunks := make([]domain.Chunk, 0, total/step+1)
	for start := 0; ; start += step {
		end := start + p.chunkSize
		if end > total {
			end = total
		}

		chunks = append(chunks, domain.Chunk{
			Index:   len(chunks),
			Content: string(runes[start:end]),
		})

		if end == total {
			break
		}
	}

	return chunks
}
