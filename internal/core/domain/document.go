package domain

import "time"

// Source identifies a web page to ingest.
type Source struct {
	// URL is the page location.
	URL string
}

// DefaultSources returns the pages ingested when no sources are configured.
func DefaultSources() []Source {
	return []Source{
		{URL: "https://en.wikipedia.org/wiki/2025_Formula_One_World_Championship"},
		{URL: "https://en.wikipedia.org/wiki/2026_Formula_One_World_Championship"},
	}
}

// SourcesFromURLs converts a list of URLs into sources, skipping blanks.
func SourcesFromURLs(urls []string) []Source {
	sources := make([]Source, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		sources = append(sources, Source{URL: u})
	}
	return sources
}

// Document is the plain text extracted from a Source after markup removal.
// It is consumed once by the chunker and is never stored itself.
type Document struct {
	// SourceURL is the URL the document was fetched from.
	SourceURL string

	// Title is the page title, if one was found.
	Title string

	// Content is the text with all markup stripped.
	Content string

	// FetchedAt is when the page was rendered.
	FetchedAt time.Time
}

// Chunk is an ordered substring of a Document.
type Chunk struct {
	// Index is the ordinal position within the document.
	Index int

	// Content is the text of this chunk.
	Content string
}

// Record is a chunk persisted with its embedding and provenance.
type Record struct {
	// ID is assigned by the store on insertion.
	ID string

	// Collection is the store collection the record belongs to.
	Collection string

	// Text is the chunk content.
	Text string

	// Vector is the chunk embedding.
	Vector []float32

	// SourceURL is the page the chunk came from.
	SourceURL string

	// ChunkIndex is the chunk's position within its document.
	ChunkIndex int
}
