// Package domain defines the core entities of the Sercha loader.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Source: A web page URL to ingest
//   - Document: Plain text extracted from a Source
//   - Chunk: A bounded, overlapping slice of a Document
//   - Record: A chunk, its embedding and its provenance as stored
//   - CollectionSchema: The vector configuration of a store collection
//   - RunReport: Counters and failures of one ingestion run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
