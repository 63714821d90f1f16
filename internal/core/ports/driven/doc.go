// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for an ingestion run:
//
//   - Fetcher: Renders a URL and returns its plain text
//   - Normaliser: Converts rendered markup into a Document
//   - Chunker: Splits document text into overlapping chunks
//   - EmbeddingService: Generates vector embeddings
//   - VectorStore: Owns collection lifecycle and record insertion
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - DocumentArchive: Keeps a snapshot of every fetched document.
//   - ConfigStore: Supplies settings from a configuration file.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
