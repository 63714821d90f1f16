// Package memory provides an in-memory vector store for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// collection holds one collection's schema and records.
type collection struct {
	schema  domain.CollectionSchema
	records []domain.Record
}

// VectorStore is an in-memory implementation of driven.VectorStore.
type VectorStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		collections: make(map[string]*collection),
	}
}

// EnsureCollection creates the collection if it does not exist.
func (s *VectorStore) EnsureCollection(_ context.Context, schema domain.CollectionSchema) error {
	if err := schema.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.collections[schema.Name]; ok {
		if !existing.schema.Matches(schema) {
			return &domain.CollectionConfigError{
				Name:      schema.Name,
				Existing:  existing.schema,
				Requested: schema,
			}
		}
		return nil
	}

	s.collections[schema.Name] = &collection{schema: schema}
	return nil
}

// Insert stores a copy of rec and returns its generated ID.
func (s *VectorStore) Insert(_ context.Context, name string, rec domain.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return "", fmt.Errorf("insert into %s: %w", name, domain.ErrCollectionNotFound)
	}
	if err := domain.CheckDimension(name, c.schema.Dimension, rec.Vector); err != nil {
		return "", err
	}

	rec.ID = uuid.NewString()
	rec.Collection = name
	rec.Vector = append([]float32(nil), rec.Vector...)
	c.records = append(c.records, rec)
	return rec.ID, nil
}

// Schema returns the schema of a collection.
func (s *VectorStore) Schema(name string) (domain.CollectionSchema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return domain.CollectionSchema{}, false
	}
	return c.schema, true
}

// Records returns a copy of the records stored in a collection.
func (s *VectorStore) Records(name string) []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	out := make([]domain.Record, len(c.records))
	copy(out, c.records)
	return out
}

// Count returns the number of records in a collection.
func (s *VectorStore) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.records)
	}
	return 0
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}
