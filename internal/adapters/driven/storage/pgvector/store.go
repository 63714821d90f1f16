// Package pgvector stores records in Postgres using the pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	pgv "github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default pool settings.
const (
	DefaultMaxOpenConns = 10
	DefaultPingTimeout  = 30 * time.Second
)

// Config holds Postgres connection settings.
type Config struct {
	// DatabaseURL is a pgx connection string (required).
	DatabaseURL string

	// MaxOpenConns caps the connection pool (default: 10).
	MaxOpenConns int

	// PingTimeout bounds the initial connectivity check (default: 30s).
	PingTimeout time.Duration
}

// Store is a Postgres-backed vector store.
type Store struct {
	db *sql.DB

	mu      sync.RWMutex
	schemas map[string]domain.CollectionSchema
}

// New connects to Postgres and creates the loader tables if needed.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL is empty", domain.ErrInvalidConfig)
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = DefaultMaxOpenConns
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = DefaultPingTimeout
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, domain.NewStoreUnavailableError("ping", err)
	}

	if err := ensureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &Store{db: db, schemas: make(map[string]domain.CollectionSchema)}, nil
}

// EnsureCollection registers the collection schema if it is not present.
func (s *Store) EnsureCollection(ctx context.Context, schema domain.CollectionSchema) error {
	if err := schema.Validate(); err != nil {
		return err
	}

	const q = `
		INSERT INTO loader_collections (name, dimension, metric)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, q, schema.Name, schema.Dimension, string(schema.Metric)); err != nil {
		return classify("ensure collection", err)
	}

	existing, err := s.lookup(ctx, schema.Name)
	if err != nil {
		return err
	}
	if !existing.Matches(schema) {
		return &domain.CollectionConfigError{Name: schema.Name, Existing: existing, Requested: schema}
	}
	return nil
}

// Insert writes one record in a single statement and returns its ID.
func (s *Store) Insert(ctx context.Context, collection string, rec domain.Record) (string, error) {
	schema, err := s.schema(ctx, collection)
	if err != nil {
		return "", err
	}
	if err := domain.CheckDimension(collection, schema.Dimension, rec.Vector); err != nil {
		return "", err
	}

	const q = `
		INSERT INTO loader_records (id, collection, text, source_url, chunk_index, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, q,
		id, collection, rec.Text, rec.SourceURL, rec.ChunkIndex, pgv.NewVector(rec.Vector)); err != nil {
		return "", classify("insert", err)
	}
	return id, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// schema returns the cached schema of a collection, loading it on first use.
func (s *Store) schema(ctx context.Context, name string) (domain.CollectionSchema, error) {
	s.mu.RLock()
	schema, ok := s.schemas[name]
	s.mu.RUnlock()
	if ok {
		return schema, nil
	}
	return s.lookup(ctx, name)
}

// lookup reads a collection from the registry and caches it.
func (s *Store) lookup(ctx context.Context, name string) (domain.CollectionSchema, error) {
	const q = `SELECT dimension, metric FROM loader_collections WHERE name = $1`

	schema := domain.CollectionSchema{Name: name}
	var metric string
	err := s.db.QueryRowContext(ctx, q, name).Scan(&schema.Dimension, &metric)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CollectionSchema{}, fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
	}
	if err != nil {
		return domain.CollectionSchema{}, classify("read collection", err)
	}
	schema.Metric = domain.Metric(metric)

	s.mu.Lock()
	s.schemas[name] = schema
	s.mu.Unlock()
	return schema, nil
}

// classify wraps connection, authorisation and server-availability failures
// as StoreUnavailableError. Other Postgres errors (constraint or syntax
// violations) are returned as plain wrapped errors.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"), // connection exception
			strings.HasPrefix(pgErr.Code, "28"), // invalid authorisation
			strings.HasPrefix(pgErr.Code, "53"), // insufficient resources
			strings.HasPrefix(pgErr.Code, "57"): // operator intervention
			return domain.NewStoreUnavailableError(op, err)
		default:
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return domain.NewStoreUnavailableError(op, err)
}
