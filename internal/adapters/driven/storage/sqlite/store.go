package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-loader/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-loader/internal/core/domain"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// dbFile is the database file name inside the data directory.
const dbFile = "vectors.db"

// Store is a SQLite-based vector store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-loader/data/vectors.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-loader", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// EnsureCollection registers the collection schema if it is not present.
func (s *Store) EnsureCollection(ctx context.Context, schema domain.CollectionSchema) error {
	if err := schema.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStoreUnavailableError("ensure collection", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO collections (name, dimension, metric)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, schema.Name, schema.Dimension, string(schema.Metric)); err != nil {
		return domain.NewStoreUnavailableError("ensure collection", err)
	}

	existing, err := scanSchema(tx.QueryRowContext(ctx,
		`SELECT name, dimension, metric FROM collections WHERE name = ?`, schema.Name))
	if err != nil {
		return domain.NewStoreUnavailableError("ensure collection", err)
	}
	if !existing.Matches(schema) {
		return &domain.CollectionConfigError{Name: schema.Name, Existing: existing, Requested: schema}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStoreUnavailableError("ensure collection", err)
	}
	return nil
}

// Insert stores one record and returns its generated ID.
func (s *Store) Insert(ctx context.Context, collection string, rec domain.Record) (string, error) {
	schema, err := s.Schema(ctx, collection)
	if err != nil {
		return "", err
	}
	if err := domain.CheckDimension(collection, schema.Dimension, rec.Vector); err != nil {
		return "", err
	}

	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, collection, text, source_url, chunk_index, vector)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, collection, rec.Text, rec.SourceURL, rec.ChunkIndex, float32SliceToBytes(rec.Vector)); err != nil {
		return "", domain.NewStoreUnavailableError("insert", err)
	}
	return id, nil
}

// Schema returns the stored schema of a collection.
func (s *Store) Schema(ctx context.Context, collection string) (domain.CollectionSchema, error) {
	schema, err := scanSchema(s.db.QueryRowContext(ctx,
		`SELECT name, dimension, metric FROM collections WHERE name = ?`, collection))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CollectionSchema{}, fmt.Errorf("collection %s: %w", collection, domain.ErrCollectionNotFound)
	}
	if err != nil {
		return domain.CollectionSchema{}, domain.NewStoreUnavailableError("read collection", err)
	}
	return schema, nil
}

// Records returns every record in a collection ordered by source and chunk index.
func (s *Store) Records(ctx context.Context, collection string) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, text, source_url, chunk_index, vector
		FROM records WHERE collection = ?
		ORDER BY source_url, chunk_index
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var (
			rec  domain.Record
			blob []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Collection, &rec.Text, &rec.SourceURL, &rec.ChunkIndex, &blob); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.Vector = bytesToFloat32Slice(blob)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// apply executes one migration and records its version.
func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
		return err
	}
	return tx.Commit()
}

// rowScanner is satisfied by *sql.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSchema scans a collections row.
func scanSchema(row rowScanner) (domain.CollectionSchema, error) {
	var (
		schema domain.CollectionSchema
		metric string
	)
	if err := row.Scan(&schema.Name, &schema.Dimension, &metric); err != nil {
		return domain.CollectionSchema{}, err
	}
	schema.Metric = domain.Metric(metric)
	return schema, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
