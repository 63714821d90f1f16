// Package app wires configuration into concrete adapters and the ingestion
// service.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-loader/internal/adapters/driven/ai"
	s3archive "github.com/custodia-labs/sercha-loader/internal/adapters/driven/archive/s3"
	"github.com/custodia-labs/sercha-loader/internal/adapters/driven/fetcher/browser"
	"github.com/custodia-labs/sercha-loader/internal/adapters/driven/fetcher/static"
	"github.com/custodia-labs/sercha-loader/internal/adapters/driven/storage/astra"
	"github.com/custodia-labs/sercha-loader/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-loader/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/sercha-loader/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-loader/internal/config"
	"github.com/custodia-labs/sercha-loader/internal/core/domain"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-loader/internal/core/services"
	"github.com/custodia-labs/sercha-loader/internal/logger"
	docconvnorm "github.com/custodia-labs/sercha-loader/internal/normalisers/docconv"
	htmlnorm "github.com/custodia-labs/sercha-loader/internal/normalisers/html"
	"github.com/custodia-labs/sercha-loader/internal/postprocessors/chunker"
)

// createEmbedder is replaced in tests.
var createEmbedder = ai.CreateAndValidateEmbeddingService

// App holds the ingestion service and the adapters it owns.
type App struct {
	Config   *config.Config
	Ingestor driving.Ingestor
	Store    driven.VectorStore

	closers []func() error
}

// New validates cfg and builds every adapter. On failure, anything already
// built is closed.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	// 1. Fetcher
	fetcher := newFetcher(cfg)
	a.closers = append(a.closers, fetcher.Close)

	// 2. Embedder
	embedder, err := createEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	a.closers = append(a.closers, embedder.Close)
	logger.Debug("Embedding with %s (%s, %d dimensions)", cfg.Embedding.Provider, embedder.ModelName(), embedder.Dimensions())

	// 3. Store
	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Store.Backend, err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)
	logger.Debug("Using %s store", cfg.Store.Backend)

	// 4. Archive (optional)
	var archive driven.DocumentArchive
	if cfg.Archive.Enabled() {
		arc, err := s3archive.New(ctx, s3archive.Config{
			Bucket:          cfg.Archive.Bucket,
			Region:          cfg.Archive.Region,
			Prefix:          cfg.Archive.Prefix,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			Endpoint:        cfg.Archive.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("create archive: %w", err)
		}
		archive = arc
		logger.Debug("Archiving fetched text to s3://%s", cfg.Archive.Bucket)
	}

	// 5. Ingestor
	ingestor, err := services.NewIngestor(services.IngestorDeps{
		Fetcher:  fetcher,
		Chunker:  chunker.New(chunker.WithChunkSize(cfg.Ingest.ChunkSize), chunker.WithOverlap(cfg.Ingest.ChunkOverlap)),
		Embedder: embedder,
		Store:    store,
		Archive:  archive,
	}, services.IngestorConfig{
		Schema:        cfg.Schema(),
		Workers:       cfg.Ingest.Workers,
		FetchTimeout:  cfg.Timeouts.Fetch,
		EmbedTimeout:  cfg.Timeouts.Embed,
		InsertTimeout: cfg.Timeouts.Insert,
	})
	if err != nil {
		return nil, err
	}
	a.Ingestor = ingestor

	return a, nil
}

// Close releases adapters in reverse construction order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// newNormaliser selects the markup extractor.
func newNormaliser(extractor domain.Extractor) driven.Normaliser {
	switch extractor {
	case domain.ExtractorDocconv:
		return docconvnorm.New(false)
	case domain.ExtractorReadability:
		return docconvnorm.New(true)
	default:
		return htmlnorm.New()
	}
}

// newFetcher selects the page fetcher.
func newFetcher(cfg *config.Config) driven.Fetcher {
	normaliser := newNormaliser(cfg.Fetcher.Extractor)
	if cfg.Fetcher.Mode == domain.FetchModeHTTP {
		return static.New(static.Config{
			Timeout:   cfg.Timeouts.Fetch,
			UserAgent: cfg.Fetcher.UserAgent,
		}, normaliser)
	}
	return browser.New(browser.Config{
		Timeout:   cfg.Timeouts.Fetch,
		ExecPath:  cfg.Fetcher.ChromePath,
		UserAgent: cfg.Fetcher.UserAgent,
	}, normaliser)
}

// newStore selects the vector store backend.
func newStore(ctx context.Context, cfg *config.Config) (driven.VectorStore, error) {
	switch cfg.Store.Backend {
	case domain.StoreBackendAstra:
		return astra.New(astra.Config{
			Endpoint:  cfg.Store.Endpoint,
			Token:     cfg.Store.Token,
			Namespace: cfg.Store.Namespace,
			Timeout:   cfg.Timeouts.Insert,
		})
	case domain.StoreBackendPgvector:
		return pgvector.New(ctx, pgvector.Config{DatabaseURL: cfg.Store.DatabaseURL})
	case domain.StoreBackendSQLite:
		return sqlite.NewStore(cfg.Store.DataDir)
	case domain.StoreBackendMemory:
		return memory.NewVectorStore(), nil
	default:
		return nil, fmt.Errorf("%w: store backend %q", domain.ErrUnsupportedType, cfg.Store.Backend)
	}
}
