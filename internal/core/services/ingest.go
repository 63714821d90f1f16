package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-loader/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.Ingestor = (*Ingestor)(nil)

// Default per-call timeouts.
const (
	DefaultFetchTimeout  = 60 * time.Second
	DefaultEmbedTimeout  = 30 * time.Second
	DefaultInsertTimeout = 30 * time.Second
)

// IngestorDeps are the adapters the pipeline drives.
type IngestorDeps struct {
	Fetcher  driven.Fetcher
	Chunker  driven.Chunker
	Embedder driven.EmbeddingService
	Store    driven.VectorStore

	// Archive is optional.
	Archive driven.DocumentArchive
}

// IngestorConfig holds the run parameters.
type IngestorConfig struct {
	Schema domain.CollectionSchema

	// Workers bounds concurrent chunk processing within one source (default: 1).
	Workers int

	FetchTimeout  time.Duration
	EmbedTimeout  time.Duration
	InsertTimeout time.Duration
}

// Ingestor fetches, chunks, embeds and stores web pages.
type Ingestor struct {
	fetcher  driven.Fetcher
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	store    driven.VectorStore
	archive  driven.DocumentArchive

	schema        domain.CollectionSchema
	workers       int
	fetchTimeout  time.Duration
	embedTimeout  time.Duration
	insertTimeout time.Duration
}

// NewIngestor creates an ingestor. Fetcher, Chunker, Embedder and Store are required.
func NewIngestor(deps IngestorDeps, cfg IngestorConfig) (*Ingestor, error) {
	var missing []string
	if deps.Fetcher == nil {
		missing = append(missing, "fetcher")
	}
	if deps.Chunker == nil {
		missing = append(missing, "chunker")
	}
	if deps.Embedder == nil {
		missing = append(missing, "embedder")
	}
	if deps.Store == nil {
		missing = append(missing, "vector store")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	if err := cfg.Schema.Validate(); err != nil {
		return nil, err
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = DefaultEmbedTimeout
	}
	if cfg.InsertTimeout <= 0 {
		cfg.InsertTimeout = DefaultInsertTimeout
	}

	if dims := deps.Embedder.Dimensions(); dims != cfg.Schema.Dimension {
		logger.Warn("Embedding model %s produces %d dimensions but collection %s expects %d",
			deps.Embedder.ModelName(), dims, cfg.Schema.Name, cfg.Schema.Dimension)
	}

	return &Ingestor{
		fetcher:       deps.Fetcher,
		chunker:       deps.Chunker,
		embedder:      deps.Embedder,
		store:         deps.Store,
		archive:       deps.Archive,
		schema:        cfg.Schema,
		workers:       cfg.Workers,
		fetchTimeout:  cfg.FetchTimeout,
		embedTimeout:  cfg.EmbedTimeout,
		insertTimeout: cfg.InsertTimeout,
	}, nil
}

// Collection returns the schema records are written to.
func (i *Ingestor) Collection() domain.CollectionSchema {
	return i.schema
}

// EnsureCollection creates the target collection if it is absent.
func (i *Ingestor) EnsureCollection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, i.insertTimeout)
	defer cancel()

	if err := i.store.EnsureCollection(ctx, i.schema); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	logger.Info("Collection %s ready (%s)", i.schema.Name, i.schema)
	return nil
}

// Run ingests every source in order.
func (i *Ingestor) Run(ctx context.Context, sources []domain.Source) (*domain.RunReport, error) {
	report := &domain.RunReport{
		Collection:   i.schema,
		SourcesTotal: len(sources),
		StartedAt:    time.Now(),
	}

	// 1. The collection must exist before any insert
	if err := i.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	// 2. Sources are processed sequentially; cancellation stops at a source boundary
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(report.StartedAt)
			logger.Warn("Ingestion cancelled after %d of %d sources", report.SourcesProcessed+report.SourcesFailed, report.SourcesTotal)
			return report, err
		}
		i.ingestSource(ctx, source, report)
	}

	report.Duration = time.Since(report.StartedAt)
	if err := ctx.Err(); err != nil {
		logger.Warn("Ingestion cancelled during the last source")
		return report, err
	}

	// 3. Done
	logger.Info("Ingestion complete: %d sources, %d chunks inserted, %d failures",
		report.SourcesProcessed, report.ChunksInserted, len(report.Failures))
	return report, nil
}

// ingestSource fetches, chunks and stores one source. Failures are recorded
// in the report and never abort the run.
func (i *Ingestor) ingestSource(ctx context.Context, source domain.Source, report *domain.RunReport) {
	logger.Section(source.URL)
	logger.Info("Processing URL: %s", source.URL)

	// a. Fetch
	fetchCtx, cancel := context.WithTimeout(ctx, i.fetchTimeout)
	doc, err := i.fetcher.Fetch(fetchCtx, source.URL)
	cancel()
	if err != nil {
		logger.Error("Skipping %s: %v", source.URL, err)
		report.AddSourceFailure(source.URL, domain.StageFetch, err)
		return
	}

	// b. Archive
	if i.archive != nil {
		if location, err := i.archive.Put(ctx, doc); err != nil {
			logger.Warn("Failed to archive %s: %v", source.URL, err)
		} else {
			logger.Debug("Archived %s to %s", source.URL, location)
		}
	}

	// c. Chunk
	chunks := i.chunker.Split(doc.Content)
	report.ChunksTotal += len(chunks)
	logger.Debug("Split %s into %d chunks", source.URL, len(chunks))

	// d. Embed and insert
	i.processChunks(ctx, source.URL, chunks, report)

	report.SourcesProcessed++
}

// processChunks embeds and inserts chunks with at most i.workers in flight.
// Each chunk succeeds or fails on its own.
func (i *Ingestor) processChunks(ctx context.Context, url string, chunks []domain.Chunk, report *domain.RunReport) {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(i.workers)

	for _, chunk := range chunks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			stage, err := i.processChunk(ctx, url, chunk)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error("Error processing chunk %d from %s (%q): %v",
					chunk.Index, url, domain.Excerpt(chunk.Content), err)
				report.AddChunkFailure(url, chunk.Index, stage, err)
				return nil
			}
			report.ChunksInserted++
			return nil
		})
	}
	_ = g.Wait()
}

// processChunk embeds one chunk and inserts it. On failure it returns the stage that failed.
func (i *Ingestor) processChunk(ctx context.Context, url string, chunk domain.Chunk) (domain.Stage, error) {
	embedCtx, cancel := context.WithTimeout(ctx, i.embedTimeout)
	vector, err := i.embedder.Embed(embedCtx, chunk.Content)
	cancel()
	if err != nil {
		return domain.StageEmbed, err
	}
	if err := domain.CheckDimension(i.schema.Name, i.schema.Dimension, vector); err != nil {
		return domain.StageEmbed, err
	}

	insertCtx, cancel := context.WithTimeout(ctx, i.insertTimeout)
	defer cancel()
	id, err := i.store.Insert(insertCtx, i.schema.Name, domain.Record{
		Collection: i.schema.Name,
		Text:       chunk.Content,
		Vector:     vector,
		SourceURL:  url,
		ChunkIndex: chunk.Index,
	})
	if err != nil {
		return domain.StageInsert, err
	}

	logger.Debug("Inserted chunk %d from %s as %s", chunk.Index, url, id)
	return "", nil
}
