// Package config assembles loader settings from defaults, an optional
// TOML or YAML file, a .env file and the process environment, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-loader/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-loader/internal/core/domain"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driven"
)

// Default values.
const (
	DefaultChunkSize      = 512
	DefaultChunkOverlap   = 100
	DefaultWorkers        = 1
	DefaultEmbedRPS       = 5.0
	DefaultFetchTimeout   = 60 * time.Second
	DefaultEmbedTimeout   = 30 * time.Second
	DefaultInsertTimeout  = 30 * time.Second
	DefaultDotEnvFilename = ".env"
)

// Config is the complete loader configuration.
type Config struct {
	// Sources are the page URLs to ingest. Empty selects domain.DefaultSources.
	Sources []string

	Store     StoreConfig
	Embedding domain.EmbeddingSettings
	Fetcher   FetcherConfig
	Ingest    IngestConfig
	Timeouts  TimeoutConfig
	Archive   ArchiveConfig

	// Path is the configuration file that was read, if any.
	Path string
}

// StoreConfig selects and configures the vector store.
type StoreConfig struct {
	Backend     domain.StoreBackend
	Collection  string
	Metric      domain.Metric
	Endpoint    string
	Token       string
	Namespace   string
	DatabaseURL string
	DataDir     string
}

// FetcherConfig selects how pages are fetched and converted to text.
type FetcherConfig struct {
	Mode       domain.FetchMode
	Extractor  domain.Extractor
	ChromePath string
	UserAgent  string
}

// IngestConfig controls chunking and parallelism.
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Workers      int
}

// TimeoutConfig bounds each external call.
type TimeoutConfig struct {
	Fetch  time.Duration
	Embed  time.Duration
	Insert time.Duration
}

// ArchiveConfig enables the optional S3 snapshot of fetched text.
type ArchiveConfig struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether an archive bucket is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: domain.StoreBackendAstra,
			Metric:  domain.DefaultMetric,
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          domain.AIProviderGemini,
			Dimensions:        domain.DefaultDimension,
			RequestsPerSecond: DefaultEmbedRPS,
		},
		Fetcher: FetcherConfig{
			Mode:      domain.FetchModeBrowser,
			Extractor: domain.ExtractorHTML,
		},
		Ingest: IngestConfig{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
			Workers:      DefaultWorkers,
		},
		Timeouts: TimeoutConfig{
			Fetch:  DefaultFetchTimeout,
			Embed:  DefaultEmbedTimeout,
			Insert: DefaultInsertTimeout,
		},
	}
}

// Load builds the configuration. If path is empty, sercha-loader.toml in
// the working directory is used when present. Variables from .env never
// override variables already set in the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	store, err := openFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Path = store.Path()
	if err := cfg.applyFile(store); err != nil {
		return nil, err
	}

	if err := godotenv.Load(DefaultDotEnvFilename); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: loading %s: %w", domain.ErrInvalidConfig, DefaultDotEnvFilename, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openFile opens the explicit path, or the default file if it exists.
func openFile(path string) (*file.ConfigStore, error) {
	if path != "" {
		return file.Open(path)
	}
	store, err := file.Open(file.DefaultFileName)
	if errors.Is(err, fs.ErrNotExist) {
		return file.Empty(), nil
	}
	return store, err
}

// applyFile overrides defaults with values present in the file.
func (c *Config) applyFile(store driven.ConfigStore) error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := store.GetString(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if _, ok := store.Get(key); ok {
			*dst = store.GetInt(key)
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		val, ok := store.Get(key)
		if !ok {
			return
		}
		d, err := durationValue(val)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, key, err))
			return
		}
		*dst = d
	}

	if sources := store.GetStringSlice("sources"); len(sources) > 0 {
		c.Sources = sources
	}

	var backend, metric, provider, mode, extractor string
	setString("store.backend", &backend)
	setString("store.collection", &c.Store.Collection)
	setString("store.metric", &metric)
	setString("store.endpoint", &c.Store.Endpoint)
	setString("store.token", &c.Store.Token)
	setString("store.namespace", &c.Store.Namespace)
	setString("store.database_url", &c.Store.DatabaseURL)
	setString("store.data_dir", &c.Store.DataDir)

	setString("embedding.provider", &provider)
	setString("embedding.model", &c.Embedding.Model)
	setString("embedding.base_url", &c.Embedding.BaseURL)
	setString("embedding.api_key", &c.Embedding.APIKey)
	setInt("embedding.dimension", &c.Embedding.Dimensions)
	if _, ok := store.Get("embedding.requests_per_second"); ok {
		c.Embedding.RequestsPerSecond = store.GetFloat("embedding.requests_per_second")
	}

	setString("fetcher.mode", &mode)
	setString("fetcher.extractor", &extractor)
	setString("fetcher.chrome_path", &c.Fetcher.ChromePath)
	setString("fetcher.user_agent", &c.Fetcher.UserAgent)

	setInt("ingest.chunk_size", &c.Ingest.ChunkSize)
	setInt("ingest.chunk_overlap", &c.Ingest.ChunkOverlap)
	setInt("ingest.workers", &c.Ingest.Workers)

	setDuration("timeouts.fetch", &c.Timeouts.Fetch)
	setDuration("timeouts.embed", &c.Timeouts.Embed)
	setDuration("timeouts.insert", &c.Timeouts.Insert)

	setString("archive.bucket", &c.Archive.Bucket)
	setString("archive.region", &c.Archive.Region)
	setString("archive.prefix", &c.Archive.Prefix)
	setString("archive.endpoint", &c.Archive.Endpoint)

	c.setEnums(backend, metric, provider, mode, extractor)
	return errors.Join(errs...)
}

// applyEnv overrides the configuration with environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	env := envReader{lookup: lookup}

	if urls := env.list("LOADER_SOURCES"); len(urls) > 0 {
		c.Sources = urls
	}

	var backend, metric, provider, mode, extractor string
	env.str("LOADER_STORE", &backend)
	env.str("ASTRA_DB_COLLECTION", &c.Store.Collection)
	env.str("ASTRA_DB_VECTOR_METRIC", &metric)
	env.str("ASTRA_DB_API_ENDPOINT", &c.Store.Endpoint)
	env.str("ASTRA_DB_APPLICATION_TOKEN", &c.Store.Token)
	env.str("ASTRA_DB_NAMESPACE", &c.Store.Namespace)
	env.str("DATABASE_URL", &c.Store.DatabaseURL)
	env.str("LOADER_DATA_DIR", &c.Store.DataDir)

	env.str("LOADER_EMBEDDING_PROVIDER", &provider)
	env.str("EMBED_MODEL", &c.Embedding.Model)
	env.str("EMBED_BASE_URL", &c.Embedding.BaseURL)
	env.integer("EMBED_DIM", &c.Embedding.Dimensions)
	env.number("LOADER_EMBED_RPS", &c.Embedding.RequestsPerSecond)

	env.str("LOADER_FETCHER", &mode)
	env.str("LOADER_EXTRACTOR", &extractor)
	env.str("LOADER_CHROME_PATH", &c.Fetcher.ChromePath)

	env.integer("LOADER_WORKERS", &c.Ingest.Workers)
	env.duration("LOADER_FETCH_TIMEOUT", &c.Timeouts.Fetch)
	env.duration("LOADER_EMBED_TIMEOUT", &c.Timeouts.Embed)
	env.duration("LOADER_INSERT_TIMEOUT", &c.Timeouts.Insert)

	env.str("LOADER_ARCHIVE_BUCKET", &c.Archive.Bucket)
	env.str("AWS_REGION", &c.Archive.Region)
	env.str("LOADER_ARCHIVE_PREFIX", &c.Archive.Prefix)
	env.str("LOADER_ARCHIVE_ENDPOINT", &c.Archive.Endpoint)
	env.str("AWS_ACCESS_KEY_ID", &c.Archive.AccessKeyID)
	env.str("AWS_SECRET_ACCESS_KEY", &c.Archive.SecretAccessKey)

	c.setEnums(backend, metric, provider, mode, extractor)

	// The API key follows the selected provider.
	switch c.Embedding.Provider {
	case domain.AIProviderGemini:
		env.str("GEMINI_API_KEY", &c.Embedding.APIKey)
	case domain.AIProviderOpenAI:
		env.str("OPENAI_API_KEY", &c.Embedding.APIKey)
	}

	return errors.Join(env.errs...)
}

// setEnums assigns the non-empty enum values. Validation happens in Validate.
func (c *Config) setEnums(backend, metric, provider, mode, extractor string) {
	if backend != "" {
		c.Store.Backend = domain.StoreBackend(strings.ToLower(backend))
	}
	if metric != "" {
		c.Store.Metric = domain.Metric(strings.ToLower(metric))
	}
	if provider != "" {
		c.Embedding.Provider = domain.AIProvider(strings.ToLower(provider))
	}
	if mode != "" {
		c.Fetcher.Mode = domain.FetchMode(strings.ToLower(mode))
	}
	if extractor != "" {
		c.Fetcher.Extractor = domain.Extractor(strings.ToLower(extractor))
	}
}

// Validate reports every problem at once. Each error wraps domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if c.Store.Collection == "" {
		invalid("ASTRA_DB_COLLECTION is required")
	}
	if !c.Store.Metric.IsValid() {
		invalid("ASTRA_DB_VECTOR_METRIC: unknown metric %q", c.Store.Metric)
	}

	switch c.Store.Backend {
	case domain.StoreBackendAstra:
		if c.Store.Endpoint == "" {
			invalid("ASTRA_DB_API_ENDPOINT is required for the astra store")
		}
		if c.Store.Token == "" {
			invalid("ASTRA_DB_APPLICATION_TOKEN is required for the astra store")
		}
		if c.Store.Namespace == "" {
			invalid("ASTRA_DB_NAMESPACE is required for the astra store")
		}
	case domain.StoreBackendPgvector:
		if c.Store.DatabaseURL == "" {
			invalid("DATABASE_URL is required for the pgvector store")
		}
	case domain.StoreBackendSQLite, domain.StoreBackendMemory:
	default:
		invalid("LOADER_STORE: unknown backend %q", c.Store.Backend)
	}

	if !c.Embedding.Provider.IsValid() {
		invalid("LOADER_EMBEDDING_PROVIDER: unknown provider %q", c.Embedding.Provider)
	} else if !c.Embedding.IsConfigured() {
		invalid("%s is required for the %s embedding provider", apiKeyVar(c.Embedding.Provider), c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		invalid("EMBED_DIM must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.RequestsPerSecond < 0 {
		invalid("LOADER_EMBED_RPS must not be negative")
	}

	if !c.Fetcher.Mode.IsValid() {
		invalid("LOADER_FETCHER: unknown mode %q", c.Fetcher.Mode)
	}
	if !c.Fetcher.Extractor.IsValid() {
		invalid("LOADER_EXTRACTOR: unknown extractor %q", c.Fetcher.Extractor)
	}

	if c.Ingest.ChunkSize <= 0 {
		invalid("ingest.chunk_size must be positive")
	}
	if c.Ingest.ChunkOverlap <= 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		invalid("ingest.chunk_overlap must be in (0, chunk_size)")
	}
	if c.Ingest.Workers < 1 {
		invalid("LOADER_WORKERS must be at least 1")
	}

	if c.Timeouts.Fetch <= 0 || c.Timeouts.Embed <= 0 || c.Timeouts.Insert <= 0 {
		invalid("timeouts must be positive")
	}

	if c.Archive.Enabled() && c.Archive.Region == "" {
		invalid("AWS_REGION is required when LOADER_ARCHIVE_BUCKET is set")
	}

	return errors.Join(errs...)
}

// Schema returns the collection schema records are written against.
func (c *Config) Schema() domain.CollectionSchema {
	return domain.CollectionSchema{
		Name:      c.Store.Collection,
		Dimension: c.Embedding.Dimensions,
		Metric:    c.Store.Metric,
	}
}

// SourceList returns the configured sources or the defaults.
func (c *Config) SourceList() []domain.Source {
	if sources := domain.SourcesFromURLs(c.Sources); len(sources) > 0 {
		return sources
	}
	return domain.DefaultSources()
}

func apiKeyVar(p domain.AIProvider) string {
	switch p {
	case domain.AIProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return "GEMINI_API_KEY"
	}
}

// durationValue accepts "90s"-style strings or whole seconds.
func durationValue(val any) (time.Duration, error) {
	switch v := val.(type) {
	case string:
		return time.ParseDuration(v)
	case int64:
		return time.Duration(v) * time.Second, nil
	case int:
		return time.Duration(v) * time.Second, nil
	default:
		return 0, fmt.Errorf("unsupported duration %v", val)
	}
}

// envReader reads typed variables and collects parse errors.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not an integer", domain.ErrInvalidConfig, key, v))
		return
	}
	*dst = n
}

func (e *envReader) number(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not a number", domain.ErrInvalidConfig, key, v))
		return
	}
	*dst = f
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare numbers are seconds.
		n, nerr := strconv.Atoi(v)
		if nerr != nil {
			e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not a duration", domain.ErrInvalidConfig, key, v))
			return
		}
		d = time.Duration(n) * time.Second
	}
	*dst = d
}

func (e *envReader) list(key string) []string {
	v, ok := e.get(key)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
