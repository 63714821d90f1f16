package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
)

// envKeys lists every variable the loader reads.
var envKeys = []string{
	"LOADER_SOURCES", "LOADER_STORE", "ASTRA_DB_COLLECTION", "ASTRA_DB_VECTOR_METRIC",
	"ASTRA_DB_API_ENDPOINT", "ASTRA_DB_APPLICATION_TOKEN", "ASTRA_DB_NAMESPACE",
	"DATABASE_URL", "LOADER_DATA_DIR", "LOADER_EMBEDDING_PROVIDER", "EMBED_MODEL",
	"EMBED_BASE_URL", "EMBED_DIM", "LOADER_EMBED_RPS", "LOADER_FETCHER", "LOADER_EXTRACTOR",
	"LOADER_CHROME_PATH", "LOADER_WORKERS", "LOADER_FETCH_TIMEOUT", "LOADER_EMBED_TIMEOUT",
	"LOADER_INSERT_TIMEOUT", "LOADER_ARCHIVE_BUCKET", "AWS_REGION", "LOADER_ARCHIVE_PREFIX",
	"LOADER_ARCHIVE_ENDPOINT", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
	"GEMINI_API_KEY", "OPENAI_API_KEY",
}

// isolate moves the test into an empty directory with none of the loader
// variables set. t.Setenv registers the restore; the unset makes the key
// absent so .env files can still supply it.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, domain.StoreBackendAstra, cfg.Store.Backend)
	assert.Equal(t, domain.MetricDotProduct, cfg.Store.Metric)
	assert.Equal(t, domain.AIProviderGemini, cfg.Embedding.Provider)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, 5.0, cfg.Embedding.RequestsPerSecond)
	assert.Equal(t, domain.FetchModeBrowser, cfg.Fetcher.Mode)
	assert.Equal(t, domain.ExtractorHTML, cfg.Fetcher.Extractor)
	assert.Equal(t, 512, cfg.Ingest.ChunkSize)
	assert.Equal(t, 100, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 1, cfg.Ingest.Workers)
	assert.Equal(t, 60*time.Second, cfg.Timeouts.Fetch)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Embed)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Insert)
	assert.False(t, cfg.Archive.Enabled())
	assert.Equal(t, domain.DefaultSources(), cfg.SourceList())
}

func TestLoad_EnvOnly(t *testing.T) {
	isolate(t)
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("ASTRA_DB_NAMESPACE", "default_keyspace")
	t.Setenv("ASTRA_DB_COLLECTION", "f1gpt")
	t.Setenv("ASTRA_DB_API_ENDPOINT", "https://db.example.com")
	t.Setenv("ASTRA_DB_APPLICATION_TOKEN", "AstraCS:token")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "", cfg.Path)
	assert.Equal(t, "gm-key", cfg.Embedding.APIKey)
	assert.Equal(t, domain.CollectionSchema{Name: "f1gpt", Dimension: 768, Metric: domain.MetricDotProduct}, cfg.Schema())
	assert.Equal(t, "https://db.example.com", cfg.Store.Endpoint)
	assert.Equal(t, "AstraCS:token", cfg.Store.Token)
	assert.Equal(t, "default_keyspace", cfg.Store.Namespace)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)

	write(t, dir, "sercha-loader.toml", `
sources = ["https://file.example.com"]

[store]
backend = "sqlite"
collection = "from_file"
metric = "cosine"

[ingest]
workers = 2

[timeouts]
fetch = "10s"
embed = 5
`)
	write(t, dir, ".env", "ASTRA_DB_COLLECTION=from_dotenv\nLOADER_WORKERS=3\nGEMINI_API_KEY=dotenv-key\n")
	t.Setenv("LOADER_WORKERS", "4")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sercha-loader.toml", cfg.Path)
	assert.Equal(t, domain.StoreBackendSQLite, cfg.Store.Backend, "file overrides default")
	assert.Equal(t, domain.MetricCosine, cfg.Store.Metric)
	assert.Equal(t, "from_dotenv", cfg.Store.Collection, ".env overrides file")
	assert.Equal(t, 4, cfg.Ingest.Workers, "environment overrides .env")
	assert.Equal(t, "dotenv-key", cfg.Embedding.APIKey)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Fetch)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Embed)
	assert.Equal(t, []domain.Source{{URL: "https://file.example.com"}}, cfg.SourceList())
}

func TestLoad_ExplicitYAMLPath(t *testing.T) {
	dir := isolate(t)
	path := write(t, dir, "loader.yaml", `
store:
  backend: memory
  collection: yaml_collection
embedding:
  provider: ollama
  dimension: 384
  requests_per_second: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, domain.StoreBackendMemory, cfg.Store.Backend)
	assert.Equal(t, domain.AIProviderOllama, cfg.Embedding.Provider)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, 0.0, cfg.Embedding.RequestsPerSecond)
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	isolate(t)
	_, err := Load("absent.toml")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoad_SourcesFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("LOADER_SOURCES", " https://a.example.com , ,https://b.example.com")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []domain.Source{{URL: "https://a.example.com"}, {URL: "https://b.example.com"}}, cfg.SourceList())
}

func TestLoad_OpenAIKeyFollowsProvider(t *testing.T) {
	isolate(t)
	t.Setenv("LOADER_EMBEDDING_PROVIDER", "OpenAI")
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("OPENAI_API_KEY", "sk-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(t, "sk-key", cfg.Embedding.APIKey)
}

func TestLoad_InvalidEnvValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "EMBED_DIM", value: "wide"},
		{key: "LOADER_WORKERS", value: "many"},
		{key: "LOADER_EMBED_RPS", value: "fast"},
		{key: "LOADER_FETCH_TIMEOUT", value: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			require.ErrorIs(t, err, domain.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_BareSecondsTimeout(t *testing.T) {
	isolate(t)
	t.Setenv("LOADER_INSERT_TIMEOUT", "45")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Timeouts.Insert)
}

func validConfig() *Config {
	cfg := Default()
	cfg.Store.Collection = "f1gpt"
	cfg.Store.Endpoint = "https://db.example.com"
	cfg.Store.Token = "token"
	cfg.Store.Namespace = "ns"
	cfg.Embedding.APIKey = "key"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing collection", mutate: func(c *Config) { c.Store.Collection = "" }, wantErr: "ASTRA_DB_COLLECTION"},
		{name: "missing astra token", mutate: func(c *Config) { c.Store.Token = "" }, wantErr: "ASTRA_DB_APPLICATION_TOKEN"},
		{name: "missing astra endpoint", mutate: func(c *Config) { c.Store.Endpoint = "" }, wantErr: "ASTRA_DB_API_ENDPOINT"},
		{name: "missing namespace", mutate: func(c *Config) { c.Store.Namespace = "" }, wantErr: "ASTRA_DB_NAMESPACE"},
		{name: "bad metric", mutate: func(c *Config) { c.Store.Metric = "manhattan" }, wantErr: "manhattan"},
		{name: "bad backend", mutate: func(c *Config) { c.Store.Backend = "redis" }, wantErr: "redis"},
		{name: "pgvector without url", mutate: func(c *Config) { c.Store.Backend = domain.StoreBackendPgvector }, wantErr: "DATABASE_URL"},
		{name: "sqlite needs no credentials", mutate: func(c *Config) {
			c.Store.Backend = domain.StoreBackendSQLite
			c.Store.Endpoint, c.Store.Token, c.Store.Namespace = "", "", ""
		}},
		{name: "missing gemini key", mutate: func(c *Config) { c.Embedding.APIKey = "" }, wantErr: "GEMINI_API_KEY"},
		{name: "missing openai key", mutate: func(c *Config) {
			c.Embedding.Provider = domain.AIProviderOpenAI
			c.Embedding.APIKey = ""
		}, wantErr: "OPENAI_API_KEY"},
		{name: "ollama needs no key", mutate: func(c *Config) {
			c.Embedding.Provider = domain.AIProviderOllama
			c.Embedding.APIKey = ""
		}},
		{name: "unknown provider", mutate: func(c *Config) { c.Embedding.Provider = "cohere" }, wantErr: "cohere"},
		{name: "zero dimension", mutate: func(c *Config) { c.Embedding.Dimensions = 0 }, wantErr: "EMBED_DIM"},
		{name: "overlap too large", mutate: func(c *Config) { c.Ingest.ChunkOverlap = 512 }, wantErr: "chunk_overlap"},
		{name: "zero overlap", mutate: func(c *Config) { c.Ingest.ChunkOverlap = 0 }, wantErr: "chunk_overlap"},
		{name: "zero workers", mutate: func(c *Config) { c.Ingest.Workers = 0 }, wantErr: "LOADER_WORKERS"},
		{name: "bad fetcher", mutate: func(c *Config) { c.Fetcher.Mode = "curl" }, wantErr: "curl"},
		{name: "bad extractor", mutate: func(c *Config) { c.Fetcher.Extractor = "pandoc" }, wantErr: "pandoc"},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeouts.Embed = 0 }, wantErr: "timeouts"},
		{name: "archive without region", mutate: func(c *Config) { c.Archive.Bucket = "b" }, wantErr: "AWS_REGION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)

	for _, want := range []string{"ASTRA_DB_COLLECTION", "ASTRA_DB_API_ENDPOINT", "GEMINI_API_KEY"} {
		assert.Contains(t, err.Error(), want)
	}
}
