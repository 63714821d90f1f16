package domain

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGemini, AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderGemini || p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderGemini:
		return "Gemini (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for Gemini and OpenAI).
	APIKey string

	// Dimensions is the expected vector size. Zero selects the model default.
	Dimensions int

	// RequestsPerSecond caps the embedding call rate. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ResolvedModel returns the configured model or the provider default.
func (e EmbeddingSettings) ResolvedModel() string {
	if e.Model != "" {
		return e.Model
	}
	return DefaultEmbeddingModels()[e.Provider]
}

// ResolvedDimensions returns the configured dimension, falling back to the
// known size of the model and finally DefaultDimension.
func (e EmbeddingSettings) ResolvedDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	if d := EmbeddingDimensions()[e.ResolvedModel()]; d > 0 {
		return d
	}
	return DefaultDimension
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini: "text-embedding-004",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
// OpenAI text-embedding-3 models are truncated to the requested size, so
// their entries reflect the size this loader requests.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Gemini models
		"text-embedding-004": 768,
		"embedding-001":      768,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 768,
		"text-embedding-3-large": 768,
		"text-embedding-ada-002": 1536,
	}
}

// StoreBackend identifies the vector store implementation.
type StoreBackend string

// Available store backends.
const (
	// StoreBackendAstra is DataStax Astra DB through its Data API.
	StoreBackendAstra StoreBackend = "astra"

	// StoreBackendPgvector is PostgreSQL with the pgvector extension.
	StoreBackendPgvector StoreBackend = "pgvector"

	// StoreBackendSQLite is a local SQLite database file.
	StoreBackendSQLite StoreBackend = "sqlite"

	// StoreBackendMemory keeps records in process memory.
	StoreBackendMemory StoreBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreBackendAstra, StoreBackendPgvector, StoreBackendSQLite, StoreBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StoreBackend) String() string {
	return string(b)
}

// AllStoreBackends returns every supported store backend.
func AllStoreBackends() []StoreBackend {
	return []StoreBackend{
		StoreBackendAstra,
		StoreBackendPgvector,
		StoreBackendSQLite,
		StoreBackendMemory,
	}
}

// FetchMode selects how pages are retrieved.
type FetchMode string

// Available fetch modes.
const (
	// FetchModeBrowser renders pages in headless Chrome.
	FetchModeBrowser FetchMode = "browser"

	// FetchModeHTTP downloads pages without running scripts.
	FetchModeHTTP FetchMode = "http"
)

// IsValid returns true if the fetch mode is recognised.
func (m FetchMode) IsValid() bool {
	return m == FetchModeBrowser || m == FetchModeHTTP
}

// Extractor selects how markup is converted to text.
type Extractor string

// Available extractors.
const (
	// ExtractorHTML strips tags with the built-in normaliser.
	ExtractorHTML Extractor = "html"

	// ExtractorDocconv converts markup with docconv.
	ExtractorDocconv Extractor = "docconv"

	// ExtractorReadability converts markup with docconv and readability scoring.
	ExtractorReadability Extractor = "readability"
)

// IsValid returns true if the extractor is recognised.
func (e Extractor) IsValid() bool {
	switch e {
	case ExtractorHTML, ExtractorDocconv, ExtractorReadability:
		return true
	default:
		return false
	}
}
