package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
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
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// VectorDBProvider identifies a vector database backend.
type VectorDBProvider string

// Available vector database providers.
const (
	// VectorDBProviderPinecone is a hosted Pinecone-compatible index.
	VectorDBProviderPinecone VectorDBProvider = "pinecone"

	// VectorDBProviderLocal is an embedded bbolt-backed index.
	VectorDBProviderLocal VectorDBProvider = "local"

	// VectorDBProviderMemory is a non-persistent in-process index.
	VectorDBProviderMemory VectorDBProvider = "memory"
)

// IsValid returns true if the vector database provider is recognised.
func (p VectorDBProvider) IsValid() bool {
	switch p {
	case VectorDBProviderPinecone, VectorDBProviderLocal, VectorDBProviderMemory:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p VectorDBProvider) RequiresAPIKey() bool {
	return p == VectorDBProviderPinecone
}

// String returns the string representation.
func (p VectorDBProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p VectorDBProvider) Description() string {
	switch p {
	case VectorDBProviderPinecone:
		return "Pinecone (hosted)"
	case VectorDBProviderLocal:
		return "Local (embedded bbolt)"
	case VectorDBProviderMemory:
		return "Memory (non-persistent)"
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

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size. Zero means the model default.
	Dimensions int
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

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorDBSettings holds vector database configuration.
type VectorDBSettings struct {
	// Provider is the vector database backend.
	Provider VectorDBProvider

	// APIKey is the API key (for Pinecone).
	APIKey string

	// IndexHost is the index endpoint URL (for Pinecone).
	IndexHost string

	// Path is the database file location (for the local backend).
	Path string

	// Dimensions is the vector size every namespace must use.
	Dimensions int
}

// IsConfigured returns true if the vector database is set up.
func (v VectorDBSettings) IsConfigured() bool {
	if !v.Provider.IsValid() {
		return false
	}
	if v.Provider.RequiresAPIKey() && (v.APIKey == "" || v.IndexHost == "") {
		return false
	}
	return true
}

// ExtractionSettings holds claim-extraction service configuration.
type ExtractionSettings struct {
	// BaseURL is the extraction service endpoint.
	BaseURL string

	// TimeoutSeconds bounds each extraction call. Zero means the
	// default of 30 seconds.
	TimeoutSeconds int
}

// IsConfigured returns true if the extraction service is set up.
func (e ExtractionSettings) IsConfigured() bool {
	return e.BaseURL != ""
}

// LinkingSettings holds linking pipeline defaults.
type LinkingSettings struct {
	// TopK is the vector search candidate count.
	TopK int

	// RerankK is the candidate count kept after reranking.
	RerankK int

	// MinScore drops reranked candidates scoring below it.
	MinScore float64
}

// IngestionSettings holds ingestion pipeline defaults.
type IngestionSettings struct {
	// ConfidenceThreshold drops extracted claims below it.
	ConfidenceThreshold float64

	// DuplicateThreshold is the similarity at or above which a claim
	// counts as a duplicate.
	DuplicateThreshold float64

	// CheckDuplicates skips claims already present in the vector index.
	CheckDuplicates bool
}

// DedupSettings holds deduplication defaults.
type DedupSettings struct {
	// Threshold is the clustering similarity threshold.
	Threshold float64
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// VectorDB holds vector database settings.
	VectorDB VectorDBSettings

	// Extraction holds claim-extraction service settings.
	Extraction ExtractionSettings

	// Linking holds linking pipeline defaults.
	Linking LinkingSettings

	// Ingestion holds ingestion pipeline defaults.
	Ingestion IngestionSettings

	// Dedup holds deduplication defaults.
	Dedup DedupSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI features (Embedding, LLM, Extraction) are left unconfigured;
// users must set them up explicitly. The vector database defaults to
// the in-process memory backend so the engine works out of the box.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		// Embedding is left unconfigured - user must set a provider
		Embedding: EmbeddingSettings{},
		// LLM is left unconfigured - reranking/classification degrade
		LLM: LLMSettings{},
		VectorDB: VectorDBSettings{
			Provider:   VectorDBProviderMemory,
			Dimensions: 768, // nomic-embed-text default
		},
		Extraction: ExtractionSettings{},
		Linking: LinkingSettings{
			TopK:     DefaultLinkTopK,
			RerankK:  DefaultLinkRerankK,
			MinScore: DefaultLinkMinScore,
		},
		Ingestion: IngestionSettings{
			ConfidenceThreshold: DefaultConfidenceThreshold,
			DuplicateThreshold:  DefaultDuplicateThreshold,
			CheckDuplicates:     true,
		},
		Dedup: DedupSettings{
			Threshold: DefaultDedupThreshold,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// AllVectorDBProviders returns all vector database backends.
func AllVectorDBProviders() []VectorDBProvider {
	return []VectorDBProvider{
		VectorDBProviderPinecone,
		VectorDBProviderLocal,
		VectorDBProviderMemory,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
