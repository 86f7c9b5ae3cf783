package services

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
	"github.com/custodia-labs/claimlens/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedDims          = "embedding.dimensions"
	keyLLMProvider        = "llm.provider"
	keyLLMModel           = "llm.model"
	keyLLMBaseURL         = "llm.base_url"
	keyLLMAPIKey          = "llm.api_key"
	keyVectorProvider     = "vectordb.provider"
	keyVectorAPIKey       = "vectordb.api_key"
	keyVectorHost         = "vectordb.index_host"
	keyVectorPath         = "vectordb.path"
	keyVectorDims         = "vectordb.dimensions"
	keyExtractBaseURL     = "extraction.base_url"
	keyExtractTimeout     = "extraction.timeout_seconds"
	keyLinkTopK           = "linking.top_k"
	keyLinkRerankK        = "linking.rerank_k"
	keyLinkMinScore       = "linking.min_score"
	keyIngestConfidence   = "ingestion.confidence_threshold"
	keyIngestDupThreshold = "ingestion.duplicate_threshold"
	keyIngestCheckDups    = "ingestion.check_duplicates"
	keyDedupThreshold     = "dedup.threshold"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDims, defaults.Embedding.Dimensions),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		VectorDB: domain.VectorDBSettings{
			Provider:   s.getVectorDBProvider(defaults.VectorDB.Provider),
			APIKey:     s.configStore.GetString(keyVectorAPIKey),
			IndexHost:  s.configStore.GetString(keyVectorHost),
			Path:       s.configStore.GetString(keyVectorPath),
			Dimensions: s.getInt(keyVectorDims, defaults.VectorDB.Dimensions),
		},
		Extraction: domain.ExtractionSettings{
			BaseURL:        s.configStore.GetString(keyExtractBaseURL),
			TimeoutSeconds: s.getInt(keyExtractTimeout, defaults.Extraction.TimeoutSeconds),
		},
		Linking: domain.LinkingSettings{
			TopK:     s.getInt(keyLinkTopK, defaults.Linking.TopK),
			RerankK:  s.getInt(keyLinkRerankK, defaults.Linking.RerankK),
			MinScore: s.getFloat(keyLinkMinScore, defaults.Linking.MinScore),
		},
		Ingestion: domain.IngestionSettings{
			ConfidenceThreshold: s.getFloat(keyIngestConfidence, defaults.Ingestion.ConfidenceThreshold),
			DuplicateThreshold:  s.getFloat(keyIngestDupThreshold, defaults.Ingestion.DuplicateThreshold),
			CheckDuplicates:     s.getBool(keyIngestCheckDups, defaults.Ingestion.CheckDuplicates),
		},
		Dedup: domain.DedupSettings{
			Threshold: s.getFloat(keyDedupThreshold, defaults.Dedup.Threshold),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	// Save embedding settings
	if err := s.configStore.Set(keyEmbedProvider, settings.Embedding.Provider.String()); err != nil {
		return fmt.Errorf("save embedding provider: %w", err)
	}
	if err := s.configStore.Set(keyEmbedModel, settings.Embedding.Model); err != nil {
		return fmt.Errorf("save embedding model: %w", err)
	}
	if err := s.configStore.Set(keyEmbedBaseURL, settings.Embedding.BaseURL); err != nil {
		return fmt.Errorf("save embedding base_url: %w", err)
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if err := s.configStore.Set(keyEmbedDims, settings.Embedding.Dimensions); err != nil {
		return fmt.Errorf("save embedding dimensions: %w", err)
	}

	// Save LLM settings
	if err := s.configStore.Set(keyLLMProvider, settings.LLM.Provider.String()); err != nil {
		return fmt.Errorf("save llm provider: %w", err)
	}
	if err := s.configStore.Set(keyLLMModel, settings.LLM.Model); err != nil {
		return fmt.Errorf("save llm model: %w", err)
	}
	if err := s.configStore.Set(keyLLMBaseURL, settings.LLM.BaseURL); err != nil {
		return fmt.Errorf("save llm base_url: %w", err)
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	// Save vector database settings
	if err := s.configStore.Set(keyVectorProvider, settings.VectorDB.Provider.String()); err != nil {
		return fmt.Errorf("save vectordb provider: %w", err)
	}
	if settings.VectorDB.APIKey != "" {
		if err := s.configStore.Set(keyVectorAPIKey, settings.VectorDB.APIKey); err != nil {
			return fmt.Errorf("save vectordb api_key: %w", err)
		}
	}
	if err := s.configStore.Set(keyVectorHost, settings.VectorDB.IndexHost); err != nil {
		return fmt.Errorf("save vectordb index_host: %w", err)
	}
	if err := s.configStore.Set(keyVectorPath, settings.VectorDB.Path); err != nil {
		return fmt.Errorf("save vectordb path: %w", err)
	}
	if err := s.configStore.Set(keyVectorDims, settings.VectorDB.Dimensions); err != nil {
		return fmt.Errorf("save vectordb dimensions: %w", err)
	}

	// Save extraction settings
	if err := s.configStore.Set(keyExtractBaseURL, settings.Extraction.BaseURL); err != nil {
		return fmt.Errorf("save extraction base_url: %w", err)
	}
	if err := s.configStore.Set(keyExtractTimeout, settings.Extraction.TimeoutSeconds); err != nil {
		return fmt.Errorf("save extraction timeout_seconds: %w", err)
	}

	// Save linking settings
	if err := s.configStore.Set(keyLinkTopK, settings.Linking.TopK); err != nil {
		return fmt.Errorf("save linking top_k: %w", err)
	}
	if err := s.configStore.Set(keyLinkRerankK, settings.Linking.RerankK); err != nil {
		return fmt.Errorf("save linking rerank_k: %w", err)
	}
	if err := s.configStore.Set(keyLinkMinScore, settings.Linking.MinScore); err != nil {
		return fmt.Errorf("save linking min_score: %w", err)
	}

	// Save ingestion settings
	if err := s.configStore.Set(keyIngestConfidence, settings.Ingestion.ConfidenceThreshold); err != nil {
		return fmt.Errorf("save ingestion confidence_threshold: %w", err)
	}
	if err := s.configStore.Set(keyIngestDupThreshold, settings.Ingestion.DuplicateThreshold); err != nil {
		return fmt.Errorf("save ingestion duplicate_threshold: %w", err)
	}
	if err := s.configStore.Set(keyIngestCheckDups, settings.Ingestion.CheckDuplicates); err != nil {
		return fmt.Errorf("save ingestion check_duplicates: %w", err)
	}

	// Save dedup settings
	if err := s.configStore.Set(keyDedupThreshold, settings.Dedup.Threshold); err != nil {
		return fmt.Errorf("save dedup threshold: %w", err)
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate provider supports embeddings
	validProviders := domain.AllEmbeddingProviders()
	valid := false
	for _, p := range validProviders {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		defaults := domain.DefaultEmbeddingModels()
		if defaultModel, ok := defaults[provider]; ok {
			settings.Embedding.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		// Local providers need a base URL
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		// Cloud providers don't need a custom base URL
		settings.Embedding.BaseURL = ""
	}

	// Set API key
	settings.Embedding.APIKey = apiKey

	// Keep the index dimensions in step with the model. Every vector in
	// the store must share the embedder's output size.
	dims := domain.EmbeddingDimensions()
	if d, ok := dims[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
		settings.VectorDB.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else {
		defaults := domain.DefaultLLMModels()
		if defaultModel, ok := defaults[provider]; ok {
			settings.LLM.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		// Local providers need a base URL
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		// Cloud providers don't need a custom base URL
		settings.LLM.BaseURL = ""
	}

	// Set API key
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetVectorDBProvider configures the vector store backend.
func (s *SettingsService) SetVectorDBProvider(provider domain.VectorDBProvider, apiKey, indexHost string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid vector database provider: %s", provider)
	}

	// Hosted backends need credentials and an index endpoint
	if provider.RequiresAPIKey() {
		if apiKey == "" {
			return fmt.Errorf("API key required for %s", provider)
		}
		if indexHost == "" {
			return fmt.Errorf("index host required for %s", provider)
		}
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.VectorDB.Provider = provider
	settings.VectorDB.APIKey = apiKey
	settings.VectorDB.IndexHost = indexHost

	// The local backend stores vectors next to the config file
	if provider == domain.VectorDBProviderLocal && settings.VectorDB.Path == "" {
		settings.VectorDB.Path = filepath.Join(filepath.Dir(s.configStore.Path()), "vectors.db")
	}

	return s.Save(settings)
}

// SetExtractionEndpoint configures the claim extraction service URL.
func (s *SettingsService) SetExtractionEndpoint(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("extraction endpoint URL is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid extraction endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("extraction endpoint must be http or https: %s", baseURL)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Extraction.BaseURL = strings.TrimRight(baseURL, "/")

	return s.Save(settings)
}

// Validate checks if current settings form a working configuration.
// The embedder and vector store are the minimum viable core; LLM and
// extraction services are optional and the pipeline degrades without them.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider is not configured")
	}
	if !settings.VectorDB.IsConfigured() {
		return fmt.Errorf("vector database is not configured")
	}

	// Embedder output and index dimensions must agree when both are known
	if settings.Embedding.Dimensions > 0 && settings.VectorDB.Dimensions > 0 &&
		settings.Embedding.Dimensions != settings.VectorDB.Dimensions {
		return fmt.Errorf(
			"embedding dimensions (%d) do not match vector database dimensions (%d)",
			settings.Embedding.Dimensions, settings.VectorDB.Dimensions,
		)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// ValidateVectorDBConfig validates the current vector store configuration by pinging the backend.
func (s *SettingsService) ValidateVectorDBConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateVectorDB(&settings.VectorDB)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat64(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getVectorDBProvider(defaultVal domain.VectorDBProvider) domain.VectorDBProvider {
	val := s.configStore.GetString(keyVectorProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.VectorDBProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
