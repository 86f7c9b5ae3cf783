package driving

import "github.com/custodia-labs/claimlens/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// SetVectorDBProvider configures the vector store backend.
	SetVectorDBProvider(provider domain.VectorDBProvider, apiKey, indexHost string) error

	// SetExtractionEndpoint configures the claim extraction service URL.
	SetExtractionEndpoint(baseURL string) error

	// Validate checks if current settings form a working configuration.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig() error

	// ValidateVectorDBConfig validates the current vector store configuration by pinging the backend.
	ValidateVectorDBConfig() error
}
