package driven

import "github.com/custodia-labs/claimlens/internal/core/domain"

// AIConfigValidator validates provider configurations.
// Implementations verify that configurations are valid by testing connectivity
// to the underlying services.
type AIConfigValidator interface {
	// ValidateEmbedding validates an embedding configuration by pinging the provider.
	// Returns nil if configuration is valid or not configured.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM validates an LLM configuration by pinging the provider.
	// Returns nil if configuration is valid or not configured.
	ValidateLLM(config *domain.LLMSettings) error

	// ValidateVectorDB validates a vector store configuration by pinging the backend.
	// Returns nil if configuration is valid or not configured.
	ValidateVectorDB(config *domain.VectorDBSettings) error
}
