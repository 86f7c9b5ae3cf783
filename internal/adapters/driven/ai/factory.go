// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	ollamaembed "github.com/custodia-labs/claimlens/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/claimlens/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/claimlens/internal/adapters/driven/extraction/mlapi"
	anthropicllm "github.com/custodia-labs/claimlens/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/claimlens/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/claimlens/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/claimlens/internal/adapters/driven/vectordb/bolt"
	"github.com/custodia-labs/claimlens/internal/adapters/driven/vectordb/memory"
	"github.com/custodia-labs/claimlens/internal/adapters/driven/vectordb/pinecone"
	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	VectorStore      driven.VectorStore
	ClaimExtractor   driven.ClaimExtractor
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if similarity features are disabled.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorStore != nil {
		r.VectorStore.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
	if r.ClaimExtractor != nil {
		r.ClaimExtractor.Close()
	}
}

// InitServices creates every configured AI service, degrading gracefully.
// A provider that fails to initialise produces a warning and a nil service
// rather than an error: ingestion and linking check for nil dependencies
// and disable the corresponding stage. FellBack is set when similarity
// features (indexing, linking, dedup) will be unavailable.
func InitServices(settings *domain.AppSettings) *InitResult {
	result := &InitResult{}
	if settings == nil {
		result.FellBack = true
		return result
	}

	embedder, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	result.EmbeddingService = embedder

	llm, err := CreateAndValidateLLMService(&settings.LLM)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	result.LLMService = llm

	store, err := CreateVectorStore(&settings.VectorDB)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("vector store unavailable: %v", err))
	} else {
		result.VectorStore = store
	}

	// Claim extraction is created without a ping: the sidecar is often
	// started after the CLI, and ingestion degrades per call anyway.
	result.ClaimExtractor = CreateClaimExtractor(&settings.Extraction)

	if result.EmbeddingService == nil || result.VectorStore == nil {
		result.FellBack = true
	}
	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'claimlens settings wizard' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'claimlens settings wizard' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'claimlens settings wizard' to fix",
			domain.ErrLLMUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'claimlens settings wizard' to fix",
			domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
// This is intended for use in the settings wizard to validate credentials on configuration.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
// This is intended for use in the settings wizard to validate credentials on configuration.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateVectorDBConfig validates a vector store configuration by creating
// the backend and pinging it. Remote backends verify credentials; local
// backends verify the file can be opened.
func ValidateVectorDBConfig(settings *domain.VectorDBSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	store, err := CreateVectorStore(settings)
	if err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return store.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateVectorStore creates the appropriate vector store backend based on settings.
// Returns nil if the backend is not configured.
func CreateVectorStore(settings *domain.VectorDBSettings) (driven.VectorStore, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.VectorDBProviderPinecone:
		return pinecone.NewVectorStore(pinecone.Config{
			APIKey:    settings.APIKey,
			IndexHost: settings.IndexHost,
		})

	case domain.VectorDBProviderLocal:
		path := settings.Path
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve vector store path: %w", err)
			}
			path = filepath.Join(home, ".claimlens", "data", "vectors.db")
		}
		return bolt.NewVectorStore(path)

	case domain.VectorDBProviderMemory:
		return memory.NewVectorStore(), nil

	default:
		return nil, fmt.Errorf("unsupported vector database provider: %s", settings.Provider)
	}
}

// CreateClaimExtractor creates a claim-extraction client.
// Returns nil if the service is not configured.
func CreateClaimExtractor(settings *domain.ExtractionSettings) driven.ClaimExtractor {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	return mlapi.NewExtractor(mlapi.Config{
		BaseURL: settings.BaseURL,
		Timeout: time.Duration(settings.TimeoutSeconds) * time.Second,
	})
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
