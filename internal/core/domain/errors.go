package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// The vector index is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Features requiring a model (reranking, relationship classification)
	// are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	// Similarity search, duplicate checking and dedup are disabled.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrExtractionUnavailable indicates the claim-extraction service is not
	// configured. Ingestion falls back to whole-chunk claims.
	ErrExtractionUnavailable = errors.New("claim extraction service unavailable")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformedResponse indicates a remote model returned output that
	// could not be parsed into the expected shape.
	ErrMalformedResponse = errors.New("malformed model response")
)

// EmbeddingError wraps a remote embedding failure with the size of the
// input that triggered it. The input text itself is never attached.
type EmbeddingError struct {
	// InputLen is the character length of the offending input.
	InputLen int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed for input of %d chars: %v", e.InputLen, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// NewEmbeddingError wraps err with the length of the input that caused it.
func NewEmbeddingError(inputLen int, err error) *EmbeddingError {
	return &EmbeddingError{InputLen: inputLen, Err: err}
}
