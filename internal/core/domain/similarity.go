package domain

import (
	"fmt"
	"math"
)

// CosineSimilarity returns the cosine of the angle between two vectors.
// The result is in [-1, 1]; for the non-negative embeddings produced by
// the supported models it lands in [0, 1].
//
// Vectors of different lengths are an error. A zero vector has no
// direction, so any comparison against one scores 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: vector length mismatch (%d vs %d)", ErrInvalidInput, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty vectors", ErrInvalidInput)
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
