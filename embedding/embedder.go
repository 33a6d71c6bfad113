// Package embedding maps text to fixed-length dense vectors.
package embedding

import (
	"context"
	"errors"
	"math"
)

// ErrEmbeddingFailed wraps every failure returned by an Embedder.
var ErrEmbeddingFailed = errors.New("failed to generate embedding")

// Embedder produces vectors of exactly Dimension() entries. Identical input
// yields identical output for a given model version, and the empty string is
// a valid input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// normalize scales v to unit length in place. The zero vector is left as is.
func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
