// Package embedding defines the pluggable "text → unit-norm vector" collaborator
// the Semantic Router depends on. The embedding model itself is deliberately
// out of scope (spec.md §1); this package only fixes the seam and ships a
// deterministic fallback plus thin adapters over the corpus's model SDKs.
package embedding

import (
	"context"
	"math"
)

// Info is a static descriptor returned by an Embedder so callers (the router's
// initialize) can validate vector-store/embedder dimension compatibility.
type Info struct {
	Model string
	Dim   int
}

// Embedder computes a unit-norm embedding vector for a piece of text.
// Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Info() Info
}

// Normalize scales v in place to unit length. A zero vector is left unchanged.
func Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
