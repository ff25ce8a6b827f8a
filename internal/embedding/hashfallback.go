package embedding

import (
	"context"
	"hash/fnv"
)

// HashFallback is a deterministic, bounded pseudo-embedding used when no real
// embedding model is configured (spec.md §4.B failure modes). It is never
// selected automatically by the router; the CLI bootstrap wires it in
// explicitly when no model is configured.
type HashFallback struct {
	dim int
}

// NewHashFallback returns a HashFallback producing vectors of the given
// dimension (default 64 if dim <= 0).
func NewHashFallback(dim int) *HashFallback {
	if dim <= 0 {
		dim = 64
	}
	return &HashFallback{dim: dim}
}

// Info implements Embedder.
func (h *HashFallback) Info() Info { return Info{Model: "hash-fallback", Dim: h.dim} }

// Embed implements Embedder. The same text always yields the same vector.
func (h *HashFallback) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	for i := 0; i < h.dim; i++ {
		sum := fnv.New32a()
		_, _ = sum.Write([]byte(text))
		_, _ = sum.Write([]byte{byte(i)})
		// Spread the 32-bit hash into [-1, 1).
		vec[i] = float32(int32(sum.Sum32()))/float32(1<<31)
	}
	return Normalize(vec), nil
}
