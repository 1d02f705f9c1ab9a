package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedder is a deterministic local embedding provider: character
// n-gram counts (bigrams and trigrams) hashed into a fixed number of
// buckets and L2-normalized. It needs no server, which makes it the default
// provider for offline runs and tests. Strings that share many character
// n-grams ("John Smith" vs "Jon Smyth") land close in the embedding space,
// which is exactly the signal typo-tolerant matching needs.
type HashEmbedder struct {
	dim int
}

// DefaultHashDimension is the bucket count used when none is configured.
// 256 buckets keep n-gram hash collisions rare for short PII strings.
const DefaultHashDimension = 256

// NewHashEmbedder creates a hash embedder with the given dimension
// (DefaultHashDimension if dim <= 0).
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &HashEmbedder{dim: dim}
}

// Embed maps text to a dense vector. Pure function of its input: no I/O, no
// state, so identical strings always produce identical vectors.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vector := make([]float32, h.dim)

	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return vector, nil
	}

	runes := []rune(normalized)
	for _, n := range []int{2, 3} {
		if len(runes) < n {
			// Short strings still contribute via the whole-string gram below.
			continue
		}
		for i := 0; i+n <= len(runes); i++ {
			vector[h.bucket(string(runes[i:i+n]))]++
		}
	}
	// Whole-string gram so even single-character values embed to something.
	vector[h.bucket(normalized)]++

	normalize(vector)
	return vector, nil
}

// bucket hashes a gram into a vector index.
func (h *HashEmbedder) bucket(gram string) int {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(gram))
	return int(hasher.Sum32() % uint32(h.dim))
}

// Dimension returns the configured bucket count.
func (h *HashEmbedder) Dimension() int {
	return h.dim
}

// GetModel returns a synthetic model identifier encoding the dimension, so
// persistent caches can distinguish differently-sized hash spaces.
func (h *HashEmbedder) GetModel() string {
	return fmt.Sprintf("ngram-hash-%d", h.dim)
}

// normalize scales a vector to unit L2 length in place. Zero vectors are
// left untouched.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}

// Compile-time assertion that HashEmbedder satisfies Generator.
var _ Generator = (*HashEmbedder)(nil)
