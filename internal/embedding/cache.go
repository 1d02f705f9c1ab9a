package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/scrypster/recordlink/internal/storage"
)

// warmUpConcurrency bounds the number of in-flight provider requests during
// a batch warm-up.
const warmUpConcurrency = 8

// Cache wraps a Generator and memoizes embeddings per distinct input string.
// Providers are deterministic, so a cache hit is always exact. The cache is
// an explicit owned object — each matching session constructs its own — so
// concurrent sessions never share hidden state.
//
// An optional persistent backend (storage.EmbeddingCache) makes embeddings
// survive across runs: lookups fall through memory → backend → provider, and
// provider results are written through to both.
type Cache struct {
	generator Generator
	backend   storage.EmbeddingCache // optional; nil means memory-only

	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewCache creates a memory-only cache around the given generator.
func NewCache(generator Generator) *Cache {
	return &Cache{
		generator: generator,
		vectors:   make(map[string][]float32),
	}
}

// NewPersistentCache creates a cache that additionally reads and writes
// embeddings through the given persistent backend.
func NewPersistentCache(generator Generator, backend storage.EmbeddingCache) *Cache {
	c := NewCache(generator)
	c.backend = backend
	return c
}

// Embed returns the embedding for text, generating it at most once per
// distinct string for the lifetime of the cache.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.RLock()
	vector, ok := c.vectors[text]
	c.mu.RUnlock()
	if ok {
		return vector, nil
	}

	if c.backend != nil {
		stored, err := c.backend.GetEmbedding(ctx, text)
		if err == nil {
			c.store(text, stored)
			return stored, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("embedding cache backend lookup: %w", err)
		}
	}

	vector, err := c.generator.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.store(text, vector)
	if c.backend != nil {
		if err := c.backend.PutEmbedding(ctx, text, vector, c.generator.GetModel()); err != nil {
			return nil, fmt.Errorf("embedding cache backend store: %w", err)
		}
	}
	return vector, nil
}

// store inserts a vector under the racing-writer rule: the first write wins,
// which is safe because providers are deterministic.
func (c *Cache) store(text string, vector []float32) {
	c.mu.Lock()
	if _, ok := c.vectors[text]; !ok {
		c.vectors[text] = vector
	}
	c.mu.Unlock()
}

// WarmUp embeds a batch of texts concurrently, bounded by warmUpConcurrency,
// so the many pairs that reuse the same record fields amortize provider
// overhead. Duplicate texts are deduplicated before any request is issued.
func (c *Cache) WarmUp(ctx context.Context, texts []string) error {
	seen := make(map[string]struct{}, len(texts))
	var unique []string
	for _, t := range texts {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmUpConcurrency)
	for _, text := range unique {
		text := text
		g.Go(func() error {
			_, err := c.Embed(ctx, text)
			return err
		})
	}
	return g.Wait()
}

// Len returns the number of cached distinct strings.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

// Dimension reports the wrapped generator's dimension.
func (c *Cache) Dimension() int { return c.generator.Dimension() }

// GetModel reports the wrapped generator's model name.
func (c *Cache) GetModel() string { return c.generator.GetModel() }

// Compile-time assertion that Cache itself satisfies Generator, so it can be
// layered or passed anywhere a provider is expected.
var _ Generator = (*Cache)(nil)
