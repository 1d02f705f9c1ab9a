// Package embedding provides the embedding-provider boundary for the
// matching engine: remote clients (Ollama, OpenAI) protected by a circuit
// breaker and a rate limiter, a deterministic local hash embedder for
// offline use and tests, and a caching layer that deduplicates provider
// calls per distinct input string.
package embedding

import (
	"context"
	"fmt"

	"github.com/scrypster/recordlink/internal/config"
)

// Generator maps a text string to a fixed-dimension dense vector.
// Implementations must be deterministic: the same text always yields the
// same vector for a given provider instance, and Dimension is fixed for the
// lifetime of the instance.
type Generator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	GetModel() string
}

// NewGenerator creates the appropriate Generator based on configuration.
func NewGenerator(cfg config.EmbeddingConfig) (Generator, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			Model:          cfg.OpenAIModel,
			Timeout:        cfg.Timeout,
			RequestsPerSec: cfg.RequestsPerSec,
		}), nil
	case "ollama":
		return NewOllamaClient(OllamaConfig{
			BaseURL:        cfg.OllamaURL,
			Model:          cfg.OllamaModel,
			Timeout:        cfg.Timeout,
			RequestsPerSec: cfg.RequestsPerSec,
		}), nil
	case "hash", "":
		return NewHashEmbedder(cfg.HashDimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}
}
