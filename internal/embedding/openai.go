package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// OpenAIClient generates embeddings via the OpenAI embeddings API, with the
// same circuit breaker and rate limiter protections as the Ollama client.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	breaker *breaker
	limiter *rate.Limiter
	timeout time.Duration

	mu  sync.Mutex
	dim int
}

// OpenAIConfig holds OpenAI embedding client configuration.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key (required for real use)
	APIKey string

	// Model is the embedding model (default: text-embedding-3-small)
	Model string

	// BaseURL overrides the API base URL; tests point this at an httptest
	// server (default: https://api.openai.com)
	BaseURL string

	// Timeout is the per-request timeout (default: 30s)
	Timeout time.Duration

	// RequestsPerSec caps the request rate (default: 10; <= 0 means 10)
	RequestsPerSec float64
}

// openAIEmbedRequest is the request body for POST /v1/embeddings.
type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// openAIEmbedResponse is the response body from POST /v1/embeddings.
type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewOpenAIClient creates a new OpenAI embedding client, applying defaults
// for any unset configuration values.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 10
	}

	return &OpenAIClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: newBreaker("OpenAIEmbedding"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		timeout: cfg.Timeout,
	}
}

// Embed generates an embedding vector for the given text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vector, err := c.breaker.execute(ctx, func() ([]float32, error) {
		return c.embed(ctx, text)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("openai circuit breaker open: %w", err)
		}
		return nil, err
	}

	if err := c.checkDimension(len(vector)); err != nil {
		return nil, err
	}
	return vector, nil
}

// embed is the internal implementation without breaker wrapping.
func (c *OpenAIClient) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	jsonData, err := json.Marshal(openAIEmbedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(body))
	}

	var respData openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(respData.Data) == 0 || len(respData.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai returned empty embedding vector")
	}
	return respData.Data[0].Embedding, nil
}

// checkDimension records the dimension on first use and rejects any later
// deviation.
func (c *OpenAIClient) checkDimension(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dim == 0 {
		c.dim = n
		return nil
	}
	if c.dim != n {
		return fmt.Errorf("openai embedding dimension changed from %d to %d", c.dim, n)
	}
	return nil
}

// Dimension returns the embedding dimension observed on the first successful
// call, or 0 before any embedding has been generated.
func (c *OpenAIClient) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dim
}

// GetModel returns the configured embedding model name.
func (c *OpenAIClient) GetModel() string {
	return c.model
}

// Compile-time assertion that OpenAIClient satisfies Generator.
var _ Generator = (*OpenAIClient)(nil)
