// Package config provides configuration management for recordlink.
// It loads settings from environment variables with the RECORDLINK_ prefix
// and provides sensible defaults for all configuration options.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration settings for the recordlink tools.
type Config struct {
	Storage   StorageConfig
	Embedding EmbeddingConfig
	Matcher   MatcherConfig
	Generate  GenerateConfig
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory for SQLite (default: ./data)
	PostgresDSN   string // PostgreSQL connection string (used when engine is postgres)
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	Provider       string        // Embedding provider: hash, ollama, openai (default: hash)
	OllamaURL      string        // Ollama API URL (default: http://localhost:11434)
	OllamaModel    string        // Ollama embedding model (default: nomic-embed-text)
	OpenAIAPIKey   string        // OpenAI API key
	OpenAIModel    string        // OpenAI embedding model (default: text-embedding-3-small)
	HashDimension  int           // Dimension of the local hash embedder (default: 256)
	RequestsPerSec float64       // Rate limit for remote provider calls (default: 10)
	Timeout        time.Duration // Per-request timeout for remote providers (default: 30s)
}

// MatcherConfig contains matching engine parameters.
type MatcherConfig struct {
	Threshold     float64 // Match probability cutoff, strict greater-than (default: 0.7)
	NegativeRatio int     // Negative pairs per positive pair (default: 5)
	Seed          int64   // Random seed for negative sampling (default: 42)
	MaxIterations int     // Gradient descent iteration budget (default: 10000)
	LearningRate  float64 // Gradient descent step size (default: 0.5)
	L2            float64 // L2 regularization strength (default: 0.01)
}

// GenerateConfig contains synthetic dataset generation parameters.
type GenerateConfig struct {
	Unique      int     // Number of unique identities (default: 200)
	Duplicates  int     // Number of perturbed duplicates (default: 40)
	Seed        int64   // Random seed for generation (default: 42)
	MissingRate float64 // Per-field probability of a missing value (default: 0.1)
	TypoRate    float64 // Probability of a typo per perturbed field (default: 0.3)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the RECORDLINK_ prefix.
func LoadConfig() (*Config, error) {
	return &Config{
		Storage: StorageConfig{
			StorageEngine: getEnv("RECORDLINK_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("RECORDLINK_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("RECORDLINK_POSTGRES_DSN", ""),
		},
		Embedding: EmbeddingConfig{
			Provider:       getEnv("RECORDLINK_EMBEDDING_PROVIDER", "hash"),
			OllamaURL:      getEnv("RECORDLINK_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:    getEnv("RECORDLINK_OLLAMA_MODEL", "nomic-embed-text"),
			OpenAIAPIKey:   getEnv("RECORDLINK_OPENAI_API_KEY", ""),
			OpenAIModel:    getEnv("RECORDLINK_OPENAI_MODEL", "text-embedding-3-small"),
			HashDimension:  getEnvInt("RECORDLINK_HASH_DIMENSION", 256),
			RequestsPerSec: getEnvFloat("RECORDLINK_EMBEDDING_RPS", 10),
			Timeout:        getEnvDuration("RECORDLINK_EMBEDDING_TIMEOUT", 30*time.Second),
		},
		Matcher: MatcherConfig{
			Threshold:     getEnvFloat("RECORDLINK_THRESHOLD", 0.7),
			NegativeRatio: getEnvInt("RECORDLINK_NEGATIVE_RATIO", 5),
			Seed:          getEnvInt64("RECORDLINK_SEED", 42),
			MaxIterations: getEnvInt("RECORDLINK_MAX_ITERATIONS", 10000),
			LearningRate:  getEnvFloat("RECORDLINK_LEARNING_RATE", 0.5),
			L2:            getEnvFloat("RECORDLINK_L2", 0.01),
		},
		Generate: GenerateConfig{
			Unique:      getEnvInt("RECORDLINK_GEN_UNIQUE", 200),
			Duplicates:  getEnvInt("RECORDLINK_GEN_DUPLICATES", 40),
			Seed:        getEnvInt64("RECORDLINK_GEN_SEED", 42),
			MissingRate: getEnvFloat("RECORDLINK_GEN_MISSING_RATE", 0.1),
			TypoRate:    getEnvFloat("RECORDLINK_GEN_TYPO_RATE", 0.3),
		},
	}, nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. If the variable exists but cannot be parsed, the default is used.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 retrieves a 64-bit integer environment variable or returns a
// default value.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (e.g. "30s") or
// returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
