package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Storage.StorageEngine != "sqlite" {
		t.Errorf("StorageEngine = %q, want sqlite", cfg.Storage.StorageEngine)
	}
	if cfg.Storage.DataPath != "./data" {
		t.Errorf("DataPath = %q, want ./data", cfg.Storage.DataPath)
	}
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("Provider = %q, want hash", cfg.Embedding.Provider)
	}
	if cfg.Embedding.HashDimension != 256 {
		t.Errorf("HashDimension = %d, want 256", cfg.Embedding.HashDimension)
	}
	if cfg.Embedding.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Embedding.Timeout)
	}
	if cfg.Matcher.Threshold != 0.7 {
		t.Errorf("Threshold = %v, want 0.7", cfg.Matcher.Threshold)
	}
	if cfg.Matcher.NegativeRatio != 5 {
		t.Errorf("NegativeRatio = %d, want 5", cfg.Matcher.NegativeRatio)
	}
	if cfg.Matcher.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Matcher.Seed)
	}
	if cfg.Generate.Unique != 200 || cfg.Generate.Duplicates != 40 {
		t.Errorf("Generate = %d/%d, want 200/40", cfg.Generate.Unique, cfg.Generate.Duplicates)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("RECORDLINK_STORAGE_ENGINE", "postgres")
	t.Setenv("RECORDLINK_POSTGRES_DSN", "postgres://localhost/recordlink")
	t.Setenv("RECORDLINK_EMBEDDING_PROVIDER", "ollama")
	t.Setenv("RECORDLINK_EMBEDDING_TIMEOUT", "5s")
	t.Setenv("RECORDLINK_THRESHOLD", "0.85")
	t.Setenv("RECORDLINK_SEED", "99")
	t.Setenv("RECORDLINK_GEN_MISSING_RATE", "0.25")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Storage.StorageEngine != "postgres" {
		t.Errorf("StorageEngine = %q, want postgres", cfg.Storage.StorageEngine)
	}
	if cfg.Storage.PostgresDSN != "postgres://localhost/recordlink" {
		t.Errorf("PostgresDSN = %q", cfg.Storage.PostgresDSN)
	}
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("Provider = %q, want ollama", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Embedding.Timeout)
	}
	if cfg.Matcher.Threshold != 0.85 {
		t.Errorf("Threshold = %v, want 0.85", cfg.Matcher.Threshold)
	}
	if cfg.Matcher.Seed != 99 {
		t.Errorf("Seed = %d, want 99", cfg.Matcher.Seed)
	}
	if cfg.Generate.MissingRate != 0.25 {
		t.Errorf("MissingRate = %v, want 0.25", cfg.Generate.MissingRate)
	}
}

func TestLoadConfigInvalidValuesFallBack(t *testing.T) {
	t.Setenv("RECORDLINK_THRESHOLD", "not-a-number")
	t.Setenv("RECORDLINK_MAX_ITERATIONS", "many")
	t.Setenv("RECORDLINK_EMBEDDING_TIMEOUT", "soon")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Matcher.Threshold != 0.7 {
		t.Errorf("Threshold = %v, want default 0.7", cfg.Matcher.Threshold)
	}
	if cfg.Matcher.MaxIterations != 10000 {
		t.Errorf("MaxIterations = %d, want default 10000", cfg.Matcher.MaxIterations)
	}
	if cfg.Embedding.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want default 30s", cfg.Embedding.Timeout)
	}
}
