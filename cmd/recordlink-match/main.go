// cmd/recordlink-match runs the full matching pipeline over a stored
// dataset:
//
//  1. Load configuration from environment variables.
//  2. Open the record store and load all records.
//  3. Build the embedding provider and warm the cache over every distinct
//     field value.
//  4. Sample a labeled training set (seeded, reproducible) and train the
//     class-balanced logistic classifier.
//  5. Score every candidate pair and apply the decision threshold.
//  6. Write the YAML report to stdout or -out, and optionally the trained
//     model to -model-out.
//
// All logging goes to stderr so a report written to stdout stays parseable.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/scrypster/recordlink/internal/config"
	"github.com/scrypster/recordlink/internal/embedding"
	"github.com/scrypster/recordlink/internal/matcher"
	"github.com/scrypster/recordlink/internal/report"
	"github.com/scrypster/recordlink/internal/storage"
	"github.com/scrypster/recordlink/internal/storage/postgres"
	"github.com/scrypster/recordlink/internal/storage/sqlite"
	"github.com/scrypster/recordlink/pkg/types"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("recordlink-match: ")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	threshold := flag.Float64("threshold", cfg.Matcher.Threshold, "match probability cutoff (strict greater-than)")
	negativeRatio := flag.Int("negative-ratio", cfg.Matcher.NegativeRatio, "negative pairs per positive pair")
	seed := flag.Int64("seed", cfg.Matcher.Seed, "random seed for negative sampling")
	outPath := flag.String("out", "", "write the YAML report to this file (default stdout)")
	modelOutPath := flag.String("model-out", "", "write the trained model YAML to this file")
	flag.Parse()

	ctx := context.Background()

	store, err := openStore(cfg.Storage)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	records, err := store.List(ctx)
	if err != nil {
		log.Fatalf("failed to load records: %v", err)
	}
	if len(records) == 0 {
		log.Fatal("record store is empty; run recordlink-gen first")
	}
	log.Printf("loaded %d records", len(records))

	generator, err := embedding.NewGenerator(cfg.Embedding)
	if err != nil {
		log.Fatalf("failed to create embedding provider: %v", err)
	}

	// The store doubles as a persistent embedding cache when it supports
	// it, so re-runs skip already-embedded values.
	var cache *embedding.Cache
	if backend, ok := store.(storage.EmbeddingCache); ok {
		cache = embedding.NewPersistentCache(generator, backend)
	} else {
		cache = embedding.NewCache(generator)
	}

	if err := cache.WarmUp(ctx, fieldValues(records)); err != nil {
		log.Fatalf("failed to warm embedding cache: %v", err)
	}
	log.Printf("embedded %d distinct field values with %s", cache.Len(), cache.GetModel())

	computer := matcher.NewComputer(cache)
	sampler := matcher.NewSampler(computer)

	pairs, err := sampler.BuildTrainingSet(ctx, records, *negativeRatio, *seed)
	if err != nil {
		log.Fatalf("failed to build training set: %v", err)
	}
	log.Printf("built training set of %d labeled pairs", len(pairs))

	model, err := matcher.Train(pairs, matcher.TrainOptions{
		MaxIterations: cfg.Matcher.MaxIterations,
		LearningRate:  cfg.Matcher.LearningRate,
		L2:            cfg.Matcher.L2,
	})
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}
	for field, weight := range model.FieldWeights() {
		log.Printf("learned weight %-14s %+.4f", field, weight)
	}

	engine := matcher.NewEngine(computer)
	results, err := engine.Decide(ctx, model, matcher.AllPairs(records), *threshold)
	if err != nil {
		log.Fatalf("decisioning failed: %v", err)
	}

	summary := report.Evaluate(results)
	log.Printf("decided %d pairs: precision=%.3f recall=%.3f f1=%.3f",
		summary.Pairs, summary.Precision, summary.Recall, summary.F1)

	doc := report.Build(model, results, *threshold, cache.GetModel())
	if err := writeTo(*outPath, func(w io.Writer) error { return report.Write(w, doc) }); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}

	if *modelOutPath != "" {
		err := writeTo(*modelOutPath, func(w io.Writer) error { return report.WriteModel(w, model) })
		if err != nil {
			log.Fatalf("failed to write model: %v", err)
		}
		log.Printf("wrote model to %s", *modelOutPath)
	}
}

// fieldValues collects every present field value across the dataset for
// batch embedding warm-up.
func fieldValues(records []types.Record) []string {
	var values []string
	for _, rec := range records {
		for _, field := range types.FieldOrder() {
			if v := rec.Fields[field]; v != nil && *v != "" {
				values = append(values, *v)
			}
		}
	}
	return values
}

// writeTo writes through fn to the given path, or to stdout when path is
// empty.
func writeTo(path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// openStore opens the configured record store backend.
func openStore(cfg config.StorageConfig) (storage.RecordStore, error) {
	switch cfg.StorageEngine {
	case "postgres":
		return postgres.Open(cfg.PostgresDSN)
	case "sqlite", "":
		if err := os.MkdirAll(cfg.DataPath, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory %q: %w", cfg.DataPath, err)
		}
		return sqlite.Open(filepath.Join(cfg.DataPath, "recordlink.db"))
	default:
		return nil, fmt.Errorf("unsupported storage engine: %q", cfg.StorageEngine)
	}
}
