// Package storage defines the persistence interfaces for the recordlink
// engine: a record store (the Record Source boundary) and a persistent
// embedding cache keyed by input text. The core matcher only requires
// in-memory collections; these interfaces exist so the CLIs can persist
// generated datasets and reuse embeddings across runs.
package storage

import (
	"context"
	"errors"

	"github.com/scrypster/recordlink/pkg/types"
)

var (
	// ErrNotFound indicates that the requested row was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// RecordStore persists PII records with stable identifiers and ground-truth
// cluster IDs.
type RecordStore interface {
	// Put inserts or replaces a record by ID.
	Put(ctx context.Context, rec types.Record) error

	// Get retrieves a record by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (types.Record, error)

	// List returns all stored records ordered by ID.
	List(ctx context.Context) ([]types.Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying database handle.
	Close() error
}

// EmbeddingCache persists embedding vectors keyed by their input text, so a
// matching session can be re-run without repeating provider calls. Entries
// are append-only: a text's embedding never changes for a given model.
type EmbeddingCache interface {
	// PutEmbedding stores the vector for the given input text and model.
	PutEmbedding(ctx context.Context, text string, vector []float32, model string) error

	// GetEmbedding retrieves the vector for the given input text.
	// Returns ErrNotFound if the text has not been embedded.
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}
