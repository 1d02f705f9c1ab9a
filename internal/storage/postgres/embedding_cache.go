package postgres

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log"
	"math"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/scrypster/recordlink/internal/storage"
)

// PutEmbedding stores the vector for the given input text and model.
// The vector always lands in the BYTEA column; when pgvector is available it
// is additionally written to embedding_vec so it stays queryable with vector
// operators.
func (s *Store) PutEmbedding(ctx context.Context, text string, vector []float32, model string) error {
	if text == "" {
		return fmt.Errorf("%w: text is required", storage.ErrInvalidInput)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: embedding vector cannot be empty", storage.ErrInvalidInput)
	}
	if model == "" {
		return fmt.Errorf("%w: model is required", storage.ErrInvalidInput)
	}

	blob := serializeVector(vector)

	if s.pgvectorAvailable {
		const query = `
			INSERT INTO embeddings (input_text, embedding, dimension, model, embedding_vec)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT(input_text) DO UPDATE SET
				embedding     = excluded.embedding,
				dimension     = excluded.dimension,
				model         = excluded.model,
				embedding_vec = excluded.embedding_vec
		`
		_, err := s.db.ExecContext(ctx, query, text, blob, len(vector), model, pgvector.NewVector(vector))
		if err == nil {
			return nil
		}
		// Fall back to the BYTEA-only path so a pgvector hiccup never loses
		// the embedding.
		log.Printf("postgres: failed to store embedding_vec (falling back to BYTEA only): %v", err)
	}

	const query = `
		INSERT INTO embeddings (input_text, embedding, dimension, model)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT(input_text) DO UPDATE SET
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			model     = excluded.model
	`
	if _, err := s.db.ExecContext(ctx, query, text, blob, len(vector), model); err != nil {
		return fmt.Errorf("postgres: failed to store embedding: %w", err)
	}
	return nil
}

// GetEmbedding retrieves the vector for the given input text.
// Returns storage.ErrNotFound if the text has not been embedded.
func (s *Store) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", storage.ErrInvalidInput)
	}

	const query = `SELECT embedding, dimension FROM embeddings WHERE input_text = $1`

	var (
		blob []byte
		dim  int
	)
	if err := s.db.QueryRowContext(ctx, query, text).Scan(&blob, &dim); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to get embedding: %w", err)
	}

	vector, err := deserializeVector(blob, dim)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to deserialize embedding: %w", err)
	}
	return vector, nil
}

// serializeVector converts a float32 slice into a little-endian binary blob.
func serializeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeVector converts a binary blob back to a float32 slice, using
// dimension to validate the buffer size.
func deserializeVector(buf []byte, dimension int) ([]float32, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dimension)
	}
	if len(buf) != dimension*4 {
		return nil, fmt.Errorf("buffer size mismatch: expected %d bytes, got %d", dimension*4, len(buf))
	}

	vector := make([]float32, dimension)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vector, nil
}
