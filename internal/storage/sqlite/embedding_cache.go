package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/scrypster/recordlink/internal/storage"
)

// PutEmbedding stores the vector for the given input text and model.
// The vector is serialized as a little-endian float32 BLOB. Upsert semantics
// keep re-embedding the same text harmless.
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

	const query = `
		INSERT INTO embeddings (text_hash, input_text, embedding, dimension, model)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(text_hash) DO UPDATE SET
			embedding  = excluded.embedding,
			dimension  = excluded.dimension,
			model      = excluded.model
	`

	_, err := s.db.ExecContext(ctx, query, textHash(model, text), text,
		serializeVector(vector), len(vector), model)
	if err != nil {
		return fmt.Errorf("sqlite: failed to store embedding: %w", err)
	}
	return nil
}

// GetEmbedding retrieves the vector for the given input text. It matches any
// model: a store is scoped to one matching session, and mixing models within
// a session is the caller's bug, not something the lookup distinguishes.
func (s *Store) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", storage.ErrInvalidInput)
	}

	const query = `SELECT embedding, dimension FROM embeddings WHERE input_text = ? LIMIT 1`

	var (
		blob []byte
		dim  int
	)
	if err := s.db.QueryRowContext(ctx, query, text).Scan(&blob, &dim); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: failed to get embedding: %w", err)
	}

	vector, err := deserializeVector(blob, dim)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to deserialize embedding: %w", err)
	}
	return vector, nil
}

// textHash derives the primary key for an embedding row from the model name
// and input text.
func textHash(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
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
