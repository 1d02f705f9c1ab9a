package matcher

import (
	"context"
	"fmt"
	"math"

	"github.com/scrypster/recordlink/internal/embedding"
	"github.com/scrypster/recordlink/pkg/types"
)

// Computer turns a pair of records into a per-field similarity vector.
//
// For each schema field in types.FieldOrder ordering, the similarity is the
// cosine similarity of the two values' embeddings, clipped into [0,1]:
// negative cosine between short PII strings carries no more signal than
// "unrelated", and clipping keeps the masked value at the floor of the range.
// The same convention is used for training and inference; changing it would
// change learned weight magnitudes.
//
// Masking: if either record's value for a field is nil or empty, that
// field's similarity is exactly 0.0 regardless of the other value. An absent
// value must never contribute evidence of a match, and 0.0 (rather than a
// midpoint) biases the engine toward caution.
type Computer struct {
	embedder *embedding.Cache
	fields   []string
}

// NewComputer creates a similarity computer over the fixed schema, embedding
// through the given cache. The cache is owned by the caller so concurrent
// matching sessions never interfere.
func NewComputer(embedder *embedding.Cache) *Computer {
	return &Computer{
		embedder: embedder,
		fields:   types.FieldOrder(),
	}
}

// Fields returns the field ordering this computer emits.
func (c *Computer) Fields() []string {
	out := make([]string, len(c.fields))
	copy(out, c.fields)
	return out
}

// Compute returns the similarity vector for a record pair. It is symmetric
// (Compute(a,b) == Compute(b,a) field-by-field, since cosine is symmetric)
// and pure apart from the embedding cache.
//
// Fails with ErrInvalidRecord if either record lacks one of the schema field
// keys entirely.
func (c *Computer) Compute(ctx context.Context, a, b types.Record) (types.SimilarityVector, error) {
	if err := c.validate(a); err != nil {
		return nil, err
	}
	if err := c.validate(b); err != nil {
		return nil, err
	}

	vector := make(types.SimilarityVector, len(c.fields))
	for i, field := range c.fields {
		va := a.Fields[field]
		vb := b.Fields[field]

		// Missing on either side masks the field to exactly 0.
		if va == nil || vb == nil || *va == "" || *vb == "" {
			vector[i] = 0.0
			continue
		}

		ea, err := c.embedder.Embed(ctx, *va)
		if err != nil {
			return nil, fmt.Errorf("embedding field %q of record %q: %w", field, a.ID, err)
		}
		eb, err := c.embedder.Embed(ctx, *vb)
		if err != nil {
			return nil, fmt.Errorf("embedding field %q of record %q: %w", field, b.ID, err)
		}

		vector[i] = clampUnit(cosineSimilarity(ea, eb))
	}
	return vector, nil
}

// validate checks that every schema field key exists on the record. A nil
// value is legal (collected but missing); an absent key is not.
func (c *Computer) validate(rec types.Record) error {
	for _, field := range c.fields {
		if _, ok := rec.Fields[field]; !ok {
			return fmt.Errorf("%w: record %q is missing field key %q", ErrInvalidRecord, rec.ID, field)
		}
	}
	return nil
}

// cosineSimilarity computes cosine similarity between two equal-length
// vectors. Returns 0 if either vector has zero magnitude or lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clampUnit clips a cosine value into [0,1]. Values above 1 can occur from
// floating-point rounding on identical vectors.
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
