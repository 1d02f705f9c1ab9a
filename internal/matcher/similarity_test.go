package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/recordlink/internal/embedding"
	"github.com/scrypster/recordlink/pkg/types"
)

// newTestComputer builds a computer over the deterministic hash embedder so
// similarity values are stable across runs.
func newTestComputer() *Computer {
	return NewComputer(embedding.NewCache(embedding.NewHashEmbedder(128)))
}

// rec builds a schema-complete record from literal values; empty strings
// become missing fields.
func rec(id, cluster string, name, address, city, dob string) types.Record {
	return types.NewRecord(id, cluster, map[string]string{
		types.FieldName:        name,
		types.FieldAddress:     address,
		types.FieldCity:        city,
		types.FieldDateOfBirth: dob,
	})
}

func TestComputeSymmetry(t *testing.T) {
	c := newTestComputer()
	ctx := context.Background()

	a := rec("a", "1", "John Smith", "12 Main St", "Springfield", "1990-01-01")
	b := rec("b", "2", "Jon Smyth", "12 Main Street", "Springfeld", "1990-01-01")

	ab, err := c.Compute(ctx, a, b)
	require.NoError(t, err)
	ba, err := c.Compute(ctx, b, a)
	require.NoError(t, err)

	// Cosine similarity is symmetric, so the vectors must be identical
	// field-by-field, not merely close.
	assert.Equal(t, ab, ba)
}

func TestComputeMissingFieldMasked(t *testing.T) {
	c := newTestComputer()
	ctx := context.Background()

	a := rec("a", "1", "John Smith", "", "Springfield", "1990-01-01")
	b := rec("b", "2", "John Smith", "12 Main St", "", "1990-01-01")

	v, err := c.Compute(ctx, a, b)
	require.NoError(t, err)

	fields := c.Fields()
	for i, field := range fields {
		switch field {
		case types.FieldAddress, types.FieldCity:
			// Missing on one side masks to exactly 0, regardless of the
			// non-missing value.
			assert.Equal(t, 0.0, v[i], "field %s must be masked", field)
		default:
			assert.Greater(t, v[i], 0.9, "field %s is identical on both sides", field)
		}
	}
}

func TestComputeBothMissingMasked(t *testing.T) {
	c := newTestComputer()
	ctx := context.Background()

	a := rec("a", "1", "John Smith", "", "", "")
	b := rec("b", "2", "John Smith", "", "", "")

	v, err := c.Compute(ctx, a, b)
	require.NoError(t, err)

	for i, field := range c.Fields() {
		if field == types.FieldName {
			continue
		}
		assert.Equal(t, 0.0, v[i])
	}
}

func TestComputeSelfSimilarity(t *testing.T) {
	c := newTestComputer()
	ctx := context.Background()

	a := rec("a", "1", "John Smith", "12 Main St", "Springfield", "1990-01-01")

	v, err := c.Compute(ctx, a, a)
	require.NoError(t, err)

	for i, field := range c.Fields() {
		assert.InDelta(t, 1.0, v[i], 1e-9, "self-similarity of field %s", field)
	}
}

func TestComputeRangeBounds(t *testing.T) {
	c := newTestComputer()
	ctx := context.Background()

	a := rec("a", "1", "John Smith", "12 Main St", "Springfield", "1990-01-01")
	b := rec("b", "2", "Xqz Vwky", "99 Zzyzx Rd", "Qyx", "2011-12-30")

	v, err := c.Compute(ctx, a, b)
	require.NoError(t, err)

	for i := range v {
		assert.GreaterOrEqual(t, v[i], 0.0)
		assert.LessOrEqual(t, v[i], 1.0)
	}
}

func TestComputeMissingFieldKey(t *testing.T) {
	c := newTestComputer()
	ctx := context.Background()

	good := rec("a", "1", "John Smith", "12 Main St", "Springfield", "1990-01-01")

	// A record whose Fields map lacks a schema key entirely is malformed —
	// distinct from a present key with a nil value.
	name := "Jane Doe"
	bad := types.Record{
		ID:        "b",
		ClusterID: "2",
		Fields: map[string]*string{
			types.FieldName:    &name,
			types.FieldAddress: nil,
			types.FieldCity:    nil,
			// date_of_birth key absent
		},
	}

	_, err := c.Compute(ctx, good, bad)
	require.ErrorIs(t, err, ErrInvalidRecord)

	_, err = c.Compute(ctx, bad, good)
	require.ErrorIs(t, err, ErrInvalidRecord)
}
