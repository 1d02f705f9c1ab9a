package generate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/recordlink/pkg/types"
)

func TestDatasetCounts(t *testing.T) {
	records, err := Dataset(Options{Unique: 50, Duplicates: 10, Seed: 1})
	require.NoError(t, err)
	require.Len(t, records, 60)

	ids := make(map[string]struct{}, len(records))
	for _, r := range records {
		_, dup := ids[r.ID]
		assert.False(t, dup, "duplicate record ID %s", r.ID)
		ids[r.ID] = struct{}{}
	}
}

func TestDatasetDefaults(t *testing.T) {
	records, err := Dataset(Options{})
	require.NoError(t, err)
	assert.Len(t, records, 240)
}

func TestDatasetReproducible(t *testing.T) {
	a, err := Dataset(Options{Unique: 30, Duplicates: 10, Seed: 7})
	require.NoError(t, err)
	b, err := Dataset(Options{Unique: 30, Duplicates: 10, Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Dataset(Options{Unique: 30, Duplicates: 10, Seed: 8})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestDatasetDuplicatesShareCluster(t *testing.T) {
	records, err := Dataset(Options{Unique: 40, Duplicates: 15, Seed: 3})
	require.NoError(t, err)

	originals := make(map[string]types.Record, 40)
	for _, r := range records[:40] {
		// An original's cluster ID is its own record ID.
		assert.Equal(t, r.ID, r.ClusterID)
		originals[r.ClusterID] = r
	}

	for _, dup := range records[40:] {
		orig, ok := originals[dup.ClusterID]
		require.True(t, ok, "duplicate %s points at unknown cluster %s", dup.ID, dup.ClusterID)
		assert.NotEqual(t, orig.ID, dup.ID)
	}
}

func TestDatasetSchemaComplete(t *testing.T) {
	records, err := Dataset(Options{Unique: 20, Duplicates: 5, Seed: 2})
	require.NoError(t, err)

	for _, r := range records {
		for _, field := range types.FieldOrder() {
			_, ok := r.Fields[field]
			assert.True(t, ok, "record %s missing schema key %q", r.ID, field)
		}
		// Name survives missing-data injection on every record.
		require.NotNil(t, r.Value(types.FieldName), "record %s has no name", r.ID)
	}
}

func TestDatasetMissingRate(t *testing.T) {
	records, err := Dataset(Options{Unique: 100, Duplicates: 20, Seed: 5, MissingRate: 1.0})
	require.NoError(t, err)

	for _, r := range records {
		assert.NotNil(t, r.Value(types.FieldName))
		assert.Nil(t, r.Value(types.FieldAddress))
		assert.Nil(t, r.Value(types.FieldCity))
		assert.Nil(t, r.Value(types.FieldDateOfBirth))
	}
}

func TestPerturbSingleEdit(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const text = "John Smith"

	for i := 0; i < 200; i++ {
		got := perturb(rng, text, 1.0)
		diff := len([]rune(got)) - len([]rune(text))
		assert.Contains(t, []int{-1, 0, 1}, diff, "perturb %q -> %q", text, got)
	}

	assert.Equal(t, text, perturb(rng, text, 0.0))
	assert.Equal(t, "", perturb(rng, "", 1.0))
}
