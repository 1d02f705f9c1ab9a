package matcher

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/recordlink/pkg/types"
)

// testModel returns a hand-built model with known weights, so decision tests
// do not depend on training.
func testModel() types.TrainedModel {
	return types.TrainedModel{
		Fields:  types.FieldOrder(),
		Weights: []float64{3.0, 1.5, 1.0, 2.5},
		Bias:    -4.0,
	}
}

func TestDecideThresholdBoundary(t *testing.T) {
	c := newTestComputer()
	engine := NewEngine(c)
	ctx := context.Background()
	model := testModel()

	a := rec("a", "", "John Smith", "12 Main St", "Springfield", "1990-01-01")
	b := rec("b", "", "Jon Smyth", "12 Main St", "Springfield", "1990-01-01")
	pairs := []RecordPair{{A: a, B: b}}

	vector, err := c.Compute(ctx, a, b)
	require.NoError(t, err)
	prob, err := Predict(model, vector)
	require.NoError(t, err)

	// Threshold exactly equal to the predicted probability: strict
	// greater-than means NOT a match.
	results, err := engine.Decide(ctx, model, pairs, prob)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, prob, results[0].Probability)
	assert.False(t, results[0].Match)

	// Any threshold below the probability flips it to a match.
	results, err = engine.Decide(ctx, model, pairs, math.Nextafter(prob, 0))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Match)
}

func TestDecideTrivialPairExcluded(t *testing.T) {
	engine := NewEngine(newTestComputer())
	ctx := context.Background()

	dup1 := rec("d1", "c1", "John Smith", "12 Main St", "", "1990-01-01")
	dup2 := rec("d2", "c1", "John Smith", "12 Main St", "", "1990-01-01")
	other := rec("o1", "c2", "Alice Brown", "3 Elm St", "Franklin", "1970-03-03")

	results, err := engine.Decide(ctx, testModel(), AllPairs([]types.Record{dup1, dup2, other}), DefaultThreshold)
	require.NoError(t, err)

	// The exact-duplicate pair (d1,d2) would score far above threshold,
	// which is precisely why it must not appear in the output.
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.RecordA == "d1" && r.RecordB == "d2")
	}
}

func TestDecideNearDuplicateKept(t *testing.T) {
	engine := NewEngine(newTestComputer())
	ctx := context.Background()

	// Identical in every shared field, but city is present on one side
	// only: missingness patterns differ, so the pair is not trivial.
	a := rec("a", "c1", "John Smith", "12 Main St", "Springfield", "1990-01-01")
	b := rec("b", "c1", "John Smith", "12 Main St", "", "1990-01-01")

	results, err := engine.Decide(ctx, testModel(), []RecordPair{{A: a, B: b}}, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestDecideGroundTruthModes(t *testing.T) {
	engine := NewEngine(newTestComputer())
	ctx := context.Background()

	// Evaluation mode: both records carry cluster IDs.
	a := rec("a", "c1", "John Smith", "", "", "1990-01-01")
	b := rec("b", "c1", "Jon Smyth", "", "", "1990-01-01")
	d := rec("d", "c2", "Alice Brown", "", "", "1970-03-03")

	results, err := engine.Decide(ctx, testModel(), []RecordPair{{A: a, B: b}, {A: a, B: d}}, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NotNil(t, results[0].GroundTruth)
	assert.True(t, *results[0].GroundTruth)
	require.NotNil(t, results[1].GroundTruth)
	assert.False(t, *results[1].GroundTruth)

	// Production inference mode: no cluster IDs, no ground truth.
	p1 := rec("p1", "", "John Smith", "", "", "1990-01-01")
	p2 := rec("p2", "", "Jon Smyth", "", "", "1990-01-01")

	results, err = engine.Decide(ctx, testModel(), []RecordPair{{A: p1, B: p2}}, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].GroundTruth)
}

func TestDecidePreservesInputOrder(t *testing.T) {
	engine := NewEngine(newTestComputer())
	ctx := context.Background()

	records := []types.Record{
		rec("r1", "", "John Smith", "", "", "1990-01-01"),
		rec("r2", "", "Mary Jones", "", "", "1985-05-05"),
		rec("r3", "", "Alice Brown", "", "", "1970-03-03"),
	}
	pairs := AllPairs(records)

	results, err := engine.Decide(ctx, testModel(), pairs, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, results, len(pairs))

	// Per-pair scoring is parallel internally, but the emitted sequence
	// follows the candidate order.
	for i, p := range pairs {
		assert.Equal(t, p.A.ID, results[i].RecordA)
		assert.Equal(t, p.B.ID, results[i].RecordB)
	}
}

func TestAllPairs(t *testing.T) {
	records := []types.Record{
		rec("r1", "", "A", "", "", ""),
		rec("r2", "", "B", "", "", ""),
		rec("r3", "", "C", "", "", ""),
		rec("r4", "", "D", "", "", ""),
	}
	assert.Len(t, AllPairs(records), 6)
	assert.Empty(t, AllPairs(records[:1]))
}
