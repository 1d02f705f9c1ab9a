package matcher

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/recordlink/pkg/types"
)

// imbalancedPairs builds a synthetic 1:5 training set: 4 positives with high
// similarities (some with masked fields) and 20 negatives with low ones.
func imbalancedPairs() []types.LabeledPair {
	pairs := []types.LabeledPair{
		{A: "p1a", B: "p1b", Vector: types.SimilarityVector{0.90, 0.85, 0.80, 1.00}, Match: true},
		{A: "p2a", B: "p2b", Vector: types.SimilarityVector{0.80, 0.00, 0.90, 1.00}, Match: true},
		{A: "p3a", B: "p3b", Vector: types.SimilarityVector{0.95, 0.90, 0.00, 0.90}, Match: true},
		{A: "p4a", B: "p4b", Vector: types.SimilarityVector{0.85, 0.80, 0.85, 0.95}, Match: true},
	}
	for i := 0; i < 20; i++ {
		base := 0.02 * float64(i%6)
		pairs = append(pairs, types.LabeledPair{
			A:      fmt.Sprintf("n%da", i),
			B:      fmt.Sprintf("n%db", i),
			Vector: types.SimilarityVector{base, base / 2, 0.00, base + 0.05},
			Match:  false,
		})
	}
	return pairs
}

func TestTrainBalancedStability(t *testing.T) {
	model, err := Train(imbalancedPairs(), TrainOptions{})
	require.NoError(t, err)

	// Despite the 1:5 imbalance, class balancing must keep strong
	// positives well above 0.5 — an unbalanced fit would drift toward
	// predicting "non-match" for everything.
	strong := types.SimilarityVector{0.95, 0.90, 0.90, 1.00}
	prob, err := Predict(model, strong)
	require.NoError(t, err)
	assert.Greater(t, prob, 0.7)

	weak := types.SimilarityVector{0.02, 0.01, 0.00, 0.05}
	prob, err = Predict(model, weak)
	require.NoError(t, err)
	assert.Less(t, prob, 0.5)
}

func TestTrainModelImmutable(t *testing.T) {
	pairs := imbalancedPairs()

	first, err := Train(pairs, TrainOptions{})
	require.NoError(t, err)
	second, err := Train(pairs, TrainOptions{})
	require.NoError(t, err)

	// Retraining produces a fresh, equal model; nothing mutates in place.
	assert.Equal(t, first, second)
	assert.NotSame(t, &first.Weights[0], &second.Weights[0])
}

func TestTrainFieldWeightRanking(t *testing.T) {
	// Name similarity separates the classes; city similarity is constant
	// noise. The learned name weight must dominate the city weight.
	var pairs []types.LabeledPair
	for i := 0; i < 6; i++ {
		pairs = append(pairs, types.LabeledPair{
			A: fmt.Sprintf("p%da", i), B: fmt.Sprintf("p%db", i),
			Vector: types.SimilarityVector{0.9, 0.1, 0.5, 0.9}, Match: true,
		})
		pairs = append(pairs, types.LabeledPair{
			A: fmt.Sprintf("n%da", i), B: fmt.Sprintf("n%db", i),
			Vector: types.SimilarityVector{0.1, 0.1, 0.5, 0.1}, Match: false,
		})
	}

	model, err := Train(pairs, TrainOptions{})
	require.NoError(t, err)

	weights := model.FieldWeights()
	require.Len(t, weights, types.NumFields())
	assert.Greater(t, weights[types.FieldName], weights[types.FieldCity])
}

func TestTrainInsufficientData(t *testing.T) {
	onlyNegatives := []types.LabeledPair{
		{A: "a", B: "b", Vector: types.SimilarityVector{0.1, 0.1, 0.1, 0.1}, Match: false},
	}
	_, err := Train(onlyNegatives, TrainOptions{})
	require.ErrorIs(t, err, ErrInsufficientData)

	onlyPositives := []types.LabeledPair{
		{A: "a", B: "b", Vector: types.SimilarityVector{0.9, 0.9, 0.9, 0.9}, Match: true},
	}
	_, err = Train(onlyPositives, TrainOptions{})
	require.ErrorIs(t, err, ErrInsufficientData)

	_, err = Train(nil, TrainOptions{})
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestTrainDimensionMismatch(t *testing.T) {
	pairs := imbalancedPairs()
	pairs = append(pairs, types.LabeledPair{
		A: "bad-a", B: "bad-b", Vector: types.SimilarityVector{0.5, 0.5}, Match: true,
	})

	_, err := Train(pairs, TrainOptions{})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestTrainConvergenceError(t *testing.T) {
	// One iteration cannot drive the gradient below tolerance on real
	// data; the failure must be loud, not a degenerate model.
	_, err := Train(imbalancedPairs(), TrainOptions{MaxIterations: 1})
	require.ErrorIs(t, err, ErrConvergence)
}

func TestPredictDimensionMismatch(t *testing.T) {
	model, err := Train(imbalancedPairs(), TrainOptions{})
	require.NoError(t, err)

	_, err = Predict(model, types.SimilarityVector{0.5, 0.5, 0.5})
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Predict(model, types.SimilarityVector{0.5, 0.5, 0.5, 0.5, 0.5})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}
