package matcher

import (
	"fmt"
	"math"

	"github.com/scrypster/recordlink/pkg/types"
)

// TrainOptions tune the logistic regression fit. Zero values select the
// defaults below.
type TrainOptions struct {
	// MaxIterations is the gradient descent iteration budget (default 10000).
	MaxIterations int

	// LearningRate is the gradient descent step size (default 0.5).
	LearningRate float64

	// L2 is the regularization strength applied to weights, not the bias
	// (default 0.01). Regularization guarantees a finite optimum even when
	// the classes are linearly separable.
	L2 float64

	// Tolerance is the max-norm gradient threshold below which training is
	// considered converged (default 1e-4).
	Tolerance float64
}

// withDefaults fills in zero-valued options.
func (o TrainOptions) withDefaults() TrainOptions {
	if o.MaxIterations <= 0 {
		o.MaxIterations = 10000
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 0.5
	}
	if o.L2 <= 0 {
		o.L2 = 0.01
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-4
	}
	return o
}

// Train fits a logistic regression model on labeled similarity vectors by
// maximum likelihood with class-balanced weighting: each class's
// contribution to the loss is rescaled inversely proportional to its
// frequency, so the 1:5 positive:negative imbalance from the sampler does
// not bias the model toward "non-match".
//
// The returned model is a fresh value and is never mutated afterwards;
// retraining produces a new model. A failed fit returns an error — never a
// degenerate model.
//
// Fails with ErrInsufficientData if pairs contain no positives (or no
// negatives), with ErrDimensionMismatch if any vector's length differs from
// the schema field count, and with ErrConvergence if the gradient has not
// dropped below tolerance within the iteration budget.
func Train(pairs []types.LabeledPair, opts TrainOptions) (types.TrainedModel, error) {
	opts = opts.withDefaults()
	fields := types.FieldOrder()
	dim := len(fields)

	var nPos, nNeg int
	for _, p := range pairs {
		if len(p.Vector) != dim {
			return types.TrainedModel{}, fmt.Errorf("%w: pair (%s,%s) has %d fields, want %d",
				ErrDimensionMismatch, p.A, p.B, len(p.Vector), dim)
		}
		if p.Match {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 {
		return types.TrainedModel{}, fmt.Errorf("%w: training set has no positive pairs", ErrInsufficientData)
	}
	if nNeg == 0 {
		return types.TrainedModel{}, fmt.Errorf("%w: training set has no negative pairs", ErrInsufficientData)
	}

	// Balanced class weights: n / (2 * class_count), so each class
	// contributes half the total loss regardless of its frequency.
	n := float64(len(pairs))
	classWeight := map[bool]float64{
		true:  n / (2 * float64(nPos)),
		false: n / (2 * float64(nNeg)),
	}

	weights := make([]float64, dim)
	bias := 0.0
	grad := make([]float64, dim)

	converged := false
	for iter := 0; iter < opts.MaxIterations; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradBias := 0.0

		for _, p := range pairs {
			score := bias
			for j, w := range weights {
				score += w * p.Vector[j]
			}
			prob := types.Sigmoid(score)

			y := 0.0
			if p.Match {
				y = 1.0
			}
			residual := classWeight[p.Match] * (prob - y)

			for j := range grad {
				grad[j] += residual * p.Vector[j]
			}
			gradBias += residual
		}

		// Mean gradient plus L2 term (bias unregularized).
		maxGrad := 0.0
		for j := range grad {
			grad[j] = grad[j]/n + opts.L2*weights[j]
			if g := math.Abs(grad[j]); g > maxGrad {
				maxGrad = g
			}
		}
		gradBias /= n
		if g := math.Abs(gradBias); g > maxGrad {
			maxGrad = g
		}

		if maxGrad < opts.Tolerance {
			converged = true
			break
		}

		for j := range weights {
			weights[j] -= opts.LearningRate * grad[j]
		}
		bias -= opts.LearningRate * gradBias
	}

	if !converged {
		return types.TrainedModel{}, fmt.Errorf("%w: gradient above tolerance %g after %d iterations",
			ErrConvergence, opts.Tolerance, opts.MaxIterations)
	}

	return types.TrainedModel{Fields: fields, Weights: weights, Bias: bias}, nil
}

// Predict returns the match probability for a similarity vector under a
// trained model: sigmoid(weights · vector + bias). Pure function.
//
// Fails with ErrDimensionMismatch if the vector's length differs from the
// model's trained field count; it never silently truncates or pads.
func Predict(model types.TrainedModel, vector types.SimilarityVector) (float64, error) {
	if len(vector) != len(model.Weights) {
		return 0, fmt.Errorf("%w: vector has %d fields, model trained on %d",
			ErrDimensionMismatch, len(vector), len(model.Weights))
	}
	return types.Sigmoid(model.Score(vector)), nil
}
