package types

import "math"

// TrainedModel is a fitted logistic match classifier: one weight per schema
// field plus a bias. Models are immutable after training — retraining always
// produces a new value — so they are safe to share across goroutines.
type TrainedModel struct {
	Fields  []string  `json:"fields"`  // Field names, in training order
	Weights []float64 `json:"weights"` // One coefficient per field
	Bias    float64   `json:"bias"`    // Intercept
}

// FieldWeights returns the learned coefficients keyed by field name so
// callers can rank field importance (e.g. name vs. date of birth).
func (m TrainedModel) FieldWeights() map[string]float64 {
	out := make(map[string]float64, len(m.Fields))
	for i, f := range m.Fields {
		out[f] = m.Weights[i]
	}
	return out
}

// Score computes the raw linear score (weights · vector + bias) without
// length checking. Callers that need validation use matcher.Predict.
func (m TrainedModel) Score(v SimilarityVector) float64 {
	s := m.Bias
	for i, w := range m.Weights {
		s += w * v[i]
	}
	return s
}

// Sigmoid maps a raw score to a probability in (0,1).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
