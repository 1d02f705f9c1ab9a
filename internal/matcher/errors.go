// Package matcher implements the record-matching engine: per-field
// similarity computation with missing-field masking, training-pair sampling,
// class-balanced logistic regression, and threshold-based decisioning.
package matcher

import "errors"

// All matcher failures are local, recoverable-by-caller conditions. Callers
// match them with errors.Is and decide whether to retry with different
// parameters or abort the batch; the engine itself never retries.
var (
	// ErrInvalidRecord indicates a record is missing one of the schema
	// field keys entirely (as opposed to carrying a nil value, which is a
	// legal missing field).
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInsufficientData indicates the sampler found zero positive pairs,
	// making training meaningless.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrConvergence indicates model fitting did not converge within the
	// iteration budget. Callers may retry with adjusted regularization or a
	// larger budget.
	ErrConvergence = errors.New("training did not converge")

	// ErrDimensionMismatch indicates a prediction-time similarity vector
	// whose length differs from the model's trained field count.
	ErrDimensionMismatch = errors.New("similarity vector dimension mismatch")
)
