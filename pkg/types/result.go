package types

// MatchResult is the decision engine's verdict for one candidate pair.
//
// GroundTruth is populated only in evaluation mode, where the record source
// carries cluster IDs; in production inference the true identity is unknown
// and the pointer is nil.
type MatchResult struct {
	RecordA     string  `json:"record_a"`               // ID of the first record
	RecordB     string  `json:"record_b"`               // ID of the second record
	Probability float64 `json:"probability"`            // Predicted match probability
	Match       bool    `json:"match"`                  // Probability strictly above threshold
	GroundTruth *bool   `json:"ground_truth,omitempty"` // Same-cluster label (evaluation only)
}
