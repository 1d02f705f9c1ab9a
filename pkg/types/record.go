// Package types defines the shared data model for the recordlink engine:
// PII records, per-field similarity vectors, labeled training pairs, trained
// models, and match results. It has no dependencies on the engine packages so
// that storage backends and reporting can consume it directly.
package types

// Canonical schema field names. The matcher is designed against this fixed
// set; FieldOrder returns them in the one ordering used everywhere.
const (
	FieldName        = "name"
	FieldAddress     = "address"
	FieldCity        = "city"
	FieldDateOfBirth = "date_of_birth"
)

// fieldOrder is the fixed column ordering for similarity vectors and model
// weights. Training and inference must agree on this ordering or the learned
// weights stop being field-attributable, so it is defined exactly once here.
var fieldOrder = []string{FieldName, FieldAddress, FieldCity, FieldDateOfBirth}

// FieldOrder returns the fixed schema field ordering. The returned slice is a
// copy; callers may not reorder the engine's view of the schema.
func FieldOrder() []string {
	out := make([]string, len(fieldOrder))
	copy(out, fieldOrder)
	return out
}

// NumFields is the number of schema fields (the length of every similarity vector).
func NumFields() int { return len(fieldOrder) }

// Record is a single PII record.
//
// Fields maps a schema field name to its value. A nil value means the field
// was collected but is missing (the matcher masks it); a key that is absent
// entirely means the record does not conform to the schema and is rejected.
// ClusterID is the ground-truth identity grouping, used only for training and
// evaluation — it is never consulted at inference time.
type Record struct {
	ID        string             `json:"id"`         // Stable opaque identifier
	ClusterID string             `json:"cluster_id"` // Ground-truth identity (evaluation only)
	Fields    map[string]*string `json:"fields"`     // Field name → optional value (nil = missing)
}

// Value returns the value of a schema field, or nil when the field is
// missing. Schema conformance (every key present) is checked by the matcher,
// not here.
func (r Record) Value(field string) *string {
	return r.Fields[field]
}

// NewRecord builds a record with all schema keys present. Entries of values
// that are empty strings are stored as nil so "collected as empty" and
// "missing" normalize to the same masked state.
func NewRecord(id, clusterID string, values map[string]string) Record {
	fields := make(map[string]*string, len(fieldOrder))
	for _, f := range fieldOrder {
		if v, ok := values[f]; ok && v != "" {
			val := v
			fields[f] = &val
		} else {
			fields[f] = nil
		}
	}
	return Record{ID: id, ClusterID: clusterID, Fields: fields}
}

// SimilarityVector holds one similarity score per schema field, in FieldOrder
// ordering. Each entry is in [0,1]; a masked (missing) field is exactly 0.
type SimilarityVector []float64

// LabeledPair is one training example: the similarity vector of a record pair
// plus whether the two records share a ground-truth cluster.
type LabeledPair struct {
	A      string           `json:"a"`      // Record ID of the first member
	B      string           `json:"b"`      // Record ID of the second member
	Vector SimilarityVector `json:"vector"` // Per-field similarity, FieldOrder ordering
	Match  bool             `json:"match"`  // True iff both records share a cluster ID
}
