// Package report consumes match results: it computes evaluation metrics
// against ground truth and serializes run reports and trained models as YAML
// for downstream inspection. The matching core never writes anything itself;
// persistence lives here, on the caller's side of the boundary.
package report

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/recordlink/pkg/types"
)

// Summary holds evaluation metrics computed over results that carry ground
// truth. Results without ground truth (production inference mode) are
// skipped and counted in Unlabeled.
type Summary struct {
	Pairs          int     `yaml:"pairs"`
	Unlabeled      int     `yaml:"unlabeled,omitempty"`
	TruePositives  int     `yaml:"true_positives"`
	TrueNegatives  int     `yaml:"true_negatives"`
	FalsePositives int     `yaml:"false_positives"`
	FalseNegatives int     `yaml:"false_negatives"`
	Precision      float64 `yaml:"precision"`
	Recall         float64 `yaml:"recall"`
	F1             float64 `yaml:"f1"`
}

// Evaluate computes confusion counts and precision/recall/F1 over the
// labeled subset of results. Metrics with an empty denominator are reported
// as 0.
func Evaluate(results []types.MatchResult) Summary {
	s := Summary{Pairs: len(results)}

	for _, r := range results {
		if r.GroundTruth == nil {
			s.Unlabeled++
			continue
		}
		switch {
		case r.Match && *r.GroundTruth:
			s.TruePositives++
		case r.Match && !*r.GroundTruth:
			s.FalsePositives++
		case !r.Match && *r.GroundTruth:
			s.FalseNegatives++
		default:
			s.TrueNegatives++
		}
	}

	if denom := s.TruePositives + s.FalsePositives; denom > 0 {
		s.Precision = float64(s.TruePositives) / float64(denom)
	}
	if denom := s.TruePositives + s.FalseNegatives; denom > 0 {
		s.Recall = float64(s.TruePositives) / float64(denom)
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}

// Report is the full YAML run report: parameters, learned field weights,
// summary metrics, and per-pair results.
type Report struct {
	Threshold      float64            `yaml:"threshold"`
	EmbeddingModel string             `yaml:"embedding_model"`
	FieldWeights   map[string]float64 `yaml:"field_weights"`
	Bias           float64            `yaml:"bias"`
	Summary        Summary            `yaml:"summary"`
	Results        []resultYAML       `yaml:"results,omitempty"`
}

// resultYAML is the YAML shape of one match result.
type resultYAML struct {
	RecordA     string  `yaml:"record_a"`
	RecordB     string  `yaml:"record_b"`
	Probability float64 `yaml:"probability"`
	Match       bool    `yaml:"match"`
	GroundTruth *bool   `yaml:"ground_truth,omitempty"`
}

// Build assembles a Report from a model, its decisions, and run parameters.
func Build(model types.TrainedModel, results []types.MatchResult, threshold float64, embeddingModel string) Report {
	r := Report{
		Threshold:      threshold,
		EmbeddingModel: embeddingModel,
		FieldWeights:   model.FieldWeights(),
		Bias:           model.Bias,
		Summary:        Evaluate(results),
	}
	for _, res := range results {
		r.Results = append(r.Results, resultYAML{
			RecordA:     res.RecordA,
			RecordB:     res.RecordB,
			Probability: res.Probability,
			Match:       res.Match,
			GroundTruth: res.GroundTruth,
		})
	}
	return r
}

// Write serializes a report as YAML.
func Write(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("report: failed to encode YAML: %w", err)
	}
	return nil
}

// modelYAML is the on-disk shape of a trained model: a field→weight mapping
// plus the bias. Field order is restored from the canonical schema ordering
// on read, so the document stays human-editable without breaking the
// fixed-ordering invariant.
type modelYAML struct {
	Weights map[string]float64 `yaml:"weights"`
	Bias    float64            `yaml:"bias"`
}

// WriteModel serializes a trained model as YAML.
func WriteModel(w io.Writer, model types.TrainedModel) error {
	doc := modelYAML{Weights: model.FieldWeights(), Bias: model.Bias}
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("report: failed to encode model YAML: %w", err)
	}
	return nil
}

// ReadModel deserializes a trained model from YAML, restoring the canonical
// field ordering. Fails if any schema field's weight is absent.
func ReadModel(r io.Reader) (types.TrainedModel, error) {
	var doc modelYAML
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return types.TrainedModel{}, fmt.Errorf("report: failed to decode model YAML: %w", err)
	}

	fields := types.FieldOrder()
	weights := make([]float64, len(fields))
	for i, f := range fields {
		w, ok := doc.Weights[f]
		if !ok {
			return types.TrainedModel{}, fmt.Errorf("report: model document is missing weight for field %q", f)
		}
		weights[i] = w
	}
	return types.TrainedModel{Fields: fields, Weights: weights, Bias: doc.Bias}, nil
}
