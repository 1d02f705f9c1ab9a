package matcher

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/scrypster/recordlink/pkg/types"
)

// DefaultThreshold is the default match probability cutoff.
const DefaultThreshold = 0.7

// decideConcurrency bounds parallel per-pair scoring. Pair scoring is
// read-only over shared record data, so it parallelizes safely.
const decideConcurrency = 8

// RecordPair is one candidate pair presented to the decision engine.
type RecordPair struct {
	A types.Record
	B types.Record
}

// AllPairs returns every unordered pair of distinct records as candidates.
func AllPairs(records []types.Record) []RecordPair {
	var pairs []RecordPair
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			pairs = append(pairs, RecordPair{A: records[i], B: records[j]})
		}
	}
	return pairs
}

// Engine applies a trained model to candidate pairs and emits match verdicts.
type Engine struct {
	computer *Computer
}

// NewEngine creates a decision engine scoring pairs through the given
// similarity computer.
func NewEngine(computer *Computer) *Engine {
	return &Engine{computer: computer}
}

// Decide scores every candidate pair and returns one MatchResult per
// non-trivial pair, in input order. A pair is labeled a match iff its
// probability is strictly greater than threshold (DefaultThreshold if
// threshold <= 0) — a probability exactly equal to the threshold is not a
// match.
//
// Exact-duplicate pairs (same missingness pattern and identical strings in
// every present field) are excluded from the result set: they carry no
// evidence of the model's discriminative power and would inflate apparent
// accuracy. The exclusion is applied after prediction, so scoring behavior
// is identical with or without them.
//
// Ground truth is attached only when both records carry cluster IDs
// (evaluation mode); in production inference the true identity is unknown
// and the field stays nil.
func (e *Engine) Decide(ctx context.Context, model types.TrainedModel, pairs []RecordPair, threshold float64) ([]types.MatchResult, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	type scored struct {
		result  types.MatchResult
		trivial bool
	}
	results := make([]scored, len(pairs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(decideConcurrency)
	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			vector, err := e.computer.Compute(ctx, pair.A, pair.B)
			if err != nil {
				return err
			}
			prob, err := Predict(model, vector)
			if err != nil {
				return err
			}

			r := types.MatchResult{
				RecordA:     pair.A.ID,
				RecordB:     pair.B.ID,
				Probability: prob,
				Match:       prob > threshold,
			}
			if pair.A.ClusterID != "" && pair.B.ClusterID != "" {
				truth := pair.A.ClusterID == pair.B.ClusterID
				r.GroundTruth = &truth
			}

			results[i] = scored{result: r, trivial: exactDuplicate(pair.A, pair.B)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]types.MatchResult, 0, len(results))
	for _, s := range results {
		if s.trivial {
			continue
		}
		out = append(out, s.result)
	}
	return out, nil
}

// exactDuplicate reports whether two records have identical strings in every
// present field and the same missingness pattern. A field present on one
// side only makes the pair non-trivial. Empty strings count as missing, the
// same normalization the similarity computer applies.
func exactDuplicate(a, b types.Record) bool {
	for _, field := range types.FieldOrder() {
		va := presentValue(a.Fields[field])
		vb := presentValue(b.Fields[field])
		switch {
		case va == nil && vb == nil:
			continue
		case va == nil || vb == nil:
			return false
		case *va != *vb:
			return false
		}
	}
	return true
}

// presentValue normalizes a field value: nil and empty both mean missing.
func presentValue(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}
