package matcher

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/scrypster/recordlink/pkg/types"
)

// DefaultNegativeRatio is the default number of negative pairs sampled per
// positive pair.
const DefaultNegativeRatio = 5

// Sampler builds labeled training sets of record pairs: every same-cluster
// combination as a positive, plus seeded random cross-cluster negatives.
type Sampler struct {
	computer *Computer
}

// NewSampler creates a sampler that computes pair similarity through the
// given computer.
func NewSampler(computer *Computer) *Sampler {
	return &Sampler{computer: computer}
}

// BuildTrainingSet returns labeled pairs for the given records.
//
// Positives are every unordered pair of distinct records sharing a cluster
// ID (one pair per combination). Negatives are unordered cross-cluster pairs
// sampled without replacement, negativeRatio per positive (DefaultNegativeRatio
// if <= 0). The seed makes sampling — and therefore training — reproducible;
// independent calls with the same seed and records yield the same set.
//
// Fails with ErrInsufficientData when no positive pairs exist: a cluster with
// a single record contributes none, and training on zero positives is
// meaningless.
func (s *Sampler) BuildTrainingSet(ctx context.Context, records []types.Record, negativeRatio int, seed int64) ([]types.LabeledPair, error) {
	if negativeRatio <= 0 {
		negativeRatio = DefaultNegativeRatio
	}

	var pairs []types.LabeledPair

	// Positive pairs: all same-cluster combinations. Records without a
	// cluster ID are unlabeled and contribute no training pairs.
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			if records[i].ClusterID == "" || records[i].ClusterID != records[j].ClusterID {
				continue
			}
			pair, err := s.labeledPair(ctx, records[i], records[j], true)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, pair)
		}
	}

	positives := len(pairs)
	if positives == 0 {
		return nil, fmt.Errorf("%w: no positive pairs among %d records", ErrInsufficientData, len(records))
	}

	// Negative pairs: seeded random cross-cluster combinations, without
	// replacement within this build.
	rng := rand.New(rand.NewSource(seed))
	wanted := positives * negativeRatio
	sampled := make(map[[2]int]struct{}, wanted)

	// Cap attempts so degenerate inputs (too few cross-cluster pairs to
	// satisfy the ratio) terminate with however many negatives exist.
	maxAttempts := wanted * 50
	for len(sampled) < wanted && maxAttempts > 0 {
		maxAttempts--
		i := rng.Intn(len(records))
		j := rng.Intn(len(records))
		if i == j {
			continue
		}
		if i > j {
			i, j = j, i
		}
		if records[i].ClusterID == "" || records[j].ClusterID == "" ||
			records[i].ClusterID == records[j].ClusterID {
			continue
		}
		key := [2]int{i, j}
		if _, ok := sampled[key]; ok {
			continue
		}
		sampled[key] = struct{}{}

		pair, err := s.labeledPair(ctx, records[i], records[j], false)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}

	return pairs, nil
}

// labeledPair computes the similarity vector for one pair and attaches its
// label.
func (s *Sampler) labeledPair(ctx context.Context, a, b types.Record, match bool) (types.LabeledPair, error) {
	vector, err := s.computer.Compute(ctx, a, b)
	if err != nil {
		return types.LabeledPair{}, err
	}
	return types.LabeledPair{A: a.ID, B: b.ID, Vector: vector, Match: match}, nil
}
