package search

import (
	"errors"
	"math/rand"
	"sort"

	"github.com/pithecene-io/grove/types"
)

// ErrNoEligibleParent is returned when Select is called with an empty
// eligible set. The chooser guarantees this cannot happen for the action
// it picks, so seeing this error means an engine invariant was violated.
var ErrNoEligibleParent = errors.New("search: no eligible parent")

// Policy selects one parent from an eligible candidate set using
// best-first ranking.
//
// Ranking: better metric first (per direction), then shallower depth,
// then earlier creation order. Nodes without a metric (the debug set)
// rank below any node with one and fall through to the tie-breaks, so
// selection is deterministic and reproducible for a fixed journal state.
type Policy struct {
	direction   types.MetricDirection
	exploreProb float64
}

// NewPolicy creates a best-first policy. exploreProb > 0 enables the
// exploration allowance: with that probability a non-top-ranked node is
// selected instead, drawn from the supplied RNG so a fixed seed still
// replays identically.
func NewPolicy(direction types.MetricDirection, exploreProb float64) *Policy {
	return &Policy{direction: direction, exploreProb: exploreProb}
}

// Select returns the chosen parent from the eligible set.
// The eligible slice is not mutated.
func (p *Policy) Select(rng *rand.Rand, eligible []types.Node) (types.Node, error) {
	if len(eligible) == 0 {
		return types.Node{}, ErrNoEligibleParent
	}

	ranked := make([]types.Node, len(eligible))
	copy(ranked, eligible)
	sort.SliceStable(ranked, func(i, j int) bool {
		return p.ranksAbove(ranked[i], ranked[j])
	})

	if p.exploreProb > 0 && len(ranked) > 1 && rng.Float64() < p.exploreProb {
		// Explore: uniform draw among the non-top candidates.
		return ranked[1+rng.Intn(len(ranked)-1)], nil
	}
	return ranked[0], nil
}

// ranksAbove reports whether a outranks b.
func (p *Policy) ranksAbove(a, b types.Node) bool {
	switch {
	case a.Metric != nil && b.Metric == nil:
		return true
	case a.Metric == nil && b.Metric != nil:
		return false
	case a.Metric != nil && b.Metric != nil:
		if p.direction.Better(*a.Metric, *b.Metric) {
			return true
		}
		if p.direction.Better(*b.Metric, *a.Metric) {
			return false
		}
	}
	if a.Depth != b.Depth {
		return a.Depth < b.Depth
	}
	return a.CreationOrder < b.CreationOrder
}
