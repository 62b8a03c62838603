package pose

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/lumenfield/mirrorwall/internal/config"
)

// MatchParams holds identity-matching configuration.
type MatchParams struct {
	// DistanceThreshold is the maximum anchor distance, in the same
	// screen-normalized units as joint positions, at which a current
	// skeleton may claim a previous slot. Calibrated to "the same person
	// could not have moved further than this in one frame".
	DistanceThreshold float64

	// MinJointConfidence gates which anchor joints participate in the
	// cost computation.
	MinJointConfidence float64
}

// MatchParamsFromTuning extracts matching parameters from the live tuning
// config.
func MatchParamsFromTuning(t *config.Tuning) MatchParams {
	return MatchParams{
		DistanceThreshold:  t.GetMatchDistanceThreshold(),
		MinJointConfidence: t.GetMinJointConfidence(),
	}
}

// forbiddenCost marks a pair with no jointly-confident anchors or a distance
// beyond the gate.
const forbiddenCost = math.MaxFloat64 / 4

// Matcher assigns the current frame's skeletons to the previous frame's
// person slots. The result is indexed by current skeleton: result[i] is the
// matched slot index, or -1 when skeleton i starts a new slot. Each slot is
// claimed at most once.
type Matcher interface {
	Match(previous, current []Skeleton, p MatchParams) []int
}

// NewMatcher returns the matcher for the configured algorithm name. Unknown
// names fall back to greedy.
func NewMatcher(algorithm string) Matcher {
	if algorithm == "hungarian" {
		return HungarianMatcher{}
	}
	return GreedyMatcher{}
}

// anchorCost is the mean Euclidean distance over anchor joints confidently
// observed in both skeletons, or forbiddenCost when they share none.
func anchorCost(prev, cur *Skeleton, minConfidence float64) float64 {
	var dists []float64
	for _, name := range AnchorJoints {
		jp, okP := prev.Joint(name, minConfidence)
		jc, okC := cur.Joint(name, minConfidence)
		if !okP || !okC {
			continue
		}
		dists = append(dists, dist(jp.X, jp.Y, jc.X, jc.Y))
	}
	if len(dists) == 0 {
		return forbiddenCost
	}
	return stat.Mean(dists, nil)
}

func costMatrix(previous, current []Skeleton, p MatchParams) [][]float64 {
	cost := make([][]float64, len(current))
	for ci := range current {
		cost[ci] = make([]float64, len(previous))
		for si := range previous {
			c := anchorCost(&previous[si], &current[ci], p.MinJointConfidence)
			if c > p.DistanceThreshold {
				c = forbiddenCost
			}
			cost[ci][si] = c
		}
	}
	return cost
}

// GreedyMatcher implements the deliberate simplicity/latency trade-off from
// the original installation: each previous slot, in slot-index order, claims
// the cheapest still-unclaimed current skeleton within the distance gate. No
// global optimum; adequate for two or three concurrent people, not for many
// simultaneous close occlusions.
type GreedyMatcher struct{}

// Match implements Matcher.
func (GreedyMatcher) Match(previous, current []Skeleton, p MatchParams) []int {
	result := make([]int, len(current))
	for i := range result {
		result[i] = -1
	}
	if len(previous) == 0 || len(current) == 0 {
		return result
	}

	cost := costMatrix(previous, current, p)
	claimed := make([]bool, len(current))

	for si := range previous {
		best := -1
		bestCost := forbiddenCost
		for ci := range current {
			if claimed[ci] {
				continue
			}
			if cost[ci][si] < bestCost {
				bestCost = cost[ci][si]
				best = ci
			}
		}
		if best >= 0 {
			result[best] = si
			claimed[best] = true
		}
	}
	return result
}

// HungarianMatcher solves the same assignment optimally with the
// Kuhn–Munkres algorithm. Swappable for the greedy matcher when more than a
// few people share the stage; identical contract.
type HungarianMatcher struct{}

// Match implements Matcher.
func (HungarianMatcher) Match(previous, current []Skeleton, p MatchParams) []int {
	result := make([]int, len(current))
	for i := range result {
		result[i] = -1
	}
	if len(previous) == 0 || len(current) == 0 {
		return result
	}

	assign := hungarianAssign(costMatrix(previous, current, p))
	copy(result, assign)
	return result
}
