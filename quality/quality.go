// Package quality picks one stream variant out of the candidates a strategy offers.
package quality

import (
	"github.com/offtube/offtube/source"
	"github.com/samber/mo"
)

// Select returns the best candidate for target.
//
// Only mp4 candidates are considered unless there are none. An exact
// resolution match wins immediately, then the highest resolution below
// target, then the highest resolution overall.
func Select(candidates []source.StreamCandidate, target int) mo.Option[source.StreamCandidate] {
	if i := SelectIndex(candidates, target); i >= 0 {
		return mo.Some(candidates[i])
	}
	return mo.None[source.StreamCandidate]()
}

// SelectIndex is Select returning the index into candidates, or -1 when empty.
func SelectIndex(candidates []source.StreamCandidate, target int) int {
	pool := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if c.Container == source.MP4 {
			pool = append(pool, i)
		}
	}

	if len(pool) == 0 {
		for i := range candidates {
			pool = append(pool, i)
		}
	}

	below, best := -1, -1
	for _, i := range pool {
		rank := candidates[i].QualityRank
		if rank == target {
			return i
		}

		if rank < target && (below < 0 || rank > candidates[below].QualityRank) {
			below = i
		}

		if best < 0 || rank > candidates[best].QualityRank {
			best = i
		}
	}

	if below >= 0 {
		return below
	}
	return best
}
