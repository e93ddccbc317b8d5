package dispatch

import (
	"math"

	"github.com/skyfleet/skyfleet/core/model"
)

// SelectVehicle scores every candidate with
// distance(base, target) - capacity*capacityWeight and returns the first
// candidate with the minimum score.
func SelectVehicle(candidates []model.Vehicle, target, base model.Waypoint, capacityWeight float64) (model.Vehicle, bool) {
	if len(candidates) == 0 {
		return model.Vehicle{}, false
	}
	d := distance(base, target)
	best := 0
	bestScore := math.Inf(1)
	for i, v := range candidates {
		score := d - v.Capacity()*capacityWeight
		if score < bestScore {
			best, bestScore = i, score
		}
	}
	return candidates[best], true
}

// SelectAlternative picks a substitute among free vehicles for a planned
// batch route whose vehicle is no longer available. The records are merged
// into one requirement and the vehicle minimizing
// |capacity - aggregate| + costPerMove*costWeight wins.
func SelectAlternative(recs []model.DispatchRecord, free []model.Vehicle, tolerance, costWeight float64) (model.Vehicle, bool) {
	agg := aggregate(recs)
	var (
		best      model.Vehicle
		bestScore = math.Inf(1)
		found     bool
	)
	for _, v := range free {
		if !v.Satisfies(agg, tolerance) {
			continue
		}
		score := math.Abs(v.Capability.Capacity-agg.Capacity) + v.Capability.CostPerMove*costWeight
		if score < bestScore {
			best, bestScore, found = v, score, true
		}
	}
	return best, found
}
