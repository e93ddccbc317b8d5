package dispatch

import (
	"gonum.org/v1/gonum/floats"

	"github.com/skyfleet/skyfleet/core/model"
)

// distance returns the Euclidean distance between two coordinates.
func distance(a, b model.Waypoint) float64 {
	return floats.Distance([]float64{a.Lng, a.Lat}, []float64{b.Lng, b.Lat}, 2)
}

// progress returns the normalized progress of step i on a path of n waypoints.
func progress(i, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(i) / float64(n)
}

// singleStatus derives the status of a single-delivery mission at step i.
// The last two waypoints take precedence over the progress bands.
func singleStatus(i, n int) model.Status {
	p := progress(i, n)
	switch {
	case i >= n-2:
		return model.StatusDelivering
	case p < 0.10:
		return model.StatusDeploying
	case p > 0.55 && p < 0.95:
		return model.StatusReturning
	default:
		return model.StatusFlying
	}
}

// batchStatus derives the status of a chained batch mission at step i.
func batchStatus(i, n int) model.Status {
	p := progress(i, n)
	switch {
	case p < 0.10:
		return model.StatusDeploying
	case p < 0.20:
		return model.StatusFlying
	case p < 0.95:
		return model.StatusDelivering
	default:
		return model.StatusReturning
	}
}

// aggregate merges the requirements of every record.
func aggregate(recs []model.DispatchRecord) model.Requirements {
	var agg model.Requirements
	for _, r := range recs {
		agg = agg.Merge(r.Requirements)
	}
	return agg
}

// freeVehicles returns the unreserved vehicles that have a capability profile.
func freeVehicles(vehicles []model.Vehicle, reserved func(string) bool) []model.Vehicle {
	out := make([]model.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Capability != nil && !reserved(v.ID) {
			out = append(out, v)
		}
	}
	return out
}

func pick(vehicles []model.Vehicle, ids []string) []model.Vehicle {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]model.Vehicle, 0, len(ids))
	for _, v := range vehicles {
		if _, ok := want[v.ID]; ok {
			out = append(out, v)
		}
	}
	return out
}
