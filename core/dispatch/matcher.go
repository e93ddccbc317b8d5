package dispatch

import "github.com/skyfleet/skyfleet/core/model"

// MatchCapable returns the ids of the vehicles that are not reserved, have a
// capability profile and satisfy req. Capacity is compared with tolerance.
// An empty result is a normal outcome.
func MatchCapable(vehicles []model.Vehicle, reserved func(id string) bool, req model.Requirements, tolerance float64) []string {
	var ids []string
	for _, v := range vehicles {
		if reserved != nil && reserved(v.ID) {
			continue
		}
		if !v.Satisfies(req, tolerance) {
			continue
		}
		ids = append(ids, v.ID)
	}
	return ids
}
