package dispatch

import "github.com/skyfleet/skyfleet/core/model"

// ChainSegments concatenates the flight paths of consecutive deliveries.
// Segment 0 is kept in full; the first waypoint of every later segment is the
// rendezvous point already ending the previous segment and is dropped.
func ChainSegments(segs []model.DeliverySegment) []model.Waypoint {
	var path []model.Waypoint
	for i, s := range segs {
		fp := s.FlightPath
		if i > 0 && len(fp) > 0 {
			fp = fp[1:]
		}
		path = append(path, fp...)
	}
	return path
}

// segmentLengths returns the raw waypoint count of every segment.
func segmentLengths(segs []model.DeliverySegment) []int {
	out := make([]int, len(segs))
	for i, s := range segs {
		out[i] = len(s.FlightPath)
	}
	return out
}

// currentDelivery returns the zero-based sub-delivery flown at step idx of a
// chained path, walking the segment lengths the same way ChainSegments
// de-duplicates them.
func currentDelivery(lengths []int, idx int) int {
	if len(lengths) == 0 {
		return 0
	}
	cum := 0
	for k, l := range lengths {
		if k > 0 {
			l--
		}
		if l > 0 {
			cum += l
		}
		if idx < cum {
			return k
		}
	}
	return len(lengths) - 1
}

// deliveryPoint returns the first hover point of path: a waypoint nearly
// identical to its successor. Without one the waypoint at fraction of the
// path is used. The result is a display hint only.
func deliveryPoint(path []model.Waypoint, tol, fraction float64) (model.Waypoint, bool) {
	if len(path) == 0 {
		return model.Waypoint{}, false
	}
	for i := 0; i+1 < len(path); i++ {
		if path[i].Near(path[i+1], tol) {
			return path[i], true
		}
	}
	return path[int(float64(len(path))*fraction)], true
}
