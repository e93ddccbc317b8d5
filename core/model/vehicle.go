package model

import (
	"fmt"
	"math"
)

// Waypoint is a single (longitude, latitude) coordinate of a flight path.
type Waypoint struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Near reports whether both coordinates of w and o differ by at most tol.
func (w Waypoint) Near(o Waypoint, tol float64) bool {
	return math.Abs(w.Lng-o.Lng) <= tol && math.Abs(w.Lat-o.Lat) <= tol
}

// Capability is the static profile of a vehicle supplied by the fleet registry.
type Capability struct {
	Capacity    float64 `json:"capacity"`
	MaxMoves    int     `json:"maxMoves"`
	Cooling     bool    `json:"cooling"`
	Heating     bool    `json:"heating"`
	CostPerMove float64 `json:"costPerMove"`
}

// Vehicle represents a drone registered in the fleet.
// A nil Capability marks a vehicle that cannot be dispatched.
type Vehicle struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Capability *Capability `json:"capability,omitempty"`
}

// Validate checks that the vehicle configuration is sound.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if v.Capability != nil && v.Capability.Capacity < 0 {
		return fmt.Errorf("vehicle %s: capacity must not be negative", v.ID)
	}
	return nil
}

// Capacity returns the vehicle capacity or zero when no profile is known.
func (v Vehicle) Capacity() float64 {
	if v.Capability == nil {
		return 0
	}
	return v.Capability.Capacity
}

// Satisfies returns true if the vehicle profile meets the requirements.
// Capacity is compared with the given tolerance to absorb floating point noise.
func (v Vehicle) Satisfies(req Requirements, tolerance float64) bool {
	c := v.Capability
	if c == nil {
		return false
	}
	if c.Capacity < req.Capacity-tolerance {
		return false
	}
	if req.Cooling && !c.Cooling {
		return false
	}
	if req.Heating && !c.Heating {
		return false
	}
	return true
}
