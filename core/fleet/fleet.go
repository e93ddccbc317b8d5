// Package fleet declares the external collaborators consumed by the dispatch
// engine: the fleet registry, the path planner and the base-location provider.
// Implementations live under infra/.
package fleet

import (
	"context"
	"errors"

	"github.com/skyfleet/skyfleet/core/model"
)

var (
	// ErrNoBase is returned by a BaseProvider when no base is configured.
	ErrNoBase = errors.New("no base location configured")
	// ErrVehicleNotFound is returned when a vehicle id is unknown.
	ErrVehicleNotFound = errors.New("vehicle not found")
)

// Registry supplies the vehicles of the fleet and their static profiles.
type Registry interface {
	ListVehicles(ctx context.Context) ([]model.Vehicle, error)
	// GetVehicle returns false when the id is unknown.
	GetVehicle(ctx context.Context, id string) (model.Vehicle, bool, error)
}

// Planner computes per-vehicle flight paths for a set of deliveries.
// An empty result signals planning failure.
type Planner interface {
	PlanPaths(ctx context.Context, recs []model.DispatchRecord) ([]model.VehiclePlan, error)
}

// PlannerFunc adapts a function to the Planner interface.
type PlannerFunc func(ctx context.Context, recs []model.DispatchRecord) ([]model.VehiclePlan, error)

// PlanPaths calls f.
func (f PlannerFunc) PlanPaths(ctx context.Context, recs []model.DispatchRecord) ([]model.VehiclePlan, error) {
	return f(ctx, recs)
}

// BaseProvider supplies the launch and return coordinate.
type BaseProvider interface {
	CurrentBase(ctx context.Context) (model.Waypoint, error)
}

// FixedBase is a BaseProvider returning a constant location.
type FixedBase model.Waypoint

// CurrentBase returns the fixed coordinate.
func (b FixedBase) CurrentBase(context.Context) (model.Waypoint, error) {
	return model.Waypoint(b), nil
}

// FindVehicle returns the vehicle with the given id from a listing.
func FindVehicle(vehicles []model.Vehicle, id string) (model.Vehicle, bool) {
	for _, v := range vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return model.Vehicle{}, false
}
