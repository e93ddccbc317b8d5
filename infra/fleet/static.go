// Package fleet provides in-process fleet registries.
package fleet

import (
	"context"
	"fmt"
	"sync"

	corefleet "github.com/skyfleet/skyfleet/core/fleet"
	"github.com/skyfleet/skyfleet/core/model"
)

// StaticRegistry serves a fixed list of vehicles, typically loaded from config.
type StaticRegistry struct {
	mu       sync.RWMutex
	vehicles []model.Vehicle
}

var _ corefleet.Registry = (*StaticRegistry)(nil)

// NewStaticRegistry validates the vehicles and rejects duplicate ids.
func NewStaticRegistry(vehicles []model.Vehicle) (*StaticRegistry, error) {
	seen := make(map[string]struct{}, len(vehicles))
	for _, v := range vehicles {
		if err := v.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[v.ID]; dup {
			return nil, fmt.Errorf("duplicate vehicle id %s", v.ID)
		}
		seen[v.ID] = struct{}{}
	}
	return &StaticRegistry{vehicles: cloneVehicles(vehicles)}, nil
}

// ListVehicles returns a copy of the fleet in configuration order.
func (r *StaticRegistry) ListVehicles(context.Context) ([]model.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneVehicles(r.vehicles), nil
}

// GetVehicle returns the vehicle with the given id.
func (r *StaticRegistry) GetVehicle(_ context.Context, id string) (model.Vehicle, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := corefleet.FindVehicle(r.vehicles, id)
	if ok {
		v = cloneVehicle(v)
	}
	return v, ok, nil
}

// Upsert adds or replaces a vehicle.
func (r *StaticRegistry) Upsert(v model.Vehicle) error {
	if err := v.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.vehicles {
		if r.vehicles[i].ID == v.ID {
			r.vehicles[i] = cloneVehicle(v)
			return nil
		}
	}
	r.vehicles = append(r.vehicles, cloneVehicle(v))
	return nil
}

// cloneVehicle copies the capability so callers cannot mutate the registry.
func cloneVehicle(v model.Vehicle) model.Vehicle {
	if v.Capability != nil {
		c := *v.Capability
		v.Capability = &c
	}
	return v
}

func cloneVehicles(vs []model.Vehicle) []model.Vehicle {
	out := make([]model.Vehicle, len(vs))
	for i, v := range vs {
		out[i] = cloneVehicle(v)
	}
	return out
}

// DemoVehicles is the fleet used by the simulate command when no fleet is configured.
func DemoVehicles() []model.Vehicle {
	return []model.Vehicle{
		{ID: "1", Name: "Drone 1", Capability: &model.Capability{Capacity: 4, MaxMoves: 2000, Cooling: true, CostPerMove: 0.01}},
		{ID: "2", Name: "Drone 2", Capability: &model.Capability{Capacity: 8, MaxMoves: 1000, Heating: true, CostPerMove: 0.03}},
		{ID: "3", Name: "Drone 3", Capability: &model.Capability{Capacity: 20, MaxMoves: 4000, CostPerMove: 0.05}},
		{ID: "4", Name: "Drone 4", Capability: &model.Capability{Capacity: 8, MaxMoves: 1000, Cooling: true, Heating: true, CostPerMove: 0.02}},
		{ID: "5", Name: "Drone 5", Capability: &model.Capability{Capacity: 12, MaxMoves: 1500, Cooling: true, CostPerMove: 0.02}},
	}
}
