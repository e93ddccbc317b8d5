package dispatch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/skyfleet/skyfleet/core/events"
	"github.com/skyfleet/skyfleet/core/fleet"
	"github.com/skyfleet/skyfleet/core/model"
)

type staticFleet struct {
	vehicles []model.Vehicle
}

func (f staticFleet) ListVehicles(context.Context) ([]model.Vehicle, error) {
	return append([]model.Vehicle(nil), f.vehicles...), nil
}

func (f staticFleet) GetVehicle(_ context.Context, id string) (model.Vehicle, bool, error) {
	for _, v := range f.vehicles {
		if v.ID == id {
			return v, true, nil
		}
	}
	return model.Vehicle{}, false, nil
}

type mockPlanner struct {
	mock.Mock
}

func (m *mockPlanner) PlanPaths(ctx context.Context, recs []model.DispatchRecord) ([]model.VehiclePlan, error) {
	args := m.Called(ctx, recs)
	plans, _ := args.Get(0).([]model.VehiclePlan)
	return plans, args.Error(1)
}

type recorder struct {
	mu         sync.Mutex
	vehicles   []events.VehicleUpdate
	states     []events.SystemState
	deliveries []events.DeliveryStatus
}

func (r *recorder) PublishVehicleUpdate(u events.VehicleUpdate) {
	r.mu.Lock()
	r.vehicles = append(r.vehicles, u)
	r.mu.Unlock()
}

func (r *recorder) PublishSystemState(s events.SystemState) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) PublishDeliveryStatus(d events.DeliveryStatus) {
	r.mu.Lock()
	r.deliveries = append(r.deliveries, d)
	r.mu.Unlock()
}

func (r *recorder) updatesFor(vehicleID string) []events.VehicleUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.VehicleUpdate
	for _, u := range r.vehicles {
		if u.VehicleID == vehicleID {
			out = append(out, u)
		}
	}
	return out
}

func (r *recorder) statuses() []events.DeliveryStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.DeliveryStatus(nil), r.deliveries...)
}

func (r *recorder) statusWhere(fn func(events.DeliveryStatus) bool) (events.DeliveryStatus, bool) {
	for _, d := range r.statuses() {
		if fn(d) {
			return d, true
		}
	}
	return events.DeliveryStatus{}, false
}

func (r *recorder) stateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

var testBase = model.Waypoint{Lng: -3.1892, Lat: 55.9445}

func drone(id string, capacity float64) model.Vehicle {
	return model.Vehicle{ID: id, Name: id, Capability: &model.Capability{Capacity: capacity, MaxMoves: 2000, CostPerMove: 0.01}}
}

func request(capacity float64) model.DeliveryRequest {
	return model.DeliveryRequest{Longitude: -3.18, Latitude: 55.94, Capacity: capacity}
}

// route returns n waypoints heading east from start.
func route(start model.Waypoint, n int) []model.Waypoint {
	path := make([]model.Waypoint, n)
	for i := range path {
		path[i] = model.Waypoint{Lng: start.Lng + float64(i)*0.001, Lat: start.Lat}
	}
	return path
}

// assigningPlanner plans every record onto vehicleID with one segment of n
// waypoints per delivery; consecutive segments share their rendezvous point.
func assigningPlanner(vehicleID string, n int) fleet.PlannerFunc {
	return func(_ context.Context, recs []model.DispatchRecord) ([]model.VehiclePlan, error) {
		plan := model.VehiclePlan{VehicleID: vehicleID}
		start := testBase
		for _, r := range recs {
			seg := route(start, n)
			plan.Deliveries = append(plan.Deliveries, model.DeliverySegment{DeliveryID: r.ID, FlightPath: seg})
			start = seg[len(seg)-1]
		}
		return []model.VehiclePlan{plan}, nil
	}
}

func newTestEngine(t *testing.T, cfg Config, vehicles []model.Vehicle, planner fleet.Planner) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	if cfg.TickMS == 0 {
		cfg.TickMS = 1
	}
	if cfg.SettleMS == 0 {
		cfg.SettleMS = 1
	}
	e, err := NewEngine(cfg, staticFleet{vehicles: vehicles}, planner, nil, WithPublisher(rec))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e, rec
}
