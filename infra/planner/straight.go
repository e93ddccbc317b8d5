// Package planner provides flight path planners for the dispatch engine.
package planner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/skyfleet/skyfleet/core/fleet"
	"github.com/skyfleet/skyfleet/core/model"
	"github.com/skyfleet/skyfleet/infra/logger"
)

// StraightConfig tunes the straight-line planner.
type StraightConfig struct {
	// Step is the length of one move in degrees.
	Step float64 `json:"step"`
	// Tolerance absorbs floating point noise in capacity checks.
	Tolerance float64 `json:"tolerance"`
	// CostWeight scales costPerMove when ranking vehicles.
	CostWeight float64 `json:"cost_weight"`
}

// SetDefaults applies the ILP move length and the engine tolerances.
func (c *StraightConfig) SetDefaults() {
	if c.Step <= 0 {
		c.Step = 0.00015
	}
	if c.Tolerance <= 0 {
		c.Tolerance = 0.01
	}
	if c.CostWeight <= 0 {
		c.CostWeight = 0.1
	}
}

// Straight plans direct flights from the base to every delivery point.
// Deliveries assigned to the same vehicle are flown in order: each segment
// starts at the previous drop-off, hovers once on arrival, and the last one
// flies back to base.
type Straight struct {
	cfg      StraightConfig
	fleet    fleet.Registry
	base     fleet.BaseProvider
	fallback model.Waypoint
	log      logger.Logger
}

// NewStraight creates a planner drawing vehicles from fl. When base reports
// fleet.ErrNoBase the fallback coordinate is used.
func NewStraight(cfg StraightConfig, fl fleet.Registry, base fleet.BaseProvider, fallback model.Waypoint) *Straight {
	cfg.SetDefaults()
	return &Straight{cfg: cfg, fleet: fl, base: base, fallback: fallback, log: logger.New("planner")}
}

// PlanPaths assigns the records to vehicles and routes them. Records no
// vehicle can carry are left out of the result.
func (s *Straight) PlanPaths(ctx context.Context, recs []model.DispatchRecord) ([]model.VehiclePlan, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	vehicles, err := s.fleet.ListVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	base, err := s.currentBase(ctx)
	if err != nil {
		return nil, err
	}

	// one vehicle for everything when possible
	if v, segs, ok := s.fit(vehicles, recs, base, nil); ok {
		return []model.VehiclePlan{{VehicleID: v.ID, Deliveries: segs}}, nil
	}

	used := make(map[string]bool)
	var plans []model.VehiclePlan
	for _, rec := range recs {
		one := []model.DispatchRecord{rec}
		v, segs, ok := s.fit(vehicles, one, base, used)
		if !ok {
			s.log.Warnf("no vehicle can carry delivery %d", rec.ID)
			continue
		}
		used[v.ID] = true
		plans = append(plans, model.VehiclePlan{VehicleID: v.ID, Deliveries: segs})
	}
	return plans, nil
}

func (s *Straight) currentBase(ctx context.Context) (model.Waypoint, error) {
	if s.base == nil {
		return s.fallback, nil
	}
	b, err := s.base.CurrentBase(ctx)
	if errors.Is(err, fleet.ErrNoBase) {
		return s.fallback, nil
	}
	if err != nil {
		return model.Waypoint{}, fmt.Errorf("base location: %w", err)
	}
	return b, nil
}

// fit returns the best ranked vehicle able to carry recs within its move budget.
func (s *Straight) fit(vehicles []model.Vehicle, recs []model.DispatchRecord, base model.Waypoint, skip map[string]bool) (model.Vehicle, []model.DeliverySegment, bool) {
	var agg model.Requirements
	for _, r := range recs {
		agg = agg.Merge(r.Requirements)
	}
	type ranked struct {
		v     model.Vehicle
		score float64
	}
	var cands []ranked
	for _, v := range vehicles {
		if skip[v.ID] || !v.Satisfies(agg, s.cfg.Tolerance) {
			continue
		}
		score := math.Abs(v.Capability.Capacity-agg.Capacity) + v.Capability.CostPerMove*s.cfg.CostWeight
		cands = append(cands, ranked{v, score})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score < cands[j].score })

	segs := s.Route(base, recs)
	moves := -1
	for _, seg := range segs {
		moves += len(seg.FlightPath)
	}
	// shared rendezvous waypoints are counted once
	moves -= len(segs) - 1
	for _, c := range cands {
		if c.v.Capability.MaxMoves > 0 && moves > c.v.Capability.MaxMoves {
			continue
		}
		return c.v, segs, true
	}
	return model.Vehicle{}, nil, false
}

// Route builds the chained segments serving recs in order from base.
func (s *Straight) Route(base model.Waypoint, recs []model.DispatchRecord) []model.DeliverySegment {
	segs := make([]model.DeliverySegment, 0, len(recs))
	cur := base
	for i, rec := range recs {
		path := s.line(cur, rec.Delivery)
		path = append(path, rec.Delivery)
		if i == len(recs)-1 {
			path = append(path, s.line(rec.Delivery, base)[1:]...)
		}
		segs = append(segs, model.DeliverySegment{DeliveryID: rec.ID, FlightPath: path})
		cur = rec.Delivery
	}
	return segs
}

// line interpolates from a to b inclusive in moves of at most cfg.Step.
func (s *Straight) line(a, b model.Waypoint) []model.Waypoint {
	d := floats.Distance([]float64{a.Lng, a.Lat}, []float64{b.Lng, b.Lat}, 2)
	n := int(math.Ceil(d / s.cfg.Step))
	if n < 1 {
		n = 1
	}
	lngs := floats.Span(make([]float64, n+1), a.Lng, b.Lng)
	lats := floats.Span(make([]float64, n+1), a.Lat, b.Lat)
	out := make([]model.Waypoint, n+1)
	for i := range out {
		out[i] = model.Waypoint{Lng: lngs[i], Lat: lats[i]}
	}
	return out
}
