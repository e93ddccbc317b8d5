// Package scenarios replays YAML-described dispatch scenarios against an
// in-process engine.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skyfleet/skyfleet/core/model"
)

type VehicleDef struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Capacity    float64 `yaml:"capacity"`
	MaxMoves    int     `yaml:"max_moves"`
	Cooling     bool    `yaml:"cooling"`
	Heating     bool    `yaml:"heating"`
	CostPerMove float64 `yaml:"cost_per_move"`
	// Grounded vehicles have no capability profile and can never be matched.
	Grounded bool `yaml:"grounded"`
}

func (v VehicleDef) ToModel() model.Vehicle {
	out := model.Vehicle{ID: v.ID, Name: v.Name}
	if !v.Grounded {
		out.Capability = &model.Capability{
			Capacity:    v.Capacity,
			MaxMoves:    v.MaxMoves,
			Cooling:     v.Cooling,
			Heating:     v.Heating,
			CostPerMove: v.CostPerMove,
		}
	}
	return out
}

// DeliveryDef places a delivery relative to the base, in degrees.
type DeliveryDef struct {
	DLng     float64 `yaml:"dlng"`
	DLat     float64 `yaml:"dlat"`
	Capacity float64 `yaml:"capacity"`
	Cooling  bool    `yaml:"cooling"`
	Heating  bool    `yaml:"heating"`
}

func (d DeliveryDef) ToModel(base model.Waypoint) model.DeliveryRequest {
	return model.DeliveryRequest{
		Longitude: base.Lng + d.DLng,
		Latitude:  base.Lat + d.DLat,
		Capacity:  d.Capacity,
		Cooling:   d.Cooling,
		Heating:   d.Heating,
	}
}

// StepDef is one action. Exactly one of Submit, Batch or Cancel is set.
type StepDef struct {
	Submit *DeliveryDef  `yaml:"submit,omitempty"`
	Batch  []DeliveryDef `yaml:"batch,omitempty"`
	Cancel string        `yaml:"cancel,omitempty"`
	// Settle waits for every running mission to end before the next step.
	Settle bool `yaml:"settle,omitempty"`
}

type Expected struct {
	Accepted int `yaml:"accepted"`
	Rejected int `yaml:"rejected"`
	Skipped  int `yaml:"skipped"`
	// Completed and Failed count per-vehicle terminal events.
	Completed int `yaml:"completed"`
	Failed    int `yaml:"failed"`
	Cancelled int `yaml:"cancelled"`
	// Batches counts batch summary events.
	Batches int `yaml:"batches"`
}

type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Base        model.Waypoint `yaml:"base"`
	Vehicles    []VehicleDef   `yaml:"vehicles"`
	Steps       []StepDef      `yaml:"steps"`
	Expected    Expected       `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	for i, st := range sc.Steps {
		if n := countActions(st); n != 1 {
			return nil, fmt.Errorf("%s: step %d has %d actions", path, i, n)
		}
	}
	return &sc, nil
}

func countActions(st StepDef) int {
	n := 0
	if st.Submit != nil {
		n++
	}
	if len(st.Batch) > 0 {
		n++
	}
	if st.Cancel != "" {
		n++
	}
	return n
}
