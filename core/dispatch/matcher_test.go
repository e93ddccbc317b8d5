package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skyfleet/skyfleet/core/model"
)

func TestMatchCapable(t *testing.T) {
	vehicles := []model.Vehicle{
		{ID: "small", Capability: &model.Capability{Capacity: 4}},
		{ID: "edge", Capability: &model.Capability{Capacity: 4.995}},
		{ID: "cold", Capability: &model.Capability{Capacity: 10, Cooling: true}},
		{ID: "busy", Capability: &model.Capability{Capacity: 10, Cooling: true, Heating: true}},
		{ID: "ghost"},
		{ID: "warm", Capability: &model.Capability{Capacity: 10, Heating: true}},
	}
	reserved := func(id string) bool { return id == "busy" }

	cases := []struct {
		name string
		req  model.Requirements
		want []string
	}{
		{"capacity with tolerance", model.Requirements{Capacity: 5}, []string{"edge", "cold", "warm"}},
		{"cooling", model.Requirements{Capacity: 5, Cooling: true}, []string{"cold"}},
		{"heating", model.Requirements{Capacity: 1, Heating: true}, []string{"warm"}},
		{"both", model.Requirements{Capacity: 1, Cooling: true, Heating: true}, nil},
		{"too large", model.Requirements{Capacity: 50}, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := MatchCapable(vehicles, reserved, c.req, 0.01)
			assert.Equal(t, c.want, got)
			// no hidden state
			assert.Equal(t, got, MatchCapable(vehicles, reserved, c.req, 0.01))
		})
	}
}

func TestMatchCapableNilReserved(t *testing.T) {
	vehicles := []model.Vehicle{drone("a", 1), drone("b", 2)}
	assert.Equal(t, []string{"a", "b"}, MatchCapable(vehicles, nil, model.Requirements{Capacity: 1}, 0.01))
}
