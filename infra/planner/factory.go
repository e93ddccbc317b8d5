package planner

import (
	"github.com/skyfleet/skyfleet/core/factory"
	"github.com/skyfleet/skyfleet/core/fleet"
	"github.com/skyfleet/skyfleet/core/model"
	"github.com/skyfleet/skyfleet/infra/ilp"
)

// Deps are the collaborators a planner may draw on.
type Deps struct {
	Fleet    fleet.Registry
	Base     fleet.BaseProvider
	Fallback model.Waypoint
}

// Names lists the planner types accepted by New.
func Names() []string { return newRegistry(Deps{}).Names() }

func newRegistry(d Deps) *factory.Registry[fleet.Planner] {
	reg := factory.NewRegistry[fleet.Planner]()
	_ = reg.Register("straight", func(conf map[string]any) (fleet.Planner, error) {
		var c StraightConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewStraight(c, d.Fleet, d.Base, d.Fallback), nil
	})
	_ = reg.Register("ilp", func(conf map[string]any) (fleet.Planner, error) {
		var c ilp.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return ilp.NewClient(c), nil
	})
	return reg
}

// New builds the planner described by mc. An empty type selects "straight".
func New(mc factory.ModuleConfig, d Deps) (fleet.Planner, error) {
	if mc.Type == "" {
		mc.Type = "straight"
	}
	return newRegistry(d).Create(mc)
}
