// Package factory provides a small generic registry used to instantiate
// collaborators from configuration. A module is defined by a type string and a
// map of raw settings; factories decode the settings into typed structs and
// return the concrete implementation.
//
// The engine uses it to pick the path planner ("straight", "ilp") and the
// metrics sinks ("nop", "prometheus", "influx"):
//
//	reg := factory.NewRegistry[fleet.Planner]()
//	reg.Register("straight", func(conf map[string]any) (fleet.Planner, error) {
//	    var c struct{ Step float64 `json:"step"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return planner.NewStraight(c.Step), nil
//	})
//	p, err := reg.Create(factory.ModuleConfig{Type: "straight", Conf: map[string]any{"step": 0.00015}})
package factory
