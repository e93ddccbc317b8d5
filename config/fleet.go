package config

import (
	"fmt"

	"github.com/skyfleet/skyfleet/core/model"
	"github.com/skyfleet/skyfleet/infra/ilp"
)

// Fleet and base sources.
const (
	SourceStatic = "static"
	SourceILP    = "ilp"
	SourceFixed  = "fixed"
)

// FleetConfig selects where the vehicles come from.
type FleetConfig struct {
	// Source is "static" (Vehicles below) or "ilp" (the ILP REST service).
	Source   string          `json:"source"`
	Vehicles []model.Vehicle `json:"vehicles"`
	ILP      ilp.Config      `json:"ilp"`
}

// SetDefaults selects the static source.
func (c *FleetConfig) SetDefaults() {
	if c.Source == "" {
		c.Source = SourceStatic
	}
	if c.Source == SourceILP {
		c.ILP.SetDefaults()
	}
}

// Validate checks the selected source.
func (c FleetConfig) Validate() error {
	switch c.Source {
	case SourceStatic:
		for _, v := range c.Vehicles {
			if err := v.Validate(); err != nil {
				return err
			}
		}
		return nil
	case SourceILP:
		return c.ILP.Validate()
	default:
		return fmt.Errorf("unknown source %s", c.Source)
	}
}

// BaseConfig selects the launch and return coordinate.
type BaseConfig struct {
	// Source is "fixed" (Location, or the engine fallback when unset) or
	// "ilp" (first service point of the fleet ILP endpoint).
	Source   string          `json:"source"`
	Location *model.Waypoint `json:"location"`
}

// SetDefaults selects the fixed source.
func (c *BaseConfig) SetDefaults() {
	if c.Source == "" {
		c.Source = SourceFixed
	}
}

// Validate checks the selected source against the fleet configuration.
func (c BaseConfig) Validate(fleet FleetConfig) error {
	switch c.Source {
	case SourceFixed:
		return nil
	case SourceILP:
		if fleet.ILP.URL == "" {
			return fmt.Errorf("ilp base requires fleet.ilp.url")
		}
		return nil
	default:
		return fmt.Errorf("unknown source %s", c.Source)
	}
}
