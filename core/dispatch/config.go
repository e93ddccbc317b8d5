package dispatch

import (
	"fmt"
	"time"

	"github.com/skyfleet/skyfleet/core/model"
)

// Config defines the engine constants. Zero values are replaced by the
// defaults in SetDefaults.
type Config struct {
	// TickMS is the simulated flight time per waypoint.
	TickMS int `json:"tick_ms"`
	// SettleMS is how long a completed mission keeps its reservation so
	// observers can render the terminal frame.
	SettleMS int `json:"settle_ms"`
	// CapacityTolerance absorbs floating point noise when matching capacity.
	CapacityTolerance float64 `json:"capacity_tolerance"`
	// CapacityWeight scales the capacity bonus of the selector score.
	CapacityWeight float64 `json:"capacity_weight"`
	// AlternativeCostWeight scales cost-per-move when picking a substitute vehicle.
	AlternativeCostWeight float64 `json:"alternative_cost_weight"`
	// HoverTolerance is the coordinate delta under which two consecutive
	// waypoints are a hover point.
	HoverTolerance float64 `json:"hover_tolerance"`
	// DeliveryPointFraction locates the delivery point when no hover point exists.
	DeliveryPointFraction float64 `json:"delivery_point_fraction"`
	// FallbackBase is used when the base provider has no base configured.
	FallbackBase    *model.Waypoint `json:"fallback_base"`
	FirstDeliveryID int64           `json:"first_delivery_id"`
	// EventBuffer is the per-subscriber buffer of the in-process broadcaster.
	EventBuffer int `json:"event_buffer"`
}

const (
	defaultTickMS                = 100
	defaultSettleMS              = 3000
	defaultCapacityTolerance     = 0.01
	defaultCapacityWeight        = 0.0001
	defaultAlternativeCostWeight = 0.1
	defaultHoverTolerance        = 1e-9
	defaultDeliveryPointFraction = 0.4
	defaultFirstDeliveryID       = 1000
	defaultEventBuffer           = 256
)

// DefaultBase is the launch coordinate used when none is configured.
var DefaultBase = model.Waypoint{Lng: -3.1892, Lat: 55.9445}

// SetDefaults applies the engine defaults to unset fields.
func (c *Config) SetDefaults() {
	if c.TickMS == 0 {
		c.TickMS = defaultTickMS
	}
	if c.SettleMS == 0 {
		c.SettleMS = defaultSettleMS
	}
	if c.CapacityTolerance == 0 {
		c.CapacityTolerance = defaultCapacityTolerance
	}
	if c.CapacityWeight == 0 {
		c.CapacityWeight = defaultCapacityWeight
	}
	if c.AlternativeCostWeight == 0 {
		c.AlternativeCostWeight = defaultAlternativeCostWeight
	}
	if c.HoverTolerance == 0 {
		c.HoverTolerance = defaultHoverTolerance
	}
	if c.DeliveryPointFraction == 0 {
		c.DeliveryPointFraction = defaultDeliveryPointFraction
	}
	if c.FallbackBase == nil {
		b := DefaultBase
		c.FallbackBase = &b
	}
	if c.FirstDeliveryID == 0 {
		c.FirstDeliveryID = defaultFirstDeliveryID
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = defaultEventBuffer
	}
}

// Validate checks the configured values.
func (c Config) Validate() error {
	if c.TickMS < 0 || c.SettleMS < 0 {
		return fmt.Errorf("tick_ms and settle_ms must not be negative")
	}
	if c.CapacityTolerance < 0 || c.HoverTolerance < 0 {
		return fmt.Errorf("tolerances must not be negative")
	}
	if c.DeliveryPointFraction < 0 || c.DeliveryPointFraction >= 1 {
		return fmt.Errorf("delivery_point_fraction must be in [0,1)")
	}
	if c.FirstDeliveryID < 0 {
		return fmt.Errorf("first_delivery_id must not be negative")
	}
	return nil
}

// Tick returns the per-waypoint interval.
func (c Config) Tick() time.Duration { return time.Duration(c.TickMS) * time.Millisecond }

// Settle returns the delay before a completed reservation is released.
func (c Config) Settle() time.Duration { return time.Duration(c.SettleMS) * time.Millisecond }
