package metrics

import (
	"fmt"
	"net"

	"github.com/skyfleet/skyfleet/core/factory"
)

// Config selects the mission metrics sinks and the standalone scrape endpoint.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr serves /metrics on its own listener when set, e.g. ":9102".
	// The API router exposes /metrics regardless.
	PrometheusAddr string `json:"prometheus_addr"`
}

// Validate rejects sinks without a type and malformed listen addresses.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sink %d: type is required", i)
		}
	}
	if c.PrometheusAddr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.PrometheusAddr); err != nil {
		return fmt.Errorf("prometheus_addr: %w", err)
	}
	return nil
}
