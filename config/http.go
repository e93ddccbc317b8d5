package config

import "fmt"

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Addr              string `json:"addr"`
	ShutdownTimeoutMS int    `json:"shutdown_timeout_ms"`
	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string `json:"cors_origins"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ShutdownTimeoutMS <= 0 {
		c.ShutdownTimeoutMS = 5000
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
}

// Validate checks mandatory fields.
func (c HTTPConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	return nil
}
