// Package ilp talks to the ILP REST service that owns the drone registry,
// the service points and the remote path planner.
package ilp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/skyfleet/skyfleet/core/fleet"
	"github.com/skyfleet/skyfleet/core/model"
	"github.com/skyfleet/skyfleet/infra/logger"
)

// Config holds the ILP endpoint settings.
type Config struct {
	URL string `json:"url"`
	// TimeoutMS bounds every request.
	TimeoutMS int `json:"timeout_ms"`
	// CacheTTLMS keeps the drone listing for this long. Zero disables caching.
	CacheTTLMS int `json:"cache_ttl_ms"`
}

// SetDefaults applies the request timeout.
func (c *Config) SetDefaults() {
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 10000
	}
}

// Validate checks the endpoint.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("ilp url is required")
	}
	if c.CacheTTLMS < 0 {
		return fmt.Errorf("ilp cache_ttl_ms must not be negative")
	}
	return nil
}

// ServicePoint is a drone base published by the ILP service.
type ServicePoint struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Location struct {
		Lng float64 `json:"lng"`
		Lat float64 `json:"lat"`
		Alt float64 `json:"alt,omitempty"`
	} `json:"location"`
}

// DeliveryResult is the response of the remote planner.
type DeliveryResult struct {
	TotalCost  float64             `json:"totalCost"`
	TotalMoves int                 `json:"totalMoves"`
	DronePaths []model.VehiclePlan `json:"dronePaths"`
}

// Client implements fleet.Registry, fleet.Planner and fleet.BaseProvider
// against the ILP REST API.
type Client struct {
	baseURL string
	http    *http.Client
	ttl     time.Duration
	log     logger.Logger

	mu       sync.Mutex
	cached   []model.Vehicle
	cachedAt time.Time
	now      func() time.Time
}

var (
	_ fleet.Registry     = (*Client)(nil)
	_ fleet.Planner      = (*Client)(nil)
	_ fleet.BaseProvider = (*Client)(nil)
)

// NewClient creates a client for the given configuration.
func NewClient(cfg Config) *Client {
	cfg.SetDefaults()
	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		ttl:     time.Duration(cfg.CacheTTLMS) * time.Millisecond,
		log:     logger.New("ilp-client"),
		now:     time.Now,
	}
}

// ListVehicles returns every registered drone.
func (c *Client) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	if c.ttl > 0 {
		c.mu.Lock()
		if c.cached != nil && c.now().Sub(c.cachedAt) < c.ttl {
			out := append([]model.Vehicle(nil), c.cached...)
			c.mu.Unlock()
			return out, nil
		}
		c.mu.Unlock()
	}
	var vehicles []model.Vehicle
	if err := c.do(ctx, http.MethodGet, "/drones", nil, &vehicles); err != nil {
		return nil, err
	}
	if c.ttl > 0 {
		c.mu.Lock()
		c.cached, c.cachedAt = vehicles, c.now()
		c.mu.Unlock()
	}
	return append([]model.Vehicle(nil), vehicles...), nil
}

// GetVehicle looks up one drone in the listing.
func (c *Client) GetVehicle(ctx context.Context, id string) (model.Vehicle, bool, error) {
	vehicles, err := c.ListVehicles(ctx)
	if err != nil {
		return model.Vehicle{}, false, err
	}
	v, ok := fleet.FindVehicle(vehicles, id)
	return v, ok, nil
}

// ServicePoints returns the published drone bases.
func (c *Client) ServicePoints(ctx context.Context) ([]ServicePoint, error) {
	var points []ServicePoint
	if err := c.do(ctx, http.MethodGet, "/service-points", nil, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// CurrentBase returns the first service point, or fleet.ErrNoBase when the
// service publishes none.
func (c *Client) CurrentBase(ctx context.Context) (model.Waypoint, error) {
	points, err := c.ServicePoints(ctx)
	if err != nil {
		return model.Waypoint{}, err
	}
	if len(points) == 0 {
		return model.Waypoint{}, fleet.ErrNoBase
	}
	loc := points[0].Location
	return model.Waypoint{Lng: loc.Lng, Lat: loc.Lat}, nil
}

// PlanPaths asks the remote planner for flight paths.
func (c *Client) PlanPaths(ctx context.Context, recs []model.DispatchRecord) ([]model.VehiclePlan, error) {
	var res DeliveryResult
	if err := c.do(ctx, http.MethodPost, "/calcDeliveryPath", recs, &res); err != nil {
		return nil, err
	}
	c.log.Debugf("planned %d deliveries over %d drones (moves=%d cost=%.2f)",
		len(recs), len(res.DronePaths), res.TotalMoves, res.TotalCost)
	return res.DronePaths, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: unexpected status code: %d, body: %s", method, path, resp.StatusCode, b)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
