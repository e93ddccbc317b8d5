package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfleet/skyfleet/config"
	"github.com/skyfleet/skyfleet/core/dispatch"
	"github.com/skyfleet/skyfleet/core/model"
	"github.com/skyfleet/skyfleet/infra/ilp"
)

func TestBuildCollaboratorsDefault(t *testing.T) {
	cfg := config.Default()
	c, err := BuildCollaborators(cfg)
	require.NoError(t, err)

	vehicles, err := c.Fleet.ListVehicles(context.Background())
	require.NoError(t, err)
	assert.Len(t, vehicles, 5)

	base, err := c.Base.CurrentBase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dispatch.DefaultBase, base)
	assert.NotNil(t, c.Planner)
}

func TestBuildCollaboratorsFixedBase(t *testing.T) {
	cfg := config.Default()
	cfg.Base.Location = &model.Waypoint{Lng: 1, Lat: 2}
	cfg.Fleet.Vehicles = []model.Vehicle{{ID: "a", Capability: &model.Capability{Capacity: 1}}}

	c, err := BuildCollaborators(cfg)
	require.NoError(t, err)
	base, err := c.Base.CurrentBase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Waypoint{Lng: 1, Lat: 2}, base)

	vehicles, err := c.Fleet.ListVehicles(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "a", vehicles[0].ID)
}

func TestBuildCollaboratorsILP(t *testing.T) {
	cfg := config.Default()
	cfg.Fleet.Source = config.SourceILP
	cfg.Fleet.ILP = ilp.Config{URL: "http://ilp.invalid"}
	cfg.Base.Source = config.SourceILP
	cfg.Planner.Type = "ilp"
	cfg.Planner.Conf = map[string]any{"url": "http://ilp.invalid"}
	require.NoError(t, cfg.Finalize())

	c, err := BuildCollaborators(cfg)
	require.NoError(t, err)
	assert.IsType(t, &ilp.Client{}, c.Fleet)
	assert.IsType(t, &ilp.Client{}, c.Base)
	assert.IsType(t, &ilp.Client{}, c.Planner)
}

func TestBuildCollaboratorsUnknownPlanner(t *testing.T) {
	cfg := config.Default()
	cfg.Planner.Type = "teleport"
	_, err := BuildCollaborators(cfg)
	assert.Error(t, err)
}

func TestServiceRun(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Engine.TickMS = 1
	cfg.Engine.SettleMS = 1

	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	sub := svc.Events.Subscribe()
	defer svc.Events.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	body, _ := json.Marshal(model.DeliveryRequest{Longitude: -3.188, Latitude: 55.945, Capacity: 2})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submitDelivery", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res dispatch.SubmissionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Accepted, res.Message)

	deadline := time.After(5 * time.Second)
	for completed := false; !completed; {
		select {
		case d := <-sub.Deliveries:
			completed = d.DeliveryID == res.DeliveryID && d.Status == model.StatusCompleted
		case <-deadline:
			t.Fatalf("delivery %d did not complete", res.DeliveryID)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("service did not stop")
	}
}
