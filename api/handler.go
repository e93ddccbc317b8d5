package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/skyfleet/skyfleet/core/dispatch"
	"github.com/skyfleet/skyfleet/core/fleet"
	"github.com/skyfleet/skyfleet/core/model"
	"github.com/skyfleet/skyfleet/core/vehiclestatus"
	"github.com/skyfleet/skyfleet/infra/logger"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Message string `json:"message"`
}

// BatchRequest is the body of POST /api/v1/submitBatch.
type BatchRequest struct {
	BatchID    string                  `json:"batchId"`
	Deliveries []model.DeliveryRequest `json:"deliveries" validate:"required,min=1,dive"`
}

// BatchResponse adds the fields dashboards read to a BatchResult.
type BatchResponse struct {
	dispatch.BatchResult
	Success       bool `json:"success"`
	DeliveryCount int  `json:"deliveryCount"`
}

// MissionStatus summarizes one reservation.
type MissionStatus struct {
	VehicleID  string         `json:"droneId"`
	DeliveryID int64          `json:"deliveryId"`
	BatchID    string         `json:"batchId,omitempty"`
	Status     model.Status   `json:"status"`
	Progress   float64        `json:"progress"`
	Position   model.Waypoint `json:"position"`
}

// SystemStatus is the body of GET /api/v1/systemStatus.
type SystemStatus struct {
	ActiveDrones    int                     `json:"activeDrones"`
	AvailableDrones int                     `json:"availableDrones"`
	TotalDrones     int                     `json:"totalDrones"`
	ActiveMissions  []MissionStatus         `json:"activeMissions"`
	ActiveBatches   []dispatch.BatchTracker `json:"activeBatches"`
}

// DroneSummary is one entry of GET /api/v1/availableDrones.
type DroneSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Capacity float64 `json:"capacity"`
	Cooling  bool    `json:"cooling"`
	Heating  bool    `json:"heating"`
}

// Handler serves the dispatch endpoints.
type Handler struct {
	engine   Dispatcher
	fleet    fleet.Registry
	statuses vehiclestatus.Store
	log      logger.Logger
}

func (h *Handler) SubmitDelivery(c echo.Context) error {
	var req model.DeliveryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Validation failed: " + err.Error()})
	}
	res := h.engine.SubmitSingle(c.Request().Context(), req)
	if errors.Is(res.Err, dispatch.ErrClosed) {
		return c.JSON(http.StatusServiceUnavailable, res)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) SubmitBatch(c echo.Context) error {
	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Validation failed: " + err.Error()})
	}
	res := h.engine.SubmitBatch(c.Request().Context(), req.BatchID, req.Deliveries)
	body := BatchResponse{BatchResult: res, Success: res.Accepted, DeliveryCount: len(res.DeliveryIDs)}
	if errors.Is(res.Err, dispatch.ErrClosed) {
		return c.JSON(http.StatusServiceUnavailable, body)
	}
	return c.JSON(http.StatusOK, body)
}

func (h *Handler) SystemStatus(c echo.Context) error {
	ctx := c.Request().Context()
	state, err := h.engine.SystemState(ctx)
	if err != nil {
		h.log.Errorf("system status: %v", err)
		return c.JSON(http.StatusBadGateway, ErrorResponse{Message: "Fleet registry unavailable"})
	}
	vehicles, err := h.fleet.ListVehicles(ctx)
	if err != nil {
		h.log.Errorf("system status: %v", err)
		return c.JSON(http.StatusBadGateway, ErrorResponse{Message: "Fleet registry unavailable"})
	}
	batches := h.engine.ActiveBatches()
	if batches == nil {
		batches = []dispatch.BatchTracker{}
	}
	return c.JSON(http.StatusOK, SystemStatus{
		ActiveDrones:    state.ActiveVehicles,
		AvailableDrones: state.AvailableVehicles,
		TotalDrones:     len(vehicles),
		ActiveMissions:  h.missions(),
		ActiveBatches:   batches,
	})
}

// missions lists the reservations ordered by vehicle id.
func (h *Handler) missions() []MissionStatus {
	res := h.engine.CurrentReservations()
	out := make([]MissionStatus, 0, len(res))
	for _, r := range res {
		out = append(out, MissionStatus{
			VehicleID:  r.VehicleID,
			DeliveryID: r.DeliveryID,
			BatchID:    r.BatchID,
			Status:     r.Status,
			Progress:   r.Progress(),
			Position:   r.Position,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}

func (h *Handler) AvailableDrones(c echo.Context) error {
	vehicles, err := h.engine.AvailableVehicles(c.Request().Context())
	if err != nil {
		h.log.Errorf("available drones: %v", err)
		return c.JSON(http.StatusBadGateway, ErrorResponse{Message: "Fleet registry unavailable"})
	}
	out := make([]DroneSummary, 0, len(vehicles))
	for _, v := range vehicles {
		s := DroneSummary{ID: v.ID, Name: v.Name, Capacity: v.Capacity()}
		if s.Name == "" {
			s.Name = "Unnamed"
		}
		if v.Capability != nil {
			s.Cooling, s.Heating = v.Capability.Cooling, v.Capability.Heating
		}
		out = append(out, s)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ListDrones(c echo.Context) error {
	vehicles, err := h.fleet.ListVehicles(c.Request().Context())
	if err != nil {
		h.log.Errorf("list drones: %v", err)
		return c.JSON(http.StatusBadGateway, ErrorResponse{Message: "Fleet registry unavailable"})
	}
	if vehicles == nil {
		vehicles = []model.Vehicle{}
	}
	return c.JSON(http.StatusOK, vehicles)
}

func (h *Handler) DroneDetails(c echo.Context) error {
	v, ok, err := h.fleet.GetVehicle(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.log.Errorf("drone details: %v", err)
		return c.JSON(http.StatusBadGateway, ErrorResponse{Message: "Fleet registry unavailable"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Message: fleet.ErrVehicleNotFound.Error()})
	}
	return c.JSON(http.StatusOK, v)
}

// DroneStatuses lists the last known state of every drone seen in flight,
// filtered by the status, batchId and inFlight query parameters.
func (h *Handler) DroneStatuses(c echo.Context) error {
	f := vehiclestatus.Filter{
		State:   model.Status(c.QueryParam("status")),
		BatchID: c.QueryParam("batchId"),
	}
	if raw := c.QueryParam("inFlight"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "inFlight must be a boolean"})
		}
		f.InFlight = &b
	}
	return c.JSON(http.StatusOK, h.statuses.List(f))
}

func (h *Handler) ListMissions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.missions())
}

// CancelMission removes the reservation of a drone; its mission stops
// within one tick.
func (h *Handler) CancelMission(c echo.Context) error {
	id := c.Param("vehicleId")
	if !h.engine.Cancel(id) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Message: "No active mission for drone " + id})
	}
	return c.JSON(http.StatusOK, map[string]any{"cancelled": true, "droneId": id})
}

func (h *Handler) ListBatches(c echo.Context) error {
	batches := h.engine.ActiveBatches()
	if batches == nil {
		batches = []dispatch.BatchTracker{}
	}
	return c.JSON(http.StatusOK, batches)
}

func (h *Handler) Base(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.Base(c.Request().Context()))
}
