// Package api exposes the dispatch engine over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/skyfleet/skyfleet/core/dispatch"
	"github.com/skyfleet/skyfleet/core/events"
	"github.com/skyfleet/skyfleet/core/fleet"
	"github.com/skyfleet/skyfleet/core/model"
	"github.com/skyfleet/skyfleet/core/vehiclestatus"
	"github.com/skyfleet/skyfleet/infra/logger"
)

// Dispatcher is the engine surface used by the handlers.
type Dispatcher interface {
	SubmitSingle(ctx context.Context, req model.DeliveryRequest) dispatch.SubmissionResult
	SubmitBatch(ctx context.Context, batchID string, reqs []model.DeliveryRequest) dispatch.BatchResult
	CurrentReservations() map[string]dispatch.Reservation
	ActiveBatches() []dispatch.BatchTracker
	Cancel(vehicleID string) bool
	SystemState(ctx context.Context) (events.SystemState, error)
	AvailableVehicles(ctx context.Context) ([]model.Vehicle, error)
	Base(ctx context.Context) model.Waypoint
}

// Options configures optional routes and middleware.
type Options struct {
	// Stream serves the WebSocket event stream on /ws when set.
	Stream http.Handler
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Statuses serves the last known drone states on /api/v1/drones/status when set.
	Statuses    vehiclestatus.Store
	CORSOrigins []string
}

// requestValidator adapts go-playground/validator to echo.
type requestValidator struct {
	v *validator.Validate
}

func (r *requestValidator) Validate(i any) error { return r.v.Struct(i) }

// NewRouter builds the echo instance serving the dispatch API.
func NewRouter(d Dispatcher, vehicles fleet.Registry, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}

	log := logger.New("api")
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Warnf("%s %s -> %d: %v", v.Method, v.URI, v.Status, v.Error)
			} else {
				log.Debugf("%s %s -> %d", v.Method, v.URI, v.Status)
			}
			return nil
		},
	}))
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	h := &Handler{engine: d, fleet: vehicles, statuses: opts.Statuses, log: log}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/api/v1")
	{
		v1.POST("/submitDelivery", h.SubmitDelivery)
		v1.POST("/submitBatch", h.SubmitBatch)
		v1.GET("/systemStatus", h.SystemStatus)
		v1.GET("/availableDrones", h.AvailableDrones)
		v1.GET("/drones", h.ListDrones)
		if opts.Statuses != nil {
			v1.GET("/drones/status", h.DroneStatuses)
		}
		v1.GET("/drones/:id", h.DroneDetails)
		v1.GET("/missions", h.ListMissions)
		v1.DELETE("/missions/:vehicleId", h.CancelMission)
		v1.GET("/batches", h.ListBatches)
		v1.GET("/base", h.Base)
	}

	if opts.Stream != nil {
		e.GET("/ws", echo.WrapHandler(opts.Stream))
	}
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}
	return e
}
