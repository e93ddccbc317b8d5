// Package app wires the dispatch engine to its collaborators and transports.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/skyfleet/skyfleet/api"
	"github.com/skyfleet/skyfleet/config"
	"github.com/skyfleet/skyfleet/core/dispatch"
	"github.com/skyfleet/skyfleet/core/events"
	"github.com/skyfleet/skyfleet/core/fleet"
	coremetrics "github.com/skyfleet/skyfleet/core/metrics"
	coremon "github.com/skyfleet/skyfleet/core/monitoring"
	"github.com/skyfleet/skyfleet/core/vehiclestatus"
	infrafleet "github.com/skyfleet/skyfleet/infra/fleet"
	"github.com/skyfleet/skyfleet/infra/ilp"
	"github.com/skyfleet/skyfleet/infra/logger"
	"github.com/skyfleet/skyfleet/infra/metrics"
	"github.com/skyfleet/skyfleet/infra/monitoring"
	"github.com/skyfleet/skyfleet/infra/mqtt"
	"github.com/skyfleet/skyfleet/infra/planner"
	"github.com/skyfleet/skyfleet/infra/ws"
)

// Collaborators are the external systems the engine consumes.
type Collaborators struct {
	Fleet   fleet.Registry
	Base    fleet.BaseProvider
	Planner fleet.Planner
}

// BuildCollaborators creates the fleet registry, base provider and planner
// selected by cfg. A static fleet without vehicles falls back to the demo fleet.
func BuildCollaborators(cfg *config.Config) (Collaborators, error) {
	var (
		c         Collaborators
		ilpClient *ilp.Client
	)
	if cfg.Fleet.Source == config.SourceILP || cfg.Base.Source == config.SourceILP {
		ilpClient = ilp.NewClient(cfg.Fleet.ILP)
	}

	switch cfg.Fleet.Source {
	case config.SourceILP:
		c.Fleet = ilpClient
	default:
		vehicles := cfg.Fleet.Vehicles
		if len(vehicles) == 0 {
			logger.New("service").Warnf("no vehicles configured, using the demo fleet")
			vehicles = infrafleet.DemoVehicles()
		}
		reg, err := infrafleet.NewStaticRegistry(vehicles)
		if err != nil {
			return c, fmt.Errorf("static fleet: %w", err)
		}
		c.Fleet = reg
	}

	switch {
	case cfg.Base.Source == config.SourceILP:
		c.Base = ilpClient
	case cfg.Base.Location != nil:
		c.Base = fleet.FixedBase(*cfg.Base.Location)
	default:
		c.Base = fleet.FixedBase(*cfg.Engine.FallbackBase)
	}

	p, err := planner.New(cfg.Planner, planner.Deps{
		Fleet:    c.Fleet,
		Base:     c.Base,
		Fallback: *cfg.Engine.FallbackBase,
	})
	if err != nil {
		return c, fmt.Errorf("planner: %w", err)
	}
	c.Planner = p
	return c, nil
}

// Service owns the engine and every transport attached to its events.
type Service struct {
	Engine *dispatch.Engine
	Events *events.Broadcaster
	Fleet  fleet.Registry

	cfg      *config.Config
	hub      *ws.Hub
	statuses *vehiclestatus.MemoryStore
	mqtt     *mqtt.PahoClient
	sink     coremetrics.MetricsSink
	server   *echo.Echo
	log      logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Configure(cfg.Logging); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	collab, err := BuildCollaborators(cfg)
	if err != nil {
		return nil, err
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	bus := events.NewBroadcaster(cfg.Engine.EventBuffer)
	if err := metrics.RegisterEventDrops(prometheus.DefaultRegisterer, bus); err != nil {
		logg.Warnf("event drop metrics: %v", err)
	}
	engine, err := dispatch.NewEngine(cfg.Engine, collab.Fleet, collab.Planner, collab.Base,
		dispatch.WithPublisher(bus),
		dispatch.WithMetrics(sink),
		dispatch.WithLogger(logger.New("dispatch")),
	)
	if err != nil {
		bus.Close()
		return nil, err
	}

	svc := &Service{
		Engine:   engine,
		Events:   bus,
		Fleet:    collab.Fleet,
		cfg:      cfg,
		hub:      ws.NewHub(),
		statuses: vehiclestatus.NewMemoryStore(),
		sink:     sink,
		log:      logg,
	}

	if cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		client.SetCancelHandler(engine.Cancel)
		svc.mqtt = client
	}

	svc.server = api.NewRouter(engine, collab.Fleet, api.Options{
		Stream:      svc.hub,
		Metrics:     metrics.Handler(nil),
		Statuses:    svc.statuses,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})
	return svc, nil
}

// Run attaches the event transports, serves the API and blocks until the
// context is cancelled or the server fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.Events.Attach(ctx, s.hub)
	s.Events.Attach(ctx, s.statuses)
	if s.mqtt != nil {
		s.Events.Attach(ctx, s.mqtt)
	}
	metrics.StartEventCollector(ctx, s.Events, s.sink)

	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("serving API on %s", s.cfg.HTTP.Addr)
		if err := s.server.Start(s.cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), time.Duration(s.cfg.HTTP.ShutdownTimeoutMS)*time.Millisecond)
	defer stop()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("http shutdown: %v", err)
	}
	return runErr
}

// Handler exposes the API for in-process use.
func (s *Service) Handler() http.Handler { return s.server }

// Close stops the engine and releases every transport.
func (s *Service) Close() error {
	err := s.Engine.Close()
	s.Events.Close()
	s.hub.Close()
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	coremon.Flush(2 * time.Second)
	return err
}
