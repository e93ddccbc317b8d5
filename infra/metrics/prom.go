package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/skyfleet/skyfleet/core/metrics"
)

// PromSink records mission outcomes in Prometheus metrics.
type PromSink struct {
	missions    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	steps       prometheus.Histogram
	submissions *prometheus.CounterVec
	deliveries  *prometheus.CounterVec
	active      prometheus.Gauge
	available   prometheus.Gauge
}

// NewPromSink registers mission metrics on the default Prometheus registerer.
// The Prometheus server should be started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	missions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyfleet_missions_total",
		Help: "Finished missions per vehicle and terminal status",
	}, []string{"vehicle_id", "status"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skyfleet_mission_duration_seconds",
		Help:    "Mission wall time by terminal status",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"}))
	if err != nil {
		return nil, err
	}
	steps, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skyfleet_mission_steps",
		Help:    "Flight path steps walked per mission",
		Buckets: prometheus.ExponentialBuckets(4, 2, 8),
	}))
	if err != nil {
		return nil, err
	}
	submissions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyfleet_submissions_total",
		Help: "Delivery submissions by kind and acceptance",
	}, []string{"kind", "accepted"}))
	if err != nil {
		return nil, err
	}
	deliveries, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyfleet_delivery_status_total",
		Help: "Delivery status notifications by status and scope",
	}, []string{"status", "scope"}))
	if err != nil {
		return nil, err
	}
	active, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skyfleet_fleet_active_vehicles",
		Help: "Vehicles currently on a mission",
	}))
	if err != nil {
		return nil, err
	}
	available, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skyfleet_fleet_available_vehicles",
		Help: "Vehicles free for dispatch",
	}))
	if err != nil {
		return nil, err
	}
	return &PromSink{
		missions:    missions,
		duration:    duration,
		steps:       steps,
		submissions: submissions,
		deliveries:  deliveries,
		active:      active,
		available:   available,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordMission counts the mission and observes its duration and length.
func (s *PromSink) RecordMission(ev coremetrics.MissionEvent) error {
	status := ev.Status.String()
	s.missions.WithLabelValues(ev.VehicleID, status).Inc()
	s.duration.WithLabelValues(status).Observe(ev.Duration.Seconds())
	s.steps.Observe(float64(ev.Steps))
	return nil
}

// RecordSubmission counts a submission result.
func (s *PromSink) RecordSubmission(ev coremetrics.SubmissionEvent) error {
	s.submissions.WithLabelValues(ev.Kind, strconv.FormatBool(ev.Accepted)).Inc()
	return nil
}

// RecordFleetState sets the occupancy gauges.
func (s *PromSink) RecordFleetState(ev coremetrics.FleetStateEvent) error {
	s.active.Set(float64(ev.Active))
	s.available.Set(float64(ev.Available))
	return nil
}

// RecordDeliveryStatus counts a delivery notification.
func (s *PromSink) RecordDeliveryStatus(ev coremetrics.DeliveryStatusEvent) error {
	s.deliveries.WithLabelValues(ev.Status.String(), deliveryScope(ev)).Inc()
	return nil
}

// deliveryScope tells single missions, batch legs and batch summaries apart.
// Batch summaries carry no delivery id.
func deliveryScope(ev coremetrics.DeliveryStatusEvent) string {
	switch {
	case ev.BatchID == "":
		return "single"
	case ev.DeliveryID == 0:
		return "batch_summary"
	default:
		return "batch_leg"
	}
}
