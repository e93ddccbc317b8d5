package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	submissionsTotal   *prometheus.CounterVec
	missionsTotal      *prometheus.CounterVec
	missionDuration    *prometheus.HistogramVec
	activeReservations prometheus.Gauge
	reserveConflicts   prometheus.Counter
	skippedDeliveries  prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.HistogramVec, prometheus.Gauge, prometheus.Counter, prometheus.Counter) {
	sub := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_submissions_total",
			Help: "Number of delivery submissions by kind and outcome",
		},
		[]string{"kind", "accepted"},
	)
	mis := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_missions_total",
			Help: "Number of finished missions by kind and terminal status",
		},
		[]string{"kind", "status"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_mission_duration_seconds",
			Help:    "Wall time from reservation to release",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"kind"},
	)
	act := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_active_reservations",
			Help: "Number of vehicles currently reserved",
		},
	)
	con := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_reserve_conflicts_total",
			Help: "Number of reservations lost to a concurrent submission",
		},
	)
	skip := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_batch_skipped_deliveries_total",
			Help: "Number of batch sub-deliveries skipped for lack of a vehicle",
		},
	)
	return sub, mis, dur, act, con, skip
}

func init() {
	submissionsTotal, missionsTotal, missionDuration, activeReservations, reserveConflicts, skippedDeliveries = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(submissionsTotal, missionsTotal, missionDuration, activeReservations, reserveConflicts, skippedDeliveries)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	submissionsTotal, missionsTotal, missionDuration, activeReservations, reserveConflicts, skippedDeliveries = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
