package metrics

import (
	"time"

	"github.com/skyfleet/skyfleet/core/model"
)

// MissionEvent is the terminal record of a mission.
type MissionEvent struct {
	VehicleID  string
	DeliveryID int64
	BatchID    string
	Status     model.Status
	Steps      int
	Duration   time.Duration
	Reason     string
	Time       time.Time
}

// MetricsSink records mission outcomes for observability purposes.
type MetricsSink interface {
	RecordMission(ev MissionEvent) error
}

// Submission kinds.
const (
	KindSingle = "single"
	KindBatch  = "batch"
)

// SubmissionEvent describes the synchronous result of a submission.
type SubmissionEvent struct {
	Kind       string
	BatchID    string
	VehicleIDs []string
	Accepted   bool
	Reason     string
	Deliveries int
	Skipped    int
	Time       time.Time
}

// SubmissionRecorder records submissions.
type SubmissionRecorder interface {
	RecordSubmission(ev SubmissionEvent) error
}

// FleetStateEvent is a snapshot of fleet occupancy.
type FleetStateEvent struct {
	Active    int
	Available int
	Time      time.Time
}

// FleetStateRecorder records fleet occupancy snapshots.
type FleetStateRecorder interface {
	RecordFleetState(ev FleetStateEvent) error
}

// DeliveryStatusEvent mirrors a delivery-status notification, including the
// batch-level outcome.
type DeliveryStatusEvent struct {
	DeliveryID int64
	BatchID    string
	VehicleID  string
	Status     model.Status
	Message    string
	Time       time.Time
}

// DeliveryStatusRecorder records delivery-status notifications.
type DeliveryStatusRecorder interface {
	RecordDeliveryStatus(ev DeliveryStatusEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordMission(MissionEvent) error               { return nil }
func (NopSink) RecordSubmission(SubmissionEvent) error         { return nil }
func (NopSink) RecordFleetState(FleetStateEvent) error         { return nil }
func (NopSink) RecordDeliveryStatus(DeliveryStatusEvent) error { return nil }
