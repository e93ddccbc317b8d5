package dispatch

import (
	"fmt"
	"strconv"
	"time"

	"github.com/skyfleet/skyfleet/core/events"
	"github.com/skyfleet/skyfleet/core/metrics"
	"github.com/skyfleet/skyfleet/core/model"
	"github.com/skyfleet/skyfleet/core/monitoring"
)

// mission is the state owned by one mission goroutine.
type mission struct {
	lease       Lease
	vehicle     model.Vehicle
	deliveryID  int64
	batchID     string
	deliveryIDs []int64
	segLens     []int
	path        []model.Waypoint
	capacity    float64
	started     time.Time
	done        bool
}

func (m *mission) kind() string {
	if m.batchID != "" {
		return metrics.KindBatch
	}
	return metrics.KindSingle
}

func (m *mission) tags() map[string]string {
	t := map[string]string{
		"vehicle_id":  m.vehicle.ID,
		"delivery_id": strconv.FormatInt(m.deliveryID, 10),
	}
	if m.batchID != "" {
		t["batch_id"] = m.batchID
	}
	return t
}

// runSingle plans and flies a single delivery.
func (e *Engine) runSingle(lease Lease, v model.Vehicle, rec model.DispatchRecord) {
	m := &mission{
		lease:      lease,
		vehicle:    v,
		deliveryID: rec.ID,
		capacity:   rec.Requirements.Capacity,
		started:    time.Now(),
	}
	defer e.recoverMission(m)

	plans, err := e.planner.PlanPaths(e.ctx, []model.DispatchRecord{rec})
	if err != nil {
		e.finish(m, model.StatusFailed, fmt.Sprintf("%v: %v", ErrPlanningFailed, err))
		return
	}
	m.path = singlePath(plans, v.ID, rec.ID)
	if len(m.path) == 0 {
		e.finish(m, model.StatusFailed, ErrPlanningFailed.Error()+": no route returned")
		return
	}
	e.drive(m, singleStatus)
}

// singlePath extracts the route of a single delivery. The segment planned for
// the reserved vehicle wins; otherwise the first non-empty segment is used.
func singlePath(plans []model.VehiclePlan, vehicleID string, deliveryID int64) []model.Waypoint {
	var fallback []model.Waypoint
	for _, p := range plans {
		for _, s := range p.Deliveries {
			if len(s.FlightPath) == 0 {
				continue
			}
			if p.VehicleID == vehicleID && s.DeliveryID == deliveryID {
				return s.FlightPath
			}
			if fallback == nil {
				fallback = s.FlightPath
			}
		}
	}
	return fallback
}

// drive steps the vehicle along m.path, publishing one update per waypoint.
// Removal of the reservation or engine shutdown stops the loop.
func (e *Engine) drive(m *mission, status func(i, n int) model.Status) {
	n := len(m.path)
	if !e.reg.Update(m.lease, func(r *Reservation) {
		r.Path = m.path
		r.SegmentLengths = m.segLens
		r.StepIndex = 0
		r.Position = m.path[0]
	}) {
		e.finish(m, model.StatusCancelled, "reservation removed")
		return
	}

	tick := e.cfg.Tick()
	for i, wp := range m.path {
		st := status(i, n)
		if !e.reg.Update(m.lease, func(r *Reservation) {
			r.StepIndex = i
			r.Position = wp
			r.Status = st
		}) {
			e.finish(m, model.StatusCancelled, "reservation removed")
			return
		}
		e.pub.PublishVehicleUpdate(e.vehicleUpdate(m, i, st))
		if !e.sleep(tick) {
			e.finish(m, model.StatusCancelled, "engine shutting down")
			return
		}
	}

	if !e.reg.Update(m.lease, func(r *Reservation) { r.Status = model.StatusCompleted }) {
		e.finish(m, model.StatusCancelled, "reservation removed")
		return
	}
	e.pub.PublishVehicleUpdate(e.vehicleUpdate(m, n-1, model.StatusCompleted))
	e.sleep(e.cfg.Settle())
	e.finish(m, model.StatusCompleted, completionMessage(m))
}

func (e *Engine) vehicleUpdate(m *mission, i int, st model.Status) events.VehicleUpdate {
	wp := m.path[i]
	u := events.VehicleUpdate{
		VehicleID:     m.vehicle.ID,
		DeliveryID:    m.deliveryID,
		BatchID:       m.batchID,
		Longitude:     wp.Lng,
		Latitude:      wp.Lat,
		Status:        st,
		StepIndex:     i,
		Progress:      progress(i, len(m.path)),
		CapacityUsed:  m.capacity,
		TotalCapacity: m.vehicle.Capacity(),
		Timestamp:     time.Now(),
	}
	if st == model.StatusCompleted {
		u.Progress = 1
	}
	if m.batchID != "" {
		k := currentDelivery(m.segLens, i)
		u.CurrentDeliveryInBatch = k + 1
		u.TotalDeliveriesInBatch = len(m.deliveryIDs)
		if k < len(m.deliveryIDs) {
			u.DeliveryID = m.deliveryIDs[k]
		}
	}
	if i == 0 && st != model.StatusCompleted {
		u.Route = m.path
		if dp, ok := deliveryPoint(m.path, e.cfg.HoverTolerance, e.cfg.DeliveryPointFraction); ok {
			u.DeliveryPoint = &dp
		}
	}
	return u
}

func completionMessage(m *mission) string {
	if m.batchID != "" {
		return fmt.Sprintf("Drone %s completed %d batch deliveries", m.vehicle.ID, len(m.deliveryIDs))
	}
	return fmt.Sprintf("Delivery %d completed by drone %s", m.deliveryID, m.vehicle.ID)
}

// finish releases the reservation and reports the terminal status once.
// Cancelled missions publish only the system state.
func (e *Engine) finish(m *mission, status model.Status, reason string) {
	if m.done {
		return
	}
	m.done = true
	e.reg.Release(m.lease)
	e.publishSystemState()

	if status != model.StatusCancelled {
		e.pub.PublishDeliveryStatus(events.DeliveryStatus{
			DeliveryID: m.deliveryID,
			BatchID:    m.batchID,
			VehicleID:  m.vehicle.ID,
			Status:     status,
			Message:    reason,
			Timestamp:  time.Now(),
		})
	}

	missionsTotal.WithLabelValues(m.kind(), status.String()).Inc()
	missionDuration.WithLabelValues(m.kind()).Observe(time.Since(m.started).Seconds())
	if err := e.sink.RecordMission(metrics.MissionEvent{
		VehicleID:  m.vehicle.ID,
		DeliveryID: m.deliveryID,
		BatchID:    m.batchID,
		Status:     status,
		Steps:      len(m.path),
		Duration:   time.Since(m.started),
		Reason:     reason,
		Time:       time.Now(),
	}); err != nil {
		e.log.Errorf("mission metrics error: %v", err)
	}

	fields := map[string]any{
		"vehicle_id":  m.vehicle.ID,
		"delivery_id": m.deliveryID,
		"status":      status.String(),
		"reason":      reason,
	}
	if m.batchID != "" {
		fields["batch_id"] = m.batchID
	}
	e.log.Infow("mission finished", fields)

	if m.batchID != "" {
		e.settleBatch(m, status)
	}
}

// recoverMission turns a panic inside a mission into a FAILED outcome.
func (e *Engine) recoverMission(m *mission) {
	r := recover()
	if r == nil {
		return
	}
	err := monitoring.CapturePanic(r, m.tags())
	e.log.Errorf("mission fault on drone %s: %v", m.vehicle.ID, err)
	e.finish(m, model.StatusFailed, fmt.Sprintf("mission fault: %v", err))
}
