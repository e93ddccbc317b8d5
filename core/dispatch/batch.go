package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skyfleet/skyfleet/core/events"
	"github.com/skyfleet/skyfleet/core/fleet"
	"github.com/skyfleet/skyfleet/core/metrics"
	"github.com/skyfleet/skyfleet/core/model"
)

// BatchTracker counts the sub-deliveries of a batch still in flight.
type BatchTracker struct {
	BatchID    string    `json:"batchId"`
	VehicleIDs []string  `json:"droneIds"`
	Total      int       `json:"total"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	Cancelled  int       `json:"cancelled"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Done reports whether every dispatched sub-delivery reached a terminal state.
func (t BatchTracker) Done() bool {
	return t.Completed+t.Failed+t.Cancelled >= t.Total
}

type batchBook struct {
	mu       sync.Mutex
	trackers map[string]*BatchTracker
}

func newBatchBook() *batchBook {
	return &batchBook{trackers: make(map[string]*BatchTracker)}
}

// open registers dispatched sub-deliveries. Reusing a live batch id extends it.
func (b *batchBook) open(id string, vehicles []string, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.trackers[id]; ok {
		t.VehicleIDs = append(t.VehicleIDs, vehicles...)
		t.Total += total
		return
	}
	b.trackers[id] = &BatchTracker{
		BatchID:    id,
		VehicleIDs: append([]string(nil), vehicles...),
		Total:      total,
		CreatedAt:  time.Now(),
	}
}

// settle accounts n sub-deliveries with the given outcome and discards the
// tracker once it is done.
func (b *batchBook) settle(id string, n int, status model.Status) (BatchTracker, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.trackers[id]
	if !ok {
		return BatchTracker{}, false
	}
	switch status {
	case model.StatusCompleted:
		t.Completed += n
	case model.StatusCancelled:
		t.Cancelled += n
	default:
		t.Failed += n
	}
	if !t.Done() {
		return *t, false
	}
	delete(b.trackers, id)
	return *t, true
}

func (b *batchBook) snapshot() []BatchTracker {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]BatchTracker, 0, len(b.trackers))
	for _, t := range b.trackers {
		c := *t
		c.VehicleIDs = append([]string(nil), t.VehicleIDs...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchID < out[j].BatchID })
	return out
}

// batchLeg is one reserved vehicle with the segments it flies.
type batchLeg struct {
	lease   Lease
	vehicle model.Vehicle
	segs    []model.DeliverySegment
	recs    []model.DispatchRecord
}

func (l batchLeg) deliveryIDs() []int64 {
	ids := make([]int64, len(l.segs))
	for i, s := range l.segs {
		ids[i] = s.DeliveryID
	}
	return ids
}

// SubmitBatch plans every request at once and reserves one vehicle per planned
// route. Routes whose vehicle is busy are moved to an alternative or skipped;
// the batch is accepted when at least one vehicle was dispatched.
func (e *Engine) SubmitBatch(ctx context.Context, batchID string, reqs []model.DeliveryRequest) BatchResult {
	if batchID == "" {
		batchID = uuid.NewString()
	}
	res := BatchResult{BatchID: batchID, Skipped: []int64{}}
	if e.isClosed() {
		return e.rejectBatch(res, ErrClosed, ErrClosed.Error())
	}
	if len(reqs) == 0 {
		return e.rejectBatch(res, ErrEmptyBatch, ErrEmptyBatch.Error())
	}
	vehicles, err := e.fleet.ListVehicles(ctx)
	if err != nil {
		err = fmt.Errorf("list vehicles: %w", err)
		return e.rejectBatch(res, err, err.Error())
	}
	res.FreeCount = len(freeVehicles(vehicles, e.reg.Contains))
	if res.FreeCount == 0 {
		res.BusyVehicles = e.reg.VehicleIDs()
		return e.rejectBatch(res, ErrFleetSaturated,
			fmt.Sprintf("All drones are busy (free: 0, busy: %s)", strings.Join(res.BusyVehicles, ", ")))
	}

	recs := make([]model.DispatchRecord, len(reqs))
	byID := make(map[int64]model.DispatchRecord, len(reqs))
	for i, r := range reqs {
		recs[i] = e.newRecord(r)
		byID[recs[i].ID] = recs[i]
		res.DeliveryIDs = append(res.DeliveryIDs, recs[i].ID)
	}

	plans, err := e.planner.PlanPaths(ctx, recs)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrPlanningFailed, err)
		return e.rejectBatch(res, err, err.Error())
	}
	if !hasRoute(plans) {
		return e.rejectBatch(res, ErrPlanningFailed, ErrPlanningFailed.Error()+": no route returned")
	}

	covered := make(map[int64]bool, len(recs))
	var legs []batchLeg
	for _, p := range plans {
		var (
			segs     []model.DeliverySegment
			planRecs []model.DispatchRecord
		)
		for _, s := range p.Deliveries {
			rec, ok := byID[s.DeliveryID]
			if !ok || covered[s.DeliveryID] {
				continue
			}
			covered[s.DeliveryID] = true
			segs = append(segs, s)
			planRecs = append(planRecs, rec)
		}
		if len(segs) == 0 {
			continue
		}
		leg := batchLeg{segs: segs, recs: planRecs}
		lease, v, ok := e.reserveLeg(vehicles, p.VehicleID, batchID, leg)
		if !ok {
			ids := leg.deliveryIDs()
			res.Skipped = append(res.Skipped, ids...)
			skippedDeliveries.Add(float64(len(ids)))
			e.log.Warnf("batch %s: no drone available for planned route of %s, skipping deliveries %v", batchID, p.VehicleID, ids)
			continue
		}
		leg.lease, leg.vehicle = lease, v
		legs = append(legs, leg)
	}
	for _, r := range recs {
		if !covered[r.ID] {
			res.Skipped = append(res.Skipped, r.ID)
		}
	}

	if len(legs) == 0 {
		return e.rejectBatch(res, ErrNoMatch, "No drone available for any planned route")
	}

	total := 0
	for _, l := range legs {
		res.VehicleIDs = append(res.VehicleIDs, l.vehicle.ID)
		total += len(l.segs)
	}
	res.VehicleID = res.VehicleIDs[0]
	e.batches.open(batchID, res.VehicleIDs, total)
	e.publishSystemState()

	for _, l := range legs {
		leg := l
		if !e.spawn(func() { e.runBatch(leg, batchID) }) {
			e.reg.Release(leg.lease)
			e.batches.settle(batchID, len(leg.segs), model.StatusCancelled)
		}
	}

	res.Accepted = true
	res.FreeCount = len(freeVehicles(vehicles, e.reg.Contains))
	res.Message = fmt.Sprintf("Batch %s dispatched to %d drone(s)", batchID, len(legs))
	if len(res.Skipped) > 0 {
		res.Message += fmt.Sprintf(", %d deliveries skipped", len(res.Skipped))
	}
	e.recordSubmission(metrics.SubmissionEvent{
		Kind:       metrics.KindBatch,
		BatchID:    batchID,
		VehicleIDs: res.VehicleIDs,
		Accepted:   true,
		Deliveries: len(recs),
		Skipped:    len(res.Skipped),
	})
	e.log.Infow("batch dispatched", map[string]any{
		"batch_id": batchID,
		"vehicles": res.VehicleIDs,
		"skipped":  res.Skipped,
	})
	return res
}

func (e *Engine) rejectBatch(res BatchResult, err error, msg string) BatchResult {
	res.Accepted = false
	res.Err = err
	res.Message = msg
	e.recordSubmission(metrics.SubmissionEvent{
		Kind:       metrics.KindBatch,
		BatchID:    res.BatchID,
		Accepted:   false,
		Reason:     msg,
		Deliveries: len(res.DeliveryIDs),
		Skipped:    len(res.Skipped),
	})
	e.log.Infof("batch %s rejected: %s", res.BatchID, msg)
	return res
}

func hasRoute(plans []model.VehiclePlan) bool {
	for _, p := range plans {
		for _, s := range p.Deliveries {
			if len(s.FlightPath) > 0 {
				return true
			}
		}
	}
	return false
}

// reserveLeg reserves the planned vehicle, or the best alternative when the
// planned one is busy or unknown to the fleet.
func (e *Engine) reserveLeg(vehicles []model.Vehicle, plannedID, batchID string, leg batchLeg) (Lease, model.Vehicle, bool) {
	agg := aggregate(leg.recs)
	ids := leg.deliveryIDs()
	placeholder := func(v model.Vehicle) Reservation {
		return Reservation{
			VehicleID:     v.ID,
			DeliveryID:    ids[0],
			BatchID:       batchID,
			DeliveryIDs:   ids,
			Status:        model.StatusPending,
			TotalCapacity: v.Capacity(),
			CapacityUsed:  agg.Capacity,
		}
	}

	planned, known := fleet.FindVehicle(vehicles, plannedID)
	if known {
		if lease, ok := e.reg.TryReserve(placeholder(planned)); ok {
			return lease, planned, true
		}
		reserveConflicts.Inc()
	}

	for attempt := 0; attempt <= len(vehicles); attempt++ {
		alt, ok := SelectAlternative(leg.recs, freeVehicles(vehicles, e.reg.Contains), e.cfg.CapacityTolerance, e.cfg.AlternativeCostWeight)
		if !ok {
			return Lease{}, model.Vehicle{}, false
		}
		if lease, ok := e.reg.TryReserve(placeholder(alt)); ok {
			fields := map[string]any{
				"batch_id":          batchID,
				"planned_vehicle":   plannedID,
				"alternative":       alt.ID,
				"required_capacity": agg.Capacity,
			}
			if planned.Capability != nil {
				fields["planned_capacity"] = planned.Capability.Capacity
			}
			e.log.Infow("planned drone unavailable, using alternative", fields)
			return lease, alt, true
		}
		reserveConflicts.Inc()
	}
	return Lease{}, model.Vehicle{}, false
}

// runBatch flies the chained route of one batch leg.
func (e *Engine) runBatch(leg batchLeg, batchID string) {
	ids := leg.deliveryIDs()
	m := &mission{
		lease:       leg.lease,
		vehicle:     leg.vehicle,
		deliveryID:  ids[0],
		batchID:     batchID,
		deliveryIDs: ids,
		segLens:     segmentLengths(leg.segs),
		capacity:    aggregate(leg.recs).Capacity,
		started:     time.Now(),
	}
	defer e.recoverMission(m)

	m.path = ChainSegments(leg.segs)
	if len(m.path) == 0 {
		e.finish(m, model.StatusFailed, ErrPlanningFailed.Error()+": empty chained route")
		return
	}
	e.drive(m, batchStatus)
}

// settleBatch accounts a finished leg and publishes the batch outcome once
// every leg is done. Batches that were only cancelled publish nothing.
func (e *Engine) settleBatch(m *mission, status model.Status) {
	t, done := e.batches.settle(m.batchID, len(m.deliveryIDs), status)
	if !done {
		return
	}
	var st model.Status
	switch {
	case t.Failed > 0:
		st = model.StatusFailed
	case t.Cancelled > 0 && t.Completed == 0:
		return
	default:
		st = model.StatusCompleted
	}
	e.pub.PublishDeliveryStatus(events.DeliveryStatus{
		BatchID:   t.BatchID,
		VehicleID: strings.Join(t.VehicleIDs, ","),
		Status:    st,
		Message:   fmt.Sprintf("Batch %s finished: %d of %d deliveries completed", t.BatchID, t.Completed, t.Total),
		Timestamp: time.Now(),
	})
}
