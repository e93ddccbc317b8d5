package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skyfleet/skyfleet/core/events"
	"github.com/skyfleet/skyfleet/core/fleet"
	"github.com/skyfleet/skyfleet/core/logger"
	"github.com/skyfleet/skyfleet/core/metrics"
	"github.com/skyfleet/skyfleet/core/model"
)

// SubmissionResult is the synchronous answer to a single delivery.
type SubmissionResult struct {
	Accepted   bool   `json:"accepted"`
	DeliveryID int64  `json:"deliveryId"`
	VehicleID  string `json:"droneId,omitempty"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

// BatchResult is the synchronous answer to a batch submission.
type BatchResult struct {
	Accepted    bool     `json:"accepted"`
	BatchID     string   `json:"batchId"`
	VehicleID   string   `json:"droneId,omitempty"`
	VehicleIDs  []string `json:"droneIds,omitempty"`
	DeliveryIDs []int64  `json:"deliveryIds,omitempty"`
	// Skipped lists sub-deliveries no vehicle could be found for.
	Skipped      []int64  `json:"skipped"`
	FreeCount    int      `json:"freeDrones"`
	BusyVehicles []string `json:"busyDrones,omitempty"`
	Message      string   `json:"message"`
	Err          error    `json:"-"`
}

// Option customizes an Engine.
type Option func(*Engine)

// WithPublisher sets the destination of the event streams.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.pub = p
		}
	}
}

// WithMetrics sets the sink recording missions and submissions.
func WithMetrics(s metrics.MetricsSink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine matches deliveries to vehicles, reserves them and runs one mission
// goroutine per reservation.
type Engine struct {
	cfg     Config
	fleet   fleet.Registry
	planner fleet.Planner
	base    fleet.BaseProvider
	pub     events.Publisher
	sink    metrics.MetricsSink
	log     logger.Logger

	reg     *Registry
	batches *batchBook
	nextID  atomic.Int64

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closeMu sync.RWMutex
	closed  bool
}

// NewEngine creates an engine. A nil base provider uses the configured
// fallback base.
func NewEngine(cfg Config, vehicles fleet.Registry, planner fleet.Planner, base fleet.BaseProvider, opts ...Option) (*Engine, error) {
	if vehicles == nil || planner == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewEngine")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dispatch config: %w", err)
	}
	if base == nil {
		base = fleet.FixedBase(*cfg.FallbackBase)
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:     cfg,
		fleet:   vehicles,
		planner: planner,
		base:    base,
		pub:     events.NopPublisher{},
		sink:    metrics.NopSink{},
		log:     logger.NopLogger{},
		reg:     NewRegistry(),
		batches: newBatchBook(),
		ctx:     ctx,
		cancel:  cancel,
	}
	e.nextID.Store(cfg.FirstDeliveryID)
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// newRecord issues the next delivery id.
func (e *Engine) newRecord(req model.DeliveryRequest) model.DispatchRecord {
	return model.DispatchRecord{
		ID:           e.nextID.Add(1) - 1,
		Requirements: req.Requirements(),
		Delivery:     req.Location(),
	}
}

// SubmitSingle reserves the best matching vehicle for req and starts its
// mission. It returns as soon as the reservation is placed.
func (e *Engine) SubmitSingle(ctx context.Context, req model.DeliveryRequest) SubmissionResult {
	rec := e.newRecord(req)
	res := SubmissionResult{DeliveryID: rec.ID}
	if e.isClosed() {
		return e.rejectSingle(res, ErrClosed)
	}
	vehicles, err := e.fleet.ListVehicles(ctx)
	if err != nil {
		return e.rejectSingle(res, fmt.Errorf("list vehicles: %w", err))
	}
	base := e.currentBase(ctx)
	lease, v, ok := e.reserveBest(vehicles, rec, base)
	if !ok {
		return e.rejectSingle(res, ErrNoMatch)
	}
	res.Accepted = true
	res.VehicleID = v.ID
	res.Message = fmt.Sprintf("Delivery %d dispatched to drone %s", rec.ID, v.ID)

	e.publishSystemState()
	if !e.spawn(func() { e.runSingle(lease, v, rec) }) {
		e.reg.Release(lease)
		e.publishSystemState()
		return e.rejectSingle(SubmissionResult{DeliveryID: rec.ID}, ErrClosed)
	}
	e.recordSubmission(metrics.SubmissionEvent{
		Kind:       metrics.KindSingle,
		VehicleIDs: []string{v.ID},
		Accepted:   true,
		Deliveries: 1,
	})
	e.log.Infow("delivery dispatched", map[string]any{
		"delivery_id": rec.ID,
		"vehicle_id":  v.ID,
		"capacity":    rec.Requirements.Capacity,
	})
	return res
}

func (e *Engine) rejectSingle(res SubmissionResult, err error) SubmissionResult {
	res.Accepted = false
	res.Err = err
	switch {
	case errors.Is(err, ErrNoMatch):
		res.Message = "No available drone matches the delivery requirements"
	default:
		res.Message = err.Error()
	}
	e.recordSubmission(metrics.SubmissionEvent{
		Kind:       metrics.KindSingle,
		Accepted:   false,
		Reason:     res.Message,
		Deliveries: 1,
	})
	e.log.Infof("delivery %d rejected: %v", res.DeliveryID, err)
	return res
}

// reserveBest runs matcher and selector and reserves the winner. A lost race
// against a concurrent submission triggers a new match.
func (e *Engine) reserveBest(vehicles []model.Vehicle, rec model.DispatchRecord, base model.Waypoint) (Lease, model.Vehicle, bool) {
	for attempt := 0; attempt <= len(vehicles); attempt++ {
		ids := MatchCapable(vehicles, e.reg.Contains, rec.Requirements, e.cfg.CapacityTolerance)
		v, ok := SelectVehicle(pick(vehicles, ids), rec.Delivery, base, e.cfg.CapacityWeight)
		if !ok {
			return Lease{}, model.Vehicle{}, false
		}
		lease, ok := e.reg.TryReserve(Reservation{
			VehicleID:     v.ID,
			DeliveryID:    rec.ID,
			Position:      base,
			Status:        model.StatusPending,
			TotalCapacity: v.Capacity(),
			CapacityUsed:  rec.Requirements.Capacity,
		})
		if ok {
			return lease, v, true
		}
		reserveConflicts.Inc()
		e.log.Debugf("drone %s taken concurrently, matching again", v.ID)
	}
	return Lease{}, model.Vehicle{}, false
}

func (e *Engine) currentBase(ctx context.Context) model.Waypoint {
	b, err := e.base.CurrentBase(ctx)
	if err != nil {
		if !errors.Is(err, fleet.ErrNoBase) {
			e.log.Warnf("base provider: %v", err)
		}
		return *e.cfg.FallbackBase
	}
	return b
}

// CurrentReservations returns a snapshot of every active mission.
func (e *Engine) CurrentReservations() map[string]Reservation {
	return e.reg.Snapshot()
}

// Cancel removes the reservation of a vehicle. Its mission stops within one
// tick without emitting a terminal delivery event.
func (e *Engine) Cancel(vehicleID string) bool {
	ok := e.reg.Cancel(vehicleID)
	if ok {
		e.log.Infof("mission of drone %s cancelled", vehicleID)
	}
	return ok
}

// SystemState counts reserved and available vehicles by scanning the fleet
// against the reservation registry.
func (e *Engine) SystemState(ctx context.Context) (events.SystemState, error) {
	vehicles, err := e.fleet.ListVehicles(ctx)
	if err != nil {
		return events.SystemState{}, fmt.Errorf("list vehicles: %w", err)
	}
	return events.SystemState{
		ActiveVehicles:    e.reg.Len(),
		AvailableVehicles: len(freeVehicles(vehicles, e.reg.Contains)),
		Timestamp:         time.Now(),
	}, nil
}

// AvailableVehicles returns the vehicles without a reservation.
func (e *Engine) AvailableVehicles(ctx context.Context) ([]model.Vehicle, error) {
	vehicles, err := e.fleet.ListVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return freeVehicles(vehicles, e.reg.Contains), nil
}

// ActiveBatches returns the trackers of unfinished batches.
func (e *Engine) ActiveBatches() []BatchTracker {
	return e.batches.snapshot()
}

// Base returns the current launch coordinate.
func (e *Engine) Base(ctx context.Context) model.Waypoint {
	return e.currentBase(ctx)
}

// Close stops every mission and waits for their goroutines to exit.
// Running missions are treated as cancelled.
func (e *Engine) Close() error {
	e.closeMu.Lock()
	if e.closed {
		e.closeMu.Unlock()
		return nil
	}
	e.closed = true
	e.cancel()
	e.closeMu.Unlock()
	e.wg.Wait()
	return nil
}

func (e *Engine) isClosed() bool {
	e.closeMu.RLock()
	defer e.closeMu.RUnlock()
	return e.closed
}

// spawn starts fn on its own goroutine unless the engine is closed.
func (e *Engine) spawn(fn func()) bool {
	e.closeMu.RLock()
	defer e.closeMu.RUnlock()
	if e.closed {
		return false
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
	return true
}

// sleep waits for d and returns false if the engine is shut down meanwhile.
func (e *Engine) sleep(d time.Duration) bool {
	if d <= 0 {
		return e.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e *Engine) publishSystemState() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	st, err := e.SystemState(ctx)
	if err != nil {
		e.log.Warnf("system state: %v", err)
		return
	}
	activeReservations.Set(float64(st.ActiveVehicles))
	e.pub.PublishSystemState(st)
	if r, ok := e.sink.(metrics.FleetStateRecorder); ok {
		if err := r.RecordFleetState(metrics.FleetStateEvent{
			Active:    st.ActiveVehicles,
			Available: st.AvailableVehicles,
			Time:      st.Timestamp,
		}); err != nil {
			e.log.Errorf("fleet state metrics error: %v", err)
		}
	}
}

func (e *Engine) recordSubmission(ev metrics.SubmissionEvent) {
	submissionsTotal.WithLabelValues(ev.Kind, fmt.Sprint(ev.Accepted)).Inc()
	r, ok := e.sink.(metrics.SubmissionRecorder)
	if !ok {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if err := r.RecordSubmission(ev); err != nil {
		e.log.Errorf("submission metrics error: %v", err)
	}
}
