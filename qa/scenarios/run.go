package scenarios

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skyfleet/skyfleet/core/dispatch"
	"github.com/skyfleet/skyfleet/core/events"
	"github.com/skyfleet/skyfleet/core/model"
	"github.com/skyfleet/skyfleet/infra/fleet"
	"github.com/skyfleet/skyfleet/infra/logger"
	"github.com/skyfleet/skyfleet/infra/metrics"
	"github.com/skyfleet/skyfleet/infra/planner"
)

var defaultBase = dispatch.DefaultBase

// statusLog collects the terminal events of a run.
type statusLog struct {
	events.NopPublisher
	mu   sync.Mutex
	list []events.DeliveryStatus
}

func (l *statusLog) PublishDeliveryStatus(d events.DeliveryStatus) {
	l.mu.Lock()
	l.list = append(l.list, d)
	l.mu.Unlock()
}

func (l *statusLog) count(status model.Status, summary bool) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, d := range l.list {
		if d.Status == status && (d.DeliveryID == 0) == summary {
			n++
		}
	}
	return n
}

func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	vehicles := make([]model.Vehicle, len(sc.Vehicles))
	for i, v := range sc.Vehicles {
		vehicles[i] = v.ToModel()
	}
	registry, err := fleet.NewStaticRegistry(vehicles)
	if err != nil {
		t.Fatalf("fleet: %v", err)
	}
	base := sc.Base
	if base == (model.Waypoint{}) {
		base = defaultBase
	}

	log := &statusLog{}
	e, err := dispatch.NewEngine(
		dispatch.Config{TickMS: 2, SettleMS: 20, FallbackBase: &base},
		registry,
		planner.NewStraight(planner.StraightConfig{}, registry, nil, base),
		nil,
		dispatch.WithPublisher(log),
		dispatch.WithMetrics(sink),
		dispatch.WithLogger(logger.NopLogger{}),
	)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	defer e.Close()

	ctx := context.Background()
	var accepted, rejected, skipped, cancelled int
	for _, st := range sc.Steps {
		switch {
		case st.Submit != nil:
			if res := e.SubmitSingle(ctx, st.Submit.ToModel(base)); res.Accepted {
				accepted++
			} else {
				rejected++
			}
		case len(st.Batch) > 0:
			reqs := make([]model.DeliveryRequest, len(st.Batch))
			for i, d := range st.Batch {
				reqs[i] = d.ToModel(base)
			}
			res := e.SubmitBatch(ctx, "", reqs)
			if res.Accepted {
				accepted++
			} else {
				rejected++
			}
			skipped += len(res.Skipped)
		case st.Cancel != "":
			if e.Cancel(st.Cancel) {
				cancelled++
			}
		}
		if st.Settle {
			waitIdle(t, e)
		}
	}
	waitIdle(t, e)

	got := Expected{
		Accepted:  accepted,
		Rejected:  rejected,
		Skipped:   skipped,
		Completed: log.count(model.StatusCompleted, false),
		Failed:    log.count(model.StatusFailed, false),
		Cancelled: cancelled,
		Batches:   log.count(model.StatusCompleted, true) + log.count(model.StatusFailed, true),
	}
	if got != sc.Expected {
		t.Errorf("scenario %s: expected %+v, got %+v", sc.Name, sc.Expected, got)
	}

	if _, err := reg.Gather(); err != nil {
		t.Errorf("gather: %v", err)
	}
}

// waitIdle blocks until no reservation is held.
func waitIdle(t *testing.T, e *dispatch.Engine) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for len(e.CurrentReservations()) > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("missions still running: %v", e.CurrentReservations())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
