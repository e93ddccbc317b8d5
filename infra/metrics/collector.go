package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skyfleet/skyfleet/core/events"
	coremetrics "github.com/skyfleet/skyfleet/core/metrics"
)

// eventRecorder adapts a sink to the events.Publisher interface.
type eventRecorder struct {
	rec coremetrics.DeliveryStatusRecorder
}

func (eventRecorder) PublishVehicleUpdate(events.VehicleUpdate) {}
func (eventRecorder) PublishSystemState(events.SystemState)     {}

func (r eventRecorder) PublishDeliveryStatus(d events.DeliveryStatus) {
	_ = r.rec.RecordDeliveryStatus(coremetrics.DeliveryStatusEvent{
		DeliveryID: d.DeliveryID,
		BatchID:    d.BatchID,
		VehicleID:  d.VehicleID,
		Status:     d.Status,
		Message:    d.Message,
		Time:       d.Timestamp,
	})
}

// StartEventCollector subscribes to the broadcaster and records delivery
// notifications on sinks that support them. It stops when the context is
// canceled or the broadcaster is closed; the returned channel is closed then.
// A nil channel is returned when there is nothing to collect.
func StartEventCollector(ctx context.Context, b *events.Broadcaster, sink coremetrics.MetricsSink) <-chan struct{} {
	if b == nil || sink == nil {
		return nil
	}
	rec, ok := sink.(coremetrics.DeliveryStatusRecorder)
	if !ok {
		return nil
	}
	return b.Attach(ctx, eventRecorder{rec: rec})
}

// RegisterEventDrops exposes the broadcaster drop counters as
// skyfleet_events_dropped_total{topic}.
func RegisterEventDrops(reg prometheus.Registerer, b *events.Broadcaster) error {
	for _, topic := range events.Topics {
		topic := topic
		c := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "skyfleet_events_dropped_total",
			Help:        "Events lost because a subscriber could not keep up",
			ConstLabels: prometheus.Labels{"topic": topic},
		}, func() float64 { return float64(b.Dropped()[topic]) })
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
