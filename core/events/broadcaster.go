package events

import (
	"context"

	"github.com/skyfleet/skyfleet/internal/eventbus"
)

// Broadcaster is the in-process Publisher used by the engine. Missions publish
// into it without blocking and observers consume it through subscriptions.
type Broadcaster struct {
	vehicles   *eventbus.TypedBus[VehicleUpdate]
	states     *eventbus.TypedBus[SystemState]
	deliveries *eventbus.TypedBus[DeliveryStatus]
}

// Subscription holds one receive channel per topic.
type Subscription struct {
	Vehicles   <-chan VehicleUpdate
	States     <-chan SystemState
	Deliveries <-chan DeliveryStatus
}

// NewBroadcaster creates a Broadcaster whose subscribers buffer up to buffer
// events per topic. A non-positive buffer uses eventbus.DefaultBuffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = eventbus.DefaultBuffer
	}
	return &Broadcaster{
		vehicles:   eventbus.NewTypedWithBuffer[VehicleUpdate](buffer),
		states:     eventbus.NewTypedWithBuffer[SystemState](buffer),
		deliveries: eventbus.NewTypedWithBuffer[DeliveryStatus](buffer),
	}
}

func (b *Broadcaster) PublishVehicleUpdate(u VehicleUpdate) { b.vehicles.Publish(u) }

func (b *Broadcaster) PublishSystemState(s SystemState) { b.states.Publish(s) }

func (b *Broadcaster) PublishDeliveryStatus(d DeliveryStatus) { b.deliveries.Publish(d) }

// Dropped returns, per topic, how many deliveries were lost to subscribers
// that could not keep up.
func (b *Broadcaster) Dropped() map[string]uint64 {
	return map[string]uint64{
		TopicVehicleUpdates: b.vehicles.Dropped(),
		TopicSystemState:    b.states.Dropped(),
		TopicDeliveryStatus: b.deliveries.Dropped(),
	}
}

// Subscribe registers a subscriber on every topic.
func (b *Broadcaster) Subscribe() Subscription {
	return Subscription{
		Vehicles:   b.vehicles.Subscribe(),
		States:     b.states.Subscribe(),
		Deliveries: b.deliveries.Subscribe(),
	}
}

// Unsubscribe removes the subscription and closes its channels.
func (b *Broadcaster) Unsubscribe(s Subscription) {
	b.vehicles.Unsubscribe(s.Vehicles)
	b.states.Unsubscribe(s.States)
	b.deliveries.Unsubscribe(s.Deliveries)
}

// Close closes every subscription.
func (b *Broadcaster) Close() {
	b.vehicles.Close()
	b.states.Close()
	b.deliveries.Close()
}

// Attach forwards every event to p until ctx is done or the broadcaster is
// closed. Per-topic order is preserved. The returned channel is closed once
// forwarding stops.
func (b *Broadcaster) Attach(ctx context.Context, p Publisher) <-chan struct{} {
	sub := b.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		vch, sch, dch := sub.Vehicles, sub.States, sub.Deliveries
		for vch != nil || sch != nil || dch != nil {
			select {
			case <-ctx.Done():
				b.Unsubscribe(sub)
				return
			case u, ok := <-vch:
				if !ok {
					vch = nil
					continue
				}
				p.PublishVehicleUpdate(u)
			case s, ok := <-sch:
				if !ok {
					sch = nil
					continue
				}
				p.PublishSystemState(s)
			case d, ok := <-dch:
				if !ok {
					dch = nil
					continue
				}
				p.PublishDeliveryStatus(d)
			}
		}
	}()
	return done
}
