package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfleet/skyfleet/core/model"
)

type recordingPublisher struct {
	mu         sync.Mutex
	vehicles   []VehicleUpdate
	states     []SystemState
	deliveries []DeliveryStatus
}

func (r *recordingPublisher) PublishVehicleUpdate(u VehicleUpdate) {
	r.mu.Lock()
	r.vehicles = append(r.vehicles, u)
	r.mu.Unlock()
}

func (r *recordingPublisher) PublishSystemState(s SystemState) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recordingPublisher) PublishDeliveryStatus(d DeliveryStatus) {
	r.mu.Lock()
	r.deliveries = append(r.deliveries, d)
	r.mu.Unlock()
}

func (r *recordingPublisher) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.vehicles), len(r.states), len(r.deliveries)
}

func TestBroadcasterSubscribe(t *testing.T) {
	b := NewBroadcaster(4)
	defer b.Close()
	sub := b.Subscribe()

	b.PublishVehicleUpdate(VehicleUpdate{VehicleID: "d1", StepIndex: 3})
	b.PublishSystemState(SystemState{ActiveVehicles: 1, AvailableVehicles: 2})
	b.PublishDeliveryStatus(DeliveryStatus{DeliveryID: 1000, Status: model.StatusCompleted})

	select {
	case u := <-sub.Vehicles:
		assert.Equal(t, "d1", u.VehicleID)
		assert.Equal(t, 3, u.StepIndex)
	case <-time.After(time.Second):
		t.Fatal("no vehicle update")
	}
	select {
	case s := <-sub.States:
		assert.Equal(t, 1, s.ActiveVehicles)
	case <-time.After(time.Second):
		t.Fatal("no system state")
	}
	select {
	case d := <-sub.Deliveries:
		assert.Equal(t, model.StatusCompleted, d.Status)
	case <-time.After(time.Second):
		t.Fatal("no delivery status")
	}
}

func TestBroadcasterAttachForwardsInOrder(t *testing.T) {
	b := NewBroadcaster(32)
	rec := &recordingPublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := b.Attach(ctx, rec)

	for i := 0; i < 10; i++ {
		b.PublishVehicleUpdate(VehicleUpdate{VehicleID: "d1", StepIndex: i})
	}
	b.PublishSystemState(SystemState{})
	b.PublishDeliveryStatus(DeliveryStatus{})

	require.Eventually(t, func() bool {
		v, s, d := rec.counts()
		return v == 10 && s == 1 && d == 1
	}, time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	for i, u := range rec.vehicles {
		if u.StepIndex != i {
			t.Fatalf("update %d out of order: %d", i, u.StepIndex)
		}
	}
	rec.mu.Unlock()

	b.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop after Close")
	}
}

func TestBroadcasterAttachStopsOnContext(t *testing.T) {
	b := NewBroadcaster(0)
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := b.Attach(ctx, NopPublisher{})
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop after cancel")
	}
}

func TestMultiPublisher(t *testing.T) {
	a, c := &recordingPublisher{}, &recordingPublisher{}
	m := MultiPublisher{a, c}
	m.PublishVehicleUpdate(VehicleUpdate{})
	m.PublishSystemState(SystemState{})
	m.PublishDeliveryStatus(DeliveryStatus{})
	for _, r := range []*recordingPublisher{a, c} {
		v, s, d := r.counts()
		assert.Equal(t, 1, v)
		assert.Equal(t, 1, s)
		assert.Equal(t, 1, d)
	}
}

func TestBroadcasterDropped(t *testing.T) {
	b := NewBroadcaster(1)
	defer b.Close()
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.PublishSystemState(SystemState{ActiveVehicles: 1})
	b.PublishSystemState(SystemState{ActiveVehicles: 2})
	b.PublishDeliveryStatus(DeliveryStatus{DeliveryID: 1})

	d := b.Dropped()
	assert.Equal(t, uint64(1), d[TopicSystemState])
	assert.Zero(t, d[TopicDeliveryStatus])
	assert.Zero(t, d[TopicVehicleUpdates])
}
