package dispatch

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfleet/skyfleet/core/model"
)

func TestRegistryTryReserveExclusive(t *testing.T) {
	r := NewRegistry()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, ok := r.TryReserve(Reservation{VehicleID: "d1", DeliveryID: int64(i)}); ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, r.Len())
}

func TestRegistryStaleLease(t *testing.T) {
	r := NewRegistry()
	old, ok := r.TryReserve(Reservation{VehicleID: "d1", Status: model.StatusPending})
	require.True(t, ok)
	require.True(t, r.Cancel("d1"))

	assert.False(t, r.Held(old))
	assert.False(t, r.Update(old, func(*Reservation) { t.Fatal("must not run on removed entry") }))

	fresh, ok := r.TryReserve(Reservation{VehicleID: "d1"})
	require.True(t, ok)
	// the cancelled mission must not release the new one
	assert.False(t, r.Release(old))
	assert.True(t, r.Contains("d1"))
	assert.True(t, r.Release(fresh))
	assert.False(t, r.Contains("d1"))
}

func TestRegistrySnapshotIsCopy(t *testing.T) {
	r := NewRegistry()
	l, _ := r.TryReserve(Reservation{VehicleID: "d1", Status: model.StatusPending})
	snap := r.Snapshot()
	require.True(t, r.Update(l, func(res *Reservation) { res.Status = model.StatusFlying }))
	assert.Equal(t, model.StatusPending, snap["d1"].Status)
	got, ok := r.Get("d1")
	require.True(t, ok)
	assert.Equal(t, model.StatusFlying, got.Status)
	assert.False(t, got.StartedAt.IsZero())
}

func TestRegistryVehicleIDsSorted(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		r.TryReserve(Reservation{VehicleID: id})
	}
	assert.Equal(t, []string{"a", "b", "c"}, r.VehicleIDs())
}

func TestReservationProgress(t *testing.T) {
	res := Reservation{Path: make([]model.Waypoint, 10), StepIndex: 5}
	assert.InDelta(t, 0.5, res.Progress(), 1e-9)
	res.Status = model.StatusCompleted
	assert.Equal(t, 1.0, res.Progress())
	assert.Equal(t, 0.0, Reservation{}.Progress())
}

func BenchmarkRegistryContains(b *testing.B) {
	r := NewRegistry()
	for i := 0; i < 100; i++ {
		r.TryReserve(Reservation{VehicleID: fmt.Sprintf("d%d", i)})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Contains("d50")
	}
}
