package vehiclestatus

import (
	"testing"
	"time"

	"github.com/skyfleet/skyfleet/core/events"
	"github.com/skyfleet/skyfleet/core/model"
)

func TestMemoryStore_Filter(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{VehicleID: "v1", State: model.StatusFlying, BatchID: "b1", InFlight: true})
	s.Set(Status{VehicleID: "v2", State: model.StatusCompleted})
	out := s.List(Filter{State: model.StatusFlying})
	if len(out) != 1 || out[0].VehicleID != "v1" {
		t.Fatalf("filter failed: %#v", out)
	}
	out = s.List(Filter{BatchID: "b1"})
	if len(out) != 1 || out[0].VehicleID != "v1" {
		t.Fatalf("batch filter failed: %#v", out)
	}
}

func TestMemoryStore_FilterInFlight(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{VehicleID: "v1", InFlight: true})
	s.Set(Status{VehicleID: "v2"})
	landed := false
	out := s.List(Filter{InFlight: &landed})
	if len(out) != 1 || out[0].VehicleID != "v2" {
		t.Fatalf("in-flight filter failed: %#v", out)
	}
}

func TestMemoryStore_ListSorted(t *testing.T) {
	s := NewMemoryStore()
	for _, id := range []string{"c", "a", "b"} {
		s.Set(Status{VehicleID: id})
	}
	out := s.List(Filter{})
	if len(out) != 3 || out[0].VehicleID != "a" || out[2].VehicleID != "c" {
		t.Fatalf("unexpected order: %#v", out)
	}
}

func TestMemoryStore_RecordOutcome(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{VehicleID: "v1", State: model.StatusReturning, InFlight: true})
	s.RecordOutcome("v1", Outcome{DeliveryID: 1000, Status: model.StatusCompleted})
	st, ok := s.Get("v1")
	if !ok || st.State != model.StatusCompleted || st.InFlight {
		t.Fatalf("status not updated: %#v", st)
	}
	if st.LastOutcome == nil || st.LastOutcome.DeliveryID != 1000 {
		t.Fatalf("outcome missing: %#v", st.LastOutcome)
	}
}

func TestMemoryStore_RecordOutcomeNew(t *testing.T) {
	s := NewMemoryStore()
	s.RecordOutcome("v3", Outcome{Status: model.StatusFailed})
	out := s.List(Filter{})
	if len(out) != 1 || out[0].VehicleID != "v3" || out[0].UpdatedAt.IsZero() {
		t.Fatalf("auto create failed %#v", out)
	}
}

func TestMemoryStore_FedFromEvents(t *testing.T) {
	s := NewMemoryStore()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.PublishVehicleUpdate(events.VehicleUpdate{
		VehicleID: "d1", DeliveryID: 1001, Longitude: -3.19, Latitude: 55.94,
		Status: model.StatusFlying, Progress: 0.5, Timestamp: ts,
	})
	st, _ := s.Get("d1")
	if !st.InFlight || st.Position.Lng != -3.19 || st.Progress != 0.5 || !st.UpdatedAt.Equal(ts) {
		t.Fatalf("update not applied: %#v", st)
	}

	// batch summaries are ignored
	s.PublishDeliveryStatus(events.DeliveryStatus{BatchID: "b", VehicleID: "d1,d2", Status: model.StatusCompleted})
	if _, ok := s.Get("d1,d2"); ok {
		t.Fatalf("batch summary stored")
	}

	s.PublishDeliveryStatus(events.DeliveryStatus{DeliveryID: 1001, VehicleID: "d1", Status: model.StatusCompleted, Message: "done"})
	st, _ = s.Get("d1")
	if st.InFlight || st.LastOutcome == nil || st.LastOutcome.Message != "done" {
		t.Fatalf("outcome not applied: %#v", st)
	}
	// position survives landing
	if st.Position.Lat != 55.94 {
		t.Fatalf("position lost: %#v", st.Position)
	}
}
