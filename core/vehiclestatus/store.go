// Package vehiclestatus keeps the last known state of every drone seen on
// the event streams, including drones that are back at base.
package vehiclestatus

import (
	"sort"
	"sync"
	"time"

	"github.com/skyfleet/skyfleet/core/events"
	"github.com/skyfleet/skyfleet/core/model"
)

// Outcome is the terminal result of the last mission flown by a drone.
type Outcome struct {
	DeliveryID int64        `json:"deliveryId"`
	BatchID    string       `json:"batchId,omitempty"`
	Status     model.Status `json:"status"`
	Message    string       `json:"message"`
	Timestamp  time.Time    `json:"timestamp"`
}

// Status captures the current known state of a drone.
type Status struct {
	VehicleID  string         `json:"droneId"`
	State      model.Status   `json:"status"`
	DeliveryID int64          `json:"deliveryId,omitempty"`
	BatchID    string         `json:"batchId,omitempty"`
	Position   model.Waypoint `json:"position"`
	Progress   float64        `json:"progress"`
	// InFlight is false once the drone reported a terminal status.
	InFlight    bool      `json:"inFlight"`
	LastOutcome *Outcome  `json:"lastOutcome,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	State    model.Status
	BatchID  string
	InFlight *bool
}

type Store interface {
	Set(Status)
	Get(id string) (Status, bool)
	List(Filter) []Status
	RecordOutcome(id string, o Outcome)
}

// MemoryStore is an in-memory Store fed from the engine event streams.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Status
	now  func() time.Time
}

var (
	_ Store            = (*MemoryStore)(nil)
	_ events.Publisher = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Status{}, now: time.Now}
}

func (s *MemoryStore) Set(st Status) {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = s.now()
	}
	s.mu.Lock()
	s.data[st.VehicleID] = st
	s.mu.Unlock()
}

func (s *MemoryStore) Get(id string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data[id]
	return st, ok
}

// RecordOutcome stores the terminal result and marks the drone as landed.
func (s *MemoryStore) RecordOutcome(id string, o Outcome) {
	s.mu.Lock()
	st := s.data[id]
	if st.VehicleID == "" {
		st.VehicleID = id
	}
	st.State = o.Status
	st.InFlight = false
	st.LastOutcome = &o
	st.UpdatedAt = o.Timestamp
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = s.now()
	}
	s.data[id] = st
	s.mu.Unlock()
}

func (s *MemoryStore) List(f Filter) []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		if f.State != "" && st.State != f.State {
			continue
		}
		if f.BatchID != "" && st.BatchID != f.BatchID {
			continue
		}
		if f.InFlight != nil && st.InFlight != *f.InFlight {
			continue
		}
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].VehicleID < res[j].VehicleID })
	return res
}

// PublishVehicleUpdate records the latest position and status of a drone.
func (s *MemoryStore) PublishVehicleUpdate(u events.VehicleUpdate) {
	s.mu.Lock()
	st := s.data[u.VehicleID]
	st.VehicleID = u.VehicleID
	st.State = u.Status
	st.DeliveryID = u.DeliveryID
	st.BatchID = u.BatchID
	st.Position = model.Waypoint{Lng: u.Longitude, Lat: u.Latitude}
	st.Progress = u.Progress
	st.InFlight = !u.Status.Terminal()
	st.UpdatedAt = u.Timestamp
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = s.now()
	}
	s.data[u.VehicleID] = st
	s.mu.Unlock()
}

func (s *MemoryStore) PublishSystemState(events.SystemState) {}

// PublishDeliveryStatus records per-drone outcomes. Batch summaries, which
// carry no delivery id, are ignored.
func (s *MemoryStore) PublishDeliveryStatus(d events.DeliveryStatus) {
	if d.DeliveryID == 0 || d.VehicleID == "" {
		return
	}
	s.RecordOutcome(d.VehicleID, Outcome{
		DeliveryID: d.DeliveryID,
		BatchID:    d.BatchID,
		Status:     d.Status,
		Message:    d.Message,
		Timestamp:  d.Timestamp,
	})
}
