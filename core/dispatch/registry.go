package dispatch

import (
	"sort"
	"sync"
	"time"

	"github.com/skyfleet/skyfleet/core/model"
)

// Reservation is the active mission state of a vehicle. At most one exists
// per vehicle id.
type Reservation struct {
	VehicleID  string `json:"droneId"`
	DeliveryID int64  `json:"deliveryId,omitempty"`
	BatchID    string `json:"batchId,omitempty"`
	// DeliveryIDs lists the ordered sub-deliveries of a batch mission.
	DeliveryIDs    []int64          `json:"deliveryIds,omitempty"`
	Path           []model.Waypoint `json:"flightPath,omitempty"`
	SegmentLengths []int            `json:"segmentLengths,omitempty"`
	StepIndex      int              `json:"stepIndex"`
	Position       model.Waypoint   `json:"position"`
	Status         model.Status     `json:"status"`
	TotalCapacity  float64          `json:"totalCapacity"`
	CapacityUsed   float64          `json:"capacityUsed"`
	StartedAt      time.Time        `json:"startedAt"`

	token uint64
}

// Progress returns the normalized progress along the path.
func (r Reservation) Progress() float64 {
	if r.Status == model.StatusCompleted {
		return 1
	}
	return progress(r.StepIndex, len(r.Path))
}

// IsBatch reports whether the reservation belongs to a batch mission.
func (r Reservation) IsBatch() bool { return r.BatchID != "" }

// Lease identifies one specific reservation. It stays valid until the entry
// is released or removed by Cancel.
type Lease struct {
	VehicleID string
	token     uint64
}

// Registry maps vehicle ids to their active mission. Reads are concurrent and
// TryReserve is an atomic insert-if-absent.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Reservation
	seq     uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Reservation)}
}

// TryReserve stores res unless the vehicle already holds a reservation.
func (r *Registry) TryReserve(res Reservation) (Lease, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.entries[res.VehicleID]; busy {
		return Lease{}, false
	}
	r.seq++
	res.token = r.seq
	if res.StartedAt.IsZero() {
		res.StartedAt = time.Now()
	}
	r.entries[res.VehicleID] = &res
	return Lease{VehicleID: res.VehicleID, token: res.token}, true
}

// Update mutates the reservation held by l. It returns false when the entry
// has been removed, which the owning mission treats as cancellation.
func (r *Registry) Update(l Lease, fn func(*Reservation)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.entries[l.VehicleID]
	if !ok || res.token != l.token {
		return false
	}
	fn(res)
	return true
}

// Held reports whether l still designates a live reservation.
func (r *Registry) Held(l Lease) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.entries[l.VehicleID]
	return ok && res.token == l.token
}

// Release removes the reservation held by l. Entries created by another
// lease for the same vehicle are left untouched.
func (r *Registry) Release(l Lease) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.entries[l.VehicleID]
	if !ok || res.token != l.token {
		return false
	}
	delete(r.entries, l.VehicleID)
	return true
}

// Cancel removes the reservation of a vehicle out-of-band. The owning mission
// stops within one tick.
func (r *Registry) Cancel(vehicleID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[vehicleID]; !ok {
		return false
	}
	delete(r.entries, vehicleID)
	return true
}

// Contains reports whether the vehicle is reserved.
func (r *Registry) Contains(vehicleID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[vehicleID]
	return ok
}

// Len returns the number of reservations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Get returns a copy of the reservation of a vehicle.
func (r *Registry) Get(vehicleID string) (Reservation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.entries[vehicleID]
	if !ok {
		return Reservation{}, false
	}
	return *res, true
}

// Snapshot returns a copy of every reservation keyed by vehicle id.
// Paths are shared; they are never mutated once set.
func (r *Registry) Snapshot() map[string]Reservation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Reservation, len(r.entries))
	for id, res := range r.entries {
		out[id] = *res
	}
	return out
}

// VehicleIDs returns the reserved vehicle ids in lexical order.
func (r *Registry) VehicleIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
