package events

import (
	"time"

	"github.com/skyfleet/skyfleet/core/model"
)

const (
	TopicVehicleUpdates = "vehicle-updates"
	TopicSystemState    = "system-state"
	TopicDeliveryStatus = "delivery-status"
)

// Topics lists every topic in a stable order.
var Topics = []string{TopicVehicleUpdates, TopicSystemState, TopicDeliveryStatus}

// VehicleUpdate is published at every step of a mission.
// Route and DeliveryPoint are only set on the first emission of a mission.
type VehicleUpdate struct {
	VehicleID              string           `json:"droneId"`
	DeliveryID             int64            `json:"deliveryId"`
	BatchID                string           `json:"batchId,omitempty"`
	Longitude              float64          `json:"longitude"`
	Latitude               float64          `json:"latitude"`
	Status                 model.Status     `json:"status"`
	StepIndex              int              `json:"stepIndex"`
	Progress               float64          `json:"progress"`
	CapacityUsed           float64          `json:"capacityUsed"`
	TotalCapacity          float64          `json:"totalCapacity"`
	CurrentDeliveryInBatch int              `json:"currentDeliveryInBatch,omitempty"`
	TotalDeliveriesInBatch int              `json:"totalDeliveriesInBatch,omitempty"`
	Route                  []model.Waypoint `json:"route,omitempty"`
	DeliveryPoint          *model.Waypoint  `json:"deliveryPoint,omitempty"`
	Timestamp              time.Time        `json:"timestamp"`
}

// SystemState is the aggregate reservation picture of the fleet.
type SystemState struct {
	ActiveVehicles    int       `json:"activeDrones"`
	AvailableVehicles int       `json:"availableDrones"`
	Timestamp         time.Time `json:"timestamp"`
}

// DeliveryStatus is the terminal outcome of a delivery or a whole batch.
type DeliveryStatus struct {
	DeliveryID int64        `json:"deliveryId,omitempty"`
	BatchID    string       `json:"batchId,omitempty"`
	VehicleID  string       `json:"droneId"`
	Status     model.Status `json:"status"`
	Message    string       `json:"message"`
	Timestamp  time.Time    `json:"timestamp"`
}
