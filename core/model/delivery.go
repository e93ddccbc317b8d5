package model

// DeliveryRequest is a caller supplied delivery order.
type DeliveryRequest struct {
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Capacity  float64 `json:"capacity" validate:"gt=0"`
	Cooling   bool    `json:"cooling"`
	Heating   bool    `json:"heating"`
}

// Location returns the delivery target as a waypoint.
func (r DeliveryRequest) Location() Waypoint {
	return Waypoint{Lng: r.Longitude, Lat: r.Latitude}
}

// Requirements returns the capability tuple a vehicle must satisfy.
func (r DeliveryRequest) Requirements() Requirements {
	return Requirements{Capacity: r.Capacity, Cooling: r.Cooling, Heating: r.Heating}
}

// Requirements is the capability tuple requested by a delivery.
type Requirements struct {
	Capacity float64 `json:"capacity"`
	Cooling  bool    `json:"cooling"`
	Heating  bool    `json:"heating"`
}

// Merge returns the aggregate of r and o: capacities are summed and feature
// flags are OR-ed.
func (r Requirements) Merge(o Requirements) Requirements {
	return Requirements{
		Capacity: r.Capacity + o.Capacity,
		Cooling:  r.Cooling || o.Cooling,
		Heating:  r.Heating || o.Heating,
	}
}

// DispatchRecord is an accepted delivery with its process-wide identifier.
type DispatchRecord struct {
	ID           int64        `json:"id"`
	Requirements Requirements `json:"requirements"`
	Delivery     Waypoint     `json:"delivery"`
}

// DeliverySegment is the planned flight path serving one delivery.
type DeliverySegment struct {
	DeliveryID int64      `json:"deliveryId"`
	FlightPath []Waypoint `json:"flightPath"`
}

// VehiclePlan groups the ordered segments the planner assigned to a vehicle.
type VehiclePlan struct {
	VehicleID  string            `json:"droneId"`
	Deliveries []DeliverySegment `json:"deliveries"`
}

// DeliveryIDs returns the ids of the planned deliveries in order.
func (p VehiclePlan) DeliveryIDs() []int64 {
	ids := make([]int64, 0, len(p.Deliveries))
	for _, d := range p.Deliveries {
		ids = append(ids, d.DeliveryID)
	}
	return ids
}
