package events

// Publisher receives the three event streams.
type Publisher interface {
	PublishVehicleUpdate(VehicleUpdate)
	PublishSystemState(SystemState)
	PublishDeliveryStatus(DeliveryStatus)
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) PublishVehicleUpdate(VehicleUpdate)   {}
func (NopPublisher) PublishSystemState(SystemState)       {}
func (NopPublisher) PublishDeliveryStatus(DeliveryStatus) {}

// MultiPublisher fans events out to several publishers in order.
type MultiPublisher []Publisher

func (m MultiPublisher) PublishVehicleUpdate(u VehicleUpdate) {
	for _, p := range m {
		p.PublishVehicleUpdate(u)
	}
}

func (m MultiPublisher) PublishSystemState(s SystemState) {
	for _, p := range m {
		p.PublishSystemState(s)
	}
}

func (m MultiPublisher) PublishDeliveryStatus(d DeliveryStatus) {
	for _, p := range m {
		p.PublishDeliveryStatus(d)
	}
}
