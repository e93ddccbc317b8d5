package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordMission forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordMission(ev MissionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordMission(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordSubmission forwards submissions to sinks supporting them.
func (m *MultiSink) RecordSubmission(ev SubmissionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SubmissionRecorder); ok {
			if err := rec.RecordSubmission(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFleetState forwards occupancy snapshots to sinks supporting them.
func (m *MultiSink) RecordFleetState(ev FleetStateEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FleetStateRecorder); ok {
			if err := rec.RecordFleetState(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordDeliveryStatus forwards delivery notifications to sinks supporting them.
func (m *MultiSink) RecordDeliveryStatus(ev DeliveryStatusEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(DeliveryStatusRecorder); ok {
			if err := rec.RecordDeliveryStatus(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink holding resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
