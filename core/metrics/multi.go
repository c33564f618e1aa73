package metrics

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAllocation forwards the records to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordAllocation(recs []AllocationRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordAllocation(recs); err != nil {
			return err
		}
	}
	return nil
}

// RecordClusterTick forwards tick summaries to sinks supporting them.
func (m *MultiSink) RecordClusterTick(t ClusterTick) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ClusterTickRecorder); ok {
			if err := rec.RecordClusterTick(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFault forwards fault events to sinks supporting them.
func (m *MultiSink) RecordFault(ev FaultEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FaultRecorder); ok {
			if err := rec.RecordFault(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes the sinks that hold resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
