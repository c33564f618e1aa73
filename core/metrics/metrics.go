package metrics

import "time"

// AllocationRecord is the per-vehicle outcome of one cluster tick.
type AllocationRecord struct {
	TickID        string
	ClusterID     string
	ChargerID     string
	VehicleID     string
	Timestamp     time.Time
	Duration      time.Duration
	Rank          int
	DemandKW      float64
	GrantedKW     float64 // vehicle-side power
	GridKW        float64 // grid-side power drawn for the grant
	Efficiency    float64
	ConnectionAge time.Duration
	Limit         string // binding demand limit
}

// MetricsSink records allocation results for observability purposes.
type MetricsSink interface {
	RecordAllocation(records []AllocationRecord) error
}

// ClusterTick summarizes a cluster tick.
type ClusterTick struct {
	TickID    string
	ClusterID string
	Timestamp time.Time
	BudgetKW  float64
	GridKW    float64
	Connected int
	Skipped   bool
	Elapsed   time.Duration
}

// ClusterTickRecorder records cluster level tick summaries.
type ClusterTickRecorder interface {
	RecordClusterTick(t ClusterTick) error
}

// FaultEvent describes a cluster tick aborted by a configuration fault.
type FaultEvent struct {
	ClusterID string
	VehicleID string
	Phase     string
	Error     string
	Time      time.Time
}

// FaultRecorder records aborted cluster ticks.
type FaultRecorder interface {
	RecordFault(ev FaultEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordAllocation([]AllocationRecord) error { return nil }
func (NopSink) RecordClusterTick(ClusterTick) error       { return nil }
func (NopSink) RecordFault(FaultEvent) error              { return nil }
