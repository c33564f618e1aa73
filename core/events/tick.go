package events

import "github.com/kilianp07/clustercharge/core/metrics"

// TickEvent is published by the cluster controller after each tick. Fault is
// set when the tick was aborted; Allocations is then empty.
type TickEvent struct {
	Summary     metrics.ClusterTick
	Allocations []metrics.AllocationRecord
	Fault       *metrics.FaultEvent
}

// Failed reports whether the tick was aborted.
func (e TickEvent) Failed() bool { return e.Fault != nil }
