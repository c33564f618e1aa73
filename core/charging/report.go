package charging

import (
	"time"

	"github.com/kilianp07/clustercharge/core/charging/logging"
	"github.com/kilianp07/clustercharge/core/metrics"
)

// TickReport is the outcome of one cluster tick.
type TickReport struct {
	TickID     string
	RunID      string
	ClusterID  string
	Tick       Tick
	Skipped    bool // no vehicle connected, nothing was computed
	Connected  int
	Demands    []Demand // in charger ID order
	Allocation Allocation
	Fault      *ClusterFault
	Elapsed    time.Duration
}

// Summary converts the report into a cluster level metrics record.
func (r *TickReport) Summary() metrics.ClusterTick {
	return metrics.ClusterTick{
		TickID:    r.TickID,
		ClusterID: r.ClusterID,
		Timestamp: r.Tick.Timestamp,
		BudgetKW:  r.Allocation.BudgetKW,
		GridKW:    r.Allocation.GridTotal(),
		Connected: r.Connected,
		Skipped:   r.Skipped,
		Elapsed:   r.Elapsed,
	}
}

// Records converts the grants into per-vehicle metrics records.
func (r *TickReport) Records() []metrics.AllocationRecord {
	out := make([]metrics.AllocationRecord, 0, len(r.Allocation.Grants))
	for _, g := range r.Allocation.Grants {
		out = append(out, metrics.AllocationRecord{
			TickID:        r.TickID,
			ClusterID:     r.ClusterID,
			ChargerID:     g.Demand.ChargerID,
			VehicleID:     g.Demand.VehicleID,
			Timestamp:     r.Tick.Timestamp,
			Duration:      r.Tick.Duration,
			Rank:          g.Rank,
			DemandKW:      g.Demand.PowerKW,
			GrantedKW:     g.PowerKW,
			GridKW:        g.GridKW,
			Efficiency:    g.Demand.Efficiency,
			ConnectionAge: g.Demand.ConnectionAge,
			Limit:         string(g.Demand.Limit),
		})
	}
	return out
}

// FaultEvent describes the fault of an aborted tick, nil otherwise.
func (r *TickReport) FaultEvent() *metrics.FaultEvent {
	if r.Fault == nil {
		return nil
	}
	return &metrics.FaultEvent{
		ClusterID: r.ClusterID,
		VehicleID: r.Fault.VehicleID(),
		Phase:     r.Fault.Phase.String(),
		Error:     r.Fault.Err.Error(),
		Time:      r.Tick.Timestamp,
	}
}

// LogRecord converts the report into a decision log entry.
func (r *TickReport) LogRecord() logging.LogRecord {
	rec := logging.LogRecord{
		TickID:      r.TickID,
		RunID:       r.RunID,
		Timestamp:   r.Tick.Timestamp,
		Duration:    r.Tick.Duration,
		ClusterID:   r.ClusterID,
		BudgetKW:    r.Allocation.BudgetKW,
		RemainingKW: r.Allocation.RemainingKW,
		Grants:      make([]logging.GrantRecord, 0, len(r.Allocation.Grants)),
	}
	for _, g := range r.Allocation.Grants {
		rec.Grants = append(rec.Grants, logging.GrantRecord{
			Rank:                 g.Rank,
			VehicleID:            g.Demand.VehicleID,
			ChargerID:            g.Demand.ChargerID,
			DemandKW:             g.Demand.PowerKW,
			GrantedKW:            g.PowerKW,
			GridKW:               g.GridKW,
			Efficiency:           g.Demand.Efficiency,
			ConnectionAgeSeconds: g.Demand.ConnectionAge.Seconds(),
			Limit:                string(g.Demand.Limit),
		})
	}
	if r.Fault != nil {
		rec.Fault = r.Fault.Error()
	}
	return rec
}
