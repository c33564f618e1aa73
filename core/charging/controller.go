package charging

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/clustercharge/core/charging/logging"
	"github.com/kilianp07/clustercharge/core/events"
	"github.com/kilianp07/clustercharge/core/logger"
	"github.com/kilianp07/clustercharge/core/metrics"
	"github.com/kilianp07/clustercharge/core/model"
	"github.com/kilianp07/clustercharge/core/monitoring"
	"github.com/kilianp07/clustercharge/internal/eventbus"
)

// ClusterController runs the per-cluster tick: collect demand, allocate the
// budget, dispatch the grants to the chargers. A single controller may tick
// several clusters concurrently.
type ClusterController struct {
	allocator Allocator
	logger    logger.Logger
	metrics   metrics.MetricsSink
	store     logging.LogStore
	bus       *eventbus.TypedBus[events.TickEvent]
	runID     string
	mu        sync.RWMutex
}

// NewClusterController creates a controller. A nil allocator selects the
// SeniorityAllocator; nil logger and sink disable the respective output.
func NewClusterController(alloc Allocator, log logger.Logger, sink metrics.MetricsSink) *ClusterController {
	if alloc == nil {
		alloc = SeniorityAllocator{}
	}
	if log == nil {
		log = nopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &ClusterController{allocator: alloc, logger: log, metrics: sink}
}

// SetLogStore configures the store used to persist tick decisions.
func (c *ClusterController) SetLogStore(store logging.LogStore) {
	c.mu.Lock()
	c.store = store
	c.mu.Unlock()
}

// SetBus configures the bus tick events are published on.
func (c *ClusterController) SetBus(bus *eventbus.TypedBus[events.TickEvent]) {
	c.mu.Lock()
	c.bus = bus
	c.mu.Unlock()
}

// SetRunID tags every subsequent decision log entry with id.
func (c *ClusterController) SetRunID(id string) {
	c.mu.Lock()
	c.runID = id
	c.mu.Unlock()
}

// Tick runs one tick for cluster. Vehicles are looked up in fleet by the ID
// their charger holds. A configuration fault aborts the tick before any
// charger is supplied and is returned as a *ClusterFault alongside the report.
func (c *ClusterController) Tick(cluster *model.Cluster, fleet *model.Fleet, tick Tick) (*TickReport, error) {
	start := time.Now()
	c.mu.RLock()
	rep := &TickReport{TickID: uuid.NewString(), RunID: c.runID, ClusterID: cluster.ID, Tick: tick}
	c.mu.RUnlock()

	if err := tick.Validate(); err != nil {
		return c.fail(rep, start, PhaseIdle, err)
	}

	chargers := cluster.ConnectedChargers()
	rep.Connected = len(chargers)
	if len(chargers) == 0 {
		rep.Skipped = true
		c.finish(rep, start)
		return rep, nil
	}

	// collect demand
	rep.Demands = make([]Demand, 0, len(chargers))
	for _, ch := range chargers {
		if err := ch.Validate(); err != nil {
			return c.fail(rep, start, PhaseCollectDemand, err)
		}
		v, ok := fleet.Get(ch.VehicleID)
		if !ok {
			return c.fail(rep, start, PhaseCollectDemand, &MissingVehicleError{VehicleID: ch.VehicleID, ChargerID: ch.ID})
		}
		d, err := EstimateDemand(v, *ch, tick)
		if err != nil {
			return c.fail(rep, start, PhaseCollectDemand, err)
		}
		rep.Demands = append(rep.Demands, d)
	}

	// allocate
	rep.Allocation = c.allocator.Allocate(cluster.BudgetAt(tick.Timestamp), rep.Demands)
	if err := rep.Allocation.CheckBudget(); err != nil {
		budgetViolations.Inc()
		c.logger.Errorf("cluster %s: %v", cluster.ID, err)
		monitoring.CaptureException(err, map[string]string{"cluster_id": cluster.ID})
	}

	// dispatch
	power := make(map[string]float64, len(rep.Allocation.Grants))
	for _, g := range rep.Allocation.Grants {
		power[g.Demand.ChargerID] = g.PowerKW
	}
	for _, ch := range chargers {
		ch.Supply(tick.Timestamp, tick.Duration, power[ch.ID])
	}

	c.finish(rep, start)
	return rep, nil
}

// fail turns err into a ClusterFault, reports it and returns it.
func (c *ClusterController) fail(rep *TickReport, start time.Time, phase Phase, err error) (*TickReport, error) {
	fault := &ClusterFault{ClusterID: rep.ClusterID, Timestamp: rep.Tick.Timestamp, Phase: phase, Err: err}
	rep.Fault = fault
	rep.Demands = nil

	clusterFaults.WithLabelValues(rep.ClusterID).Inc()
	tags := map[string]string{"cluster_id": rep.ClusterID}
	if vid := fault.VehicleID(); vid != "" {
		tags["vehicle_id"] = vid
	}
	monitoring.CaptureException(fault, tags)
	logger.With(c.logger, map[string]any{"cluster_id": rep.ClusterID}).Errorf("tick aborted: %v", fault)

	if fr, ok := c.metrics.(metrics.FaultRecorder); ok {
		if err := fr.RecordFault(*rep.FaultEvent()); err != nil {
			c.logger.Errorf("fault metrics error: %v", err)
		}
	}
	rep.Elapsed = time.Since(start)
	c.persist(rep)
	c.publish(rep)
	return rep, fault
}

// finish records a completed tick on every configured output.
func (c *ClusterController) finish(rep *TickReport, start time.Time) {
	rep.Elapsed = time.Since(start)
	id := rep.ClusterID
	connectedChargers.WithLabelValues(id).Set(float64(rep.Connected))
	clusterGridDraw.WithLabelValues(id).Set(rep.Allocation.GridTotal())
	tickLatency.WithLabelValues(id).Observe(rep.Elapsed.Seconds())
	if !rep.Skipped {
		clusterBudget.WithLabelValues(id).Set(rep.Allocation.BudgetKW)
		c.logger.Debugw("cluster tick", map[string]any{
			"cluster_id":   id,
			"budget_kw":    rep.Allocation.BudgetKW,
			"grid_kw":      rep.Allocation.GridTotal(),
			"remaining_kw": rep.Allocation.RemainingKW,
			"vehicles":     len(rep.Allocation.Grants),
		})
		if err := c.metrics.RecordAllocation(rep.Records()); err != nil {
			c.logger.Errorf("metrics error: %v", err)
		}
	}
	if tr, ok := c.metrics.(metrics.ClusterTickRecorder); ok {
		if err := tr.RecordClusterTick(rep.Summary()); err != nil {
			c.logger.Errorf("tick metrics error: %v", err)
		}
	}
	if !rep.Skipped {
		c.persist(rep)
	}
	c.publish(rep)
}

func (c *ClusterController) persist(rep *TickReport) {
	c.mu.RLock()
	store := c.store
	c.mu.RUnlock()
	if store == nil {
		return
	}
	if err := store.Append(context.Background(), rep.LogRecord()); err != nil {
		c.logger.Errorf("decision log error: %v", err)
	}
}

func (c *ClusterController) publish(rep *TickReport) {
	c.mu.RLock()
	bus := c.bus
	c.mu.RUnlock()
	if bus == nil {
		return
	}
	bus.Publish(events.TickEvent{
		Summary:     rep.Summary(),
		Allocations: rep.Records(),
		Fault:       rep.FaultEvent(),
	})
}

// Close releases the decision log store and the event bus.
func (c *ClusterController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bus != nil {
		c.bus.Close()
		c.bus = nil
	}
	if c.store != nil {
		err := c.store.Close()
		c.store = nil
		return err
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
