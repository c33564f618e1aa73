package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/clustercharge/core/metrics"
)

// PromSink records allocation outcomes in Prometheus metrics.
type PromSink struct {
	granted *prometheus.GaugeVec
	grants  *prometheus.CounterVec
	ticks   *prometheus.CounterVec
	faults  *prometheus.CounterVec

	mu     sync.Mutex
	active map[string]map[string]struct{} // vehicles with a granted series, by cluster
}

// NewPromSink registers allocation metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	granted, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vehicle_granted_power_kw",
		Help: "Vehicle-side power granted for the last tick",
	}, []string{"cluster_id", "vehicle_id"}))
	if err != nil {
		return nil, err
	}
	grants, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_grants_total",
		Help: "Grants issued, by binding demand limit and whether the demand was fully served",
	}, []string{"cluster_id", "limit", "full"}))
	if err != nil {
		return nil, err
	}
	ticks, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cluster_ticks_total",
		Help: "Cluster ticks processed",
	}, []string{"cluster_id", "skipped"}))
	if err != nil {
		return nil, err
	}
	faults, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cluster_fault_events_total",
		Help: "Aborted cluster ticks by phase",
	}, []string{"cluster_id", "phase"}))
	if err != nil {
		return nil, err
	}
	return &PromSink{
		granted: granted,
		grants:  grants,
		ticks:   ticks,
		faults:  faults,
		active:  make(map[string]map[string]struct{}),
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordAllocation updates the per-vehicle gauge and the grant counter.
// Gauges of vehicles missing from a cluster's latest grants are removed.
func (s *PromSink) RecordAllocation(recs []coremetrics.AllocationRecord) error {
	current := make(map[string]map[string]struct{})
	for _, r := range recs {
		if current[r.ClusterID] == nil {
			current[r.ClusterID] = make(map[string]struct{})
		}
		current[r.ClusterID][r.VehicleID] = struct{}{}
		s.granted.WithLabelValues(r.ClusterID, r.VehicleID).Set(r.GrantedKW)
		full := "false"
		if r.GrantedKW >= r.DemandKW {
			full = "true"
		}
		s.grants.WithLabelValues(r.ClusterID, r.Limit, full).Inc()
	}
	for clusterID, vehicles := range current {
		s.retain(clusterID, vehicles)
	}
	return nil
}

// retain drops the granted gauges of clusterID's vehicles not in keep.
func (s *PromSink) retain(clusterID string, keep map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.active[clusterID] {
		if _, ok := keep[id]; !ok {
			s.granted.DeleteLabelValues(clusterID, id)
		}
	}
	if len(keep) == 0 {
		delete(s.active, clusterID)
		return
	}
	s.active[clusterID] = keep
}

// RecordClusterTick counts processed ticks. A skipped tick clears the
// cluster's granted gauges.
func (s *PromSink) RecordClusterTick(t coremetrics.ClusterTick) error {
	skipped := "false"
	if t.Skipped {
		skipped = "true"
		s.retain(t.ClusterID, nil)
	}
	s.ticks.WithLabelValues(t.ClusterID, skipped).Inc()
	return nil
}

// RecordFault counts aborted ticks and clears the cluster's granted gauges.
func (s *PromSink) RecordFault(ev coremetrics.FaultEvent) error {
	s.retain(ev.ClusterID, nil)
	s.faults.WithLabelValues(ev.ClusterID, ev.Phase).Inc()
	return nil
}
