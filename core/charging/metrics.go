package charging

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	clusterBudget     *prometheus.GaugeVec
	clusterGridDraw   *prometheus.GaugeVec
	connectedChargers *prometheus.GaugeVec
	tickLatency       *prometheus.HistogramVec
	clusterFaults     *prometheus.CounterVec
	budgetViolations  prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.GaugeVec, *prometheus.GaugeVec, *prometheus.GaugeVec, *prometheus.HistogramVec, *prometheus.CounterVec, prometheus.Counter) {
	budget := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cluster_budget_kw",
			Help: "Grid-side power budget of the cluster for the last tick",
		},
		[]string{"cluster_id"},
	)
	draw := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cluster_grid_draw_kw",
			Help: "Grid-side power allocated to the cluster's chargers for the last tick",
		},
		[]string{"cluster_id"},
	)
	conn := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cluster_connected_chargers",
			Help: "Number of chargers with a vehicle connected",
		},
		[]string{"cluster_id"},
	)
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cluster_tick_duration_seconds",
			Help:    "Wall time spent computing one cluster tick",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
		[]string{"cluster_id"},
	)
	faults := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluster_tick_faults_total",
			Help: "Number of cluster ticks aborted by a configuration fault",
		},
		[]string{"cluster_id"},
	)
	viol := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "allocation_budget_violations_total",
			Help: "Allocations exceeding the cluster budget (allocator bug)",
		},
	)
	return budget, draw, conn, lat, faults, viol
}

func init() {
	clusterBudget, clusterGridDraw, connectedChargers, tickLatency, clusterFaults, budgetViolations = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers charging metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(clusterBudget, clusterGridDraw, connectedChargers, tickLatency, clusterFaults, budgetViolations)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	clusterBudget, clusterGridDraw, connectedChargers, tickLatency, clusterFaults, budgetViolations = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
