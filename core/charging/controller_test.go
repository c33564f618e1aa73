package charging

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/clustercharge/core/charging/logging"
	"github.com/kilianp07/clustercharge/core/events"
	"github.com/kilianp07/clustercharge/core/model"
	"github.com/kilianp07/clustercharge/core/monitoring"
	"github.com/kilianp07/clustercharge/internal/eventbus"
)

// workedExample builds the two-vehicle cluster sharing a 10 kW budget.
func workedExample(t *testing.T, log *supplyLog) (*model.Cluster, *model.Fleet) {
	t.Helper()
	cluster, err := model.NewCluster("cc1", model.ConstantBudget(10),
		&model.Charger{ID: "cu1", MaxPowerKW: 5, Efficiency: 0.95, VehicleID: "A", Supplier: log.supplier("cu1")},
		&model.Charger{ID: "cu2", MaxPowerKW: 8, Efficiency: 0.90, VehicleID: "B", Supplier: log.supplier("cu2")},
	)
	require.NoError(t, err)
	fleet := model.NewFleet(
		model.Vehicle{ID: "A", SoC: 0.2, TargetSoC: 0.9, BatteryKWh: 100, ArrivalTime: ts0.Add(-3600 * time.Second)},
		model.Vehicle{ID: "B", SoC: 0.2, TargetSoC: 0.9, BatteryKWh: 100, ArrivalTime: ts0.Add(-1800 * time.Second)},
	)
	return cluster, fleet
}

func TestClusterController_WorkedExample(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	log := newSupplyLog()
	cluster, fleet := workedExample(t, log)
	sink := &recordingSink{}
	ctrl := NewClusterController(nil, nil, sink)

	rep, err := ctrl.Tick(cluster, fleet, quarter())
	require.NoError(t, err)
	assert.False(t, rep.Skipped)
	assert.Equal(t, 2, rep.Connected)
	assert.InDelta(t, 5, log.last("cu1"), 1e-9)
	assert.InDelta(t, 4.263158, log.last("cu2"), 1e-6)
	assert.Equal(t, 2, log.count())

	assert.InDelta(t, 10, testutil.ToFloat64(clusterBudget.WithLabelValues("cc1")), 1e-9)
	assert.InDelta(t, 10, testutil.ToFloat64(clusterGridDraw.WithLabelValues("cc1")), 1e-9)
	assert.Equal(t, 2.0, testutil.ToFloat64(connectedChargers.WithLabelValues("cc1")))

	require.Len(t, sink.allocs, 2)
	assert.Equal(t, "A", sink.allocs[0].VehicleID)
	assert.Equal(t, rep.TickID, sink.allocs[0].TickID)
	require.Len(t, sink.ticks, 1)
	assert.Empty(t, sink.faults)
}

func TestClusterController_EmptyCluster(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	log := newSupplyLog()
	budget := &countingBudget{limit: 50}
	cluster, err := model.NewCluster("cc1", budget,
		&model.Charger{ID: "cu1", MaxPowerKW: 11, Efficiency: 1, Supplier: log.supplier("cu1")},
	)
	require.NoError(t, err)
	sink := &recordingSink{}
	ctrl := NewClusterController(nil, nil, sink)

	rep, err := ctrl.Tick(cluster, model.NewFleet(), quarter())
	require.NoError(t, err)
	assert.True(t, rep.Skipped)
	assert.Zero(t, log.count())
	assert.Zero(t, budget.reads.Load())
	assert.Empty(t, sink.allocs)
	require.Len(t, sink.ticks, 1)
	assert.True(t, sink.ticks[0].Skipped)
}

func TestClusterController_SatisfiedVehicleGetsZero(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	log := newSupplyLog()
	cluster, err := model.NewCluster("cc1", model.ConstantBudget(50),
		&model.Charger{ID: "cu1", MaxPowerKW: 11, Efficiency: 1, VehicleID: "full", Supplier: log.supplier("cu1")},
	)
	require.NoError(t, err)
	fleet := model.NewFleet(model.Vehicle{ID: "full", SoC: 0.8, TargetSoC: 0.8, BatteryKWh: 50})

	_, err = NewClusterController(nil, nil, nil).Tick(cluster, fleet, quarter())
	require.NoError(t, err)
	assert.Equal(t, 1, log.count())
	assert.Zero(t, log.last("cu1"))
}

func TestClusterController_CurveFault(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	mon := &recordingMonitor{}
	monitoring.Init(mon)
	defer monitoring.Init(nil)

	log := newSupplyLog()
	cluster, fleet := workedExample(t, log)
	gap, err := model.NewPowerCurve(model.CurveBin{SoCLower: 0.5, SoCUpper: 1, MaxPowerKW: 3})
	require.NoError(t, err)
	b, _ := fleet.Get("B")
	b.Curve = gap
	fleet.Put(b)
	sink := &recordingSink{}

	rep, err := NewClusterController(nil, nil, sink).Tick(cluster, fleet, quarter())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNoMatchingBin))
	var fault *ClusterFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, "cc1", fault.ClusterID)
	assert.Equal(t, PhaseCollectDemand, fault.Phase)
	assert.Equal(t, "B", fault.VehicleID())
	assert.Same(t, fault, rep.Fault)

	assert.Zero(t, log.count(), "no charger may be supplied after a fault")
	assert.Equal(t, 1.0, testutil.ToFloat64(clusterFaults.WithLabelValues("cc1")))
	require.Len(t, sink.faults, 1)
	assert.Equal(t, "B", sink.faults[0].VehicleID)
	assert.Equal(t, "collect_demand", sink.faults[0].Phase)
	require.Len(t, mon.captured, 1)
	assert.Equal(t, map[string]string{"cluster_id": "cc1", "vehicle_id": "B"}, mon.captured[0].tags)
}

func TestClusterController_MissingVehicle(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	log := newSupplyLog()
	cluster, fleet := workedExample(t, log)
	fleet.Remove("A")

	_, err := NewClusterController(nil, nil, nil).Tick(cluster, fleet, quarter())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrVehicleNotFound))
	var fault *ClusterFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, "A", fault.VehicleID())
	assert.Zero(t, log.count())
}

func TestClusterController_InvalidCharger(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	log := newSupplyLog()
	cluster := &model.Cluster{
		ID:     "cc1",
		Budget: model.ConstantBudget(20),
		Chargers: map[string]*model.Charger{
			"cu1": {ID: "cu1", MaxPowerKW: 11, Efficiency: 0, VehicleID: "old", Supplier: log.supplier("cu1")},
			"cu2": {ID: "cu2", MaxPowerKW: 11, Efficiency: 0.9, VehicleID: "young", Supplier: log.supplier("cu2")},
		},
	}
	fleet := model.NewFleet(
		model.Vehicle{ID: "old", SoC: 0.95, TargetSoC: 0.9, BatteryKWh: 60, ArrivalTime: ts0.Add(-2 * time.Hour)},
		model.Vehicle{ID: "young", SoC: 0.1, TargetSoC: 0.9, BatteryKWh: 60, ArrivalTime: ts0.Add(-time.Hour)},
	)
	sink := &recordingSink{}

	rep, err := NewClusterController(nil, nil, sink).Tick(cluster, fleet, quarter())
	require.Error(t, err)
	var fault *ClusterFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, PhaseCollectDemand, fault.Phase)
	assert.Contains(t, fault.Error(), "efficiency")
	assert.Same(t, fault, rep.Fault)
	assert.Zero(t, log.count())
	assert.Empty(t, sink.allocs)
	require.Len(t, sink.faults, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(clusterFaults.WithLabelValues("cc1")))
}

func TestClusterController_InvalidTick(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	cluster, fleet := workedExample(t, newSupplyLog())
	_, err := NewClusterController(nil, nil, nil).Tick(cluster, fleet, Tick{Timestamp: ts0})
	var fault *ClusterFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, PhaseIdle, fault.Phase)
}

func TestClusterController_LogStoreAndBus(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	store, err := logging.NewJSONLStore(filepath.Join(t.TempDir(), "decisions.jsonl"))
	require.NoError(t, err)
	bus := eventbus.NewTyped[events.TickEvent]()
	sub := bus.Subscribe()

	ctrl := NewClusterController(nil, nil, nil)
	ctrl.SetLogStore(store)
	ctrl.SetBus(bus)
	ctrl.SetRunID("run-1")
	defer func() { _ = ctrl.Close() }()

	cluster, fleet := workedExample(t, newSupplyLog())
	rep, err := ctrl.Tick(cluster, fleet, quarter())
	require.NoError(t, err)

	recs, err := store.Query(context.Background(), logging.LogQuery{ClusterID: "cc1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, rep.TickID, recs[0].TickID)
	assert.Equal(t, "run-1", recs[0].RunID)
	require.Len(t, recs[0].Grants, 2)
	assert.Equal(t, "A", recs[0].Grants[0].VehicleID)
	assert.Equal(t, 3600.0, recs[0].Grants[0].ConnectionAgeSeconds)
	assert.Equal(t, "charger", recs[0].Grants[0].Limit)

	select {
	case ev := <-sub:
		assert.False(t, ev.Failed())
		assert.Equal(t, "cc1", ev.Summary.ClusterID)
		assert.Len(t, ev.Allocations, 2)
	case <-time.After(time.Second):
		t.Fatal("no tick event published")
	}
}
