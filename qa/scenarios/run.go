package scenarios

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/clustercharge/core/charging"
	"github.com/kilianp07/clustercharge/core/events"
	"github.com/kilianp07/clustercharge/core/model"
	"github.com/kilianp07/clustercharge/infra/logger"
	"github.com/kilianp07/clustercharge/infra/metrics"
	"github.com/kilianp07/clustercharge/infra/mqtt"
	"github.com/kilianp07/clustercharge/internal/eventbus"
	"github.com/kilianp07/clustercharge/simulation"
)

const socTolerance = 1e-6

// RunCase replays the case scenario with setpoints sent to a mock publisher
// and metrics collected from the event bus, then checks the expectations.
func RunCase(t *testing.T, c *Case) {
	t.Helper()
	charging.ResetMetrics(prometheus.NewRegistry())
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	bus := eventbus.NewTyped[events.TickEvent]()
	ctrl := charging.NewClusterController(nil, logger.NopLogger{}, nil)
	ctrl.SetBus(bus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	collected := metrics.StartEventCollector(ctx, bus, sink)

	pub := mqtt.NewMockPublisher()
	for _, id := range c.FailChargers {
		pub.FailIDs[id] = true
	}
	var suppliers []*mqtt.SetpointSupplier
	runner := &simulation.Runner{
		Scenario: &c.Scenario,
		Driver:   charging.NewDriver(ctrl, 0),
		Decorate: func(sys *model.System) {
			suppliers = mqtt.Attach(sys, pub, 0, logger.NopLogger{})
		},
	}
	sum, err := runner.Run(ctx)
	require.NoError(t, err)
	for _, s := range suppliers {
		s.Wait()
	}
	require.NoError(t, ctrl.Close())
	<-collected

	exp := c.Expected
	assert.Equal(t, exp.Ticks, sum.Ticks, "ticks")
	assert.Equal(t, exp.Faults, sum.Faults, "faults")
	assert.Len(t, pub.Sent(), exp.Setpoints, "setpoints")
	if exp.EnergyKWh != nil {
		assert.InDelta(t, *exp.EnergyKWh, sum.EnergyKWh, socTolerance, "energy")
	}

	got := make(map[string]simulation.VehicleSummary, len(sum.Vehicles))
	for _, v := range sum.Vehicles {
		got[v.ID] = v
	}
	for id, ve := range exp.Vehicles {
		v, ok := got[id]
		if !assert.True(t, ok, "vehicle %s missing from summary", id) {
			continue
		}
		if ve.Served != nil {
			assert.Equal(t, *ve.Served, v.Served, "%s served", id)
		}
		if ve.Reached != nil {
			assert.Equal(t, *ve.Reached, v.Reached, "%s reached", id)
		}
		if ve.FinalSoC != nil {
			assert.InDelta(t, *ve.FinalSoC, v.FinalSoC, socTolerance, "%s final soc", id)
		}
		if ve.Charger != "" {
			assert.Equal(t, ve.Charger, v.ChargerID, "%s charger", id)
		}
	}

	// every cluster tick ends as exactly one tick or one fault event
	ticks := counterSum(t, reg, "cluster_ticks_total")
	faults := counterSum(t, reg, "cluster_fault_events_total")
	assert.Equal(t, float64(sum.Ticks*len(c.Scenario.Clusters)), ticks+faults)
	assert.Equal(t, float64(sum.Faults), faults)
}

func counterSum(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
