package simulation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/clustercharge/core/charging"
	"github.com/kilianp07/clustercharge/core/logger"
	"github.com/kilianp07/clustercharge/core/model"
	infralogger "github.com/kilianp07/clustercharge/infra/logger"
)

// VehicleSummary is the outcome of a run for one vehicle.
type VehicleSummary struct {
	ID         string  `json:"id"`
	ClusterID  string  `json:"cluster_id"`
	ChargerID  string  `json:"charger_id,omitempty"`
	ArrivalSoC float64 `json:"arrival_soc"`
	FinalSoC   float64 `json:"final_soc"`
	TargetSoC  float64 `json:"target_soc"`
	EnergyKWh  float64 `json:"energy_kwh"`
	Served     bool    `json:"served"`  // got a charger
	Reached    bool    `json:"reached"` // final SoC at or above target
}

// Summary is the outcome of a run.
type Summary struct {
	Scenario     string           `json:"scenario"`
	Start        time.Time        `json:"start"`
	End          time.Time        `json:"end"`
	Tick         time.Duration    `json:"tick"`
	Ticks        int              `json:"ticks"`
	Faults       int              `json:"faults"`
	EnergyKWh    float64          `json:"energy_kwh"`
	MeanFinalSoC float64          `json:"mean_final_soc"`
	Vehicles     []VehicleSummary `json:"vehicles"`
}

// Runner replays a scenario through a charging driver.
type Runner struct {
	Scenario *Scenario
	Driver   *charging.Driver
	Logger   logger.Logger
	// Tick overrides the scenario tick when positive.
	Tick time.Duration
	// Decorate, when set, is called once the batteries are attached, e.g. to
	// publish setpoints.
	Decorate func(sys *model.System)
}

type connection struct {
	clusterID string
	chargerID string
	departure time.Time
}

// Run steps from the scenario start to its end. Departures are processed
// before arrivals, then every cluster is ticked. A vehicle that arrived and
// left between two ticks is never connected. Cluster faults are logged
// and counted without stopping the run. The run stops early with ctx.Err()
// when ctx is canceled.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	plan, err := r.Scenario.Build()
	if err != nil {
		return nil, err
	}
	log := r.Logger
	if log == nil {
		log = infralogger.NopLogger{}
	}
	drv := r.Driver
	if drv == nil {
		drv = charging.NewDriver(nil, 0)
	}
	tick := r.Scenario.Tick
	if r.Tick > 0 {
		tick = r.Tick
	}

	sys := plan.System
	fleet := model.NewFleet()
	ledger := NewLedger()
	AttachBatteries(sys, fleet, ledger)
	if r.Decorate != nil {
		r.Decorate(sys)
	}

	sum := &Summary{Scenario: r.Scenario.Name, Start: r.Scenario.Start, End: r.Scenario.End, Tick: tick}
	results := make(map[string]*VehicleSummary, len(plan.Arrivals))
	for _, a := range plan.Arrivals {
		results[a.Vehicle.ID] = &VehicleSummary{
			ID:         a.Vehicle.ID,
			ClusterID:  a.ClusterID,
			ArrivalSoC: a.Vehicle.SoC,
			FinalSoC:   a.Vehicle.SoC,
			TargetSoC:  a.Vehicle.TargetSoC,
		}
	}
	connected := make(map[string]connection)
	next := 0

	for ts := r.Scenario.Start; ts.Before(r.Scenario.End); ts = ts.Add(tick) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.departures(ts, sys, fleet, connected, results)
		for next < len(plan.Arrivals) && !plan.Arrivals[next].Vehicle.ArrivalTime.After(ts) {
			r.arrive(ts, plan.Arrivals[next], sys, fleet, connected, results, log)
			next++
		}

		err := drv.Step(ts, tick, sys, fleet)
		var te *charging.TickError
		switch {
		case errors.As(err, &te):
			sum.Faults += len(te.Faults)
			for _, f := range te.Faults {
				log.Warnf("%v", f)
			}
		case err != nil:
			return nil, fmt.Errorf("tick %s: %w", ts.Format(time.RFC3339), err)
		}
		sum.Ticks++
	}

	for id := range connected {
		if v, ok := fleet.Get(id); ok {
			results[id].FinalSoC = v.SoC
		}
	}
	r.summarize(sum, results, ledger)
	return sum, nil
}

func (r *Runner) departures(ts time.Time, sys *model.System, fleet *model.Fleet, connected map[string]connection, results map[string]*VehicleSummary) {
	ids := make([]string, 0, len(connected))
	for id, c := range connected {
		if !c.departure.IsZero() && !c.departure.After(ts) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := connected[id]
		if v, ok := fleet.Get(id); ok {
			results[id].FinalSoC = v.SoC
		}
		_ = sys.Clusters[c.clusterID].Disconnect(c.chargerID)
		fleet.Remove(id)
		delete(connected, id)
	}
}

func (r *Runner) arrive(ts time.Time, a Arrival, sys *model.System, fleet *model.Fleet, connected map[string]connection, results map[string]*VehicleSummary, log logger.Logger) {
	if dep := a.Vehicle.DepartureTime; !dep.IsZero() && !dep.After(ts) {
		log.Warnf("vehicle %s: left at %s before the %s tick", a.Vehicle.ID, dep.Format(time.RFC3339), ts.Format(time.RFC3339))
		return
	}
	cluster := sys.Clusters[a.ClusterID]
	chargerID := a.ChargerID
	if chargerID == "" {
		free := cluster.FreeCharger()
		if free == nil {
			log.Warnf("vehicle %s: no free charger in cluster %s", a.Vehicle.ID, a.ClusterID)
			return
		}
		chargerID = free.ID
	}
	if err := cluster.Connect(chargerID, a.Vehicle.ID); err != nil {
		log.Warnf("vehicle %s: %v", a.Vehicle.ID, err)
		return
	}
	fleet.Put(a.Vehicle)
	connected[a.Vehicle.ID] = connection{clusterID: a.ClusterID, chargerID: chargerID, departure: a.Vehicle.DepartureTime}
	res := results[a.Vehicle.ID]
	res.Served = true
	res.ChargerID = chargerID
}

func (r *Runner) summarize(sum *Summary, results map[string]*VehicleSummary, ledger *Ledger) {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var finals, energy []float64
	for _, id := range ids {
		v := results[id]
		v.EnergyKWh = ledger.Delivered(id)
		v.Reached = v.FinalSoC >= v.TargetSoC-1e-9
		sum.Vehicles = append(sum.Vehicles, *v)
		energy = append(energy, v.EnergyKWh)
		if v.Served {
			finals = append(finals, v.FinalSoC)
		}
	}
	sum.EnergyKWh = floats.Sum(energy)
	if len(finals) > 0 {
		sum.MeanFinalSoC = stat.Mean(finals, nil)
	}
}
