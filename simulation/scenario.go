package simulation

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/clustercharge/core/model"
)

// Scenario describes a simulated charging site.
type Scenario struct {
	Name     string                      `yaml:"name"`
	Start    time.Time                   `yaml:"start"`
	End      time.Time                   `yaml:"end"`
	Tick     time.Duration               `yaml:"tick"`
	Curves   map[string][]model.CurveBin `yaml:"curves,omitempty"`
	Clusters []ClusterDef                `yaml:"clusters"`
	Vehicles []VehicleDef                `yaml:"vehicles"`
}

type ClusterDef struct {
	ID       string       `yaml:"id"`
	Budget   BudgetDef    `yaml:"budget"`
	Chargers []ChargerDef `yaml:"chargers"`
}

// BudgetDef is either a constant limit or a step schedule.
type BudgetDef struct {
	LimitKW *float64  `yaml:"limit_kw,omitempty"`
	Steps   []StepDef `yaml:"steps,omitempty"`
}

type StepDef struct {
	From    time.Time `yaml:"from"`
	LimitKW float64   `yaml:"limit_kw"`
}

type ChargerDef struct {
	ID         string  `yaml:"id"`
	MaxPowerKW float64 `yaml:"max_power_kw"`
	Efficiency float64 `yaml:"efficiency"`
}

type VehicleDef struct {
	ID         string    `yaml:"id"`
	Cluster    string    `yaml:"cluster"`
	Charger    string    `yaml:"charger,omitempty"`
	Arrival    time.Time `yaml:"arrival"`
	Departure  time.Time `yaml:"departure,omitempty"`
	BatteryKWh float64   `yaml:"battery_kwh"`
	SoC        float64   `yaml:"soc"`
	TargetSoC  float64   `yaml:"target_soc"`
	Curve      string    `yaml:"curve,omitempty"`
}

// Load reads a YAML scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &sc, nil
}

// Validate reports every inconsistency in the scenario. Power curves that do
// not cover [0,1) are returned as warnings, or as errors in strict mode.
func (sc *Scenario) Validate(strict bool) (warnings []string, err error) {
	var errs []error
	if sc.Tick <= 0 {
		errs = append(errs, fmt.Errorf("tick must be positive"))
	}
	if !sc.End.After(sc.Start) {
		errs = append(errs, fmt.Errorf("end must be after start"))
	}

	names := make([]string, 0, len(sc.Curves))
	for name := range sc.Curves {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c, cerr := model.NewPowerCurve(sc.Curves[name]...)
		if cerr != nil {
			errs = append(errs, fmt.Errorf("curve %s: %w", name, cerr))
			continue
		}
		for _, g := range c.Gaps(0, 1) {
			msg := fmt.Sprintf("curve %s: no bin for soc in [%v,%v)", name, g.Lower, g.Upper)
			if strict {
				errs = append(errs, errors.New(msg))
			} else {
				warnings = append(warnings, msg)
			}
		}
	}

	chargers := make(map[string]map[string]bool, len(sc.Clusters))
	for _, cd := range sc.Clusters {
		if cd.ID == "" {
			errs = append(errs, fmt.Errorf("cluster without id"))
			continue
		}
		if _, dup := chargers[cd.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate cluster %s", cd.ID))
			continue
		}
		if _, berr := cd.Budget.build(); berr != nil {
			errs = append(errs, fmt.Errorf("cluster %s: %w", cd.ID, berr))
		}
		chargers[cd.ID] = make(map[string]bool, len(cd.Chargers))
		for _, ch := range cd.Chargers {
			if chargers[cd.ID][ch.ID] {
				errs = append(errs, fmt.Errorf("cluster %s: duplicate charger %s", cd.ID, ch.ID))
			}
			chargers[cd.ID][ch.ID] = true
			if verr := ch.model().Validate(); verr != nil {
				errs = append(errs, fmt.Errorf("cluster %s: %w", cd.ID, verr))
			}
		}
	}

	seen := make(map[string]bool, len(sc.Vehicles))
	for _, vd := range sc.Vehicles {
		if seen[vd.ID] {
			errs = append(errs, fmt.Errorf("duplicate vehicle %s", vd.ID))
		}
		seen[vd.ID] = true
		if verr := (model.Vehicle{ID: vd.ID, SoC: vd.SoC, TargetSoC: vd.TargetSoC, BatteryKWh: vd.BatteryKWh}).Validate(); verr != nil {
			errs = append(errs, verr)
		}
		cc, ok := chargers[vd.Cluster]
		if !ok {
			errs = append(errs, fmt.Errorf("vehicle %s: unknown cluster %s", vd.ID, vd.Cluster))
		} else if vd.Charger != "" && !cc[vd.Charger] {
			errs = append(errs, fmt.Errorf("vehicle %s: unknown charger %s in cluster %s", vd.ID, vd.Charger, vd.Cluster))
		}
		if vd.Curve != "" {
			if _, ok := sc.Curves[vd.Curve]; !ok {
				errs = append(errs, fmt.Errorf("vehicle %s: unknown curve %s", vd.ID, vd.Curve))
			}
		}
		if !vd.Departure.IsZero() && !vd.Departure.After(vd.Arrival) {
			errs = append(errs, fmt.Errorf("vehicle %s: departure before arrival", vd.ID))
		}
	}
	return warnings, errors.Join(errs...)
}

func (b BudgetDef) build() (model.Budget, error) {
	switch {
	case b.LimitKW != nil && len(b.Steps) > 0:
		return nil, fmt.Errorf("budget: limit_kw and steps are exclusive")
	case b.LimitKW != nil:
		if *b.LimitKW < 0 {
			return nil, fmt.Errorf("budget: negative limit")
		}
		return model.ConstantBudget(*b.LimitKW), nil
	case len(b.Steps) > 0:
		steps := make([]model.BudgetStep, len(b.Steps))
		for i, s := range b.Steps {
			steps[i] = model.BudgetStep{From: s.From, LimitKW: s.LimitKW}
		}
		return model.NewBudgetSchedule(steps...)
	default:
		return nil, fmt.Errorf("budget: limit_kw or steps required")
	}
}

func (c ChargerDef) model() model.Charger {
	return model.Charger{ID: c.ID, MaxPowerKW: c.MaxPowerKW, Efficiency: c.Efficiency}
}

// Arrival is a vehicle plugging in during the run.
type Arrival struct {
	Vehicle   model.Vehicle
	ClusterID string
	ChargerID string // empty selects the lowest-ID free charger
}

// Plan is a scenario turned into model objects.
type Plan struct {
	System   *model.System
	Arrivals []Arrival // sorted by arrival time, then vehicle ID
}

// Build validates the scenario in non-strict mode and creates the system and
// the arrival plan. Chargers have no supplier yet.
func (sc *Scenario) Build() (*Plan, error) {
	if _, err := sc.Validate(false); err != nil {
		return nil, err
	}
	curves := make(map[string]*model.PowerCurve, len(sc.Curves))
	for name, bins := range sc.Curves {
		c, err := model.NewPowerCurve(bins...)
		if err != nil {
			return nil, err
		}
		curves[name] = c
	}
	clusters := make([]*model.Cluster, 0, len(sc.Clusters))
	for _, cd := range sc.Clusters {
		budget, err := cd.Budget.build()
		if err != nil {
			return nil, err
		}
		chs := make([]*model.Charger, len(cd.Chargers))
		for i, ch := range cd.Chargers {
			m := ch.model()
			chs[i] = &m
		}
		c, err := model.NewCluster(cd.ID, budget, chs...)
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	sys, err := model.NewSystem(clusters...)
	if err != nil {
		return nil, err
	}

	plan := &Plan{System: sys, Arrivals: make([]Arrival, 0, len(sc.Vehicles))}
	for _, vd := range sc.Vehicles {
		plan.Arrivals = append(plan.Arrivals, Arrival{
			Vehicle: model.Vehicle{
				ID:            vd.ID,
				SoC:           vd.SoC,
				TargetSoC:     vd.TargetSoC,
				BatteryKWh:    vd.BatteryKWh,
				Curve:         curves[vd.Curve],
				ArrivalTime:   vd.Arrival,
				DepartureTime: vd.Departure,
			},
			ClusterID: vd.Cluster,
			ChargerID: vd.Charger,
		})
	}
	sort.SliceStable(plan.Arrivals, func(i, j int) bool {
		a, b := plan.Arrivals[i].Vehicle, plan.Arrivals[j].Vehicle
		if !a.ArrivalTime.Equal(b.ArrivalTime) {
			return a.ArrivalTime.Before(b.ArrivalTime)
		}
		return a.ID < b.ID
	})
	return plan, nil
}
