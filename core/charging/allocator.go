package charging

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// budgetTolerance absorbs float rounding when checking the budget bound.
const budgetTolerance = 1e-9

// Grant is the power assigned to one vehicle for a tick.
type Grant struct {
	Demand  Demand
	Rank    int     // position in the priority order, 0 is served first
	PowerKW float64 // vehicle-side power
	GridKW  float64 // grid-side power drawn for PowerKW
}

// Full reports whether the whole demand was granted.
func (g Grant) Full() bool { return g.PowerKW >= g.Demand.PowerKW }

// Allocation is the result of distributing a cluster budget.
type Allocation struct {
	BudgetKW    float64
	RemainingKW float64
	Grants      []Grant // in priority order
}

// GridTotal returns the grid-side power drawn by all grants.
func (a Allocation) GridTotal() float64 {
	grid := make([]float64, len(a.Grants))
	for i, g := range a.Grants {
		grid[i] = g.GridKW
	}
	return floats.Sum(grid)
}

// ByVehicle indexes the granted vehicle-side power by vehicle ID.
func (a Allocation) ByVehicle() map[string]float64 {
	out := make(map[string]float64, len(a.Grants))
	for _, g := range a.Grants {
		out[g.Demand.VehicleID] = g.PowerKW
	}
	return out
}

// CheckBudget verifies that the grid-side total stays within the budget.
func (a Allocation) CheckBudget() error {
	if total := a.GridTotal(); total > a.BudgetKW+budgetTolerance {
		return fmt.Errorf("%w: drawing %.6f kW of %.6f kW", ErrBudgetExceeded, total, a.BudgetKW)
	}
	return nil
}

// Allocator distributes a grid-side budget among vehicle demands.
type Allocator interface {
	Allocate(budgetKW float64, demands []Demand) Allocation
}

// SeniorityAllocator serves vehicles first-come-first-served: the longest
// connected vehicle gets its full demand before anyone else receives power.
// It is deliberately not fair-share.
type SeniorityAllocator struct{}

// Prioritize returns the demands ordered by connection age, longest first.
// Equal ages are ordered by charger ID, then vehicle ID, both ascending.
func Prioritize(demands []Demand) []Demand {
	out := make([]Demand, len(demands))
	copy(out, demands)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ConnectionAge != b.ConnectionAge {
			return a.ConnectionAge > b.ConnectionAge
		}
		if a.ChargerID != b.ChargerID {
			return a.ChargerID < b.ChargerID
		}
		return a.VehicleID < b.VehicleID
	})
	return out
}

// grant serves one demand from the remaining grid-side budget and returns the
// grant together with the budget left for the next vehicle.
func grant(remaining float64, d Demand) (Grant, float64) {
	need := d.GridKW()
	if need <= remaining {
		return Grant{Demand: d, PowerKW: d.PowerKW, GridKW: need}, remaining - need
	}
	return Grant{Demand: d, PowerKW: remaining * d.Efficiency, GridKW: remaining}, 0
}

// Allocate folds the prioritized demands over the budget. A negative budget
// is treated as zero.
func (SeniorityAllocator) Allocate(budgetKW float64, demands []Demand) Allocation {
	if budgetKW < 0 {
		budgetKW = 0
	}
	ordered := Prioritize(demands)
	alloc := Allocation{BudgetKW: budgetKW, Grants: make([]Grant, len(ordered))}
	remaining := budgetKW
	for i, d := range ordered {
		alloc.Grants[i], remaining = grant(remaining, d)
		alloc.Grants[i].Rank = i
	}
	alloc.RemainingKW = remaining
	return alloc
}
