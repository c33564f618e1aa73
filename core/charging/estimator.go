package charging

import (
	"math"
	"time"

	"github.com/kilianp07/clustercharge/core/model"
)

// Limit names the bound that determined a vehicle's demand.
type Limit string

const (
	LimitSatisfied Limit = "satisfied"
	LimitCapacity  Limit = "capacity"
	LimitCharger   Limit = "charger"
	LimitCurve     Limit = "curve"
)

// Demand is the power a connected vehicle would draw during a tick if the
// cluster budget did not constrain it.
type Demand struct {
	VehicleID     string
	ChargerID     string
	PowerKW       float64 // vehicle-side average power
	Efficiency    float64
	ConnectionAge time.Duration
	Limit         Limit
}

// GridKW returns the grid-side power needed to deliver the demand.
func (d Demand) GridKW() float64 { return d.PowerKW / d.Efficiency }

// EstimateDemand computes the unconstrained demand of v plugged into c. The
// energy deliverable over the tick is the smallest of the room left in the
// battery, the charger rating and, when v has a power curve, the curve limit
// at the current SoC. A curve without a bin for the SoC yields a
// *NoMatchingBinError.
func EstimateDemand(v model.Vehicle, c model.Charger, tick Tick) (Demand, error) {
	d := Demand{
		VehicleID:     v.ID,
		ChargerID:     c.ID,
		Efficiency:    c.Efficiency,
		ConnectionAge: v.ConnectionAge(tick.Timestamp),
	}
	if v.Satisfied() {
		d.Limit = LimitSatisfied
		return d, nil
	}

	h := tick.Hours()
	energy, limit := v.EnergyToFull(), LimitCapacity
	if e := c.MaxPowerKW * h; e < energy {
		energy, limit = e, LimitCharger
	}
	if v.Curve != nil {
		bin, err := v.Curve.Lookup(v.SoC)
		if err != nil {
			return Demand{}, &NoMatchingBinError{VehicleID: v.ID, ChargerID: c.ID, SoC: v.SoC}
		}
		if e := bin.MaxPowerKW * h; e < energy {
			energy, limit = e, LimitCurve
		}
	}
	d.PowerKW = math.Max(energy/h, 0)
	d.Limit = limit
	return d, nil
}
