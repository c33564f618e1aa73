package model

import (
	"fmt"
	"time"
)

// Supplier delivers power to the vehicle connected to a charger. Power is
// vehicle-side, in kW, averaged over dt.
type Supplier interface {
	Supply(ts time.Time, dt time.Duration, powerKW float64)
}

// SupplierFunc adapts a function to the Supplier interface.
type SupplierFunc func(ts time.Time, dt time.Duration, powerKW float64)

// Supply calls f.
func (f SupplierFunc) Supply(ts time.Time, dt time.Duration, powerKW float64) { f(ts, dt, powerKW) }

// Charger is a single charging socket of a cluster.
type Charger struct {
	ID         string
	MaxPowerKW float64 // maximum power the charger can deliver
	Efficiency float64 // grid to vehicle conversion efficiency in (0,1]
	VehicleID  string  // connected vehicle, empty when idle
	Supplier   Supplier
}

// Validate checks the charger parameters.
func (c Charger) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("charger id is required")
	}
	if c.MaxPowerKW < 0 {
		return fmt.Errorf("charger %s: max power must not be negative", c.ID)
	}
	if c.Efficiency <= 0 || c.Efficiency > 1 {
		return fmt.Errorf("charger %s: efficiency %v outside (0,1]", c.ID, c.Efficiency)
	}
	return nil
}

// Connected reports whether a vehicle is plugged in.
func (c Charger) Connected() bool { return c.VehicleID != "" }

// Supply forwards the power to the charger's supplier, if any.
func (c *Charger) Supply(ts time.Time, dt time.Duration, powerKW float64) {
	if c.Supplier != nil {
		c.Supplier.Supply(ts, dt, powerKW)
	}
}
