package model

import (
	"fmt"
	"time"
)

// Vehicle represents an electric vehicle plugged into a charger cluster.
type Vehicle struct {
	ID            string
	SoC           float64     // state of charge between 0 and 1 as of the current tick
	TargetSoC     float64     // SoC the vehicle wants to reach before departure
	BatteryKWh    float64     // usable battery capacity in kWh
	Curve         *PowerCurve // optional SoC dependent charge power limit
	ArrivalTime   time.Time   // real arrival (plug-in) time
	DepartureTime time.Time   // planned departure, zero when unknown
}

// Validate checks that the vehicle data is sound.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if v.BatteryKWh <= 0 {
		return fmt.Errorf("vehicle %s: battery capacity must be positive", v.ID)
	}
	if v.SoC < 0 || v.SoC > 1 {
		return fmt.Errorf("vehicle %s: soc %v outside [0,1]", v.ID, v.SoC)
	}
	if v.TargetSoC < 0 || v.TargetSoC > 1 {
		return fmt.Errorf("vehicle %s: target soc %v outside [0,1]", v.ID, v.TargetSoC)
	}
	return nil
}

// Satisfied reports whether the vehicle already reached its target SoC.
func (v Vehicle) Satisfied() bool {
	return v.SoC >= v.TargetSoC
}

// ConnectionAge returns how long the vehicle has been connected at ts.
func (v Vehicle) ConnectionAge(ts time.Time) time.Duration {
	return ts.Sub(v.ArrivalTime)
}

// EnergyToFull returns the energy in kWh needed to fill the battery.
func (v Vehicle) EnergyToFull() float64 {
	return (1 - v.SoC) * v.BatteryKWh
}
