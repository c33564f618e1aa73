package simulation

import (
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/clustercharge/core/model"
)

// Ledger accumulates the energy delivered to each vehicle.
type Ledger struct {
	mu        sync.Mutex
	delivered map[string]float64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger { return &Ledger{delivered: make(map[string]float64)} }

func (l *Ledger) add(vehicleID string, kWh float64) {
	l.mu.Lock()
	l.delivered[vehicleID] += kWh
	l.mu.Unlock()
}

// Delivered returns the energy in kWh delivered to the vehicle so far.
func (l *Ledger) Delivered(vehicleID string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.delivered[vehicleID]
}

// VehicleIDs returns the vehicles that received energy, sorted.
func (l *Ledger) VehicleIDs() []string {
	l.mu.Lock()
	ids := make([]string, 0, len(l.delivered))
	for id := range l.delivered {
		ids = append(ids, id)
	}
	l.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// FleetSupplier is the battery model of a charger: the granted energy is
// added to the state of charge of the vehicle plugged into Charger.
type FleetSupplier struct {
	Fleet   *model.Fleet
	Charger *model.Charger
	Ledger  *Ledger
}

// Supply implements model.Supplier. The energy is capped by the room left in
// the battery; non-positive power is ignored.
func (s *FleetSupplier) Supply(_ time.Time, dt time.Duration, powerKW float64) {
	hours := dt.Hours()
	if powerKW <= 0 || hours <= 0 || !s.Charger.Connected() {
		return
	}
	var energy float64
	err := s.Fleet.Update(s.Charger.VehicleID, func(v *model.Vehicle) {
		energy = powerKW * hours
		if room := v.EnergyToFull(); energy > room {
			energy = room
		}
		v.SoC += energy / v.BatteryKWh
		if v.SoC > 1 {
			v.SoC = 1
		}
	})
	if err == nil && s.Ledger != nil {
		s.Ledger.add(s.Charger.VehicleID, energy)
	}
}

// AttachBatteries installs a FleetSupplier on every charger of sys.
func AttachBatteries(sys *model.System, fleet *model.Fleet, ledger *Ledger) {
	for _, c := range sys.Clusters {
		for _, ch := range c.Chargers {
			ch.Supplier = &FleetSupplier{Fleet: fleet, Charger: ch, Ledger: ledger}
		}
	}
}
