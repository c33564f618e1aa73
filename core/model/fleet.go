package model

import (
	"fmt"
	"sort"
	"sync"
)

// Fleet is the vehicle table chargers refer to by vehicle ID. It is safe for
// concurrent use so that clusters can be ticked in parallel.
type Fleet struct {
	mu       sync.RWMutex
	vehicles map[string]Vehicle
}

// NewFleet returns a fleet holding the given vehicles.
func NewFleet(vehicles ...Vehicle) *Fleet {
	f := &Fleet{vehicles: make(map[string]Vehicle, len(vehicles))}
	for _, v := range vehicles {
		f.vehicles[v.ID] = v
	}
	return f
}

// Put inserts or replaces a vehicle.
func (f *Fleet) Put(v Vehicle) {
	f.mu.Lock()
	if f.vehicles == nil {
		f.vehicles = make(map[string]Vehicle)
	}
	f.vehicles[v.ID] = v
	f.mu.Unlock()
}

// Get returns a copy of the vehicle state.
func (f *Fleet) Get(id string) (Vehicle, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.vehicles[id]
	return v, ok
}

// Remove deletes the vehicle from the table.
func (f *Fleet) Remove(id string) {
	f.mu.Lock()
	delete(f.vehicles, id)
	f.mu.Unlock()
}

// SetSoC updates the state of charge, clamped to [0,1].
func (f *Fleet) SetSoC(id string, soc float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrVehicleNotFound, id)
	}
	if soc < 0 {
		soc = 0
	}
	if soc > 1 {
		soc = 1
	}
	v.SoC = soc
	f.vehicles[id] = v
	return nil
}

// Update applies fn to the stored vehicle under the write lock.
func (f *Fleet) Update(id string, fn func(v *Vehicle)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrVehicleNotFound, id)
	}
	fn(&v)
	f.vehicles[id] = v
	return nil
}

// IDs returns the vehicle identifiers in ascending order.
func (f *Fleet) IDs() []string {
	f.mu.RLock()
	ids := make([]string, 0, len(f.vehicles))
	for id := range f.vehicles {
		ids = append(ids, id)
	}
	f.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of vehicles.
func (f *Fleet) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vehicles)
}
