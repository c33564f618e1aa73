package model

import (
	"fmt"
	"sort"
	"time"
)

// Cluster groups chargers sharing a grid connection limited by Budget.
// The grid-side power drawn by all chargers must stay within the budget.
type Cluster struct {
	ID       string
	Chargers map[string]*Charger
	Budget   Budget
}

// NewCluster builds a cluster, rejecting duplicate or invalid chargers.
func NewCluster(id string, budget Budget, chargers ...*Charger) (*Cluster, error) {
	if id == "" {
		return nil, fmt.Errorf("cluster id is required")
	}
	if budget == nil {
		return nil, fmt.Errorf("cluster %s: budget is required", id)
	}
	c := &Cluster{ID: id, Chargers: make(map[string]*Charger, len(chargers)), Budget: budget}
	for _, ch := range chargers {
		if err := ch.Validate(); err != nil {
			return nil, fmt.Errorf("cluster %s: %w", id, err)
		}
		if _, dup := c.Chargers[ch.ID]; dup {
			return nil, fmt.Errorf("cluster %s: duplicate charger %s", id, ch.ID)
		}
		c.Chargers[ch.ID] = ch
	}
	return c, nil
}

// ChargerIDs returns the charger identifiers in ascending order.
func (c *Cluster) ChargerIDs() []string {
	ids := make([]string, 0, len(c.Chargers))
	for id := range c.Chargers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ConnectedCount returns the number of chargers with a vehicle plugged in.
func (c *Cluster) ConnectedCount() int {
	n := 0
	for _, ch := range c.Chargers {
		if ch.Connected() {
			n++
		}
	}
	return n
}

// ConnectedChargers returns the occupied chargers sorted by ID.
func (c *Cluster) ConnectedChargers() []*Charger {
	var out []*Charger
	for _, id := range c.ChargerIDs() {
		if ch := c.Chargers[id]; ch.Connected() {
			out = append(out, ch)
		}
	}
	return out
}

// BudgetAt returns the grid-side power limit in kW at ts.
func (c *Cluster) BudgetAt(ts time.Time) float64 {
	if c.Budget == nil {
		return 0
	}
	return c.Budget.LimitAt(ts)
}

// FreeCharger returns the idle charger with the lowest ID, or nil.
func (c *Cluster) FreeCharger() *Charger {
	for _, id := range c.ChargerIDs() {
		if ch := c.Chargers[id]; !ch.Connected() {
			return ch
		}
	}
	return nil
}

// Connect plugs vehicleID into the given charger.
func (c *Cluster) Connect(chargerID, vehicleID string) error {
	ch, ok := c.Chargers[chargerID]
	if !ok {
		return fmt.Errorf("cluster %s: %w %s", c.ID, ErrUnknownCharger, chargerID)
	}
	if ch.Connected() {
		return fmt.Errorf("cluster %s charger %s: %w", c.ID, chargerID, ErrChargerBusy)
	}
	ch.VehicleID = vehicleID
	return nil
}

// Disconnect unplugs whatever vehicle is connected to the charger.
func (c *Cluster) Disconnect(chargerID string) error {
	ch, ok := c.Chargers[chargerID]
	if !ok {
		return fmt.Errorf("cluster %s: %w %s", c.ID, ErrUnknownCharger, chargerID)
	}
	ch.VehicleID = ""
	return nil
}
