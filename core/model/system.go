package model

import (
	"fmt"
	"sort"
)

// System is a set of independent charger clusters.
type System struct {
	Clusters map[string]*Cluster
}

// NewSystem builds a system, rejecting duplicate cluster IDs.
func NewSystem(clusters ...*Cluster) (*System, error) {
	s := &System{Clusters: make(map[string]*Cluster, len(clusters))}
	for _, c := range clusters {
		if _, dup := s.Clusters[c.ID]; dup {
			return nil, fmt.Errorf("duplicate cluster %s", c.ID)
		}
		s.Clusters[c.ID] = c
	}
	return s, nil
}

// ClusterIDs returns the cluster identifiers in ascending order.
func (s *System) ClusterIDs() []string {
	ids := make([]string, 0, len(s.Clusters))
	for id := range s.Clusters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Locate returns the cluster and charger a vehicle is connected to.
func (s *System) Locate(vehicleID string) (*Cluster, *Charger, bool) {
	for _, cid := range s.ClusterIDs() {
		c := s.Clusters[cid]
		for _, ch := range c.Chargers {
			if ch.VehicleID == vehicleID {
				return c, ch, true
			}
		}
	}
	return nil, nil, false
}
