package clusters

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/clustercharge/core/charging"
)

// ReportSource provides the reports of the latest driver step.
type ReportSource interface {
	Reports() []*charging.TickReport
}

// GrantStatus is the power assigned to one vehicle in the latest tick.
type GrantStatus struct {
	Rank      int     `json:"rank"`
	VehicleID string  `json:"vehicle_id"`
	ChargerID string  `json:"charger_id"`
	DemandKW  float64 `json:"demand_kw"`
	GrantedKW float64 `json:"granted_kw"`
	GridKW    float64 `json:"grid_kw"`
	Limit     string  `json:"limit"`
}

// Status is the state of a cluster after the latest tick.
type Status struct {
	ClusterID string        `json:"cluster_id"`
	Timestamp time.Time     `json:"timestamp"`
	Skipped   bool          `json:"skipped"`
	Connected int           `json:"connected"`
	BudgetKW  float64       `json:"budget_kw"`
	GridKW    float64       `json:"grid_kw"`
	Fault     string        `json:"fault,omitempty"`
	Grants    []GrantStatus `json:"grants"`
}

func statusOf(r *charging.TickReport) Status {
	s := Status{
		ClusterID: r.ClusterID,
		Timestamp: r.Tick.Timestamp,
		Skipped:   r.Skipped,
		Connected: r.Connected,
		BudgetKW:  r.Allocation.BudgetKW,
		GridKW:    r.Allocation.GridTotal(),
		Grants:    make([]GrantStatus, len(r.Allocation.Grants)),
	}
	if r.Fault != nil {
		s.Fault = r.Fault.Error()
	}
	for i, g := range r.Allocation.Grants {
		s.Grants[i] = GrantStatus{
			Rank:      g.Rank,
			VehicleID: g.Demand.VehicleID,
			ChargerID: g.Demand.ChargerID,
			DemandKW:  g.Demand.PowerKW,
			GrantedKW: g.PowerKW,
			GridKW:    g.GridKW,
			Limit:     string(g.Demand.Limit),
		}
	}
	return s
}

// NewStatusHandler returns an HTTP handler exposing cluster status via GET /api/clusters/status.
func NewStatusHandler(src ReportSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := r.URL.Query().Get("cluster_id")
		out := []Status{}
		for _, rep := range src.Reports() {
			if rep == nil || (id != "" && rep.ClusterID != id) {
				continue
			}
			out = append(out, statusOf(rep))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
