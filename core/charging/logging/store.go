package logging

import (
	"context"
	"fmt"
	"time"
)

// LogRecord captures one cluster tick decision: the budget, every grant in
// priority order and, for aborted ticks, the fault.
type LogRecord struct {
	TickID      string        `json:"tick_id"`
	RunID       string        `json:"run_id,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	Duration    time.Duration `json:"duration"`
	ClusterID   string        `json:"cluster_id"`
	BudgetKW    float64       `json:"budget_kw"`
	RemainingKW float64       `json:"remaining_kw"`
	Grants      []GrantRecord `json:"grants"`
	Fault       string        `json:"fault,omitempty"`
}

// GrantRecord mirrors charging.Grant for logging purposes.
type GrantRecord struct {
	Rank                 int     `json:"rank"`
	VehicleID            string  `json:"vehicle_id"`
	ChargerID            string  `json:"charger_id"`
	DemandKW             float64 `json:"demand_kw"`
	GrantedKW            float64 `json:"granted_kw"`
	GridKW               float64 `json:"grid_kw"`
	Efficiency           float64 `json:"efficiency"`
	ConnectionAgeSeconds float64 `json:"connection_age_s"`
	Limit                string  `json:"limit"`
}

// Involves reports whether the vehicle took part in the tick.
func (r LogRecord) Involves(vehicleID string) bool {
	for _, g := range r.Grants {
		if g.VehicleID == vehicleID {
			return true
		}
	}
	return false
}

// LogQuery defines filters for retrieving records.
type LogQuery struct {
	Start      time.Time
	End        time.Time
	ClusterID  string
	VehicleID  string
	FaultsOnly bool
}

// Matches applies the query filters to r.
func (q LogQuery) Matches(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.ClusterID != "" && r.ClusterID != q.ClusterID {
		return false
	}
	if q.FaultsOnly && r.Fault == "" {
		return false
	}
	if q.VehicleID != "" && !r.Involves(q.VehicleID) {
		return false
	}
	return true
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

// Options selects and configures a LogStore backend.
type Options struct {
	Backend    string // "jsonl", "sqlite" or "none"
	Path       string
	MaxSizeMB  int // jsonl only, enables rotation when positive
	MaxBackups int
	MaxAgeDays int
}

// Open creates the store described by opts. The "none" backend yields a nil
// store, which callers treat as disabled.
func Open(opts Options) (LogStore, error) {
	switch opts.Backend {
	case "none":
		return nil, nil
	case "", "jsonl":
		if opts.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(opts.Path, opts.MaxSizeMB, opts.MaxBackups, opts.MaxAgeDays)
		}
		return NewJSONLStore(opts.Path)
	case "sqlite":
		return NewSQLiteStore(opts.Path)
	default:
		return nil, fmt.Errorf("unknown log backend %s", opts.Backend)
	}
}
