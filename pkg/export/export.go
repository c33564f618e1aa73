package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/clustercharge/core/charging/logging"
	"github.com/kilianp07/clustercharge/simulation"
)

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// WriteSummaryJSON writes the run summary to w as indented JSON.
func WriteSummaryJSON(w io.Writer, s *simulation.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteSummaryCSV writes one row per vehicle.
func WriteSummaryCSV(w io.Writer, s *simulation.Summary) error {
	cw := csv.NewWriter(w)
	header := []string{"vehicle_id", "cluster_id", "charger_id", "arrival_soc", "final_soc", "target_soc", "energy_kwh", "served", "reached"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, v := range s.Vehicles {
		rec := []string{
			v.ID,
			v.ClusterID,
			v.ChargerID,
			ftoa(v.ArrivalSoC),
			ftoa(v.FinalSoC),
			ftoa(v.TargetSoC),
			ftoa(v.EnergyKWh),
			strconv.FormatBool(v.Served),
			strconv.FormatBool(v.Reached),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRecordsJSON writes allocation records as JSON lines.
func WriteRecordsJSON(w io.Writer, records []logging.LogRecord) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteRecordsCSV flattens allocation records to one row per grant. Faulted
// ticks produce a single row carrying the fault message.
func WriteRecordsCSV(w io.Writer, records []logging.LogRecord) error {
	cw := csv.NewWriter(w)
	header := []string{"timestamp", "cluster_id", "budget_kw", "rank", "vehicle_id", "charger_id", "demand_kw", "granted_kw", "grid_kw", "limit", "fault"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		ts := r.Timestamp.UTC().Format(time.RFC3339)
		if len(r.Grants) == 0 {
			if err := cw.Write([]string{ts, r.ClusterID, ftoa(r.BudgetKW), "", "", "", "", "", "", "", r.Fault}); err != nil {
				return err
			}
			continue
		}
		for _, g := range r.Grants {
			rec := []string{
				ts,
				r.ClusterID,
				ftoa(r.BudgetKW),
				strconv.Itoa(g.Rank),
				g.VehicleID,
				g.ChargerID,
				ftoa(g.DemandKW),
				ftoa(g.GrantedKW),
				ftoa(g.GridKW),
				g.Limit,
				r.Fault,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
