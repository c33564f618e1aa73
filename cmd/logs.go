package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/clustercharge/core/charging/logging"
	"github.com/kilianp07/clustercharge/pkg/export"
)

var logsOpts struct {
	start, end string
	cluster    string
	vehicle    string
	faults     bool
	format     string
	chart      string
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Query the allocation decision log",
	RunE:  runLogs,
}

func init() {
	f := logsCmd.Flags()
	f.StringVar(&logsOpts.start, "start", "", "earliest tick (RFC3339)")
	f.StringVar(&logsOpts.end, "end", "", "latest tick (RFC3339)")
	f.StringVar(&logsOpts.cluster, "cluster", "", "cluster ID")
	f.StringVar(&logsOpts.vehicle, "vehicle", "", "vehicle ID")
	f.BoolVar(&logsOpts.faults, "faults", false, "only aborted ticks")
	f.StringVar(&logsOpts.format, "format", "json", "output format: json or csv")
	f.StringVar(&logsOpts.chart, "chart", "", "also render the cluster load as an HTML chart to this file")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	q := logging.LogQuery{ClusterID: logsOpts.cluster, VehicleID: logsOpts.vehicle, FaultsOnly: logsOpts.faults}
	if logsOpts.start != "" {
		if q.Start, err = time.Parse(time.RFC3339, logsOpts.start); err != nil {
			return fmt.Errorf("start: %w", err)
		}
	}
	if logsOpts.end != "" {
		if q.End, err = time.Parse(time.RFC3339, logsOpts.end); err != nil {
			return fmt.Errorf("end: %w", err)
		}
	}

	store, err := logging.Open(cfg.Logging.Options())
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("decision log disabled")
	}
	defer store.Close()
	records, err := store.Query(ctx, q)
	if err != nil {
		return err
	}
	if logsOpts.chart != "" {
		f, err := os.Create(logsOpts.chart)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := export.WriteLoadChartHTML(f, records); err != nil {
			return err
		}
	}
	if logsOpts.format == "csv" {
		return export.WriteRecordsCSV(cmd.OutOrStdout(), records)
	}
	return export.WriteRecordsJSON(cmd.OutOrStdout(), records)
}
