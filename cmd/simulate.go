package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/clustercharge/app"
	"github.com/kilianp07/clustercharge/infra/logger"
	"github.com/kilianp07/clustercharge/infra/metrics"
	"github.com/kilianp07/clustercharge/pkg/export"
	"github.com/kilianp07/clustercharge/simulation"
)

var simulateOpts struct {
	scenario string
	output   string
	format   string
	workers  int
	listen   string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a charging scenario and print the run summary",
	RunE:  runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVarP(&simulateOpts.scenario, "scenario", "s", "", "scenario file, overrides simulation.scenario")
	f.StringVarP(&simulateOpts.output, "output", "o", "", "summary destination, - for stdout")
	f.StringVar(&simulateOpts.format, "format", "", "summary format: json or csv")
	f.IntVarP(&simulateOpts.workers, "workers", "w", -1, "clusters ticked concurrently, 0 for one per cluster")
	f.StringVar(&simulateOpts.listen, "listen", "", "serve the API on this address while the run lasts")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sim := &cfg.Simulation
	if simulateOpts.scenario != "" {
		sim.Scenario = simulateOpts.scenario
	}
	if simulateOpts.output != "" {
		sim.Output = simulateOpts.output
	}
	if simulateOpts.format != "" {
		sim.Format = simulateOpts.format
	}
	if simulateOpts.workers >= 0 {
		sim.Workers = simulateOpts.workers
	}
	if err := sim.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if sim.Scenario == "" {
		return fmt.Errorf("no scenario given")
	}

	logg := logger.New("simulate")
	sc, err := simulation.Load(sim.Scenario)
	if err != nil {
		return err
	}
	warnings, err := sc.Validate(sim.StrictCurves)
	if err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}
	for _, w := range warnings {
		logg.Warnf("%s", w)
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()
	if simulateOpts.listen != "" {
		go func() {
			if err := svc.Serve(ctx, simulateOpts.listen); err != nil {
				logg.Errorf("api: %v", err)
			}
		}()
	} else if addr := cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				logg.Errorf("prom server: %v", err)
			}
		}()
	}

	logg.Infof("run %s: scenario %s", svc.RunID, sc.Name)
	sum, err := svc.Runner(sc).Run(ctx)
	if err != nil {
		return err
	}
	logg.Infof("run %s: %d ticks, %d faults, %.3f kWh delivered", svc.RunID, sum.Ticks, sum.Faults, sum.EnergyKWh)

	out := cmd.OutOrStdout()
	if sim.Output != "-" {
		f, err := os.Create(sim.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return writeSummary(out, sim.Format, sum)
}

func writeSummary(w io.Writer, format string, sum *simulation.Summary) error {
	if format == "csv" {
		return export.WriteSummaryCSV(w, sum)
	}
	return export.WriteSummaryJSON(w, sum)
}
