package config

import (
	"fmt"
	"time"
)

// SimulationConfig drives the simulate command.
type SimulationConfig struct {
	// Scenario is the path of the YAML scenario file.
	Scenario string `json:"scenario"`
	// TickSeconds overrides the scenario tick when positive.
	TickSeconds int `json:"tick_seconds"`
	// Workers bounds the clusters processed concurrently; 0 means one per cluster.
	Workers int `json:"workers"`
	// StrictCurves rejects power curves that leave part of [0,1) uncovered.
	StrictCurves bool `json:"strict_curves"`
	// Output is where the run summary is written, "-" for stdout.
	Output string `json:"output"`
	// Format of the summary: "json" or "csv".
	Format string `json:"format"`
}

// SetDefaults applies sane defaults.
func (c *SimulationConfig) SetDefaults() {
	if c.Output == "" {
		c.Output = "-"
	}
	if c.Format == "" {
		c.Format = "json"
	}
}

// Validate checks the values.
func (c SimulationConfig) Validate() error {
	if c.TickSeconds < 0 {
		return fmt.Errorf("tick_seconds must not be negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.Format != "json" && c.Format != "csv" {
		return fmt.Errorf("unknown format %s", c.Format)
	}
	return nil
}

// Tick returns the configured tick override, zero when unset.
func (c SimulationConfig) Tick() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}
