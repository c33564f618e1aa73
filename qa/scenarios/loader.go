// Package scenarios holds regression cases: a scenario together with the
// outcome the charging driver must produce for it.
package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/clustercharge/simulation"
)

// VehicleExpect is the expected outcome for one vehicle. Nil fields are not
// checked.
type VehicleExpect struct {
	Served   *bool    `yaml:"served,omitempty"`
	Reached  *bool    `yaml:"reached,omitempty"`
	FinalSoC *float64 `yaml:"final_soc,omitempty"`
	Charger  string   `yaml:"charger,omitempty"`
}

type Expected struct {
	Ticks     int                      `yaml:"ticks"`
	Faults    int                      `yaml:"faults"`
	EnergyKWh *float64                 `yaml:"energy_kwh,omitempty"`
	Setpoints int                      `yaml:"setpoints"`
	Vehicles  map[string]VehicleExpect `yaml:"vehicles,omitempty"`
}

type Case struct {
	Name         string              `yaml:"name"`
	Description  string              `yaml:"description,omitempty"`
	Scenario     simulation.Scenario `yaml:"scenario"`
	FailChargers []string            `yaml:"fail_chargers,omitempty"`
	Expected     Expected            `yaml:"expected"`
}

func Load(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Case
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
