package simulator

import (
	"fmt"
	"time"
)

// Config holds parameters for the charger simulator.
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	AckLatency  time.Duration
	DropRate    float64
	Seed        int64
}

// Validate checks the simulator parameters.
func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "clustercharge"
	}
	if c.ClientID == "" {
		c.ClientID = "charger-sim"
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("drop rate %v outside [0,1]", c.DropRate)
	}
	if c.AckLatency < 0 {
		return fmt.Errorf("ack latency must not be negative")
	}
	return nil
}
