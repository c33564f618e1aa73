package mqtt

import (
	"time"
)

// Setpoint is the power order sent to a charger for one tick.
type Setpoint struct {
	ClusterID string
	ChargerID string
	VehicleID string
	PowerKW   float64 // vehicle-side
	Timestamp time.Time
	Duration  time.Duration
}

// Publisher sends charger setpoints and tracks their acknowledgment.
type Publisher interface {
	// PublishSetpoint sends the setpoint and returns the command identifier
	// used to track the acknowledgment.
	PublishSetpoint(sp Setpoint) (commandID string, err error)

	// WaitForAck waits for an acknowledgment for the provided command
	// identifier or until the timeout expires.
	WaitForAck(commandID string, timeout time.Duration) (bool, error)
}
