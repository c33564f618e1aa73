package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVehicleEnergyToFull(t *testing.T) {
	v := Vehicle{ID: "ev1", SoC: 0.25, TargetSoC: 0.8, BatteryKWh: 60}
	assert.InDelta(t, 45, v.EnergyToFull(), 1e-9)
	assert.False(t, v.Satisfied())

	v.SoC = 0.8
	assert.True(t, v.Satisfied())
}

func TestVehicleConnectionAge(t *testing.T) {
	arrival := time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC)
	v := Vehicle{ID: "ev1", ArrivalTime: arrival}
	assert.Equal(t, 36*time.Hour, v.ConnectionAge(arrival.Add(36*time.Hour)))
}

func TestFleetUpdate(t *testing.T) {
	f := NewFleet(Vehicle{ID: "ev1", SoC: 0.1, BatteryKWh: 40})
	require.NoError(t, f.Update("ev1", func(v *Vehicle) { v.SoC += 0.2 }))
	v, ok := f.Get("ev1")
	require.True(t, ok)
	assert.InDelta(t, 0.3, v.SoC, 1e-12)

	err := f.Update("ghost", func(*Vehicle) {})
	assert.True(t, errors.Is(err, ErrVehicleNotFound))
	assert.Equal(t, 1, f.Len())
	f.Remove("ev1")
	assert.Empty(t, f.IDs())
}
