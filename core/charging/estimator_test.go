package charging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/clustercharge/core/model"
)

var ts0 = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

func quarter() Tick { return Tick{Timestamp: ts0, Duration: 15 * time.Minute} }

func mustCurve(t *testing.T, bins ...model.CurveBin) *model.PowerCurve {
	t.Helper()
	c, err := model.NewPowerCurve(bins...)
	require.NoError(t, err)
	return c
}

func TestEstimateDemand_Bounds(t *testing.T) {
	curve := mustCurve(t,
		model.CurveBin{SoCLower: 0, SoCUpper: 0.8, MaxPowerKW: 7},
		model.CurveBin{SoCLower: 0.8, SoCUpper: 1.01, MaxPowerKW: 3},
	)
	charger := model.Charger{ID: "cu1", MaxPowerKW: 11, Efficiency: 0.95}
	cases := []struct {
		name    string
		vehicle model.Vehicle
		wantKW  float64
		limit   Limit
	}{
		{"charger", model.Vehicle{ID: "ev", SoC: 0.2, TargetSoC: 0.9, BatteryKWh: 60}, 11, LimitCharger},
		{"capacity", model.Vehicle{ID: "ev", SoC: 0.95, TargetSoC: 1, BatteryKWh: 40}, 8, LimitCapacity},
		{"curve", model.Vehicle{ID: "ev", SoC: 0.2, TargetSoC: 0.9, BatteryKWh: 60, Curve: curve}, 7, LimitCurve},
		{"curve upper bin", model.Vehicle{ID: "ev", SoC: 0.85, TargetSoC: 0.9, BatteryKWh: 60, Curve: curve}, 3, LimitCurve},
		{"satisfied", model.Vehicle{ID: "ev", SoC: 0.8, TargetSoC: 0.8, BatteryKWh: 60}, 0, LimitSatisfied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := EstimateDemand(tc.vehicle, charger, quarter())
			require.NoError(t, err)
			assert.InDelta(t, tc.wantKW, d.PowerKW, 1e-9)
			assert.Equal(t, tc.limit, d.Limit)
			assert.Equal(t, "cu1", d.ChargerID)
			assert.Equal(t, 0.95, d.Efficiency)
		})
	}
}

func TestEstimateDemand_NoMatchingBin(t *testing.T) {
	curve := mustCurve(t, model.CurveBin{SoCLower: 0, SoCUpper: 0.5, MaxPowerKW: 7})
	v := model.Vehicle{ID: "ev9", SoC: 0.6, TargetSoC: 0.9, BatteryKWh: 50, Curve: curve}
	_, err := EstimateDemand(v, model.Charger{ID: "cu1", MaxPowerKW: 11, Efficiency: 1}, quarter())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNoMatchingBin))
	var nb *NoMatchingBinError
	require.True(t, errors.As(err, &nb))
	assert.Equal(t, "ev9", nb.VehicleID)
	assert.Equal(t, 0.6, nb.SoC)
}

func TestEstimateDemand_SatisfiedSkipsCurve(t *testing.T) {
	curve := mustCurve(t, model.CurveBin{SoCLower: 0, SoCUpper: 0.5, MaxPowerKW: 7})
	v := model.Vehicle{ID: "ev", SoC: 0.9, TargetSoC: 0.8, BatteryKWh: 50, Curve: curve}
	d, err := EstimateDemand(v, model.Charger{ID: "cu1", MaxPowerKW: 11, Efficiency: 1}, quarter())
	require.NoError(t, err)
	assert.Zero(t, d.PowerKW)
}

func TestEstimateDemand_Idempotent(t *testing.T) {
	v := model.Vehicle{ID: "ev", SoC: 0.3, TargetSoC: 0.8, BatteryKWh: 50, ArrivalTime: ts0.Add(-90 * time.Minute)}
	c := model.Charger{ID: "cu1", MaxPowerKW: 22, Efficiency: 0.9}
	first, err := EstimateDemand(v, c, quarter())
	require.NoError(t, err)
	second, err := EstimateDemand(v, c, quarter())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 0.3, v.SoC)
}

func TestEstimateDemand_ConnectionAgeKeepsDays(t *testing.T) {
	v := model.Vehicle{ID: "ev", SoC: 0.3, TargetSoC: 0.8, BatteryKWh: 50, ArrivalTime: ts0.Add(-26 * time.Hour)}
	d, err := EstimateDemand(v, model.Charger{ID: "cu1", MaxPowerKW: 22, Efficiency: 1}, quarter())
	require.NoError(t, err)
	assert.Equal(t, 26*time.Hour, d.ConnectionAge)
}

func TestDemand_GridKW(t *testing.T) {
	d := Demand{PowerKW: 9, Efficiency: 0.9}
	assert.InDelta(t, 10, d.GridKW(), 1e-12)
}
