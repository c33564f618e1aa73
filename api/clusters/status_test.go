package clusters

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/clustercharge/core/charging"
)

type staticSource []*charging.TickReport

func (s staticSource) Reports() []*charging.TickReport { return s }

func reports() staticSource {
	ts := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	tick := charging.Tick{Timestamp: ts, Duration: 15 * time.Minute}
	return staticSource{
		{
			ClusterID: "cc1",
			Tick:      tick,
			Connected: 1,
			Allocation: charging.Allocation{
				BudgetKW: 10,
				Grants: []charging.Grant{{
					Demand:  charging.Demand{VehicleID: "A", ChargerID: "cu1", PowerKW: 5, Efficiency: 1, Limit: charging.LimitCharger},
					PowerKW: 5,
					GridKW:  5,
				}},
				RemainingKW: 5,
			},
		},
		{ClusterID: "cc2", Tick: tick, Skipped: true},
		{ClusterID: "cc3", Tick: tick, Connected: 1, Fault: &charging.ClusterFault{ClusterID: "cc3", Timestamp: ts, Phase: charging.PhaseCollectDemand, Err: errors.New("boom")}},
	}
}

func fetch(t *testing.T, url string) []Status {
	t.Helper()
	rr := httptest.NewRecorder()
	NewStatusHandler(reports()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var out []Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestStatusHandler_All(t *testing.T) {
	out := fetch(t, "/api/clusters/status")
	require.Len(t, out, 3)
	assert.Equal(t, 10.0, out[0].BudgetKW)
	assert.Equal(t, 5.0, out[0].GridKW)
	require.Len(t, out[0].Grants, 1)
	assert.Equal(t, "charger", out[0].Grants[0].Limit)
	assert.True(t, out[1].Skipped)
	assert.Contains(t, out[2].Fault, "boom")
}

func TestStatusHandler_Filter(t *testing.T) {
	out := fetch(t, "/api/clusters/status?cluster_id=cc2")
	require.Len(t, out, 1)
	assert.Equal(t, "cc2", out[0].ClusterID)
	assert.Empty(t, fetch(t, "/api/clusters/status?cluster_id=none"))
}

func TestStatusHandler_Method(t *testing.T) {
	rr := httptest.NewRecorder()
	NewStatusHandler(reports()).ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/clusters/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
