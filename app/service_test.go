package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/clustercharge/api/clusters"
	"github.com/kilianp07/clustercharge/config"
	"github.com/kilianp07/clustercharge/core/charging/logging"
	"github.com/kilianp07/clustercharge/core/factory"
	coremetrics "github.com/kilianp07/clustercharge/core/metrics"
	"github.com/kilianp07/clustercharge/simulation"
)

const scenario = `
name: small
start: 2024-06-03T08:00:00Z
end: 2024-06-03T09:00:00Z
tick: 15m
clusters:
  - id: cc1
    budget: {limit_kw: 7}
    chargers:
      - {id: cu1, max_power_kw: 11, efficiency: 1}
vehicles:
  - {id: v1, cluster: cc1, arrival: 2024-06-03T08:00:00Z, battery_kwh: 50, soc: 0.2, target_soc: 0.8}
`

func newService(t *testing.T) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Logging.Path = filepath.Join(t.TempDir(), "alloc.jsonl")
	cfg.API.Token = "secret"
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	svc, err := New(cfg)
	require.NoError(t, err)
	return svc
}

func TestServiceRun(t *testing.T) {
	svc := newService(t)
	sc, err := simulation.Parse([]byte(scenario))
	require.NoError(t, err)

	sum, err := svc.Runner(sc).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Ticks)
	assert.InDelta(t, 7.0, sum.EnergyKWh, 1e-9)

	recs, err := svc.Store.Query(context.Background(), logging.LogQuery{VehicleID: "v1"})
	require.NoError(t, err)
	require.Len(t, recs, 4)
	for _, r := range recs {
		assert.Equal(t, svc.RunID, r.RunID)
		assert.Equal(t, 7.0, r.Grants[0].GrantedKW)
	}

	h := svc.Handler()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/clusters/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var status []clusters.Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	require.Len(t, status, 1)
	assert.Equal(t, 7.0, status[0].GridKW)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/allocation/logs", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "cluster_budget_kw")

	require.NoError(t, svc.Close())
}

// trackedSink reports whether the service released it.
type trackedSink struct {
	coremetrics.NopSink
	closed bool
}

func (s *trackedSink) Close() { s.closed = true }

var lastTracked *trackedSink

func init() {
	_ = coremetrics.RegisterMetricsSink("tracked", func(map[string]any) (coremetrics.MetricsSink, error) {
		lastTracked = &trackedSink{}
		return lastTracked, nil
	})
}

func TestNewClosesSinkOnMQTTError(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.Path = filepath.Join(t.TempDir(), "alloc.jsonl")
	cfg.SetDefaults()
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "tracked"}}
	cfg.MQTT.Enabled = true
	cfg.MQTT.Broker = "tcp://127.0.0.1:1"
	// TLS without certificate files fails before dialing
	cfg.MQTT.UseTLS = true

	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt client")
	require.NotNil(t, lastTracked)
	assert.True(t, lastTracked.closed)
}
