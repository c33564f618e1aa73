package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/clustercharge/core/metrics"
	"github.com/kilianp07/clustercharge/infra/logger"
)

// InfluxSink writes allocation outcomes to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordAllocation writes one "allocation" point per grant, stamped with the
// tick start.
func (s *InfluxSink) RecordAllocation(recs []coremetrics.AllocationRecord) error {
	if len(recs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(recs))
	for _, r := range recs {
		points = append(points, allocationPoint(r))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

func allocationPoint(r coremetrics.AllocationRecord) *write.Point {
	return write.NewPointWithMeasurement("allocation").
		AddTag("cluster_id", r.ClusterID).
		AddTag("charger_id", r.ChargerID).
		AddTag("vehicle_id", r.VehicleID).
		AddTag("limit", r.Limit).
		AddTag("tick_id", r.TickID).
		AddField("rank", r.Rank).
		AddField("demand_kw", round3(r.DemandKW)).
		AddField("granted_kw", round3(r.GrantedKW)).
		AddField("grid_kw", round3(r.GridKW)).
		AddField("efficiency", round3(r.Efficiency)).
		AddField("connection_age_s", r.ConnectionAge.Seconds()).
		SetTime(r.Timestamp)
}

// RecordClusterTick writes a "cluster_tick" point.
func (s *InfluxSink) RecordClusterTick(t coremetrics.ClusterTick) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("cluster_tick").
		AddTag("cluster_id", t.ClusterID).
		AddTag("skipped", strconv.FormatBool(t.Skipped)).
		AddField("budget_kw", round3(t.BudgetKW)).
		AddField("grid_kw", round3(t.GridKW)).
		AddField("connected", t.Connected).
		AddField("elapsed_us", t.Elapsed.Microseconds()).
		SetTime(t.Timestamp)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordFault writes a "cluster_fault" point.
func (s *InfluxSink) RecordFault(ev coremetrics.FaultEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("cluster_fault").
		AddTag("cluster_id", ev.ClusterID).
		AddTag("phase", ev.Phase)
	if ev.VehicleID != "" {
		p = p.AddTag("vehicle_id", ev.VehicleID)
	}
	p = p.AddField("error", ev.Error).SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
