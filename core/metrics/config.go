package metrics

import "github.com/kilianp07/clustercharge/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr is the listen address of the /metrics endpoint. Empty
	// disables the HTTP server.
	PrometheusAddr string `json:"prometheus_addr"`
}
