// Package metrics defines the sinks allocation results are recorded to.
// Sinks like PromSink and InfluxSink live in infra/metrics and register
// themselves with the factory; NewMetricsSink wraps several configured sinks
// in a MultiSink.
package metrics
