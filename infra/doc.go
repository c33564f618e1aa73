// Package infra contains technical adapters: the MQTT setpoint publisher,
// metrics exporters, Sentry monitoring and the zerolog logger. These packages
// depend only on the interfaces defined in the core packages.
package infra
