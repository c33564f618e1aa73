// Package simulation replays a charging scenario: vehicles arrive and leave
// the clusters, the driver allocates power every tick and a battery model
// turns the granted power into state of charge.
package simulation
