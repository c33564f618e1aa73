// Package events defines the events emitted on the event bus.
//
// Available event types:
//   - TickEvent: outcome of one cluster tick, including aborted ticks
package events
