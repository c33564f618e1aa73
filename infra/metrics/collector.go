package metrics

import (
	"context"

	"github.com/kilianp07/clustercharge/core/events"
	coremetrics "github.com/kilianp07/clustercharge/core/metrics"
	"github.com/kilianp07/clustercharge/infra/logger"
	"github.com/kilianp07/clustercharge/internal/eventbus"
)

// StartEventCollector subscribes to the tick bus and forwards the events to
// sink. It stops when the context is canceled or the bus is closed; the
// returned channel is closed once the collector has drained.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.TickEvent], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("event-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := forward(ev, sink); err != nil {
					log.Errorf("collector: %v", err)
				}
			}
		}
	}()
	return done
}

func forward(ev events.TickEvent, sink coremetrics.MetricsSink) error {
	if ev.Failed() {
		if r, ok := sink.(coremetrics.FaultRecorder); ok {
			return r.RecordFault(*ev.Fault)
		}
		return nil
	}
	if len(ev.Allocations) > 0 {
		if err := sink.RecordAllocation(ev.Allocations); err != nil {
			return err
		}
	}
	if r, ok := sink.(coremetrics.ClusterTickRecorder); ok {
		return r.RecordClusterTick(ev.Summary)
	}
	return nil
}
