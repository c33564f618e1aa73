package charging

import (
	"fmt"
	"time"
)

// Tick is one control interval: demands are averaged over Duration starting
// at Timestamp.
type Tick struct {
	Timestamp time.Time
	Duration  time.Duration
}

// Validate checks the tick duration.
func (t Tick) Validate() error {
	if t.Duration <= 0 {
		return fmt.Errorf("tick duration must be positive, got %s", t.Duration)
	}
	return nil
}

// Hours returns the tick duration in hours.
func (t Tick) Hours() float64 { return t.Duration.Hours() }

// Phase is a step of the per-cluster tick state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCollectDemand
	PhaseAllocate
	PhaseDispatch
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCollectDemand:
		return "collect_demand"
	case PhaseAllocate:
		return "allocate"
	case PhaseDispatch:
		return "dispatch"
	default:
		return "unknown"
	}
}
