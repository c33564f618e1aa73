package charging

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kilianp07/clustercharge/core/metrics"
	"github.com/kilianp07/clustercharge/core/model"
)

// supplyLog records Supply calls per charger.
type supplyLog struct {
	mu    sync.Mutex
	calls map[string][]float64
}

func newSupplyLog() *supplyLog { return &supplyLog{calls: map[string][]float64{}} }

func (l *supplyLog) supplier(chargerID string) model.Supplier {
	return model.SupplierFunc(func(_ time.Time, _ time.Duration, p float64) {
		l.mu.Lock()
		l.calls[chargerID] = append(l.calls[chargerID], p)
		l.mu.Unlock()
	})
}

func (l *supplyLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		n += len(c)
	}
	return n
}

func (l *supplyLog) last(chargerID string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.calls[chargerID]
	if len(c) == 0 {
		return -1
	}
	return c[len(c)-1]
}

// countingBudget counts limit lookups.
type countingBudget struct {
	limit float64
	reads atomic.Int32
}

func (b *countingBudget) LimitAt(time.Time) float64 {
	b.reads.Add(1)
	return b.limit
}

// batterySupplier charges the connected vehicle in the fleet.
func batterySupplier(fleet *model.Fleet, ch *model.Charger) model.Supplier {
	return model.SupplierFunc(func(_ time.Time, dt time.Duration, p float64) {
		v, ok := fleet.Get(ch.VehicleID)
		if !ok {
			return
		}
		_ = fleet.SetSoC(v.ID, v.SoC+p*dt.Hours()/v.BatteryKWh)
	})
}

type recordingSink struct {
	mu     sync.Mutex
	allocs []metrics.AllocationRecord
	ticks  []metrics.ClusterTick
	faults []metrics.FaultEvent
}

func (s *recordingSink) RecordAllocation(r []metrics.AllocationRecord) error {
	s.mu.Lock()
	s.allocs = append(s.allocs, r...)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) RecordClusterTick(t metrics.ClusterTick) error {
	s.mu.Lock()
	s.ticks = append(s.ticks, t)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) RecordFault(ev metrics.FaultEvent) error {
	s.mu.Lock()
	s.faults = append(s.faults, ev)
	s.mu.Unlock()
	return nil
}

type capturedError struct {
	err  error
	tags map[string]string
}

type recordingMonitor struct {
	mu       sync.Mutex
	captured []capturedError
}

func (m *recordingMonitor) CaptureException(err error, tags map[string]string) {
	m.mu.Lock()
	m.captured = append(m.captured, capturedError{err: err, tags: tags})
	m.mu.Unlock()
}
func (m *recordingMonitor) Recover()            {}
func (m *recordingMonitor) Flush(time.Duration) {}
