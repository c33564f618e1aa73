package mqtt

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/clustercharge/core/logger"
	"github.com/kilianp07/clustercharge/core/model"
	coremqtt "github.com/kilianp07/clustercharge/core/mqtt"
)

var setpointsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "mqtt_setpoints_total",
	Help: "Charger setpoints published over MQTT by result",
}, []string{"result"})

func init() {
	prometheus.MustRegister(setpointsSent)
}

// SetpointSupplier publishes every Supply call as a charger setpoint and then
// forwards it to the wrapped supplier. Publishing failures are logged and
// counted; they never prevent the local supply.
type SetpointSupplier struct {
	pub        coremqtt.Publisher
	clusterID  string
	charger    *model.Charger
	next       model.Supplier
	ackTimeout time.Duration
	log        logger.Logger
	wg         sync.WaitGroup
}

// NewSetpointSupplier wraps next for charger ch of the given cluster. With a
// positive ackTimeout acknowledgments are awaited in the background.
func NewSetpointSupplier(pub coremqtt.Publisher, clusterID string, ch *model.Charger, next model.Supplier, ackTimeout time.Duration, log logger.Logger) *SetpointSupplier {
	return &SetpointSupplier{pub: pub, clusterID: clusterID, charger: ch, next: next, ackTimeout: ackTimeout, log: log}
}

// Supply implements model.Supplier.
func (s *SetpointSupplier) Supply(ts time.Time, dt time.Duration, powerKW float64) {
	cmdID, err := s.pub.PublishSetpoint(coremqtt.Setpoint{
		ClusterID: s.clusterID,
		ChargerID: s.charger.ID,
		VehicleID: s.charger.VehicleID,
		PowerKW:   powerKW,
		Timestamp: ts,
		Duration:  dt,
	})
	if err != nil {
		setpointsSent.WithLabelValues("failed").Inc()
		s.log.Errorf("setpoint for %s/%s: %v", s.clusterID, s.charger.ID, err)
	} else {
		setpointsSent.WithLabelValues("sent").Inc()
		if s.ackTimeout > 0 {
			s.wg.Add(1)
			go s.awaitAck(cmdID)
		}
	}
	if s.next != nil {
		s.next.Supply(ts, dt, powerKW)
	}
}

func (s *SetpointSupplier) awaitAck(cmdID string) {
	defer s.wg.Done()
	ok, err := s.pub.WaitForAck(cmdID, s.ackTimeout)
	if err != nil || !ok {
		setpointsSent.WithLabelValues("unacknowledged").Inc()
		s.log.Warnf("setpoint %s for %s/%s not acknowledged: %v", cmdID, s.clusterID, s.charger.ID, err)
		return
	}
	setpointsSent.WithLabelValues("acknowledged").Inc()
}

// Wait blocks until pending acknowledgments have been resolved.
func (s *SetpointSupplier) Wait() { s.wg.Wait() }

// Attach decorates the supplier of every charger in sys with a
// SetpointSupplier and returns the decorators.
func Attach(sys *model.System, pub coremqtt.Publisher, ackTimeout time.Duration, log logger.Logger) []*SetpointSupplier {
	var out []*SetpointSupplier
	for _, cid := range sys.ClusterIDs() {
		c := sys.Clusters[cid]
		for _, id := range c.ChargerIDs() {
			ch := c.Chargers[id]
			sp := NewSetpointSupplier(pub, cid, ch, ch.Supplier, ackTimeout, log)
			ch.Supplier = sp
			out = append(out, sp)
		}
	}
	return out
}

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	Setpoints  []coremqtt.Setpoint
	FailIDs    map[string]bool // charger IDs whose setpoints fail
	AckResults map[string]bool
	mu         sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		FailIDs:    make(map[string]bool),
		AckResults: make(map[string]bool),
	}
}

// PublishSetpoint records the setpoint or returns an error if configured to fail.
func (m *MockPublisher) PublishSetpoint(sp coremqtt.Setpoint) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[sp.ChargerID] {
		return "", fmt.Errorf("publish failed")
	}
	m.Setpoints = append(m.Setpoints, sp)
	commandID := fmt.Sprintf("cmd-%d", len(m.Setpoints))
	if _, ok := m.AckResults[commandID]; !ok {
		m.AckResults[commandID] = true
	}
	return commandID, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockPublisher) WaitForAck(commandID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[commandID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("unknown command")
	}
	return ok, nil
}

// Sent returns a copy of the recorded setpoints.
func (m *MockPublisher) Sent() []coremqtt.Setpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremqtt.Setpoint(nil), m.Setpoints...)
}
