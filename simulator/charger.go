// Package simulator emulates the charger side of the setpoint protocol: it
// listens for setpoints on MQTT and acknowledges them.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/clustercharge/infra/logger"
)

// Setpoint is a setpoint as received by a charger.
type Setpoint struct {
	CommandID string  `json:"command_id"`
	ClusterID string  `json:"cluster_id"`
	ChargerID string  `json:"charger_id"`
	VehicleID string  `json:"vehicle_id"`
	PowerKW   float64 `json:"power_kw"`
	Timestamp int64   `json:"timestamp"`
	DurationS float64 `json:"duration_s"`
}

// Chargers answers the setpoints of every charger under a topic prefix.
type Chargers struct {
	cli      paho.Client
	prefix   string
	strategy AckStrategy
	log      logger.Logger

	ctx  context.Context
	wg   sync.WaitGroup
	mu   sync.Mutex
	last map[string]Setpoint // keyed by cluster/charger
	recv int
}

// NewChargers creates a simulator answering through cli.
func NewChargers(cli paho.Client, prefix string, strategy AckStrategy, log logger.Logger) *Chargers {
	if strategy == nil {
		strategy = AutoAck{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Chargers{cli: cli, prefix: prefix, strategy: strategy, log: log, last: map[string]Setpoint{}}
}

// SplitTopic extracts the cluster and charger IDs of a setpoint topic.
func SplitTopic(prefix, topic string) (clusterID, chargerID string, err error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", "", fmt.Errorf("topic %s outside prefix %s", topic, prefix)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "setpoint" || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("not a setpoint topic: %s", topic)
	}
	return parts[0], parts[1], nil
}

// Start subscribes to the setpoint topics. Acknowledgements in flight are
// abandoned when ctx is canceled.
func (c *Chargers) Start(ctx context.Context) error {
	c.ctx = ctx
	token := c.cli.Subscribe(c.prefix+"/+/+/setpoint", 1, c.handle)
	token.Wait()
	return token.Error()
}

func (c *Chargers) handle(_ paho.Client, msg paho.Message) {
	clusterID, chargerID, err := SplitTopic(c.prefix, msg.Topic())
	if err != nil {
		c.log.Warnf("%v", err)
		return
	}
	var sp Setpoint
	if err := json.Unmarshal(msg.Payload(), &sp); err != nil {
		c.log.Errorf("decode setpoint on %s: %v", msg.Topic(), err)
		return
	}
	c.mu.Lock()
	c.last[clusterID+"/"+chargerID] = sp
	c.recv++
	c.mu.Unlock()
	c.log.Debugw("setpoint", map[string]any{"cluster_id": clusterID, "charger_id": chargerID, "power_kw": sp.PowerKW})

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ackTopic := fmt.Sprintf("%s/%s/%s/ack", c.prefix, clusterID, chargerID)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.strategy.Ack(ctx, c.cli, ackTopic, sp.CommandID); err != nil {
			c.log.Warnf("ack %s: %v", sp.CommandID, err)
		}
	}()
}

// Wait blocks until every pending acknowledgement is sent or dropped.
func (c *Chargers) Wait() { c.wg.Wait() }

// Received returns the number of setpoints handled.
func (c *Chargers) Received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recv
}

// Last returns the latest setpoint of every charger, sorted by cluster then
// charger ID.
func (c *Chargers) Last() []Setpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Setpoint, 0, len(c.last))
	for _, sp := range c.last {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClusterID != out[j].ClusterID {
			return out[i].ClusterID < out[j].ClusterID
		}
		return out[i].ChargerID < out[j].ChargerID
	})
	return out
}
