package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// AckStrategy defines how a charger acknowledges setpoints.
type AckStrategy interface {
	Ack(ctx context.Context, cli paho.Client, topic, commandID string) error
}

// AutoAck sends an ACK after an optional fixed delay.
type AutoAck struct {
	Delay time.Duration
}

// Ack implements AckStrategy.
func (a AutoAck) Ack(ctx context.Context, cli paho.Client, topic, commandID string) error {
	if !wait(ctx, a.Delay) {
		return ctx.Err()
	}
	return publishAck(cli, topic, commandID)
}

// RandomAck drops acknowledgments with the configured probability and
// waits for the specified delay before sending.
type RandomAck struct {
	Delay    time.Duration
	DropRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomAck returns a RandomAck drawing from a generator seeded with seed.
func NewRandomAck(delay time.Duration, dropRate float64, seed int64) *RandomAck {
	return &RandomAck{Delay: delay, DropRate: dropRate, rng: rand.New(rand.NewSource(seed))}
}

func (r *RandomAck) drop() bool {
	if r.DropRate <= 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r.rng.Float64() < r.DropRate
}

// Ack implements AckStrategy.
func (r *RandomAck) Ack(ctx context.Context, cli paho.Client, topic, commandID string) error {
	if r.drop() {
		return nil
	}
	if !wait(ctx, r.Delay) {
		return ctx.Err()
	}
	return publishAck(cli, topic, commandID)
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func publishAck(cli paho.Client, topic, commandID string) error {
	payload, err := json.Marshal(struct {
		CommandID string `json:"command_id"`
	}{CommandID: commandID})
	if err != nil {
		return fmt.Errorf("marshal ack: %w", err)
	}
	token := cli.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("ack publish timeout on %s", topic)
	}
	return token.Error()
}
