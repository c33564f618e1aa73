package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordSink struct {
	allocations int
	ticks       int
	faults      int
}

func (r *recordSink) RecordAllocation([]AllocationRecord) error {
	r.allocations++
	return nil
}

func (r *recordSink) RecordClusterTick(ClusterTick) error {
	r.ticks++
	return nil
}

func (r *recordSink) RecordFault(FaultEvent) error {
	r.faults++
	return nil
}

type allocOnly struct{ n int }

func (a *allocOnly) RecordAllocation([]AllocationRecord) error {
	a.n++
	return nil
}

type failingSink struct{}

func (failingSink) RecordAllocation([]AllocationRecord) error { return errors.New("down") }

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &allocOnly{}
	m := NewMultiSink(s1, s2)
	assert.NoError(t, m.RecordAllocation(nil))
	assert.NoError(t, m.RecordClusterTick(ClusterTick{}))
	assert.NoError(t, m.RecordFault(FaultEvent{}))
	assert.Equal(t, 1, s1.allocations)
	assert.Equal(t, 1, s1.ticks)
	assert.Equal(t, 1, s1.faults)
	assert.Equal(t, 1, s2.n)
}

func TestMultiSinkStopsOnError(t *testing.T) {
	s := &recordSink{}
	m := NewMultiSink(failingSink{}, s)
	assert.Error(t, m.RecordAllocation(nil))
	assert.Equal(t, 0, s.allocations)
}

type closingSink struct {
	allocOnly
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestMultiSinkClose(t *testing.T) {
	c := &closingSink{}
	m := NewMultiSink(&allocOnly{}, c)
	m.Close()
	assert.True(t, c.closed)
}
