// File: fake/fake.go
// Package fake provides test doubles and deterministic harnesses for
// engine consumers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-engine/engine"
	"github.com/momentics/hioload-engine/reactor"
)

// Start builds and starts an engine tuned for tests: few shards, a
// slow coarse tick (manual-clock tests drive time themselves), small
// mailboxes. Callers must Stop it.
func Start(shards int, opts ...engine.Option) *engine.Engine {
	base := []engine.Option{
		engine.WithShards(shards),
		engine.WithLowresTick(time.Millisecond),
		engine.WithMailboxCapacity(64),
	}
	e := engine.New(append(base, opts...)...)
	if err := e.Start(); err != nil {
		panic(err)
	}
	return e
}

// CounterService records lifecycle events. Safe to share the counters
// across shards: they are only ever incremented.
type CounterService struct {
	Shard   int
	Built   *atomic.Int32
	Stopped *atomic.Int32
}

// NewCounters returns fresh shared construction/teardown counters.
func NewCounters() (*atomic.Int32, *atomic.Int32) {
	return &atomic.Int32{}, &atomic.Int32{}
}

// Stop implements distributed.Service.
func (s *CounterService) Stop(*reactor.Context) error {
	s.Stopped.Add(1)
	return nil
}
