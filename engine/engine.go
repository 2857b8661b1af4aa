// File: engine/engine.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-engine/api"
	"github.com/momentics/hioload-engine/clock"
	"github.com/momentics/hioload-engine/config"
	"github.com/momentics/hioload-engine/reactor"
)

// Engine is the shard-per-core runtime.
type Engine struct {
	cfg    config.Config
	log    *zap.Logger
	steady *clock.Steady
	lowres *clock.Lowres
	manual *clock.Manual
	shards []*reactor.Shard

	groups  groupRegistry
	eg      *errgroup.Group
	running atomic.Bool
}

// New builds an engine from defaults and functional options. Start must
// be called before any work is submitted.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg: config.Default(),
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg.Normalize()

	e.steady = clock.NewSteady(time.Now())
	e.lowres = clock.NewLowres(e.steady)
	e.manual = clock.NewManual()

	def := reactor.NewGroup(api.DefaultGroup, api.DefaultGroupName, e.cfg.DefaultShares)
	e.groups.init(def)

	e.shards = make([]*reactor.Shard, e.cfg.Shards)
	for i := range e.shards {
		e.shards[i] = reactor.NewShard(reactor.ShardConfig{
			ID:              api.ShardID(i),
			MailboxCapacity: e.cfg.MailboxCapacity,
			PinCPU:          e.cfg.PinCPUs,
			Log:             e.log,
			Steady:          e.steady,
			Lowres:          e.lowres,
			Manual:          e.manual,
			DefaultGroup:    def,
		})
	}
	for _, s := range e.shards {
		s.SetPeers(e.shards)
	}
	return e
}

// Start spins up one reactor loop per shard and the coarse-clock tick.
func (e *Engine) Start() error {
	if !e.running.CompareAndSwap(false, true) {
		return api.NewError(api.ErrCodeInternal, "engine already started")
	}
	e.lowres.Start(e.cfg.LowresTick)
	e.eg = &errgroup.Group{}
	for _, s := range e.shards {
		s := s
		e.eg.Go(s.Run)
	}
	e.log.Debug("engine started", zap.Int("shards", len(e.shards)))
	return nil
}

// Stop winds every shard down, waits for the loops to exit and halts
// the coarse clock. Queued ready work still runs; in-flight operations
// that must drain first belong behind a Gate.
func (e *Engine) Stop() error {
	if !e.running.CompareAndSwap(true, false) {
		return api.ErrNotRunning
	}
	for _, s := range e.shards {
		s.Stop()
	}
	err := e.eg.Wait()
	e.lowres.Stop()
	e.log.Debug("engine stopped")
	return err
}

// Wait blocks until every shard loop has exited.
func (e *Engine) Wait() error { return e.eg.Wait() }

// Running reports whether Start has been called and Stop has not.
func (e *Engine) Running() bool { return e.running.Load() }

// Shards returns the number of cores.
func (e *Engine) Shards() int { return len(e.shards) }

// Shard returns the reactor with the given id, or nil.
func (e *Engine) Shard(id api.ShardID) *reactor.Shard {
	if int(id) < 0 || int(id) >= len(e.shards) {
		return nil
	}
	return e.shards[id]
}

// ManualClock exposes the engine's virtual clock for deterministic
// time-based tests.
func (e *Engine) ManualClock() *clock.Manual { return e.manual }

// Run submits fn to shard 0 and blocks the calling host thread until
// it finishes. The usual entry point for hosts driving the engine.
func (e *Engine) Run(fn func(*reactor.Context) error) error {
	if !e.running.Load() {
		return api.ErrNotRunning
	}
	f := reactor.SubmitExternal(e.shards[0], func(c *reactor.Context) (struct{}, error) {
		return struct{}{}, fn(c)
	})
	_, err := f.Wait()
	return err
}

// Do is the generic host-side submission helper: fn runs as a task on
// the given shard and the host observes the future via Done/Wait.
func Do[T any](e *Engine, shard api.ShardID, fn func(*reactor.Context) (T, error)) *reactor.Future[T] {
	s := e.Shard(shard)
	if s == nil {
		s = e.shards[0]
	}
	return reactor.SubmitExternal(s, fn)
}

// Stats snapshots every shard's counters.
func (e *Engine) Stats() api.EngineStats {
	st := api.EngineStats{Shards: make([]api.ShardStats, 0, len(e.shards))}
	for _, s := range e.shards {
		st.Shards = append(st.Shards, s.Stats())
	}
	return st
}
