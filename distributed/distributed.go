// File: distributed/distributed.go
// Package distributed manages one service instance per shard with a
// uniform start/stop lifecycle and hop-free local access.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package distributed

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/momentics/hioload-engine/api"
	"github.com/momentics/hioload-engine/engine"
	"github.com/momentics/hioload-engine/reactor"
)

// Service is the contract a distributed service must implement. Stop
// is the asynchronous teardown, invoked as a task on the instance's
// own shard.
type Service interface {
	Stop(tc *reactor.Context) error
}

// Factory builds one service instance on the shard it runs on.
type Factory[S Service] func(tc *reactor.Context) (S, error)

// Group holds the share-nothing per-shard instance array: one slot per
// core, each independently owned, or one shared instance for the
// single variant.
type Group[S Service] struct {
	eng       *engine.Engine
	instances []S
	built     []bool
	single    bool
	running   atomic.Bool
}

// Start invokes the factory concurrently on every shard. All or
// nothing: if any factory fails, instances already constructed
// elsewhere are torn down first and one aggregated failure is
// surfaced.
func Start[S Service](tc *reactor.Context, e *engine.Engine, factory Factory[S]) *reactor.Future[*Group[S]] {
	return reactor.Spawn(tc, func(c *reactor.Context) (*Group[S], error) {
		g := &Group[S]{
			eng:       e,
			instances: make([]S, e.Shards()),
			built:     make([]bool, e.Shards()),
		}
		futs := make([]*reactor.Future[S], e.Shards())
		for i := range futs {
			futs[i] = reactor.SubmitTo(c, api.ShardID(i), func(sc *reactor.Context) (S, error) {
				return factory(sc)
			})
		}
		var merr error
		for i, f := range futs {
			inst, err := f.Await(c)
			if err != nil {
				merr = multierr.Append(merr, fmt.Errorf("shard %d: %w", i, err))
				continue
			}
			g.instances[i] = inst
			g.built[i] = true
		}
		if merr != nil {
			merr = multierr.Append(merr, g.teardown(c))
			return nil, api.WrapError(api.ErrCodeConstruction, "distributed start", merr)
		}
		g.running.Store(true)
		return g, nil
	})
}

// StartSingle invokes the factory once on the calling shard and shares
// that single instance across all shards for uniform access.
func StartSingle[S Service](tc *reactor.Context, e *engine.Engine, factory Factory[S]) *reactor.Future[*Group[S]] {
	return reactor.Spawn(tc, func(c *reactor.Context) (*Group[S], error) {
		inst, err := factory(c)
		if err != nil {
			return nil, api.WrapError(api.ErrCodeConstruction, "distributed start_single", err)
		}
		g := &Group[S]{
			eng:       e,
			instances: make([]S, e.Shards()),
			built:     make([]bool, e.Shards()),
			single:    true,
		}
		home := int(c.Shard())
		for i := range g.instances {
			g.instances[i] = inst
		}
		g.built[home] = true
		g.running.Store(true)
		return g, nil
	})
}

// Local returns the calling shard's instance directly, with no
// cross-core hop. Fails with api.ErrNotRunning after Stop.
func (g *Group[S]) Local(tc *reactor.Context) (S, error) {
	if !g.running.Load() {
		var zero S
		return zero, api.ErrNotRunning
	}
	return g.instances[tc.Shard()], nil
}

// Stop invokes every instance's teardown concurrently on its own
// shard, waits for all of them, collecting rather than dropping
// partial failures, then releases the group. Further operations fail
// with api.ErrNotRunning.
func (g *Group[S]) Stop(tc *reactor.Context) *reactor.Future[struct{}] {
	return reactor.Spawn(tc, func(c *reactor.Context) (struct{}, error) {
		if !g.running.CompareAndSwap(true, false) {
			return struct{}{}, api.ErrNotRunning
		}
		if err := g.teardown(c); err != nil {
			return struct{}{}, fmt.Errorf("distributed stop: %w", err)
		}
		return struct{}{}, nil
	})
}

// teardown stops every built instance on its shard and clears the
// array. Runs in the coordinator task.
func (g *Group[S]) teardown(c *reactor.Context) error {
	futs := make([]*reactor.Future[struct{}], 0, len(g.built))
	for i, ok := range g.built {
		if !ok {
			continue
		}
		inst := g.instances[i]
		futs = append(futs, reactor.SubmitTo(c, api.ShardID(i), func(sc *reactor.Context) (struct{}, error) {
			return struct{}{}, inst.Stop(sc)
		}))
	}
	var merr error
	for _, f := range futs {
		if _, err := f.Await(c); err != nil {
			merr = multierr.Append(merr, err)
		}
	}
	for i := range g.built {
		g.built[i] = false
		var zero S
		g.instances[i] = zero
	}
	return merr
}

// Submit runs fn against the target shard's instance, returning a
// future resolved on the caller's shard.
func Submit[S Service, T any](tc *reactor.Context, g *Group[S], target api.ShardID, fn func(*reactor.Context, S) (T, error)) *reactor.Future[T] {
	return reactor.SubmitTo(tc, target, func(sc *reactor.Context) (T, error) {
		inst, err := g.Local(sc)
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(sc, inst)
	})
}

// MapAll applies fn to every shard's instance and returns one future
// per shard, all owned by the caller's shard.
func MapAll[S Service, T any](tc *reactor.Context, g *Group[S], fn func(*reactor.Context, S) (T, error)) []*reactor.Future[T] {
	futs := make([]*reactor.Future[T], g.eng.Shards())
	for i := range futs {
		futs[i] = Submit(tc, g, api.ShardID(i), fn)
	}
	return futs
}

// MapOthers is MapAll without the calling shard.
func MapOthers[S Service, T any](tc *reactor.Context, g *Group[S], fn func(*reactor.Context, S) (T, error)) []*reactor.Future[T] {
	futs := make([]*reactor.Future[T], 0, g.eng.Shards()-1)
	for i := 0; i < g.eng.Shards(); i++ {
		if api.ShardID(i) == tc.Shard() {
			continue
		}
		futs = append(futs, Submit(tc, g, api.ShardID(i), fn))
	}
	return futs
}

// RunDetached spawns fn as an independent task against the local
// instance: the pattern for long-lived per-connection loops that must
// outlive their spawner, such as an accept loop that keeps iterating.
func (g *Group[S]) RunDetached(tc *reactor.Context, fn func(*reactor.Context, S) error) error {
	inst, err := g.Local(tc)
	if err != nil {
		return err
	}
	reactor.SpawnDetached(tc, func(c *reactor.Context) error {
		return fn(c, inst)
	})
	return nil
}
