// File: reactor/future.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single-use asynchronous result channel. Promise is the write-once
// producer slot, Future the read-once consumer handle. Futures are
// shard-local: they are settled on their owning shard and awaited on
// it; host threads observe completion through the Done channel only.

package reactor

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/momentics/hioload-engine/api"
)

// futureCore is the non-generic part of a future, shared so the shard
// can account for futures without knowing their value type.
type futureCore struct {
	shard    *Shard
	settled  bool
	failed   bool
	observed atomic.Bool
	counted  atomic.Bool
	waiter   *task
	owner    *task
	done     chan struct{}
}

// Future is the read-once consumer handle of an asynchronous result.
type Future[T any] struct {
	futureCore
	value T
	err   error
}

// Promise is the write-once completion slot paired with a Future.
type Promise[T any] struct {
	f *Future[T]
}

// NewPromise creates a promise/future pair owned by the calling shard.
// The promise must be completed (or explicitly abandoned via Break)
// exactly once; settling it twice is a defect and panics.
func NewPromise[T any](tc *Context) (*Promise[T], *Future[T]) {
	return newPromiseOn[T](tc.shard)
}

func newPromiseOn[T any](s *Shard) (*Promise[T], *Future[T]) {
	f := &Future[T]{}
	f.shard = s
	f.done = make(chan struct{})
	return &Promise[T]{f: f}, f
}

// settle runs on the owning shard (either in a task holding the baton
// or in the reactor loop itself), so no locking is needed.
func (p *Promise[T]) settle(v T, err error) {
	f := p.f
	if f.settled {
		panic("reactor: promise settled twice")
	}
	f.value, f.err = v, err
	f.settled = true
	if err != nil {
		f.failed = true
		f.shard.stats.failedFutures.Add(1)
		if f.observed.Load() {
			f.markObserved()
		}
	}
	close(f.done)
	if w := f.waiter; w != nil {
		f.waiter = nil
		f.shard.fair.enqueue(w)
	}
}

// SetValue completes the promise with a value.
func (p *Promise[T]) SetValue(v T) { p.settle(v, nil) }

// SetError completes the promise with a failure.
func (p *Promise[T]) SetError(err error) {
	var zero T
	p.settle(zero, err)
}

// TrySetValue completes the promise if it is still pending.
func (p *Promise[T]) TrySetValue(v T) bool {
	if p.f.settled {
		return false
	}
	p.settle(v, nil)
	return true
}

// TrySetError fails the promise if it is still pending.
func (p *Promise[T]) TrySetError(err error) bool {
	if p.f.settled {
		return false
	}
	p.SetError(err)
	return true
}

// Pending reports whether the promise is still unresolved.
func (p *Promise[T]) Pending() bool { return !p.f.settled }

// Break abandons the promise, failing it with the broken-promise
// error. Call it on any exit path that cannot produce a value.
func (p *Promise[T]) Break() {
	p.f.shard.stats.brokenPromises.Add(1)
	p.SetError(api.ErrBrokenPromise)
}

// Future returns the consumer handle.
func (p *Promise[T]) Future() *Future[T] { return p.f }

// Await suspends the calling task until the future resolves and
// returns its result. It must run on the owning shard, from a task (not
// reactor context), and a pending future admits exactly one waiter.
// Failure propagates as the returned error.
func (f *Future[T]) Await(tc *Context) (T, error) {
	if tc.task == nil {
		panic("reactor: await in reactor context")
	}
	if tc.shard != f.shard {
		panic("reactor: await on foreign shard")
	}
	f.observed.Store(true)
	if !f.settled {
		if f.waiter != nil {
			panic("reactor: future already has a waiter")
		}
		f.waiter = tc.task
		tc.task.suspend()
	}
	if f.failed {
		f.markObserved()
	}
	if f.err != nil {
		var zero T
		return zero, f.err
	}
	return f.value, nil
}

// Done closes when the future resolves. Host-thread use only; tasks
// must use Await.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Result returns the outcome. Valid only after Done is closed.
func (f *Future[T]) Result() (T, error) {
	f.observed.Store(true)
	if f.failed {
		f.markObserved()
	}
	if f.err != nil {
		var zero T
		return zero, f.err
	}
	return f.value, nil
}

// Wait blocks the calling host thread until resolution.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	var zero T
	if f.err != nil {
		return zero, f.err
	}
	return f.value, nil
}

// RequestCancel asks the task backing this future to cancel. Purely
// cooperative: the task observes Context.CancelRequested at its own
// suspension points; nothing is forcibly interrupted.
func (f *Future[T]) RequestCancel() {
	if t := f.owner; t != nil {
		t.cancel.Store(true)
	}
}

// markObserved counts an observed failure exactly once. A failed
// future that is never observed is a reportable defect, surfaced in
// shard stats and logged at shutdown.
func (f *futureCore) markObserved() {
	if f.counted.CompareAndSwap(false, true) {
		f.shard.stats.observedFailures.Add(1)
	}
}

// Spawn enqueues fn as a new task on the calling shard under the
// current scheduling group. It returns immediately; the future
// resolves exactly once after fn returns, fails or panics.
func Spawn[T any](tc *Context, fn func(*Context) (T, error)) *Future[T] {
	return spawnOn(tc.shard, tc.group, fn)
}

// SpawnIn is Spawn under an explicit scheduling group.
func SpawnIn[T any](tc *Context, g *Group, fn func(*Context) (T, error)) *Future[T] {
	gid := api.DefaultGroup
	if g != nil {
		gid = g.ID()
	}
	return spawnOn(tc.shard, gid, fn)
}

// SpawnDetached runs fn as an independent task with no awaiter: the
// long-lived per-connection loop case. Failures are logged, never
// dropped silently.
func SpawnDetached(tc *Context, fn func(*Context) error) {
	s := tc.shard
	t := s.newTask(tc.group, func(c *Context) {
		defer func() {
			if r := recover(); r != nil {
				s.stats.defects.Add(1)
				s.log.Error("detached task panicked", zap.Any("panic", r))
			}
		}()
		if err := fn(c); err != nil {
			s.log.Warn("detached task failed", zap.Error(err))
		}
	})
	s.stats.tasksSpawned.Add(1)
	s.fair.enqueue(t)
}

func spawnOn[T any](s *Shard, gid api.GroupID, fn func(*Context) (T, error)) *Future[T] {
	p, f := newPromiseOn[T](s)
	t := s.newTask(gid, func(c *Context) {
		defer func() {
			if r := recover(); r != nil {
				p.TrySetError(&api.PanicError{Value: r})
			}
		}()
		v, err := fn(c)
		if err != nil {
			p.SetError(err)
		} else {
			p.SetValue(v)
		}
	})
	f.owner = t
	s.stats.tasksSpawned.Add(1)
	s.fair.enqueue(t)
	return f
}
