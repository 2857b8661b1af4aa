// File: reactor/dispatch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cross-shard dispatch. Work hops to the target shard's mailbox, runs
// there as an ordinary task under the caller's scheduling group, and
// the result hops back to settle a future owned by the caller's shard.
// The round trip is taken even for self-submission, so resolution is
// never synchronous with the submit call.

package reactor

import (
	"github.com/momentics/hioload-engine/api"
)

// SubmitTo enqueues fn on the target shard and returns a future
// resolved on the caller's shard once the work finishes there. fn must
// be relocatable: it must touch only target-shard state and its own
// captures. Unreachable targets surface api.ErrShardUnavailable,
// delivered asynchronously like any other result.
func SubmitTo[T any](tc *Context, target api.ShardID, fn func(*Context) (T, error)) *Future[T] {
	origin := tc.shard
	p, f := newPromiseOn[T](origin)
	gid := tc.group

	tgt := origin.peer(target)
	if tgt == nil {
		deliverError(origin, p, api.WrapError(api.ErrCodeTransport, "submit_to", api.ErrShardUnavailable).
			WithContext("target", int(target)))
		return f
	}

	origin.stats.crossSubmits.Add(1)
	accepted := tgt.post(func(rc *Context) {
		t := rc.shard.newTask(gid, func(c *Context) {
			var v T
			var err error
			func() {
				defer func() {
					if r := recover(); r != nil {
						err = &api.PanicError{Value: r}
					}
				}()
				v, err = fn(c)
			}()
			if !origin.post(func(*Context) { p.settle(v, err) }) {
				origin.log.Warn("dropping cross-shard result: origin shard stopped")
			}
		})
		rc.shard.stats.tasksSpawned.Add(1)
		rc.shard.fair.enqueue(t)
	})
	if !accepted {
		deliverError(origin, p, api.WrapError(api.ErrCodeTransport, "submit_to", api.ErrShardUnavailable).
			WithContext("target", int(target)))
	}
	return f
}

// deliverError settles through the origin mailbox to preserve the
// asynchronous-resolution contract even on the failure path.
func deliverError[T any](origin *Shard, p *Promise[T], err error) {
	if !origin.post(func(*Context) { p.TrySetError(err) }) {
		// Origin is stopping; nothing will await this future.
		p.TrySetError(err)
	}
}

// SubmitExternal is the host-thread entry point: it enqueues fn as a
// task on the given shard under the default group and returns a future
// the host observes via Done/Result/Wait. Tasks must use SubmitTo.
func SubmitExternal[T any](s *Shard, fn func(*Context) (T, error)) *Future[T] {
	p, f := newPromiseOn[T](s)
	accepted := s.post(func(rc *Context) {
		t := rc.shard.newTask(api.DefaultGroup, func(c *Context) {
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
		rc.shard.stats.tasksSpawned.Add(1)
		rc.shard.fair.enqueue(t)
	})
	if !accepted {
		// Never published to the shard, safe to settle directly.
		p.TrySetError(api.ErrNotRunning)
	}
	return f
}
