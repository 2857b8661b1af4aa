// File: reactor/combinators.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Future combinators. Timeouts are built by racing the target future
// against a timer future, never by forcibly terminating work in
// progress.

package reactor

import (
	"time"

	"github.com/momentics/hioload-engine/api"
)

// Yield reschedules the calling task at the back of its group's ready
// queue, letting timer dispatch and other tasks run.
func Yield(tc *Context) {
	if tc.task == nil {
		panic("reactor: yield in reactor context")
	}
	tc.shard.fair.enqueue(tc.task)
	tc.task.suspend()
}

// Sleep suspends the calling task until d has elapsed on the given
// clock.
func Sleep(tc *Context, kind api.ClockKind, d time.Duration) error {
	p, f := NewPromise[struct{}](tc)
	t := NewTimer(tc, kind, func(*Context) {
		p.SetValue(struct{}{})
	})
	t.Arm(d)
	_, err := f.Await(tc)
	return err
}

// WithTimeout awaits f, racing it against a timer on the given clock.
// On timeout it returns api.ErrTimedOut and requests cooperative
// cancellation of the task backing f; the loser is still observed so
// its eventual failure is never a dropped defect. WithTimeout is the
// future's one consumer: the caller must not also Await f.
func WithTimeout[T any](tc *Context, f *Future[T], kind api.ClockKind, d time.Duration) (T, error) {
	race, raceF := NewPromise[T](tc)

	timer := NewTimer(tc, kind, func(*Context) {
		if race.TrySetError(api.ErrTimedOut) {
			f.RequestCancel()
		}
	})
	timer.Arm(d)

	SpawnDetached(tc, func(c *Context) error {
		v, err := f.Await(c)
		if err != nil {
			if race.TrySetError(err) {
				timer.Cancel()
			}
			return nil
		}
		if race.TrySetValue(v) {
			timer.Cancel()
		}
		return nil
	})

	return raceF.Await(tc)
}
