// File: reactor/timer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single-shot and periodic timers over the shard's per-clock deadline
// heaps. Heaps use lazy deletion: cancel/rearm bumps the timer's
// generation and stale heap entries are skipped at dispatch. Entries
// carry an insertion sequence so simultaneous deadlines (manual clock)
// fire in insertion order.

package reactor

import (
	"container/heap"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-engine/api"
)

// Timer runs a callback at a point in the future on its owning shard.
// Callbacks execute synchronously inside the reactor dispatch step, in
// reactor context, under the timer's scheduling group (default: main);
// involved processing should be launched as a task from the callback.
//
// A timer is shard-confined: create, arm and cancel it only on the
// shard it was created on.
type Timer struct {
	shard    *Shard
	kind     api.ClockKind
	cb       func(*Context)
	group    *Group
	deadline int64
	period   int64
	armed    bool
	firing   bool
	suppress bool
	gen      uint64
}

// NewTimer constructs a timer bound to the given clock with no
// expiration set.
func NewTimer(tc *Context, kind api.ClockKind, cb func(*Context)) *Timer {
	return &Timer{shard: tc.shard, kind: kind, cb: cb}
}

// SetGroup tags the timer's callback with a scheduling group.
func (t *Timer) SetGroup(g *Group) { t.group = g }

// Clock returns the timer's time source.
func (t *Timer) Clock() api.Clock { return t.shard.clockFor(t.kind) }

// Arm sets the expiration delta nanoseconds/duration from now.
// Arming an already-armed timer is a defect and panics; see Rearm.
func (t *Timer) Arm(delta time.Duration) {
	t.ArmAt(t.Clock().Now() + int64(delta))
}

// ArmAt sets an absolute expiration timestamp (engine-epoch nanos).
func (t *Timer) ArmAt(at int64) {
	if t.armed {
		panic("reactor: arming an armed timer")
	}
	t.period = 0
	t.armInternal(at)
}

// ArmPeriodic arms with automatic rescheduling every delta.
func (t *Timer) ArmPeriodic(delta time.Duration) {
	t.ArmAtPeriodic(t.Clock().Now()+int64(delta), delta)
}

// ArmAtPeriodic arms at an absolute deadline with a rearm period.
func (t *Timer) ArmAtPeriodic(at int64, period time.Duration) {
	if t.armed {
		panic("reactor: arming an armed timer")
	}
	if period <= 0 {
		panic("reactor: timer period must be positive")
	}
	t.period = int64(period)
	t.armInternal(at)
}

// Rearm is an atomic cancel-then-arm with no observable idle gap. It
// does not interrupt a firing already in progress.
func (t *Timer) Rearm(delta time.Duration) {
	t.RearmAt(t.Clock().Now() + int64(delta))
}

// RearmAt is Rearm with an absolute deadline.
func (t *Timer) RearmAt(at int64) {
	t.disarm()
	t.period = 0
	t.armInternal(at)
}

// RearmPeriodic is an atomic cancel-then-arm-periodic.
func (t *Timer) RearmPeriodic(delta time.Duration) {
	t.RearmAtPeriodic(t.Clock().Now()+int64(delta), delta)
}

// RearmAtPeriodic is RearmPeriodic with an absolute deadline.
func (t *Timer) RearmAtPeriodic(at int64, period time.Duration) {
	if period <= 0 {
		panic("reactor: timer period must be positive")
	}
	t.disarm()
	t.period = int64(period)
	t.armInternal(at)
}

// Cancel disarms the timer, reporting whether it had actually been
// armed. Cancelling from inside the firing callback suppresses a
// periodic re-arm and returns false (the timer is not armed while
// firing).
func (t *Timer) Cancel() bool {
	if t.firing {
		t.suppress = true
	}
	if !t.armed {
		return false
	}
	t.armed = false
	t.gen++
	return true
}

// Armed reports whether the timer is armed.
func (t *Timer) Armed() bool { return t.armed }

// Timeout returns the expiration timestamp if the timer is armed.
func (t *Timer) Timeout() (int64, bool) {
	if !t.armed {
		return 0, false
	}
	return t.deadline, true
}

func (t *Timer) disarm() {
	if t.firing {
		t.suppress = true
	}
	if t.armed {
		t.armed = false
		t.gen++
	}
}

func (t *Timer) armInternal(at int64) {
	t.deadline = at
	t.armed = true
	t.shard.pushTimer(t)
}

// timerEntry is one heap element. gen snapshots the timer's generation
// at insertion; a mismatch at dispatch marks the entry stale.
type timerEntry struct {
	t        *Timer
	deadline int64
	seq      uint64
	gen      uint64
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(*timerEntry)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

func (s *Shard) pushTimer(t *Timer) {
	s.timerSeq++
	heap.Push(&s.heaps[t.kind], &timerEntry{
		t:        t,
		deadline: t.deadline,
		seq:      s.timerSeq,
		gen:      t.gen,
	})
}

// fireDueTimers dispatches every timer whose deadline has passed on
// its clock, at the head of the scheduling decision. Returns whether
// anything fired.
func (s *Shard) fireDueTimers() bool {
	fired := false
	for kind := range s.heaps {
		c := s.clockFor(api.ClockKind(kind))
		if c == nil {
			continue
		}
		h := &s.heaps[kind]
		for h.Len() > 0 {
			top := (*h)[0]
			if top.gen != top.t.gen || !top.t.armed {
				heap.Pop(h) // stale: cancelled or rearmed
				continue
			}
			now := c.Now()
			if top.deadline > now {
				break
			}
			heap.Pop(h)
			s.fireTimer(top.t, now)
			fired = true
		}
	}
	return fired
}

// fireTimer runs the callback and handles periodic rescheduling. The
// next deadline derives from the previous scheduled deadline plus the
// period, not from firing time, so periodic timers do not drift under
// callback latency; whole periods are skipped forward when the
// callback overruns, so a firing is never double-queued.
func (s *Shard) fireTimer(t *Timer, now int64) {
	t.armed = false
	t.gen++
	t.firing = true
	t.suppress = false

	gid := api.DefaultGroup
	if t.group != nil {
		gid = t.group.ID()
	}
	rc := &Context{shard: s, group: gid}
	start := s.steady.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.stats.defects.Add(1)
				s.log.Error("timer callback panicked", zap.Any("panic", r))
			}
		}()
		t.cb(rc)
	}()
	s.fair.chargeOutside(gid, s.steady.Now()-start)
	s.stats.timersFired.Add(1)
	t.firing = false

	if t.period > 0 && !t.suppress && !t.armed {
		next := t.deadline + t.period
		if next <= now {
			next += ((now-next)/t.period + 1) * t.period
		}
		t.armInternal(next)
	}
}

// nextTimerWait computes how long the shard may park before a steady
// or lowres deadline comes due. Manual-clock timers never drive
// parking; Advance wakes the shard instead. The wall-clock estimate
// for both real heaps uses the steady clock (shared epoch).
func (s *Shard) nextTimerWait() (time.Duration, bool) {
	const minPark = 100 * time.Microsecond
	best := int64(-1)
	for _, kind := range []api.ClockKind{api.ClockSteady, api.ClockLowres} {
		h := s.heaps[kind]
		for h.Len() > 0 {
			top := h[0]
			if top.gen != top.t.gen || !top.t.armed {
				heap.Pop(&s.heaps[kind])
				h = s.heaps[kind]
				continue
			}
			if best < 0 || top.deadline < best {
				best = top.deadline
			}
			break
		}
	}
	if best < 0 {
		return 0, false
	}
	wait := time.Duration(best - s.steady.Now())
	if wait < minPark {
		wait = minPark
	}
	return wait, true
}
