// File: reactor/shard.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The per-core reactor loop. Each iteration drains the cross-shard
// mailbox, dispatches due timers, then makes one scheduling decision:
// the leftmost fair-queue group runs one task to its next suspension
// point. With nothing runnable the loop parks on the mailbox, the
// earliest real timer deadline and the stop signal.

package reactor

import (
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-engine/affinity"
	"github.com/momentics/hioload-engine/api"
	"github.com/momentics/hioload-engine/clock"
)

// message is a unit of reactor-context work delivered via the mailbox.
type message func(*Context)

// Shard is one reactor and its exclusively owned slice of state. All
// fields below the mailbox/overflow/wake/stop block are confined to
// the loop goroutine and the single task currently holding the baton.
type Shard struct {
	id    api.ShardID
	peers []*Shard

	mailbox  chan message
	overMu   sync.Mutex
	overflow []message
	wake     chan struct{}
	stopCh   chan struct{}

	log    *zap.Logger
	steady *clock.Steady
	lowres *clock.Lowres
	manual *clock.Manual

	pinCPU bool

	fair      *fairQueue
	heaps     [3]timerHeap
	yield     chan struct{}
	taskSeq   uint64
	timerSeq  uint64
	liveTasks int

	stats shardStats
}

// ShardConfig wires one shard at engine bootstrap.
type ShardConfig struct {
	ID              api.ShardID
	MailboxCapacity int
	PinCPU          bool
	Log             *zap.Logger
	Steady          *clock.Steady
	Lowres          *clock.Lowres
	Manual          *clock.Manual
	DefaultGroup    *Group
}

// NewShard builds an idle shard. Wire peers with SetPeers before Run.
func NewShard(cfg ShardConfig) *Shard {
	s := &Shard{
		id:      cfg.ID,
		mailbox: make(chan message, cfg.MailboxCapacity),
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		log:     cfg.Log.With(zap.Int("shard", int(cfg.ID))),
		steady:  cfg.Steady,
		lowres:  cfg.Lowres,
		manual:  cfg.Manual,
		pinCPU:  cfg.PinCPU,
		yield:   make(chan struct{}),
	}
	s.fair = newFairQueue(s)
	s.fair.install(cfg.DefaultGroup)
	s.stats.shard = cfg.ID
	if s.manual != nil {
		s.manual.RegisterWaker(s.Wake)
	}
	return s
}

// SetPeers installs the share-nothing per-core shard array. peers[i]
// must be the shard with id i; the slice includes the receiver.
func (s *Shard) SetPeers(peers []*Shard) { s.peers = peers }

// ID returns the shard id.
func (s *Shard) ID() api.ShardID { return s.id }

// Run executes the reactor loop until Stop. It locks its OS thread and
// optionally pins it to the matching logical CPU.
func (s *Shard) Run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if s.pinCPU {
		if err := affinity.SetAffinity(int(s.id)); err != nil {
			s.log.Warn("cpu pinning unavailable", zap.Error(err))
		}
	}
	s.log.Debug("shard loop started")
	for {
		progress := s.drainMailbox()
		if s.fireDueTimers() {
			progress = true
		}
		if t, gr := s.fair.next(); t != nil {
			s.runTask(t, gr)
			continue
		}
		if progress {
			continue
		}
		select {
		case <-s.stopCh:
			s.shutdown()
			return nil
		default:
		}
		s.park()
	}
}

// Stop asks the loop to wind down. Queued ready tasks and mailbox work
// still run; armed timers are discarded; tasks suspended on futures
// that will now never resolve are abandoned and reported.
func (s *Shard) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.Wake()
}

// Wake nudges a parked loop. Safe from any goroutine.
func (s *Shard) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// post delivers reactor-context work to this shard's mailbox. Returns
// false when the shard is stopping and will never run it.
//
// post must never block: senders may be tasks holding their own
// shard's baton, and a sender blocked on a full channel can starve
// the very loop that would drain it. A full mailbox spills into the
// unbounded overflow list drained together with the channel.
func (s *Shard) post(m message) bool {
	select {
	case <-s.stopCh:
		return false
	default:
	}
	select {
	case s.mailbox <- m:
		return true
	default:
	}
	s.overMu.Lock()
	s.overflow = append(s.overflow, m)
	s.overMu.Unlock()
	s.Wake()
	return true
}

// peer resolves a target shard id.
func (s *Shard) peer(id api.ShardID) *Shard {
	if int(id) < 0 || int(id) >= len(s.peers) {
		return nil
	}
	return s.peers[id]
}

func (s *Shard) drainMailbox() bool {
	progress := false
	for {
		select {
		case m := <-s.mailbox:
			s.execMessage(m)
			progress = true
		default:
			s.overMu.Lock()
			spill := s.overflow
			s.overflow = nil
			s.overMu.Unlock()
			if len(spill) == 0 {
				return progress
			}
			for _, m := range spill {
				s.execMessage(m)
			}
			progress = true
		}
	}
}

func (s *Shard) execMessage(m message) {
	defer func() {
		if r := recover(); r != nil {
			s.stats.defects.Add(1)
			s.log.Error("mailbox work panicked", zap.Any("panic", r))
		}
	}()
	m(&Context{shard: s, group: api.DefaultGroup})
}

// runTask grants the baton to the task and blocks until it yields or
// finishes, then charges the measured runtime to its group.
func (s *Shard) runTask(t *task, gr *groupRun) {
	if !t.started {
		t.started = true
		go t.run()
	}
	start := s.steady.Now()
	t.resume <- struct{}{}
	<-s.yield
	cost := s.steady.Now() - start
	if cost < 1 {
		cost = 1
	}
	s.fair.charge(gr, cost)
	s.stats.tasksRun.Add(1)
}

// park blocks until new work may exist: mailbox delivery, a wake nudge
// (manual clock advance, stop), or the earliest real timer deadline.
func (s *Shard) park() {
	wait, hasDeadline := s.nextTimerWait()
	if !hasDeadline {
		select {
		case m := <-s.mailbox:
			s.execMessage(m)
		case <-s.wake:
		case <-s.stopCh:
		}
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case m := <-s.mailbox:
		s.execMessage(m)
	case <-s.wake:
	case <-timer.C:
	case <-s.stopCh:
	}
}

// shutdown runs after the stop signal once the ready queues and the
// mailbox are empty. Remaining suspended tasks are abandoned.
func (s *Shard) shutdown() {
	if s.liveTasks > 0 {
		s.log.Warn("abandoning suspended tasks at shutdown",
			zap.Int("tasks", s.liveTasks))
	}
	if unobserved := s.stats.unobserved(); unobserved > 0 {
		s.log.Warn("failed futures were never observed",
			zap.Uint64("count", unobserved))
	}
	s.log.Debug("shard loop stopped")
}

// InstallGroup registers a scheduling-group record on this shard.
// Reactor-context only (delivered via mailbox broadcast).
func (s *Shard) InstallGroup(g *Group) { s.fair.install(g) }

// RetireGroup marks a group for destruction on this shard; fn runs once
// no pending tasks tagged with it remain here.
func (s *Shard) RetireGroup(id api.GroupID, fn func(*Context)) {
	s.fair.retire(id, fn)
}

// Stats returns a point-in-time snapshot of the shard counters.
func (s *Shard) Stats() api.ShardStats {
	st := s.stats.snapshot()
	s.overMu.Lock()
	spilled := len(s.overflow)
	s.overMu.Unlock()
	st.MailboxDepth = len(s.mailbox) + spilled
	return st
}

func (s *Shard) clockFor(kind api.ClockKind) api.Clock {
	switch kind {
	case api.ClockSteady:
		return s.steady
	case api.ClockLowres:
		return s.lowres
	case api.ClockManual:
		if s.manual == nil {
			return nil
		}
		return s.manual
	default:
		return nil
	}
}
