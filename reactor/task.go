// File: reactor/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Task and execution context. A task is a goroutine that only runs
// while it holds the shard's baton; the reactor grants the baton via
// resume and the task returns it by yielding (suspension) or finishing.

package reactor

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/momentics/hioload-engine/api"
)

type task struct {
	id      uint64
	shard   *Shard
	group   api.GroupID
	body    func(*Context)
	resume  chan struct{}
	started bool
	cancel  atomic.Bool
}

func (s *Shard) newTask(gid api.GroupID, body func(*Context)) *task {
	s.taskSeq++
	s.liveTasks++
	return &task{
		id:     s.taskSeq,
		shard:  s,
		group:  gid,
		body:   body,
		resume: make(chan struct{}),
	}
}

// run is the task goroutine. It waits for the first baton grant, runs
// the body to completion and hands the baton back exactly once per
// grant (suspend points yield in between).
func (t *task) run() {
	<-t.resume
	defer func() {
		if r := recover(); r != nil {
			// Spawn wrappers settle their future before re-panicking is
			// needed, so anything arriving here escaped a detached task.
			t.shard.log.Error("panic escaped task body",
				zap.Any("panic", r), zap.Int("shard", int(t.shard.id)))
			t.shard.stats.defects.Add(1)
		}
		t.shard.liveTasks--
		t.shard.yield <- struct{}{}
	}()
	t.body(&Context{shard: t.shard, task: t, group: t.group})
}

// suspend returns the baton to the reactor and blocks until resumed.
// Only the task itself calls this, at await points.
func (t *task) suspend() {
	t.shard.yield <- struct{}{}
	<-t.resume
}

// Context is the execution context threaded through every task body and
// timer callback. A nil task marks reactor context (timer callbacks,
// mailbox work), which may spawn but must not await.
type Context struct {
	shard *Shard
	task  *task
	group api.GroupID
}

// Shard returns the id of the core this context runs on.
func (c *Context) Shard() api.ShardID { return c.shard.id }

// NumShards returns the number of cores in the engine.
func (c *Context) NumShards() int { return len(c.shard.peers) }

// Group returns the scheduling group the running task was spawned or
// resumed under.
func (c *Context) Group() *Group {
	if g := c.shard.fair.record(c.group); g != nil {
		return g
	}
	return c.shard.fair.record(api.DefaultGroup)
}

// CancelRequested reports whether cancellation has been requested for
// the running task. Cancellation is cooperative: the task observes the
// flag at its own suspension points and winds down on its own terms.
func (c *Context) CancelRequested() bool {
	return c.task != nil && c.task.cancel.Load()
}
