// File: reactor/fairq.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Weighted fair-share run queues: one FIFO ready queue per active
// scheduling group, groups ordered by virtual runtime in a red-black
// tree. The leftmost group runs next; measured runtime divided by the
// group's shares is charged to its vruntime, so CPU time converges to
// the shares ratio among saturating groups. A group re-entering the
// tree inherits at least the shard's minimum vruntime so it cannot
// cash in credit accumulated while idle.

package reactor

import (
	"github.com/eapache/queue"
	"github.com/emirpasic/gods/trees/redblacktree"

	"github.com/momentics/hioload-engine/api"
)

// fairKey orders runnable groups by (vruntime, id).
type fairKey struct {
	vruntime float64
	id       api.GroupID
}

func fairCmp(a, b any) int {
	ka, kb := a.(fairKey), b.(fairKey)
	switch {
	case ka.vruntime < kb.vruntime:
		return -1
	case ka.vruntime > kb.vruntime:
		return 1
	case ka.id < kb.id:
		return -1
	case ka.id > kb.id:
		return 1
	default:
		return 0
	}
}

// groupRun is the per-shard side of one scheduling group.
type groupRun struct {
	grp       *Group
	ready     *queue.Queue // FIFO of *task
	vruntime  float64
	inTree    bool
	running   bool // between next() and charge()
	retiring  bool
	onDrained []func(*Context)
}

type fairQueue struct {
	shard       *Shard
	tree        *redblacktree.Tree // fairKey -> *groupRun
	groups      map[api.GroupID]*groupRun
	minVruntime float64
}

func newFairQueue(s *Shard) *fairQueue {
	return &fairQueue{
		shard:  s,
		tree:   redblacktree.NewWith(fairCmp),
		groups: make(map[api.GroupID]*groupRun),
	}
}

// install registers a group record on this shard. Idempotent.
func (f *fairQueue) install(g *Group) {
	if _, ok := f.groups[g.ID()]; ok {
		return
	}
	f.groups[g.ID()] = &groupRun{
		grp:      g,
		ready:    queue.New(),
		vruntime: f.minVruntime,
	}
}

// record returns the group record installed under id, or nil.
func (f *fairQueue) record(id api.GroupID) *Group {
	if gr, ok := f.groups[id]; ok {
		return gr.grp
	}
	return nil
}

// enqueue appends a task to its group's ready queue, activating the
// group if it was idle. Tasks whose group vanished underneath them run
// under the default group.
func (f *fairQueue) enqueue(t *task) {
	gr, ok := f.groups[t.group]
	if !ok {
		t.group = api.DefaultGroup
		gr = f.groups[api.DefaultGroup]
	}
	gr.ready.Add(t)
	if !gr.inTree && !gr.running {
		if gr.vruntime < f.minVruntime {
			gr.vruntime = f.minVruntime
		}
		f.tree.Put(fairKey{gr.vruntime, gr.grp.ID()}, gr)
		gr.inTree = true
	}
}

// next pops the task at the head of the leftmost runnable group. The
// group stays out of the tree until charge() reinserts it with its
// updated vruntime.
func (f *fairQueue) next() (*task, *groupRun) {
	node := f.tree.Left()
	if node == nil {
		return nil, nil
	}
	key := node.Key.(fairKey)
	gr := node.Value.(*groupRun)
	f.tree.Remove(key)
	gr.inTree = false
	gr.running = true
	f.minVruntime = key.vruntime
	t := gr.ready.Remove().(*task)
	return t, gr
}

// charge books cost nanoseconds of runtime against the group and
// requeues it if it still has ready tasks.
func (f *fairQueue) charge(gr *groupRun, cost int64) {
	gr.running = false
	gr.vruntime += float64(cost) / weightOf(gr.grp)
	if gr.ready.Length() > 0 {
		f.tree.Put(fairKey{gr.vruntime, gr.grp.ID()}, gr)
		gr.inTree = true
		return
	}
	f.maybeDrained(gr)
}

// chargeOutside books runtime that happened outside a scheduling
// decision (timer callbacks) against a group by id.
func (f *fairQueue) chargeOutside(id api.GroupID, cost int64) {
	gr, ok := f.groups[id]
	if !ok {
		return
	}
	if gr.inTree {
		f.tree.Remove(fairKey{gr.vruntime, gr.grp.ID()})
		gr.vruntime += float64(cost) / weightOf(gr.grp)
		f.tree.Put(fairKey{gr.vruntime, gr.grp.ID()}, gr)
		return
	}
	gr.vruntime += float64(cost) / weightOf(gr.grp)
}

// retire marks a group as being destroyed. fn runs in reactor context
// once the group's ready queue has fully drained on this shard; if it
// is already empty the callback fires at the next maybeDrained check.
func (f *fairQueue) retire(id api.GroupID, fn func(*Context)) {
	gr, ok := f.groups[id]
	if !ok || id == api.DefaultGroup {
		fn(&Context{shard: f.shard, group: api.DefaultGroup})
		return
	}
	gr.retiring = true
	gr.onDrained = append(gr.onDrained, fn)
	f.maybeDrained(gr)
}

// maybeDrained completes a pending retire once nothing of the group
// remains queued or running on this shard.
func (f *fairQueue) maybeDrained(gr *groupRun) {
	if !gr.retiring || gr.running || gr.ready.Length() > 0 {
		return
	}
	callbacks := gr.onDrained
	gr.onDrained = nil
	gr.retiring = false
	delete(f.groups, gr.grp.ID())
	rc := &Context{shard: f.shard, group: api.DefaultGroup}
	for _, fn := range callbacks {
		fn(rc)
	}
}

// pending reports whether any task is queued on this shard.
func (f *fairQueue) pending() bool {
	return f.tree.Size() > 0
}

func weightOf(g *Group) float64 {
	s := g.Shares()
	if s == 0 {
		return 1
	}
	return float64(s)
}
