// File: reactor/group.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scheduling-group record. One record per group id, shared by all
// shards; name and shares are read atomically so a rename is atomic to
// readers and a shares update becomes effective at each shard's next
// scheduling decision independently.

package reactor

import (
	"sync/atomic"

	"github.com/momentics/hioload-engine/api"
)

// Group is the full scheduling-group record. The id is the cheap,
// copyable handle; two handles are equal iff their ids are equal,
// independent of any later rename or shares change.
type Group struct {
	id     api.GroupID
	name   atomic.Value // string
	shares atomic.Uint32
}

// NewGroup builds a group record. Used by the engine registry; shares
// must be positive.
func NewGroup(id api.GroupID, name string, shares uint32) *Group {
	if shares == 0 {
		panic("reactor: scheduling group shares must be positive")
	}
	g := &Group{id: id}
	g.name.Store(name)
	g.shares.Store(shares)
	return g
}

// ID returns the group id.
func (g *Group) ID() api.GroupID { return g.id }

// Name returns the current group name.
func (g *Group) Name() string { return g.name.Load().(string) }

// SetName atomically replaces the name. Used by the engine's rename
// coordination.
func (g *Group) SetName(name string) { g.name.Store(name) }

// Shares returns the current weight.
func (g *Group) Shares() uint32 { return g.shares.Load() }

// SetShares updates the weight. Local and fire-and-forget: each shard
// picks the new value up at its next scheduling decision, so brief
// inter-shard skew is expected.
func (g *Group) SetShares(shares uint32) {
	if shares == 0 {
		panic("reactor: scheduling group shares must be positive")
	}
	g.shares.Store(shares)
}

// Equal compares handles by id only.
func (g *Group) Equal(o *Group) bool {
	if g == nil || o == nil {
		return g == o
	}
	return g.id == o.id
}
