// File: engine/groups.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scheduling-group registry and cross-shard coordination. Ids come
// from a fixed-size space; the record is shared by all shards, so a
// rename or shares update is a single atomic store, while create and
// destroy broadcast through the shard mailboxes. Destroy reclaims the
// id only after every shard has drained the group's pending tasks.

package engine

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/momentics/hioload-engine/api"
	"github.com/momentics/hioload-engine/reactor"
)

type slotState uint8

const (
	slotFree slotState = iota
	slotLive
	slotDying
)

type groupRegistry struct {
	mu    sync.Mutex
	slots [api.MaxGroups]*reactor.Group
	state [api.MaxGroups]slotState
}

func (r *groupRegistry) init(def *reactor.Group) {
	r.slots[api.DefaultGroup] = def
	r.state[api.DefaultGroup] = slotLive
}

func (r *groupRegistry) allocate(name string, shares uint32) (*reactor.Group, error) {
	if shares == 0 {
		return nil, api.NewError(api.ErrCodeInternal, "scheduling group shares must be positive")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.slots {
		if r.state[id] == slotFree {
			g := reactor.NewGroup(api.GroupID(id), name, shares)
			r.slots[id] = g
			r.state[id] = slotLive
			return g, nil
		}
	}
	return nil, api.WrapError(api.ErrCodeExhausted, "create scheduling group", api.ErrGroupsExhausted)
}

func (r *groupRegistry) beginDestroy(g *reactor.Group) error {
	if g == nil {
		return api.NewError(api.ErrCodeInternal, "nil scheduling group")
	}
	if g.ID() == api.DefaultGroup {
		return api.NewError(api.ErrCodeInternal, "cannot destroy the default scheduling group")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := g.ID()
	if r.state[id] != slotLive || r.slots[id] != g {
		return api.NewError(api.ErrCodeInternal, "scheduling group is not live").
			WithContext("group", int(id))
	}
	r.state[id] = slotDying
	return nil
}

func (r *groupRegistry) free(id api.GroupID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[id] = nil
	r.state[id] = slotFree
}

// DefaultGroup returns the always-present "main" group record.
func (e *Engine) DefaultGroup() *reactor.Group {
	return e.groups.slots[api.DefaultGroup]
}

// MaxGroupCount returns the size of the scheduling-group id space.
func (e *Engine) MaxGroupCount() int { return api.MaxGroups }

// CreateGroup asynchronously creates a scheduling group: an id is
// allocated from the fixed space, the record is installed on every
// shard, and the future resolves with the handle. Fails with
// api.ErrGroupsExhausted when no ids remain.
func (e *Engine) CreateGroup(tc *reactor.Context, name string, shares uint32) *reactor.Future[*reactor.Group] {
	return reactor.Spawn(tc, func(c *reactor.Context) (*reactor.Group, error) {
		g, err := e.groups.allocate(name, shares)
		if err != nil {
			return nil, err
		}
		futs := make([]*reactor.Future[struct{}], 0, len(e.shards))
		for i := range e.shards {
			futs = append(futs, reactor.InstallGroupOn(c, api.ShardID(i), g))
		}
		var merr error
		for _, f := range futs {
			if _, aerr := f.Await(c); aerr != nil {
				merr = multierr.Append(merr, aerr)
			}
		}
		if merr != nil {
			e.groups.free(g.ID())
			return nil, fmt.Errorf("install scheduling group %q: %w", name, merr)
		}
		return g, nil
	})
}

// DestroyGroup asynchronously destroys a scheduling group. Forbidden on
// the default group. The id is reclaimed only once no shard has pending
// tasks tagged with it.
func (e *Engine) DestroyGroup(tc *reactor.Context, g *reactor.Group) *reactor.Future[struct{}] {
	return reactor.Spawn(tc, func(c *reactor.Context) (struct{}, error) {
		if err := e.groups.beginDestroy(g); err != nil {
			return struct{}{}, err
		}
		futs := make([]*reactor.Future[struct{}], 0, len(e.shards))
		for i := range e.shards {
			futs = append(futs, reactor.RetireGroupOn(c, api.ShardID(i), g.ID()))
		}
		var merr error
		for _, f := range futs {
			if _, aerr := f.Await(c); aerr != nil {
				merr = multierr.Append(merr, aerr)
			}
		}
		e.groups.free(g.ID())
		if merr != nil {
			return struct{}{}, fmt.Errorf("retire scheduling group %d: %w", g.ID(), merr)
		}
		return struct{}{}, nil
	})
}

// RenameGroup asynchronously renames a group. The swap is atomic to
// readers: Name observers see either the old or the new name, never a
// mix.
func (e *Engine) RenameGroup(tc *reactor.Context, g *reactor.Group, name string) *reactor.Future[struct{}] {
	return reactor.Spawn(tc, func(*reactor.Context) (struct{}, error) {
		if g == nil {
			return struct{}{}, api.NewError(api.ErrCodeInternal, "nil scheduling group")
		}
		g.SetName(name)
		return struct{}{}, nil
	})
}
