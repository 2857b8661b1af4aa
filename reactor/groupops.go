// File: reactor/groupops.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cross-shard scheduling-group coordination primitives used by the
// engine registry. Install is ordinary submitted work; retire resolves
// only once the target shard has drained every pending task tagged
// with the group, which can be long after the submit itself ran.

package reactor

import "github.com/momentics/hioload-engine/api"

// InstallGroupOn registers the group record on the target shard.
func InstallGroupOn(tc *Context, target api.ShardID, g *Group) *Future[struct{}] {
	return SubmitTo(tc, target, func(c *Context) (struct{}, error) {
		c.shard.fair.install(g)
		return struct{}{}, nil
	})
}

// RetireGroupOn marks the group for destruction on the target shard.
// The returned future, owned by the caller's shard, resolves once no
// pending tasks tagged with the group remain there.
func RetireGroupOn(tc *Context, target api.ShardID, gid api.GroupID) *Future[struct{}] {
	origin := tc.shard
	p, f := newPromiseOn[struct{}](origin)

	tgt := origin.peer(target)
	if tgt == nil {
		deliverError(origin, p, api.WrapError(api.ErrCodeTransport, "retire group", api.ErrShardUnavailable).
			WithContext("target", int(target)))
		return f
	}
	accepted := tgt.post(func(rc *Context) {
		rc.shard.fair.retire(gid, func(*Context) {
			if !origin.post(func(*Context) { p.TrySetValue(struct{}{}) }) {
				origin.log.Warn("dropping group retire ack: origin shard stopped")
			}
		})
	})
	if !accepted {
		deliverError(origin, p, api.WrapError(api.ErrCodeTransport, "retire group", api.ErrShardUnavailable).
			WithContext("target", int(target)))
	}
	return f
}
