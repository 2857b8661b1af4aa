// Package engine
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Multi-shard runtime of hioload-engine: shard bootstrap and teardown,
// host-facing submission entry points, and the cross-shard
// scheduling-group registry. One Engine owns N reactors, one per
// configured core, wired as an explicit fixed-size array indexed by
// shard id and communicating only via message passing.
package engine
