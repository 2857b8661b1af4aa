// Package reactor
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package reactor implements the per-core cooperative scheduler of
// hioload-engine: tasks, futures/promises, weighted fair-share run
// queues, timers over pluggable clocks, and cross-shard dispatch.
//
// One Shard owns one OS thread and one slice of state. At most one
// task (or the reactor loop itself) executes per shard at any instant;
// the loop and the running task exchange a single execution baton over
// unbuffered channels. Suspension happens only at future await points.
// Cross-shard communication goes exclusively through shard mailboxes.
package reactor
