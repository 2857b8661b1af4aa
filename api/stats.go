// File: api/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stats snapshot types consumed by the control layer.

package api

// ShardStats is a point-in-time snapshot of one shard's counters.
type ShardStats struct {
	Shard              ShardID
	TasksRun           uint64
	TasksSpawned       uint64
	TimersFired        uint64
	CrossSubmits       uint64
	MailboxDepth       int
	BrokenPromises     uint64
	UnobservedFailures uint64
}

// EngineStats aggregates all per-shard snapshots.
type EngineStats struct {
	Shards []ShardStats
}
