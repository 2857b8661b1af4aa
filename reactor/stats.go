// File: reactor/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-shard counters. Atomics, so host threads (control layer) may
// snapshot them while the loop runs.

package reactor

import (
	"sync/atomic"

	"github.com/momentics/hioload-engine/api"
)

type shardStats struct {
	shard            api.ShardID
	tasksRun         atomic.Uint64
	tasksSpawned     atomic.Uint64
	timersFired      atomic.Uint64
	crossSubmits     atomic.Uint64
	brokenPromises   atomic.Uint64
	failedFutures    atomic.Uint64
	observedFailures atomic.Uint64
	defects          atomic.Uint64
}

// unobserved derives the reportable-defect count: futures that failed
// and were never looked at.
func (s *shardStats) unobserved() uint64 {
	failed := s.failedFutures.Load()
	seen := s.observedFailures.Load()
	if seen >= failed {
		return 0
	}
	return failed - seen
}

func (s *shardStats) snapshot() api.ShardStats {
	return api.ShardStats{
		Shard:              s.shard,
		TasksRun:           s.tasksRun.Load(),
		TasksSpawned:       s.tasksSpawned.Load(),
		TimersFired:        s.timersFired.Load(),
		CrossSubmits:       s.crossSubmits.Load(),
		BrokenPromises:     s.brokenPromises.Load(),
		UnobservedFailures: s.unobserved(),
	}
}
