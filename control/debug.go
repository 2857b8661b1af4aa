// File: control/debug.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Debug introspection helpers.

package control

import (
	"fmt"

	"github.com/momentics/hioload-engine/engine"
)

// Snapshot flattens the engine counters into a loggable map.
func Snapshot(eng *engine.Engine) map[string]any {
	out := make(map[string]any)
	for _, s := range eng.Stats().Shards {
		prefix := fmt.Sprintf("shard%d.", s.Shard)
		out[prefix+"tasks_run"] = s.TasksRun
		out[prefix+"tasks_spawned"] = s.TasksSpawned
		out[prefix+"timers_fired"] = s.TimersFired
		out[prefix+"cross_submits"] = s.CrossSubmits
		out[prefix+"mailbox_depth"] = s.MailboxDepth
		out[prefix+"broken_promises"] = s.BrokenPromises
		out[prefix+"unobserved_failures"] = s.UnobservedFailures
	}
	return out
}
