// File: api/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Core identifiers of the shard-per-core runtime.

package api

// ShardID identifies one reactor and its exclusively owned slice of state.
// Shards are numbered 0..N-1 where N is fixed at engine construction.
type ShardID int

// GroupID identifies a scheduling group. The id is the cheap, copyable
// handle; the full record lives in the engine registry and in per-shard
// side tables.
type GroupID uint32

// MaxGroups is the size of the scheduling-group id space. Creation fails
// with ErrGroupsExhausted once all ids are taken.
const MaxGroups = 16

// DefaultGroup is the id of the always-present "main" scheduling group.
// It cannot be destroyed.
const DefaultGroup GroupID = 0

// DefaultGroupName is the name of the default scheduling group.
const DefaultGroupName = "main"

// ClockKind selects the time source a timer is bound to.
type ClockKind int

const (
	// ClockSteady is the precise monotonic clock. Relatively expensive
	// to read, accurate real deadlines.
	ClockSteady ClockKind = iota
	// ClockLowres is the coarse periodic clock. Very cheap to read,
	// ~10ms resolution, appropriate for bulk low-precision timers.
	ClockLowres
	// ClockManual is the virtual clock. Advances only on explicit
	// request; used for deterministic time-based tests.
	ClockManual
)

// String returns the clock kind name.
func (k ClockKind) String() string {
	switch k {
	case ClockSteady:
		return "steady"
	case ClockLowres:
		return "lowres"
	case ClockManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Clock is a pluggable time source feeding timers. Now reports
// nanoseconds since the engine epoch; all clocks of one engine share
// that epoch.
type Clock interface {
	Now() int64
	Kind() ClockKind
}
