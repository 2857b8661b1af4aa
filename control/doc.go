// Package control
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime introspection layer for hioload-engine: per-shard counters
// exported to Prometheus and a plain snapshot API for debug probes.
package control
