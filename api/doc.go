// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared contracts of the hioload-engine shard-per-core runtime.
//
// Provides the identifiers, clock contract, error taxonomy and stats
// snapshot types used across all engine packages. Implementation lives
// in reactor/, engine/, gate/ and distributed/.
package api
