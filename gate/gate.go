// File: gate/gate.go
// Package gate implements the shutdown-draining barrier.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Gate counts in-flight operations on one shard. Closing rejects new
// entries and yields a future that resolves once every outstanding
// token has been released — the mechanism for draining per-connection
// and per-request work before tearing down shared shard state.
//
// A Gate is shard-confined: all operations must run on the shard it
// was created on.

package gate

import (
	"github.com/momentics/hioload-engine/api"
	"github.com/momentics/hioload-engine/reactor"
)

// Gate tracks in-flight operations and rejects entries once closing.
type Gate struct {
	tc      *reactor.Context
	pending int
	closed  bool
	closeP  *reactor.Promise[struct{}]
	closeF  *reactor.Future[struct{}]
}

// Token is a scoped entry into a gate. Leave must run on every exit
// path.
type Token struct {
	g    *Gate
	left bool
}

// New creates an open gate owned by the calling shard.
func New(tc *reactor.Context) *Gate {
	return &Gate{tc: tc}
}

// Enter registers one in-flight operation. Fails immediately with
// api.ErrGateClosed once the gate is closing or closed.
func (g *Gate) Enter() (*Token, error) {
	if g.closed {
		return nil, api.ErrGateClosed
	}
	g.pending++
	return &Token{g: g}, nil
}

// Pending returns the current in-flight count.
func (g *Gate) Pending() int { return g.pending }

// Closed reports whether the gate is closing or closed.
func (g *Gate) Closed() bool { return g.closed }

// Close marks the gate closing and returns a future resolving once the
// in-flight count reaches zero. Idempotent: repeated calls return the
// same future.
func (g *Gate) Close() *reactor.Future[struct{}] {
	if g.closeF != nil {
		return g.closeF
	}
	g.closed = true
	g.closeP, g.closeF = reactor.NewPromise[struct{}](g.tc)
	if g.pending == 0 {
		g.closeP.SetValue(struct{}{})
	}
	return g.closeF
}

// Leave releases the token, decrementing the in-flight count. Leaving
// twice is a defect and panics.
func (t *Token) Leave() {
	if t.left {
		panic("gate: token released twice")
	}
	t.left = true
	g := t.g
	g.pending--
	if g.closed && g.pending == 0 && g.closeP.Pending() {
		g.closeP.SetValue(struct{}{})
	}
}
