// File: engine/options.go
// Package engine defines functional options for the Engine runtime.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-engine/config"
)

// Option customizes engine initialization.
type Option func(*Engine)

// WithConfig replaces the whole configuration.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithShards sets the number of reactors (0 = number of CPUs).
func WithShards(n int) Option {
	return func(e *Engine) {
		e.cfg.Shards = n
	}
}

// WithLogger attaches a structured logger. Default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithPinCPUs pins each shard's OS thread to the matching logical CPU.
func WithPinCPUs(pin bool) Option {
	return func(e *Engine) {
		e.cfg.PinCPUs = pin
	}
}

// WithLowresTick overrides the coarse clock granularity.
func WithLowresTick(d time.Duration) Option {
	return func(e *Engine) {
		e.cfg.LowresTick = d
	}
}

// WithMailboxCapacity bounds each shard's cross-shard inbox.
func WithMailboxCapacity(n int) Option {
	return func(e *Engine) {
		e.cfg.MailboxCapacity = n
	}
}

// WithDefaultShares sets the weight of the default scheduling group.
func WithDefaultShares(shares uint32) Option {
	return func(e *Engine) {
		e.cfg.DefaultShares = shares
	}
}
