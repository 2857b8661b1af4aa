// File: clock/clock.go
// Package clock implements the three engine time sources.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// All clocks of one engine share a single epoch fixed at construction
// and report nanoseconds elapsed since it. Steady reads the monotonic
// clock directly, Lowres reads a cheap cached tick, Manual advances
// only on explicit request.

package clock

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-engine/api"
)

// Steady is the precise monotonic clock.
type Steady struct {
	epoch time.Time
}

// NewSteady creates a steady clock anchored at the given epoch.
func NewSteady(epoch time.Time) *Steady {
	return &Steady{epoch: epoch}
}

// Now returns nanoseconds since the epoch.
func (s *Steady) Now() int64 { return int64(time.Since(s.epoch)) }

// Kind reports api.ClockSteady.
func (s *Steady) Kind() api.ClockKind { return api.ClockSteady }

// Lowres is the coarse periodic clock. Reads are a single atomic load;
// a background ticker refreshes the cached value at the configured
// granularity.
type Lowres struct {
	steady  *Steady
	cached  atomic.Int64
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started bool
}

// NewLowres creates a coarse clock over the given steady source.
// Start must be called before timers rely on it advancing.
func NewLowres(steady *Steady) *Lowres {
	l := &Lowres{
		steady: steady,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	l.cached.Store(steady.Now())
	return l
}

// Start begins refreshing the cached tick at the given interval.
func (l *Lowres) Start(interval time.Duration) {
	l.started = true
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		defer close(l.done)
		for {
			select {
			case <-ticker.C:
				l.cached.Store(l.steady.Now())
			case <-l.stop:
				return
			}
		}
	}()
}

// Stop halts the refresh goroutine and waits for it to exit.
func (l *Lowres) Stop() {
	if !l.started {
		return
	}
	l.once.Do(func() { close(l.stop) })
	<-l.done
}

// Now returns the cached coarse timestamp.
func (l *Lowres) Now() int64 { return l.cached.Load() }

// Kind reports api.ClockLowres.
func (l *Lowres) Kind() api.ClockKind { return api.ClockLowres }

// Manual is the virtual clock. Time advances only through Advance;
// registered wakers are notified so parked reactors re-examine their
// timer heaps.
type Manual struct {
	now    atomic.Int64
	mu     sync.Mutex
	wakers []func()
}

// NewManual creates a virtual clock starting at zero.
func NewManual() *Manual { return &Manual{} }

// Now returns the current virtual timestamp.
func (m *Manual) Now() int64 { return m.now.Load() }

// Kind reports api.ClockManual.
func (m *Manual) Kind() api.ClockKind { return api.ClockManual }

// Advance moves virtual time forward by d and wakes all registered
// wakers. Advancing by zero or a negative duration wakes nobody and
// fires nothing.
func (m *Manual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	m.now.Add(int64(d))
	m.mu.Lock()
	wakers := make([]func(), len(m.wakers))
	copy(wakers, m.wakers)
	m.mu.Unlock()
	for _, w := range wakers {
		w()
	}
}

// RegisterWaker adds a callback invoked after every Advance.
func (m *Manual) RegisterWaker(w func()) {
	m.mu.Lock()
	m.wakers = append(m.wakers, w)
	m.mu.Unlock()
}
