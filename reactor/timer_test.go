// File: reactor/timer_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Timer semantics under the manual clock: Advance plus one Yield makes
// every due callback run before the task resumes, so each assertion
// below observes a fully deterministic dispatch.

package reactor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-engine/api"
	"github.com/momentics/hioload-engine/fake"
	"github.com/momentics/hioload-engine/reactor"
)

const ms = int64(time.Millisecond)

func TestManualAdvanceFiresDueTimersOnly(t *testing.T) {
	e := fake.Start(1)
	defer e.Stop()

	mc := e.ManualClock()
	err := e.Run(func(tc *reactor.Context) error {
		var fired []int64
		for _, at := range []int64{100 * ms, 200 * ms, 300 * ms} {
			at := at
			tm := reactor.NewTimer(tc, api.ClockManual, func(*reactor.Context) {
				fired = append(fired, at)
			})
			tm.ArmAt(at)
		}

		mc.Advance(0)
		reactor.Yield(tc)
		assert.Empty(t, fired)

		mc.Advance(150 * time.Millisecond)
		reactor.Yield(tc)
		assert.Equal(t, []int64{100 * ms}, fired)

		mc.Advance(100 * time.Millisecond)
		reactor.Yield(tc)
		assert.Equal(t, []int64{100 * ms, 200 * ms}, fired)

		mc.Advance(time.Second)
		reactor.Yield(tc)
		assert.Equal(t, []int64{100 * ms, 200 * ms, 300 * ms}, fired)
		return nil
	})
	require.NoError(t, err)
}

func TestSimultaneousDeadlinesFireInArmOrder(t *testing.T) {
	e := fake.Start(1)
	defer e.Stop()

	mc := e.ManualClock()
	err := e.Run(func(tc *reactor.Context) error {
		var fired []string
		for _, label := range []string{"first", "second", "third"} {
			label := label
			tm := reactor.NewTimer(tc, api.ClockManual, func(*reactor.Context) {
				fired = append(fired, label)
			})
			tm.ArmAt(100 * ms)
		}
		mc.Advance(100 * time.Millisecond)
		reactor.Yield(tc)
		assert.Equal(t, []string{"first", "second", "third"}, fired)
		return nil
	})
	require.NoError(t, err)
}

func TestCancelReportsArmedState(t *testing.T) {
	e := fake.Start(1)
	defer e.Stop()

	mc := e.ManualClock()
	err := e.Run(func(tc *reactor.Context) error {
		fired := false
		tm := reactor.NewTimer(tc, api.ClockManual, func(*reactor.Context) {
			fired = true
		})
		assert.False(t, tm.Cancel(), "idle timer")

		tm.Arm(50 * time.Millisecond)
		assert.True(t, tm.Cancel())
		assert.False(t, tm.Cancel(), "already cancelled")

		mc.Advance(time.Second)
		reactor.Yield(tc)
		assert.False(t, fired)
		return nil
	})
	require.NoError(t, err)
}

func TestPeriodicDeadlinesDoNotDrift(t *testing.T) {
	e := fake.Start(1)
	defer e.Stop()

	mc := e.ManualClock()
	err := e.Run(func(tc *reactor.Context) error {
		var fired []int64
		tm := reactor.NewTimer(tc, api.ClockManual, func(*reactor.Context) {
			fired = append(fired, mc.Now())
		})
		tm.ArmAtPeriodic(100*ms, 100*time.Millisecond)

		for i := 0; i < 3; i++ {
			mc.Advance(100 * time.Millisecond)
			reactor.Yield(tc)
		}
		assert.Equal(t, []int64{100 * ms, 200 * ms, 300 * ms}, fired)
		assert.True(t, tm.Armed())

		deadline, ok := tm.Timeout()
		require.True(t, ok)
		assert.Equal(t, 400*ms, deadline)

		tm.Cancel()
		return nil
	})
	require.NoError(t, err)
}

func TestPeriodicOverrunSkipsWholePeriods(t *testing.T) {
	e := fake.Start(1)
	defer e.Stop()

	mc := e.ManualClock()
	err := e.Run(func(tc *reactor.Context) error {
		count := 0
		tm := reactor.NewTimer(tc, api.ClockManual, func(*reactor.Context) {
			count++
		})
		tm.ArmAtPeriodic(100*ms, 100*time.Millisecond)

		// One big jump past several deadlines yields a single firing;
		// the rearm lands on the next grid point in the future.
		mc.Advance(350 * time.Millisecond)
		reactor.Yield(tc)
		assert.Equal(t, 1, count)
		deadline, ok := tm.Timeout()
		require.True(t, ok)
		assert.Equal(t, 400*ms, deadline)

		tm.Cancel()
		return nil
	})
	require.NoError(t, err)
}

func TestCancelInsideCallbackSuppressesRearm(t *testing.T) {
	e := fake.Start(1)
	defer e.Stop()

	mc := e.ManualClock()
	err := e.Run(func(tc *reactor.Context) error {
		count := 0
		var cancelRet bool
		var tm *reactor.Timer
		tm = reactor.NewTimer(tc, api.ClockManual, func(*reactor.Context) {
			count++
			cancelRet = tm.Cancel()
		})
		tm.ArmPeriodic(100 * time.Millisecond)

		mc.Advance(time.Second)
		reactor.Yield(tc)
		assert.Equal(t, 1, count)
		assert.False(t, cancelRet, "not armed while firing")
		assert.False(t, tm.Armed())

		mc.Advance(time.Second)
		reactor.Yield(tc)
		assert.Equal(t, 1, count)
		return nil
	})
	require.NoError(t, err)
}

func TestRearmReplacesDeadline(t *testing.T) {
	e := fake.Start(1)
	defer e.Stop()

	mc := e.ManualClock()
	err := e.Run(func(tc *reactor.Context) error {
		count := 0
		tm := reactor.NewTimer(tc, api.ClockManual, func(*reactor.Context) {
			count++
		})
		tm.ArmAt(100 * ms)
		tm.RearmAt(200 * ms)

		mc.Advance(150 * time.Millisecond)
		reactor.Yield(tc)
		assert.Equal(t, 0, count, "old deadline must not fire")

		mc.Advance(50 * time.Millisecond)
		reactor.Yield(tc)
		assert.Equal(t, 1, count)
		return nil
	})
	require.NoError(t, err)
}

func TestArmingArmedTimerPanics(t *testing.T) {
	e := fake.Start(1)
	defer e.Stop()

	err := e.Run(func(tc *reactor.Context) error {
		tm := reactor.NewTimer(tc, api.ClockManual, func(*reactor.Context) {})
		tm.Arm(time.Second)
		require.Panics(t, func() { tm.Arm(time.Second) })
		tm.Cancel()
		return nil
	})
	require.NoError(t, err)
}

func TestTimeoutReportsAbsoluteDeadline(t *testing.T) {
	e := fake.Start(1)
	defer e.Stop()

	err := e.Run(func(tc *reactor.Context) error {
		tm := reactor.NewTimer(tc, api.ClockManual, func(*reactor.Context) {})
		_, ok := tm.Timeout()
		assert.False(t, ok)

		tm.ArmAt(500 * ms)
		deadline, ok := tm.Timeout()
		require.True(t, ok)
		assert.Equal(t, 500*ms, deadline)

		tm.Cancel()
		_, ok = tm.Timeout()
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestSteadyClockTimerFires(t *testing.T) {
	e := fake.Start(1)
	defer e.Stop()

	err := e.Run(func(tc *reactor.Context) error {
		return reactor.Sleep(tc, api.ClockSteady, time.Millisecond)
	})
	require.NoError(t, err)
}
