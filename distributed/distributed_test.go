// File: distributed/distributed_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package distributed_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-engine/api"
	"github.com/momentics/hioload-engine/distributed"
	"github.com/momentics/hioload-engine/fake"
	"github.com/momentics/hioload-engine/reactor"
)

func TestStartBuildsOneInstancePerShard(t *testing.T) {
	e := fake.Start(3)
	defer e.Stop()

	built, stopped := fake.NewCounters()
	err := e.Run(func(tc *reactor.Context) error {
		g, err := distributed.Start(tc, e, func(sc *reactor.Context) (*fake.CounterService, error) {
			built.Add(1)
			return &fake.CounterService{Shard: int(sc.Shard()), Built: built, Stopped: stopped}, nil
		}).Await(tc)
		require.NoError(t, err)
		require.Equal(t, int32(3), built.Load())

		// Every shard sees its own instance, no cross-core hop.
		futs := distributed.MapAll(tc, g, func(sc *reactor.Context, svc *fake.CounterService) (int, error) {
			return svc.Shard, nil
		})
		for i, f := range futs {
			shard, err := f.Await(tc)
			require.NoError(t, err)
			assert.Equal(t, i, shard)
		}

		_, err = g.Stop(tc).Await(tc)
		require.NoError(t, err)
		assert.Equal(t, int32(3), stopped.Load())
		return nil
	})
	require.NoError(t, err)
}

func TestStartRollsBackOnFactoryFailure(t *testing.T) {
	e := fake.Start(3)
	defer e.Stop()

	built, stopped := fake.NewCounters()
	boom := errors.New("no resources on this core")
	err := e.Run(func(tc *reactor.Context) error {
		_, err := distributed.Start(tc, e, func(sc *reactor.Context) (*fake.CounterService, error) {
			if sc.Shard() == 1 {
				return nil, boom
			}
			built.Add(1)
			return &fake.CounterService{Shard: int(sc.Shard()), Built: built, Stopped: stopped}, nil
		}).Await(tc)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "shard 1")

		// All-or-nothing: the survivors were torn down again.
		assert.Equal(t, built.Load(), stopped.Load())
		return nil
	})
	require.NoError(t, err)
}

func TestStartSingleSharesOneInstance(t *testing.T) {
	e := fake.Start(2)
	defer e.Stop()

	built, stopped := fake.NewCounters()
	err := e.Run(func(tc *reactor.Context) error {
		g, err := distributed.StartSingle(tc, e, func(sc *reactor.Context) (*fake.CounterService, error) {
			built.Add(1)
			return &fake.CounterService{Shard: int(sc.Shard()), Built: built, Stopped: stopped}, nil
		}).Await(tc)
		require.NoError(t, err)
		require.Equal(t, int32(1), built.Load())

		local, err := g.Local(tc)
		require.NoError(t, err)
		remote, err := distributed.Submit(tc, g, 1, func(sc *reactor.Context, svc *fake.CounterService) (*fake.CounterService, error) {
			return svc, nil
		}).Await(tc)
		require.NoError(t, err)
		assert.Same(t, local, remote)

		_, err = g.Stop(tc).Await(tc)
		require.NoError(t, err)
		assert.Equal(t, int32(1), stopped.Load(), "single instance stops once")
		return nil
	})
	require.NoError(t, err)
}

func TestOperationsAfterStopFail(t *testing.T) {
	e := fake.Start(2)
	defer e.Stop()

	built, stopped := fake.NewCounters()
	err := e.Run(func(tc *reactor.Context) error {
		g, err := distributed.Start(tc, e, func(sc *reactor.Context) (*fake.CounterService, error) {
			built.Add(1)
			return &fake.CounterService{Shard: int(sc.Shard()), Built: built, Stopped: stopped}, nil
		}).Await(tc)
		require.NoError(t, err)

		_, err = g.Stop(tc).Await(tc)
		require.NoError(t, err)

		_, err = g.Local(tc)
		assert.ErrorIs(t, err, api.ErrNotRunning)

		_, err = g.Stop(tc).Await(tc)
		assert.ErrorIs(t, err, api.ErrNotRunning)

		_, err = distributed.Submit(tc, g, 1, func(*reactor.Context, *fake.CounterService) (int, error) {
			return 0, nil
		}).Await(tc)
		assert.ErrorIs(t, err, api.ErrNotRunning)
		return nil
	})
	require.NoError(t, err)
}

func TestMapOthersSkipsCallingShard(t *testing.T) {
	e := fake.Start(3)
	defer e.Stop()

	built, stopped := fake.NewCounters()
	err := e.Run(func(tc *reactor.Context) error {
		g, err := distributed.Start(tc, e, func(sc *reactor.Context) (*fake.CounterService, error) {
			built.Add(1)
			return &fake.CounterService{Shard: int(sc.Shard()), Built: built, Stopped: stopped}, nil
		}).Await(tc)
		require.NoError(t, err)

		futs := distributed.MapOthers(tc, g, func(sc *reactor.Context, svc *fake.CounterService) (int, error) {
			return svc.Shard, nil
		})
		require.Len(t, futs, 2)
		seen := map[int]bool{}
		for _, f := range futs {
			shard, err := f.Await(tc)
			require.NoError(t, err)
			seen[shard] = true
		}
		assert.False(t, seen[int(tc.Shard())])

		_, err = g.Stop(tc).Await(tc)
		return err
	})
	require.NoError(t, err)
}

func TestRunDetachedUsesLocalInstance(t *testing.T) {
	e := fake.Start(1)
	defer e.Stop()

	built, stopped := fake.NewCounters()
	err := e.Run(func(tc *reactor.Context) error {
		g, err := distributed.Start(tc, e, func(sc *reactor.Context) (*fake.CounterService, error) {
			built.Add(1)
			return &fake.CounterService{Shard: int(sc.Shard()), Built: built, Stopped: stopped}, nil
		}).Await(tc)
		require.NoError(t, err)

		ran := false
		require.NoError(t, g.RunDetached(tc, func(c *reactor.Context, svc *fake.CounterService) error {
			ran = svc.Shard == int(c.Shard())
			return nil
		}))
		reactor.Yield(tc)
		assert.True(t, ran)

		_, err = g.Stop(tc).Await(tc)
		return err
	})
	require.NoError(t, err)
}
