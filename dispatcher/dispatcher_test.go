package dispatcher

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/indigo-web/serverio/config"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	require.IsType(t, new(Spawn), New(config.Dispatcher{Workers: 0}))
	require.IsType(t, new(Pool), New(config.Dispatcher{Workers: 4, Backlog: 4}))
}

func TestPool(t *testing.T) {
	t.Run("runs every task", func(t *testing.T) {
		const tasks = 200
		pool := NewPool(8, tasks)

		var (
			wg      sync.WaitGroup
			counter atomic.Int64
		)

		wg.Add(tasks)
		for range tasks {
			require.NoError(t, pool.Schedule(func() {
				counter.Add(1)
				wg.Done()
			}))
		}

		wg.Wait()
		require.Equal(t, int64(tasks), counter.Load())
	})

	t.Run("concurrency is bounded", func(t *testing.T) {
		const workers = 3
		pool := NewPool(workers, 100)

		var (
			wg            sync.WaitGroup
			current, peak atomic.Int64
		)

		wg.Add(30)
		for range 30 {
			require.NoError(t, pool.Schedule(func() {
				defer wg.Done()
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}

				time.Sleep(time.Millisecond)
				current.Add(-1)
			}))
		}

		wg.Wait()
		require.LessOrEqual(t, peak.Load(), int64(workers))
	})

	t.Run("backpressure", func(t *testing.T) {
		pool := NewPool(1, 1)
		release := make(chan struct{})
		started := make(chan struct{})

		require.NoError(t, pool.Schedule(func() {
			close(started)
			<-release
		}))
		<-started

		queued := make(chan struct{})
		require.NoError(t, pool.Schedule(func() { close(queued) }))
		require.ErrorIs(t, pool.Schedule(func() {}), ErrOverloaded)
		require.Equal(t, Stats{Running: 1, Queued: 1}, pool.Stats())

		close(release)

		select {
		case <-queued:
		case <-time.After(time.Second):
			require.Fail(t, "queued task wasn't run")
		}
	})

	t.Run("backlog is FIFO", func(t *testing.T) {
		pool := NewPool(1, 10)
		release := make(chan struct{})
		require.NoError(t, pool.Schedule(func() { <-release }))

		var (
			mu    sync.Mutex
			order []int
			wg    sync.WaitGroup
		)

		wg.Add(5)
		for i := range 5 {
			require.NoError(t, pool.Schedule(func() {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				wg.Done()
			}))
		}

		close(release)
		wg.Wait()
		require.Equal(t, []int{0, 1, 2, 3, 4}, order)
	})

	t.Run("closed", func(t *testing.T) {
		pool := NewPool(1, 10)
		release := make(chan struct{})
		require.NoError(t, pool.Schedule(func() { <-release }))

		var dropped atomic.Bool
		require.NoError(t, pool.Schedule(func() { dropped.Store(true) }))

		pool.Close()
		require.ErrorIs(t, pool.Schedule(func() {}), ErrClosed)
		require.Zero(t, pool.Stats().Queued)

		close(release)
		time.Sleep(50 * time.Millisecond)
		require.False(t, dropped.Load())
	})

	t.Run("panic doesn't kill the worker", func(t *testing.T) {
		recovered := make(chan any, 1)
		pool := NewPool(1, 10).OnPanic(func(r any) {
			recovered <- r
		})

		done := make(chan struct{})
		require.NoError(t, pool.Schedule(func() { panic("oops") }))
		require.NoError(t, pool.Schedule(func() { close(done) }))

		select {
		case <-done:
		case <-time.After(time.Second):
			require.Fail(t, "task after a panic wasn't run")
		}

		require.Equal(t, "oops", <-recovered)
	})
}

func TestSpawn(t *testing.T) {
	spawn := NewSpawn()
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(50)
	for range 50 {
		// every task blocks, so only unbounded concurrency lets all of them start
		require.NoError(t, spawn.Schedule(func() {
			wg.Done()
			<-release
		}))
	}

	wg.Wait()
	close(release)
}
