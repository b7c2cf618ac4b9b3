package writequeue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ExecuteRunsInOrderPerUser(t *testing.T) {
	m := New(nil, nil)
	defer m.Shutdown(context.Background())

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	release := make(chan struct{})
	// 第一个写入阻塞 worker，保证后续写入按提交顺序排队
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.Execute(context.Background(), 1, func() error {
			<-release
			mu.Lock()
			order = append(order, 0)
			mu.Unlock()
			return nil
		})
	}()
	require.Eventually(t, func() bool { return m.QueueCount() == 1 }, time.Second, time.Millisecond)

	for i := 1; i <= 5; i++ {
		i := i
		require.Eventually(t, func() bool { return m.QueuedCount(1) == i-1 }, time.Second, time.Millisecond)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Execute(context.Background(), 1, func() error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
	}
	require.Eventually(t, func() bool { return m.QueuedCount(1) == 5 }, time.Second, time.Millisecond)

	close(release)
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, order)
}

func TestManager_ExecuteReturnsFnError(t *testing.T) {
	m := New(nil, nil)
	defer m.Shutdown(context.Background())

	boom := assert.AnError
	err := m.Execute(context.Background(), 7, func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestManager_QueueFull(t *testing.T) {
	m := New(&Config{QueueCapacity: 1}, nil)
	defer m.Shutdown(context.Background())

	block := make(chan struct{})
	defer close(block)

	go m.Execute(context.Background(), 1, func() error { <-block; return nil })
	require.Eventually(t, func() bool { return m.QueuedCount(1) == 0 && m.QueueCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	go m.Execute(context.Background(), 1, func() error { return nil })
	require.Eventually(t, func() bool { return m.QueuedCount(1) == 1 }, time.Second, time.Millisecond)

	err := m.Execute(context.Background(), 1, func() error { return nil })
	assert.ErrorIs(t, err, ErrWriteQueueFull)
}

func TestManager_TimeoutStillApplies(t *testing.T) {
	m := New(&Config{WriteTimeout: 20 * time.Millisecond}, nil)

	var applied atomic.Bool
	err := m.Execute(context.Background(), 1, func() error {
		time.Sleep(60 * time.Millisecond)
		applied.Store(true)
		return nil
	})
	assert.ErrorIs(t, err, ErrWriteTimeout)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.True(t, applied.Load())
}

func TestManager_CancelledContextSkipsWrite(t *testing.T) {
	m := New(nil, nil)
	defer m.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	err := m.Execute(ctx, 1, func() error { ran.Store(true); return nil })
	assert.ErrorIs(t, err, context.Canceled)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestManager_IdleWorkerExits(t *testing.T) {
	m := New(&Config{IdleTimeout: 20 * time.Millisecond}, nil)
	defer m.Shutdown(context.Background())

	require.NoError(t, m.Execute(context.Background(), 3, func() error { return nil }))
	assert.Eventually(t, func() bool { return m.QueueCount() == 0 }, time.Second, 5*time.Millisecond)

	// 退出后再次写入会重新创建 worker
	require.NoError(t, m.Execute(context.Background(), 3, func() error { return nil }))
}

func TestManager_ShutdownRejectsNewWrites(t *testing.T) {
	m := New(nil, nil)
	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))

	err := m.Execute(context.Background(), 1, func() error { return nil })
	assert.ErrorIs(t, err, ErrWriteQueueClosed)
	assert.True(t, m.GetMetrics().IsClosed)
}

func TestManager_PanicIsRecovered(t *testing.T) {
	m := New(nil, nil)
	defer m.Shutdown(context.Background())

	err := m.Execute(context.Background(), 1, func() error { panic("boom") })
	assert.Error(t, err)

	assert.NoError(t, m.Execute(context.Background(), 1, func() error { return nil }))
}
