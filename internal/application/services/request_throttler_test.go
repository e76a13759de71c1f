package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestThrottler_BoundsConcurrency(t *testing.T) {
	throttler := NewRequestThrottler(2)

	require.NoError(t, throttler.Acquire(context.Background()))
	require.NoError(t, throttler.Acquire(context.Background()))

	stats := throttler.Stats()
	assert.Equal(t, 2, stats.InFlight)
	assert.Equal(t, 2, stats.Capacity)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := throttler.Acquire(ctx)
	assert.Error(t, err) // third acquire blocks until the context deadline

	throttler.Release()
	throttler.Release()
}

func TestRequestThrottler_ReleaseFreesSlot(t *testing.T) {
	throttler := NewRequestThrottler(1)

	require.NoError(t, throttler.Acquire(context.Background()))
	throttler.Release()

	require.NoError(t, throttler.Acquire(context.Background()))
	throttler.Release()
}

func TestRequestThrottler_ConcurrentAcquireRelease(t *testing.T) {
	throttler := NewRequestThrottler(4)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := throttler.Acquire(ctx); err == nil {
				throttler.Release()
			}
		}()
	}
	wg.Wait()

	stats := throttler.Stats()
	assert.Equal(t, 0, stats.InFlight)
	assert.Equal(t, 0, stats.Queued)
}
