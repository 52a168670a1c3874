package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Limit exceeded.
	assert.ErrorIs(t, c.AcquireMemory(20), ErrMemoryLimitExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(1000))
	require.NoError(t, c.WaitMemory(t.Context(), 1000))
	assert.Equal(t, int64(2000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(1500), c.MemoryUsage())
}

func TestController_WaitMemory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	assert.ErrorIs(t, c.WaitMemory(t.Context(), 101), ErrMemoryLimitExceeded)

	require.NoError(t, c.WaitMemory(t.Context(), 80))

	done := make(chan error, 1)
	go func() { done <- c.WaitMemory(context.Background(), 40) }()

	select {
	case <-done:
		t.Fatal("WaitMemory returned before memory was released")
	case <-time.After(20 * time.Millisecond):
	}

	c.ReleaseMemory(80)
	require.NoError(t, <-done)
	assert.Equal(t, int64(40), c.MemoryUsage())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.WaitMemory(ctx, 70), context.Canceled)
}

func TestController_Workers(t *testing.T) {
	c := NewController(Config{MaxWorkers: 2})

	require.NoError(t, c.AcquireWorker(t.Context()))
	require.NoError(t, c.AcquireWorker(t.Context()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireWorker(ctx), context.DeadlineExceeded)

	c.ReleaseWorker()
	require.NoError(t, c.AcquireWorker(t.Context()))
}

func TestController_IO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	// Larger than the burst; must be split, not rejected.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.AcquireIO(ctx, 1<<20+10))

	// The bucket is drained; a full burst cannot arrive before the deadline.
	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	assert.Error(t, c.AcquireIO(short, 1<<20))
}

func TestController_Nil(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireMemory(1))
	require.NoError(t, c.WaitMemory(t.Context(), 1))
	c.ReleaseMemory(1)
	assert.Zero(t, c.MemoryUsage())
	assert.Zero(t, c.MemoryLimit())
	require.NoError(t, c.AcquireWorker(t.Context()))
	c.ReleaseWorker()
	require.NoError(t, c.AcquireIO(t.Context(), 10))
}
