package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorFIFO(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e := New(ctx, "test")
	defer e.Close(ctx)

	const n = 1000
	var (
		mutex sync.Mutex
		order []int
	)
	for i := range n {
		require.NoError(t, e.Async(ctx, func(ctx context.Context) {
			mutex.Lock()
			defer mutex.Unlock()
			order = append(order, i)
		}))
	}
	require.NoError(t, e.Sync(ctx, func(ctx context.Context) {}))

	mutex.Lock()
	defer mutex.Unlock()
	require.Len(t, order, n)
	for i := range n {
		assert.Equal(t, i, order[i])
	}
}

func TestExecutorAsyncAfterClose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e := New(ctx, "closed")
	require.NoError(t, e.Close(ctx))
	assert.True(t, e.IsClosed())

	err := e.Async(ctx, func(ctx context.Context) {
		t.Error("must not run")
	})
	var errClosed ErrClosed
	require.ErrorAs(t, err, &errClosed)
	assert.Equal(t, "closed", errClosed.Name)

	select {
	case <-e.Done():
	default:
		t.Fatal("the loop is expected to be finished")
	}
}

func TestExecutorCloseDrainsQueue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e := New(ctx, "drain")

	release := make(chan struct{})
	require.NoError(t, e.Async(ctx, func(ctx context.Context) { <-release }))

	ran := make(chan struct{})
	require.NoError(t, e.Async(ctx, func(ctx context.Context) { close(ran) }))

	closeErr := make(chan error, 1)
	go func() { closeErr <- e.Close(ctx) }()

	close(release)
	require.NoError(t, <-closeErr)

	select {
	case <-ran:
	default:
		t.Fatal("a task queued before Close was not executed")
	}
}

func TestExecutorSurvivesPanic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e := New(ctx, "panic")
	defer e.Close(ctx)

	require.NoError(t, e.Async(ctx, func(ctx context.Context) {
		panic("oops")
	}))

	var ran bool
	require.NoError(t, e.Sync(ctx, func(ctx context.Context) { ran = true }))
	assert.True(t, ran)
}

func TestExecutorSyncFromInside(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e := New(ctx, "nested")
	defer e.Close(ctx)

	var inner bool
	require.NoError(t, e.Sync(ctx, func(ctx context.Context) {
		assert.True(t, e.IsCurrent(ctx))
		assert.NoError(t, e.Sync(ctx, func(ctx context.Context) {
			inner = true
		}))
	}))
	assert.True(t, inner)
	assert.False(t, e.IsCurrent(ctx))
}

func TestExecutorLoad(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e := New(ctx, "load")
	defer e.Close(ctx)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, e.Async(ctx, func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, e.Async(ctx, func(ctx context.Context) {}))
	assert.Equal(t, int64(2), e.Load())

	close(release)
	require.NoError(t, e.Sync(ctx, func(ctx context.Context) {}))
	assert.Equal(t, int64(0), e.Load())
}
