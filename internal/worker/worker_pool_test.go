package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsAllTasks(t *testing.T) {
	wp := NewWorkerPool(4, zerolog.Nop())
	wp.Start()
	defer wp.Stop()

	var (
		done atomic.Int32
		wg   sync.WaitGroup
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		err := wp.Submit(context.Background(), func() {
			defer wg.Done()
			done.Add(1)
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.Equal(t, int32(100), done.Load())
}

func TestWorkerPool_SubmitBeforeStartAndAfterStop(t *testing.T) {
	wp := NewWorkerPool(1, zerolog.Nop())
	assert.ErrorIs(t, wp.Submit(context.Background(), func() {}), ErrPoolStopped)

	wp.Start()
	wp.Stop()
	wp.Stop()

	assert.ErrorIs(t, wp.Submit(context.Background(), func() {}), ErrPoolStopped)
}

func TestWorkerPool_RecoversFromPanic(t *testing.T) {
	wp := NewWorkerPool(1, zerolog.Nop())
	wp.Start()
	defer wp.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	require.NoError(t, wp.Submit(context.Background(), func() {
		defer wg.Done()
		panic("boom")
	}))

	ran := false
	require.NoError(t, wp.Submit(context.Background(), func() {
		defer wg.Done()
		ran = true
	}))
	wg.Wait()

	assert.True(t, ran)
	assert.Equal(t, 1, wp.GetStats()["max_workers"])
}
