package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	var count atomic.Int32
	task := func(_ context.Context) error {
		count.Add(1)
		return nil
	}

	err := Run(context.Background(), []Task{
		{Name: "task1", Func: task},
		{Name: "task2", Func: task},
		{Name: "task3", Func: task},
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), count.Load())
}

func TestRun_EmptyTasks(t *testing.T) {
	assert.NoError(t, Run(context.Background(), nil))
	assert.NoError(t, Run(context.Background(), []Task{}))
}

func TestRun_CollectsEveryError(t *testing.T) {
	err1 := errors.New("error 1")
	err2 := errors.New("error 2")

	err := Run(context.Background(), []Task{
		{Name: "first", Func: func(_ context.Context) error { return err1 }},
		{Name: "ok", Func: func(_ context.Context) error { return nil }},
		{Name: "second", Func: func(_ context.Context) error { return err2 }},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, err1)
	assert.ErrorIs(t, err, err2)
	assert.Contains(t, err.Error(), "first: error 1")
	assert.Contains(t, err.Error(), "second: error 2")
	assert.NotContains(t, err.Error(), "ok:")
}

func TestRun_WaitsForSlowTasks(t *testing.T) {
	var completed atomic.Int32

	err := Run(context.Background(), []Task{
		{Name: "fast-fail", Func: func(_ context.Context) error { return errors.New("fast fail") }},
		{Name: "slow", Func: func(_ context.Context) error {
			time.Sleep(20 * time.Millisecond)
			completed.Add(1)
			return nil
		}},
	})

	require.Error(t, err)
	assert.Equal(t, int32(1), completed.Load())
}

func TestRun_Concurrent(t *testing.T) {
	const n = 5
	var arrived atomic.Int32
	release := make(chan struct{})

	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{Name: "task", Func: func(ctx context.Context) error {
			if arrived.Add(1) == n {
				close(release)
			}
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, Run(ctx, tasks))
}

func TestRun_PassesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, []Task{{Name: "task", Func: func(ctx context.Context) error { return ctx.Err() }}})

	assert.ErrorIs(t, err, context.Canceled)
}
