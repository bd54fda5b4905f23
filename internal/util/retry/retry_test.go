package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstTime(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("throttled")
		}
		return nil
	}, WithInitialDelay(time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_GivesUp(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return errors.New("persistent")
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
	assert.Contains(t, err.Error(), "persistent")
}

func TestDo_FatalStopsImmediately(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("not found")
	attempts := 0

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return Fatal(sentinel)
	}, WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Same(t, sentinel, err)
	assert.False(t, IsFatal(err))
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(ctx, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("boom")
	}, WithInitialDelay(time.Second))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestUntil_PollsUntilDone(t *testing.T) {
	t.Parallel()
	calls := 0

	err := Until(context.Background(), time.Millisecond, func(context.Context) (bool, error) {
		calls++
		return calls == 4, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestUntil_ReturnsConditionError(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("job failed")

	err := Until(context.Background(), time.Millisecond, func(context.Context) (bool, error) {
		return false, Fatal(sentinel)
	})

	assert.Same(t, sentinel, err)
}

func TestUntil_RespectsDeadline(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Until(ctx, 5*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPolicy_NextIsCapped(t *testing.T) {
	t.Parallel()
	p := newPolicy([]Option{WithMultiplier(3), WithMaxDelay(100 * time.Millisecond)})

	assert.Equal(t, 90*time.Millisecond, p.next(30*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, p.next(90*time.Millisecond))
}

func TestFatal_Nil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Fatal(nil))
	assert.True(t, IsFatal(Fatal(errors.New("x"))))
}
