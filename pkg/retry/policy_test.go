package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestDoSucceedsWithinBudget(t *testing.T) {
	calls := 0
	retries := 0
	got, err := Do(context.Background(), Fixed(3, time.Millisecond), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errFlaky
		}
		return "ok", nil
	}, func(attempt int, err error, wait time.Duration) {
		retries++
		assert.ErrorIs(t, err, errFlaky)
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Exponential(4, time.Millisecond, 4*time.Millisecond), func(ctx context.Context) (int, error) {
		calls++
		return 0, errFlaky
	}, nil)

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 4, calls)
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	p := Fixed(5, time.Millisecond).When(func(err error) bool { return !errors.Is(err, permanent) })

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, permanent
	}, nil)

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestZeroAttemptsStillRunsOnce(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, func(ctx context.Context) (int, error) {
		calls++
		return 1, nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
