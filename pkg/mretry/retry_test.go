package mretry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/open-moniker/moniker-client/pkg/merrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// tests never want to actually sleep.
	sleeper = func(ctx context.Context, d time.Duration) error { return nil }
}

type statusErr struct{ code int }

func (e statusErr) Error() string   { return "status error" }
func (e statusErr) StatusCode() int { return e.code }

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if calls < 3 {
			return statusErr{code: 503}
		}
		return nil
	}, DefaultConfig())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryTerminalErrorStopsImmediately(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("not retryable")
	}, DefaultConfig())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.NotErrorIs(t, err, &merrors.RetriesExhaustedError{})
}

func TestRetryExhaustionWrapsLastError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 2

	calls := 0
	err := Retry(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return statusErr{code: 503}
	}, cfg)

	require.Error(t, err)
	var exhausted *merrors.RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, exhausted.Attempts)
}

func TestIsRetryableClassifiesByStatusCode(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, IsRetryable(statusErr{code: 503}, cfg))
	assert.False(t, IsRetryable(statusErr{code: 400}, cfg))
}

func TestIsRetryableClassifiesTimeout(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, IsRetryable(&merrors.TimeoutError{Operation: "resolve"}, cfg))
}
