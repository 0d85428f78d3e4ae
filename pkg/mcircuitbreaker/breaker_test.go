package mcircuitbreaker

import (
	"testing"
	"time"

	"github.com/open-moniker/moniker-client/pkg/merrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterFailureThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FailureThreshold = 3
	cfg.RecoveryTimeout = time.Minute
	b := New(cfg)

	for i := 0; i < 3; i++ {
		done, err := b.BeforeRequest()
		require.NoError(t, err)
		done(false)
	}

	_, err := b.BeforeRequest()
	require.Error(t, err)

	var refused *merrors.ConnectionRefusedError
	require.ErrorAs(t, err, &refused)
	assert.NotEmpty(t, refused.RemainingCooldown)
}

func TestBreakerNotFoundDoesNotCountAsFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FailureThreshold = 2
	b := New(cfg)

	for i := 0; i < 10; i++ {
		done, err := b.BeforeRequest()
		require.NoError(t, err)
		b.OnNotFound(done)
	}

	// a streak of not-found outcomes must never trip the breaker.
	_, err := b.BeforeRequest()
	require.NoError(t, err)
}

func TestBreakerRecoversAfterSuccesses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FailureThreshold = 1
	cfg.SuccessThreshold = 2
	cfg.RecoveryTimeout = 10 * time.Millisecond
	b := New(cfg)

	done, err := b.BeforeRequest()
	require.NoError(t, err)
	done(false) // trips open

	time.Sleep(20 * time.Millisecond)

	// first half-open probe succeeds
	done, err = b.BeforeRequest()
	require.NoError(t, err)
	done(true)

	// second success should close it
	done, err = b.BeforeRequest()
	require.NoError(t, err)
	done(true)

	_, err = b.BeforeRequest()
	require.NoError(t, err)
}
