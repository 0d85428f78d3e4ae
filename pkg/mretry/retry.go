// Package mretry implements the bounded-attempt, exponential-backoff retry
// engine used by the resolver client. The REST adapter does not use it; it
// runs its own separate retry loop.
package mretry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/open-moniker/moniker-client/pkg/merrors"
)

// Config governs one retry run.
type Config struct {
	MaxAttempts          int
	BaseDelay            time.Duration
	MaxDelay             time.Duration
	ExponentialBase      float64
	RetryableStatusCodes map[int]struct{}
}

// DefaultConfig returns the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		BaseDelay:       200 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		ExponentialBase: 2,
		RetryableStatusCodes: map[int]struct{}{
			429: {}, 502: {}, 503: {}, 504: {},
		},
	}
}

// Classifier distinguishes retryable from terminal errors. StatusCoder is
// implemented by errors that carry a transport status code (e.g. resolution
// errors); errors that don't implement it are classified solely by kind.
type StatusCoder interface {
	StatusCode() int
}

// Work is the unit of work the engine executes.
type Work func(ctx context.Context, attempt int) error

// sleeper is overridable in tests so they don't have to wait on real backoff.
var sleeper = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry invokes work up to cfg.MaxAttempts+1 times, classifying each failure
// as retryable or terminal. Terminal errors are returned immediately.
// Retryable errors are retried after a jittered exponential backoff sleep;
// once attempts are exhausted it returns a *merrors.RetriesExhaustedError
// wrapping the last error.
func Retry(ctx context.Context, work Work, cfg Config) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxAttempts; attempt++ {
		err := work(ctx, attempt)
		if err == nil {
			return nil
		}

		lastErr = err

		if !IsRetryable(err, cfg) {
			return err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := backoffDelay(cfg, attempt)
		if err := sleeper(ctx, delay); err != nil {
			return err
		}
	}

	return &merrors.RetriesExhaustedError{Attempts: cfg.MaxAttempts + 1, Err: lastErr}
}

// backoffDelay computes min(base*expBase^attempt, max) with jitter drawn
// uniformly from [0.75, 1.25].
func backoffDelay(cfg Config, attempt int) time.Duration {
	raw := float64(cfg.BaseDelay) * math.Pow(cfg.ExponentialBase, float64(attempt))
	capped := math.Min(raw, float64(cfg.MaxDelay))
	jitter := 0.75 + rand.Float64()*0.5
	return time.Duration(capped * jitter)
}

// IsRetryable classifies err as retryable: a transport status code in the
// configured retryable set, or a connection/timeout/network-kind error.
func IsRetryable(err error, cfg Config) bool {
	if err == nil {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		if _, ok := cfg.RetryableStatusCodes[sc.StatusCode()]; ok {
			return true
		}
	}

	var to *merrors.TimeoutError
	if errors.As(err, &to) {
		return true
	}

	var cr *merrors.ConnectionRefusedError
	if errors.As(err, &cr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout() || isConnectionKind(netErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return false
}

func isConnectionKind(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
