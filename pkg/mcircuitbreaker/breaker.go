// Package mcircuitbreaker guards calls to the resolution service with a
// shared Closed/Open/HalfOpen state machine, built atop sony/gobreaker.
package mcircuitbreaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/open-moniker/moniker-client/pkg/merrors"
	"github.com/sony/gobreaker"
)

// Config governs breaker thresholds.
type Config struct {
	FailureThreshold uint32
	SuccessThreshold uint32
	RecoveryTimeout  time.Duration
}

// DefaultConfig returns the documented defaults: 5 consecutive failures trip
// the breaker, 2 consecutive successes in HalfOpen close it, and it waits
// 30s before probing again.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RecoveryTimeout:  30 * time.Second,
	}
}

// Breaker wraps a gobreaker.TwoStepCircuitBreaker to expose the explicit
// before/after protocol the resolver client needs: a request token is taken
// up front (fail-fast if Open) and the outcome is reported after the retry-
// wrapped call completes, so the breaker and the retry engine can compose
// without the breaker dictating the call shape.
type Breaker struct {
	cb       *gobreaker.TwoStepCircuitBreaker
	cfg      Config
	mu       sync.Mutex
	openedAt time.Time
}

// New builds a Breaker with cfg.
func New(cfg Config) *Breaker {
	b := &Breaker{cfg: cfg}

	settings := gobreaker.Settings{
		Name:        "resolver",
		MaxRequests: cfg.SuccessThreshold,
		Interval:    0, // counts reset only on state transition, never periodically
		Timeout:     cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			b.mu.Lock()
			if to == gobreaker.StateOpen {
				b.openedAt = time.Now()
			}
			b.mu.Unlock()
		},
	}

	b.cb = gobreaker.NewTwoStepCircuitBreaker(settings)

	return b
}

// Done reports the outcome of a request that BeforeRequest allowed.
type Done func(success bool)

// BeforeRequest takes a request token. It fails fast with a
// *merrors.ConnectionRefusedError carrying the remaining cool-down if the
// breaker is Open and the recovery timeout has not yet elapsed.
func (b *Breaker) BeforeRequest() (Done, error) {
	done, err := b.cb.Allow()
	if err != nil {
		return nil, &merrors.ConnectionRefusedError{
			Message:           "circuit breaker open for resolver",
			RemainingCooldown: b.remainingCooldown().String(),
		}
	}

	return Done(done), nil
}

// OnNotFound reports an application-level not-found outcome. Per contract,
// 404s MUST NOT count as breaker failures; they are reported as successful
// accounting-wise so the failure streak is unaffected.
func (b *Breaker) OnNotFound(done Done) {
	if done != nil {
		done(true)
	}
}

func (b *Breaker) remainingCooldown() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := time.Since(b.openedAt)
	remaining := b.cfg.RecoveryTimeout - elapsed
	if remaining < 0 {
		remaining = 0
	}

	return remaining
}

// State reports the breaker's current state name, for diagnostics.
func (b *Breaker) State() string {
	return fmt.Sprintf("%v", b.cb.State())
}
