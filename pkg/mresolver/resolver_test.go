package mresolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-moniker/moniker-client/pkg/mcircuitbreaker"
	"github.com/open-moniker/moniker-client/pkg/mconfig"
	"github.com/open-moniker/moniker-client/pkg/merrors"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc, breaker *mcircuitbreaker.Breaker) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := mconfig.Defaults()
	cfg.ServiceURL = srv.URL
	cfg.RetryMaxAttempts = 0

	return New(cfg, breaker, nil, nil)
}

func TestResolveDecodesBindingOnSuccess(t *testing.T) {
	c := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resolve/a/b", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"moniker":"moniker://a/b","path":"a/b","source_type":"http"}`))
	}, nil)

	got, err := c.Resolve(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "a/b", got.Path)
}

func TestResolveNotFoundDoesNotIncrementBreakerFailures(t *testing.T) {
	breaker := mcircuitbreaker.New(mcircuitbreaker.Config{FailureThreshold: 1, SuccessThreshold: 1, RecoveryTimeout: time.Minute})

	c := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, breaker)

	_, err := c.Resolve(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, merrors.IsNotFound(err))

	// A second 404 must not trip the breaker (threshold is 1, but 404s are
	// excluded from accounting).
	_, err = c.Resolve(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, merrors.IsNotFound(err))
}

func TestBreakerOpensAfterFailureStreakAndFailsFast(t *testing.T) {
	breaker := mcircuitbreaker.New(mcircuitbreaker.Config{FailureThreshold: 2, SuccessThreshold: 1, RecoveryTimeout: time.Minute})

	var calls int32
	c := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, breaker)

	ctx := context.Background()

	_, err := c.Resolve(ctx, "a")
	require.Error(t, err)
	_, err = c.Resolve(ctx, "a")
	require.Error(t, err)

	before := atomic.LoadInt32(&calls)

	_, err = c.Resolve(ctx, "a")
	require.Error(t, err)

	var cr *merrors.ConnectionRefusedError
	assert.ErrorAs(t, err, &cr)
	assert.EqualValues(t, before, atomic.LoadInt32(&calls), "fail-fast must not issue an HTTP request")
}

func TestBatchResolveReturnsMapKeyedByPath(t *testing.T) {
	c := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resolve/batch", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"moniker":"moniker://a/b","path":"a/b"},{"moniker":"moniker://c/d","path":"c/d"}]}`))
	}, nil)

	got, err := c.BatchResolve(context.Background(), []string{"moniker://a/b", "moniker://c/d"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "a/b")
	assert.Contains(t, got, "c/d")
}

func TestFetchServerSideAccessDenied(t *testing.T) {
	c := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"no access"}`))
	}, nil)

	_, err := c.FetchServerSide(context.Background(), "a/b", 0, nil)
	require.Error(t, err)

	var ad *merrors.AccessDeniedError
	require.ErrorAs(t, err, &ad)
	assert.Equal(t, "no access", ad.Message)
}

func TestEscapePathPreservesSeparators(t *testing.T) {
	assert.Equal(t, "a/b%20c", escapePath("a/b c"))
}
