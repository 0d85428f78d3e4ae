package moniker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-moniker/moniker-client/pkg/mconfig"
	"github.com/open-moniker/moniker-client/pkg/merrors"
	"github.com/open-moniker/moniker-client/pkg/mmodel"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cacheTTL time.Duration) (*Client, *int32) {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := mconfig.Defaults()
	cfg.ServiceURL = srv.URL
	cfg.CacheTTL = cacheTTL
	cfg.RetryMaxAttempts = 0

	return NewClient(cfg), &calls
}

func jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestResolveCacheHitIssuesZeroFollowupRequests(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, mmodel.ResolvedSource{Moniker: "moniker://a/b", Path: "a/b"})
	}, time.Minute)

	ctx := context.Background()
	m := New("a/b")

	_, err := c.Resolve(ctx, m)
	require.NoError(t, err)

	_, err = c.Resolve(ctx, m)
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestResolveWithZeroTTLIssuesOneRequestEachTime(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, mmodel.ResolvedSource{Moniker: "moniker://a/b", Path: "a/b"})
	}, 0)

	ctx := context.Background()
	m := New("a/b")

	_, err := c.Resolve(ctx, m)
	require.NoError(t, err)

	_, err = c.Resolve(ctx, m)
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestResolveNotFoundDoesNotTripBreaker(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, time.Minute)

	ctx := context.Background()

	// one more 404 than the default failure threshold of 5: every call must
	// still reach the server and surface NotFound rather than fail fast.
	for i := 0; i < 6; i++ {
		_, err := c.Resolve(ctx, New("missing"))
		require.Error(t, err)
		assert.True(t, merrors.IsNotFound(err))
	}
	assert.EqualValues(t, 6, atomic.LoadInt32(calls))
}

func TestDeprecationWarningFiresOnceAndInvokesCallback(t *testing.T) {
	var invoked int32
	var gotPath, gotMessage, gotSuccessor string

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, mmodel.ResolvedSource{
			Moniker:            "moniker://a/b",
			Path:               "a/b",
			Status:             mmodel.StatusDeprecated,
			DeprecationMessage: "use new.path",
			Successor:          "new/path",
		})
	}, time.Minute)

	c.cfg.DeprecationEnabled = true
	c.cfg.DeprecationCallback = func(path, message, successor string) {
		atomic.AddInt32(&invoked, 1)
		gotPath, gotMessage, gotSuccessor = path, message, successor
	}

	_, err := c.Resolve(context.Background(), New("a/b"))
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&invoked))
	assert.Equal(t, "a/b", gotPath)
	assert.Equal(t, "use new.path", gotMessage)
	assert.Equal(t, "new/path", gotSuccessor)
}

func TestDeprecationWarningSilentUnlessEnabled(t *testing.T) {
	var invoked int32

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, mmodel.ResolvedSource{
			Moniker:            "moniker://a/b",
			Path:               "a/b",
			Status:             mmodel.StatusDeprecated,
			DeprecationMessage: "use new.path",
			Successor:          "new/path",
		})
	}, time.Minute)

	// deprecation awareness defaults off; a deprecated binding resolves
	// without firing the callback until the operator opts in.
	c.cfg.DeprecationCallback = func(path, message, successor string) {
		atomic.AddInt32(&invoked, 1)
	}

	_, err := c.Resolve(context.Background(), New("a/b"))
	require.NoError(t, err)
	assert.EqualValues(t, 0, atomic.LoadInt32(&invoked))
}

func TestReadThroughRESTAdapterReportsTelemetry(t *testing.T) {
	dataSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, []any{
			map[string]any{"id": 1},
			map[string]any{"id": 2},
		})
	}))
	t.Cleanup(dataSrv.Close)

	var telemetryPosts int32
	var mu sync.Mutex
	var record map[string]any

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/telemetry/access":
			var rec map[string]any
			_ = json.NewDecoder(r.Body).Decode(&rec)
			mu.Lock()
			record = rec
			mu.Unlock()
			atomic.AddInt32(&telemetryPosts, 1)
			w.WriteHeader(http.StatusOK)
		default:
			jsonResponse(w, http.StatusOK, map[string]any{
				"moniker":     "moniker://x/y",
				"path":        "x/y",
				"source_type": "rest",
				"connection":  map[string]any{"base_url": dataSrv.URL},
				"query":       "/v1/data",
			})
		}
	}, time.Minute)

	got, err := c.Read(context.Background(), New("x/y"), nil)
	require.NoError(t, err)

	rows, ok := got.([]any)
	require.True(t, ok)
	assert.Len(t, rows, 2)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&telemetryPosts) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "moniker://x/y", record["moniker"])
	assert.Equal(t, "success", record["outcome"])
	assert.Equal(t, "rest", record["source_type"])
	assert.EqualValues(t, 2, record["row_count"])
}

func TestBatchReadCarriesPerKeyOutcomes(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{
			"results": []any{
				map[string]any{
					"moniker":     "moniker://a/b",
					"path":        "a/b",
					"source_type": "static",
					"connection": map[string]any{
						"rows": []any{map[string]any{"id": 1}},
					},
				},
			},
		})
	}, time.Minute)

	out := c.BatchRead(context.Background(), []Moniker{New("a/b"), New("missing")}, nil)
	require.Len(t, out, 2)

	require.NoError(t, out["a/b"].Err)
	rows, ok := out["a/b"].Data.([]map[string]any)
	require.True(t, ok)
	assert.Len(t, rows, 1)

	require.Error(t, out["missing"].Err)
	assert.True(t, merrors.IsNotFound(out["missing"].Err))
}

func TestDeprecationWarningDoesNotRefireOnCacheHit(t *testing.T) {
	var invoked int32

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, mmodel.ResolvedSource{
			Moniker:            "moniker://a/b",
			Path:               "a/b",
			Status:             mmodel.StatusDeprecated,
			DeprecationMessage: "use new.path",
			Successor:          "new/path",
		})
	}, time.Minute)

	c.cfg.DeprecationEnabled = true
	c.cfg.DeprecationCallback = func(path, message, successor string) {
		atomic.AddInt32(&invoked, 1)
	}

	ctx := context.Background()
	m := New("a/b")

	_, err := c.Resolve(ctx, m)
	require.NoError(t, err)
	_, err = c.Resolve(ctx, m)
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&invoked))
}
