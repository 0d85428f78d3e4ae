package moniker

import (
	"context"
	"sync"
	"time"

	"github.com/open-moniker/moniker-client/pkg/madapter"
	"github.com/open-moniker/moniker-client/pkg/madapter/genericsql"
	"github.com/open-moniker/moniker-client/pkg/madapter/relational"
	"github.com/open-moniker/moniker-client/pkg/madapter/rest"
	"github.com/open-moniker/moniker-client/pkg/madapter/spreadsheet"
	"github.com/open-moniker/moniker-client/pkg/madapter/warehouse"
	"github.com/open-moniker/moniker-client/pkg/mauth"
	"github.com/open-moniker/moniker-client/pkg/mcache"
	"github.com/open-moniker/moniker-client/pkg/mcircuitbreaker"
	"github.com/open-moniker/moniker-client/pkg/mconfig"
	"github.com/open-moniker/moniker-client/pkg/merrors"
	"github.com/open-moniker/moniker-client/pkg/mlog"
	"github.com/open-moniker/moniker-client/pkg/mmodel"
	"github.com/open-moniker/moniker-client/pkg/mresolver"
)

// telemetryTimeout bounds every POST /telemetry/access call, independent of
// the caller's own context.
const telemetryTimeout = 5 * time.Second

// DeprecationCallback is invoked once per resolve/batch_resolve call for
// every binding whose lifecycle status is "deprecated", carrying the
// normalized path, the deprecation message, and the successor moniker (if
// any).
type DeprecationCallback func(path, message, successor string)

// Client composes the resolver client, resolution cache, adapter registry,
// and telemetry/deprecation reporting into the single surface Moniker
// delegates to. A Client is safe for concurrent use by multiple goroutines.
type Client struct {
	cfg      *mconfig.Config
	resolver *mresolver.Client
	cache    *mcache.Cache
	registry *madapter.Registry
	logger   mlog.Logger
}

// Option configures a Client at construction.
type Option func(*clientOptions)

type clientOptions struct {
	registry *madapter.Registry
	logger   mlog.Logger
	auth     mauth.HeaderAssembler
	breaker  *mcircuitbreaker.Breaker
}

// WithRegistry overrides the adapter registry (defaults to a fresh registry
// pre-populated with every built-in adapter).
func WithRegistry(r *madapter.Registry) Option {
	return func(o *clientOptions) { o.registry = r }
}

// WithLogger overrides the client's logger (defaults to a no-op logger).
func WithLogger(l mlog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithAuth overrides the header assembler used for resolver requests.
func WithAuth(a mauth.HeaderAssembler) Option {
	return func(o *clientOptions) { o.auth = a }
}

// WithBreaker overrides the circuit breaker guarding resolver calls.
func WithBreaker(b *mcircuitbreaker.Breaker) Option {
	return func(o *clientOptions) { o.breaker = b }
}

// NewClient builds a Client from cfg, wiring the resolver client, the
// resolution cache (TTL from cfg.CacheTTL), the circuit breaker, and the
// built-in adapter registry.
func NewClient(cfg *mconfig.Config, opts ...Option) *Client {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = mlog.NopLogger{}
	}
	if o.registry == nil {
		o.registry = defaultRegistry(o.logger)
	}
	if o.breaker == nil {
		o.breaker = mcircuitbreaker.New(mcircuitbreaker.DefaultConfig())
	}

	resolverClient := mresolver.New(cfg, o.breaker, o.auth, o.logger)

	return &Client{
		cfg:      cfg,
		resolver: resolverClient,
		cache:    mcache.New(cfg.CacheTTL),
		registry: o.registry,
		logger:   o.logger,
	}
}

// defaultRegistry builds a registry pre-populated with every built-in
// adapter, keyed by their source-type tag.
func defaultRegistry(logger mlog.Logger) *madapter.Registry {
	r := madapter.NewRegistry()
	r.Register(string(mmodel.SourceRelationalTemporal), relational.New(logger))
	r.Register(string(mmodel.SourceWarehouse), warehouse.New(logger))
	r.Register(string(mmodel.SourceGenericSQL), genericsql.New(logger))
	restAdapter := rest.New(logger)
	r.Register(string(mmodel.SourceHTTP), restAdapter)
	// older resolver deployments tag REST bindings "rest" rather than "http"
	r.Register("rest", restAdapter)
	r.Register(string(mmodel.SourceSpreadsheet), spreadsheet.New(logger))
	r.Register(string(mmodel.SourceStatic), spreadsheet.New(logger))
	return r
}

// ---- process-default singleton ----

var (
	defaultOnce   sync.Once
	defaultClient *Client
	defaultMu     sync.Mutex
)

// Default returns the process-wide default Client, built lazily from
// mconfig.Load(...) on first use and guarded by a once-barrier.
func Default() *Client {
	defaultOnce.Do(func() {
		cfg, err := mconfig.Load("", nil)
		if err != nil {
			cfg = mconfig.Defaults()
		}
		defaultClient = NewClient(cfg)
	})

	defaultMu.Lock()
	defer defaultMu.Unlock()

	return defaultClient
}

// SetDefault replaces the process-wide default Client. Intended for tests
// and for applications that want to configure the singleton explicitly
// before the free functions (Read/Fetch/Metadata) are first used.
func SetDefault(c *Client) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultOnce.Do(func() {}) // mark as initialized so Default() never overwrites c
	defaultClient = c
}

// ---- resolution ----

// resolveCached consults the cache first; on a miss it calls the resolver,
// writes the cache on success, and fires the deprecation hook exactly once
// for this call (never on a cache hit).
func (c *Client) resolveCached(ctx context.Context, m Moniker) (mmodel.ResolvedSource, error) {
	uri := m.URI()

	if cached, ok := c.cache.Get(uri); ok {
		return cached, nil
	}

	binding, err := c.resolver.Resolve(ctx, m.Path())
	if err != nil {
		return mmodel.ResolvedSource{}, err
	}

	c.cache.Put(uri, binding)
	c.warnIfDeprecated(binding)

	return binding, nil
}

// Resolve resolves m to its binding, consulting the cache first.
func (c *Client) Resolve(ctx context.Context, m Moniker) (mmodel.ResolvedSource, error) {
	return c.resolveCached(ctx, m)
}

// BatchResolve resolves every moniker in ms, applying the same cache-read/
// cache-write and deprecation-warning semantics per item as Resolve. Items
// that fail resolution are simply absent from the returned map.
func (c *Client) BatchResolve(ctx context.Context, ms []Moniker) (map[string]mmodel.ResolvedSource, error) {
	out := make(map[string]mmodel.ResolvedSource, len(ms))

	var uncached []string
	for _, m := range ms {
		if cached, ok := c.cache.Get(m.URI()); ok {
			out[m.Path()] = cached
		} else {
			uncached = append(uncached, m.URI())
		}
	}

	if len(uncached) == 0 {
		return out, nil
	}

	resolved, err := c.resolver.BatchResolve(ctx, uncached)
	if err != nil {
		return out, err
	}

	for path, binding := range resolved {
		c.cache.Put(binding.Moniker, binding)
		c.warnIfDeprecated(binding)
		out[path] = binding
	}

	return out, nil
}

// FlushCache evicts every entry from the resolution cache.
func (c *Client) FlushCache() { c.cache.Flush() }

// ---- deprecation awareness ----

func (c *Client) warnIfDeprecated(binding mmodel.ResolvedSource) {
	if !c.cfg.DeprecationEnabled || !c.cfg.WarnOnDeprecated {
		return
	}

	if !binding.IsDeprecated() {
		return
	}

	c.logger.Warnf("moniker %s is deprecated: %s (successor: %s)",
		binding.Path, binding.DeprecationMessage, binding.Successor)

	if c.cfg.DeprecationCallback != nil {
		c.cfg.DeprecationCallback(binding.Path, binding.DeprecationMessage, binding.Successor)
	}
}

// ---- adapter dispatch ----

func (c *Client) adapterFor(binding mmodel.ResolvedSource) (madapter.Adapter, error) {
	a, ok := c.registry.Lookup(string(binding.SourceType))
	if !ok {
		return nil, &merrors.ConfigurationError{
			Option:  "source_type",
			Message: "no adapter registered for source type " + string(binding.SourceType),
		}
	}
	return a, nil
}

// ---- read / fetch / batch_read ----

// Read resolves m and dispatches Fetch on the matching adapter, reporting
// telemetry on every exit path.
func (c *Client) Read(ctx context.Context, m Moniker, extra map[string]any) (any, error) {
	start := time.Now()

	binding, err := c.resolveCached(ctx, m)
	if err != nil {
		outcome := "error"
		if merrors.IsNotFound(err) {
			outcome = "not_found"
		}
		c.reportTelemetry(m, outcome, start, nil, nil, err)
		return nil, err
	}

	adapter, err := c.adapterFor(binding)
	if err != nil {
		c.reportTelemetry(m, "error", start, &binding, nil, err)
		return nil, err
	}

	result, err := adapter.Fetch(ctx, binding, c.cfg, extra)
	if err != nil {
		wrapped := &merrors.FetchError{Path: m.Path(), Err: err}
		c.reportTelemetry(m, "error", start, &binding, nil, wrapped)
		return nil, wrapped
	}

	c.reportTelemetry(m, "success", start, &binding, &result.RowCount, nil)

	if madapter.WantsResult(extra) {
		return result, nil
	}

	return result.Data, nil
}

// BatchRead resolves every moniker via BatchResolve, dispatching Fetch on
// each resolved item's adapter. It never fails at the aggregate level: the
// returned map carries either the fetched data or the failure, keyed by
// normalized path.
type BatchReadResult struct {
	Data any
	Err  error
}

func (c *Client) BatchRead(ctx context.Context, ms []Moniker, extra map[string]any) map[string]BatchReadResult {
	out := make(map[string]BatchReadResult, len(ms))

	resolved, err := c.BatchResolve(ctx, ms)
	if err != nil && len(resolved) == 0 {
		for _, m := range ms {
			out[m.Path()] = BatchReadResult{Err: err}
		}
		return out
	}

	for _, m := range ms {
		binding, ok := resolved[m.Path()]
		if !ok {
			out[m.Path()] = BatchReadResult{Err: &merrors.NotFoundError{Path: m.Path()}}
			continue
		}

		adapter, aerr := c.adapterFor(binding)
		if aerr != nil {
			out[m.Path()] = BatchReadResult{Err: aerr}
			continue
		}

		result, ferr := adapter.Fetch(ctx, binding, c.cfg, extra)
		if ferr != nil {
			out[m.Path()] = BatchReadResult{Err: &merrors.FetchError{Path: m.Path(), Err: ferr}}
			continue
		}

		if madapter.WantsResult(extra) {
			out[m.Path()] = BatchReadResult{Data: result}
		} else {
			out[m.Path()] = BatchReadResult{Data: result.Data}
		}
	}

	return out
}

// FetchServerSide issues GET /fetch/{path} against the resolver itself
// rather than dispatching to a client-side adapter.
func (c *Client) FetchServerSide(ctx context.Context, m Moniker, limit int, extra map[string]string) (mmodel.FetchResult, error) {
	return c.resolver.FetchServerSide(ctx, m.Path(), limit, extra)
}

// ---- thin GET passthroughs ----

func (c *Client) Describe(ctx context.Context, m Moniker) (map[string]any, error) {
	return c.resolver.Describe(ctx, m.Path())
}

func (c *Client) Metadata(ctx context.Context, m Moniker) (mmodel.MetadataResult, error) {
	return c.resolver.Metadata(ctx, m.Path())
}

func (c *Client) Sample(ctx context.Context, m Moniker, limit int) (mmodel.SampleResult, error) {
	return c.resolver.Sample(ctx, m.Path(), limit)
}

func (c *Client) Lineage(ctx context.Context, m Moniker) (map[string]any, error) {
	return c.resolver.Lineage(ctx, m.Path())
}

func (c *Client) ListChildren(ctx context.Context, m Moniker) ([]string, error) {
	return c.resolver.ListChildren(ctx, m.Path())
}

func (c *Client) Tree(ctx context.Context, m Moniker, depth int) (mmodel.TreeNode, error) {
	return c.resolver.Tree(ctx, m.Path(), depth)
}

func (c *Client) Search(ctx context.Context, q, status string, limit int) (mmodel.SearchResult, error) {
	return c.resolver.Search(ctx, q, status, limit)
}

func (c *Client) CatalogStats(ctx context.Context) (mmodel.CatalogStats, error) {
	return c.resolver.CatalogStats(ctx)
}

func (c *Client) Schema(ctx context.Context, m Moniker) (mmodel.SchemaInfo, error) {
	return c.resolver.Schema(ctx, m.Path())
}

// Health reports the resolver's own health endpoint.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	return c.resolver.Health(ctx)
}

// ---- telemetry ----

// reportTelemetry dispatches a best-effort POST /telemetry/access on a
// detached goroutine bounded by its own 5s context.Background()-derived
// timeout, so caller cancellation is never mistaken for a telemetry
// failure and the caller-visible return value is never affected by it.
func (c *Client) reportTelemetry(m Moniker, outcome string, start time.Time, binding *mmodel.ResolvedSource, rowCount *int, reportErr error) {
	if !c.cfg.ReportTelemetry {
		return
	}

	latency := time.Since(start).Milliseconds()

	var sourceType string
	var deprecated bool
	var successor string
	if binding != nil {
		sourceType = string(binding.SourceType)
		deprecated = binding.IsDeprecated()
		successor = binding.Successor
	}

	var errMessage string
	if reportErr != nil {
		errMessage = reportErr.Error()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryTimeout)
		defer cancel()

		if err := c.resolver.ReportTelemetry(ctx, m.URI(), outcome, latency, sourceType, rowCount, errMessage, deprecated, successor); err != nil {
			c.logger.Debugf("telemetry report failed for %s: %v", m.Path(), err)
		}
	}()
}
