// Package mresolver issues requests to the resolution service's HTTP
// endpoints, parses their JSON bodies into typed records, and applies the
// circuit breaker and retry engine ahead of every call except the telemetry
// POST. It uses the bare net/http client: explicit
// http.NewRequestWithContext, explicit header setting, status-code
// branching, json.NewDecoder(...).Decode.
package mresolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/open-moniker/moniker-client/pkg/mauth"
	"github.com/open-moniker/moniker-client/pkg/mcircuitbreaker"
	"github.com/open-moniker/moniker-client/pkg/mconfig"
	"github.com/open-moniker/moniker-client/pkg/merrors"
	"github.com/open-moniker/moniker-client/pkg/mlog"
	"github.com/open-moniker/moniker-client/pkg/mmodel"
	"github.com/open-moniker/moniker-client/pkg/mretry"
)

// statusError carries the HTTP status code of a failed resolver call so the
// retry engine's mretry.StatusCoder classifier can see it.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string   { return e.err.Error() }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) StatusCode() int { return e.code }

// Client issues HTTP requests to the resolution service, wrapping every
// call except ReportTelemetry in the circuit breaker and the retry engine.
type Client struct {
	cfg     *mconfig.Config
	http    *http.Client
	breaker *mcircuitbreaker.Breaker
	auth    mauth.HeaderAssembler
	logger  mlog.Logger
}

// New builds a resolver Client. breaker and logger may be nil, in which
// case a fresh default breaker and a no-op logger are used.
func New(cfg *mconfig.Config, breaker *mcircuitbreaker.Breaker, auth mauth.HeaderAssembler, logger mlog.Logger) *Client {
	if breaker == nil {
		breaker = mcircuitbreaker.New(mcircuitbreaker.DefaultConfig())
	}
	if auth == nil {
		auth = mauth.New(logger)
	}
	if logger == nil {
		logger = mlog.NopLogger{}
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		auth:    auth,
		logger:  logger,
	}
}

func (c *Client) retryConfig() mretry.Config {
	rc := mretry.DefaultConfig()
	if c.cfg.RetryMaxAttempts > 0 {
		rc.MaxAttempts = c.cfg.RetryMaxAttempts
	}
	if c.cfg.RetryBackoffFactor > 0 {
		rc.BaseDelay = time.Duration(float64(time.Second) * c.cfg.RetryBackoffFactor)
	}
	if len(c.cfg.RetryStatusCodes) > 0 {
		set := make(map[int]struct{}, len(c.cfg.RetryStatusCodes))
		for _, code := range c.cfg.RetryStatusCodes {
			set[code] = struct{}{}
		}
		rc.RetryableStatusCodes = set
	}
	return rc
}

func (c *Client) headers() map[string]string {
	h := map[string]string{
		"X-App-ID":     c.cfg.AppID,
		"X-Team":       c.cfg.Team,
		"X-Request-ID": uuid.NewString(),
	}

	for k, v := range c.auth.Headers(mauth.Options{
		AuthMethod:               c.cfg.AuthMethod,
		KerberosServicePrincipal: c.cfg.KerberosServicePrincipal,
		JWTToken:                 c.cfg.JWTToken,
		JWTTokenEnv:              c.cfg.JWTTokenEnv,
		JWTTokenFile:             c.cfg.JWTTokenFile,
	}) {
		h[k] = v
	}

	return h
}

func (c *Client) endpoint(path string) string {
	base := strings.TrimRight(c.cfg.ServiceURL, "/")
	return base + path
}

// escapePath percent-encodes path segment-by-segment, preserving "/" as the
// structural separator rather than encoding it (url.PathEscape alone would
// turn every "/" into "%2F", breaking multi-segment moniker paths).
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// doJSON executes one retry-wrapped, breaker-guarded HTTP call and decodes
// the response body into out (which may be nil for accept-and-ignore
// endpoints like /telemetry/access). notFoundPath, when non-empty, is
// carried on the NotFoundError raised for a 404 response.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any, notFoundPath string) error {
	done, err := c.breaker.BeforeRequest()
	if err != nil {
		return err
	}

	var lastStatus int

	retryErr := mretry.Retry(ctx, func(ctx context.Context, attempt int) error {
		status, reqErr := c.do(ctx, method, path, body, out)
		lastStatus = status
		return reqErr
	}, c.retryConfig())

	if retryErr != nil {
		var nf *merrors.NotFoundError
		if errors.As(retryErr, &nf) {
			c.breaker.OnNotFound(done)
			return retryErr
		}
		c.logger.Warnf("resolver call %s %s failed: %v", method, path, retryErr)
		done(false)
		return retryErr
	}

	if lastStatus == http.StatusNotFound {
		c.breaker.OnNotFound(done)
		return &merrors.NotFoundError{Path: notFoundPath}
	}

	done(true)

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers() {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
			return 0, &merrors.TimeoutError{Operation: method + " " + path, Err: err}
		}
		return 0, &merrors.ConnectionRefusedError{Message: fmt.Sprintf("%s %s: %v", method, path, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, &statusError{
			code: resp.StatusCode,
			err:  fmt.Errorf("resolver responded %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}

	return resp.StatusCode, nil
}

// Resolve issues GET /resolve/{path} and decodes the response into a
// ResolvedSource. A 404 raises *merrors.NotFoundError without counting
// against the circuit breaker; any other non-2xx raises
// *merrors.ResolutionError.
func (c *Client) Resolve(ctx context.Context, path string) (mmodel.ResolvedSource, error) {
	var out mmodel.ResolvedSource

	err := c.doJSON(ctx, http.MethodGet, "/resolve/"+escapePath(path), nil, &out, path)
	if err != nil {
		return mmodel.ResolvedSource{}, wrapResolutionError(path, err)
	}

	return out, nil
}

// batchResolveRequest is the POST /resolve/batch request body.
type batchResolveRequest struct {
	Monikers []string `json:"monikers"`
}

type batchResolveResponse struct {
	Results []mmodel.ResolvedSource `json:"results"`
}

// BatchResolve issues POST /resolve/batch for the given monikers (full URI
// form) and returns a map keyed by normalized path. An item-level failure
// degrades to that key being absent from the result map rather than
// aborting the whole batch.
func (c *Client) BatchResolve(ctx context.Context, uris []string) (map[string]mmodel.ResolvedSource, error) {
	var resp batchResolveResponse

	err := c.doJSON(ctx, http.MethodPost, "/resolve/batch", batchResolveRequest{Monikers: uris}, &resp, "")
	if err != nil {
		return nil, wrapResolutionError("batch", err)
	}

	out := make(map[string]mmodel.ResolvedSource, len(resp.Results))
	for _, r := range resp.Results {
		out[r.Path] = r
	}

	return out, nil
}

// Describe issues GET /describe/{path}.
func (c *Client) Describe(ctx context.Context, path string) (map[string]any, error) {
	var out map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/describe/"+escapePath(path), nil, &out, path); err != nil {
		return nil, err
	}
	return out, nil
}

type childrenResponse struct {
	Children []string `json:"children"`
}

// ListChildren issues GET /list/{path}, or GET /list when path is empty.
func (c *Client) ListChildren(ctx context.Context, path string) ([]string, error) {
	p := "/list"
	if path != "" {
		p = "/list/" + escapePath(path)
	}

	var out childrenResponse
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &out, path); err != nil {
		return nil, err
	}

	return out.Children, nil
}

// Lineage issues GET /lineage/{path}.
func (c *Client) Lineage(ctx context.Context, path string) (map[string]any, error) {
	var out map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/lineage/"+escapePath(path), nil, &out, path); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchServerSide issues GET /fetch/{path} with limit and free-form query
// parameters, returning the server-computed FetchResult. A 403 response
// raises *merrors.AccessDeniedError whose message is the body's "detail"
// field; a 404 raises *merrors.NotFoundError.
func (c *Client) FetchServerSide(ctx context.Context, path string, limit int, extra map[string]string) (mmodel.FetchResult, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	for k, v := range extra {
		q.Set(k, v)
	}

	p := "/fetch/" + escapePath(path)
	if enc := q.Encode(); enc != "" {
		p += "?" + enc
	}

	done, err := c.breaker.BeforeRequest()
	if err != nil {
		return mmodel.FetchResult{}, err
	}

	var out mmodel.FetchResult
	var lastStatus int
	var detail map[string]any

	retryErr := mretry.Retry(ctx, func(ctx context.Context, attempt int) error {
		status, reqErr := c.doRaw(ctx, http.MethodGet, p, &out, &detail)
		lastStatus = status
		return reqErr
	}, c.retryConfig())

	switch lastStatus {
	case http.StatusForbidden:
		c.breaker.OnNotFound(done) // access-denied is application-level, like not-found
		msg, _ := detail["detail"].(string)
		return mmodel.FetchResult{}, &merrors.AccessDeniedError{Path: path, Message: msg}
	case http.StatusNotFound:
		c.breaker.OnNotFound(done)
		return mmodel.FetchResult{}, &merrors.NotFoundError{Path: path}
	}

	if retryErr != nil {
		done(false)
		return mmodel.FetchResult{}, wrapResolutionError(path, retryErr)
	}

	done(true)

	return out, nil
}

// doRaw is like do but additionally decodes a 4xx body into detail for
// callers that need to inspect the "detail" field (e.g. access-denied).
func (c *Client) doRaw(ctx context.Context, method, path string, out any, detail *map[string]any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), nil)
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers() {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
			return 0, &merrors.TimeoutError{Operation: method + " " + path, Err: err}
		}
		return 0, &merrors.ConnectionRefusedError{Message: fmt.Sprintf("%s %s: %v", method, path, err)}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
		_ = json.Unmarshal(raw, detail)
		return resp.StatusCode, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &statusError{code: resp.StatusCode, err: fmt.Errorf("resolver responded %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, err
		}
	}

	return resp.StatusCode, nil
}

// Metadata issues GET /metadata/{path}.
func (c *Client) Metadata(ctx context.Context, path string) (mmodel.MetadataResult, error) {
	var out mmodel.MetadataResult
	if err := c.doJSON(ctx, http.MethodGet, "/metadata/"+escapePath(path), nil, &out, path); err != nil {
		return mmodel.MetadataResult{}, err
	}
	return out, nil
}

// Sample issues GET /sample/{path}?limit=.
func (c *Client) Sample(ctx context.Context, path string, limit int) (mmodel.SampleResult, error) {
	p := "/sample/" + escapePath(path)
	if limit > 0 {
		p += "?limit=" + strconv.Itoa(limit)
	}

	var out mmodel.SampleResult
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &out, path); err != nil {
		return mmodel.SampleResult{}, err
	}
	return out, nil
}

// Tree issues GET /tree/{path}?depth=, or GET /tree?depth= when path is
// empty.
func (c *Client) Tree(ctx context.Context, path string, depth int) (mmodel.TreeNode, error) {
	p := "/tree"
	if path != "" {
		p += "/" + escapePath(path)
	}
	if depth > 0 {
		p += "?depth=" + strconv.Itoa(depth)
	}

	var out mmodel.TreeNode
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &out, path); err != nil {
		return mmodel.TreeNode{}, err
	}
	return out, nil
}

type searchResponse struct {
	Results      []map[string]any `json:"results"`
	TotalResults int              `json:"total_results"`
}

// Search issues GET /catalog/search?q=&status=&limit=.
func (c *Client) Search(ctx context.Context, q, status string, limit int) (mmodel.SearchResult, error) {
	v := url.Values{}
	v.Set("q", q)
	if status != "" {
		v.Set("status", status)
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}

	var out searchResponse
	if err := c.doJSON(ctx, http.MethodGet, "/catalog/search?"+v.Encode(), nil, &out, ""); err != nil {
		return mmodel.SearchResult{}, err
	}

	return mmodel.SearchResult{Query: q, TotalResults: out.TotalResults, Results: out.Results}, nil
}

// CatalogStats issues GET /catalog/stats.
func (c *Client) CatalogStats(ctx context.Context) (mmodel.CatalogStats, error) {
	var out mmodel.CatalogStats
	if err := c.doJSON(ctx, http.MethodGet, "/catalog/stats", nil, &out, ""); err != nil {
		return mmodel.CatalogStats{}, err
	}
	return out, nil
}

// Schema issues GET /schema/{path}.
func (c *Client) Schema(ctx context.Context, path string) (mmodel.SchemaInfo, error) {
	var out mmodel.SchemaInfo
	if err := c.doJSON(ctx, http.MethodGet, "/schema/"+escapePath(path), nil, &out, path); err != nil {
		return mmodel.SchemaInfo{}, err
	}
	return out, nil
}

// Health issues GET /health against the resolver.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out, ""); err != nil {
		return nil, err
	}
	return out, nil
}

// telemetryRecord is the POST /telemetry/access request body.
type telemetryRecord struct {
	Moniker      string `json:"moniker"`
	Outcome      string `json:"outcome"`
	LatencyMS    int64  `json:"latency_ms"`
	SourceType   string `json:"source_type,omitempty"`
	RowCount     *int   `json:"row_count,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Deprecated   bool   `json:"deprecated"`
	Successor    string `json:"successor,omitempty"`
}

// ReportTelemetry POSTs a best-effort access record to /telemetry/access.
// Callers are expected to bound ctx to a short, detached timeout,
// independent of their own context, and to ignore the returned error, which
// is informational only.
func (c *Client) ReportTelemetry(ctx context.Context, moniker, outcome string, latencyMS int64, sourceType string, rowCount *int, errMessage string, deprecated bool, successor string) error {
	rec := telemetryRecord{
		Moniker:      moniker,
		Outcome:      outcome,
		LatencyMS:    latencyMS,
		SourceType:   sourceType,
		RowCount:     rowCount,
		ErrorMessage: errMessage,
		Deprecated:   deprecated,
		Successor:    successor,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/telemetry/access"), nil)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req.Body = io.NopCloser(bytes.NewReader(payload))
	req.ContentLength = int64(len(payload))

	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers() {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return nil
}

func wrapResolutionError(path string, err error) error {
	var nf *merrors.NotFoundError
	if errors.As(err, &nf) {
		return err
	}

	var se *statusError
	if errors.As(err, &se) {
		return &merrors.ResolutionError{Path: path, StatusCode: se.code, Err: se.err}
	}

	return err
}
