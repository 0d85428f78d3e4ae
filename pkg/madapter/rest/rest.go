// Package rest implements the HTTP/REST adapter: direct HTTP calls against a
// configured base_url, with its own retry loop distinct from the resolver's
// mretry engine, response extraction, and optional JSON-Schema validation.
// Outbound calls use the bare net/http client rather than an HTTP framework.
package rest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/open-moniker/moniker-client/pkg/mconfig"
	"github.com/open-moniker/moniker-client/pkg/merrors"
	"github.com/open-moniker/moniker-client/pkg/mlog"
	"github.com/open-moniker/moniker-client/pkg/mmodel"
)

// Adapter is the HTTP/REST adapter.
type Adapter struct {
	logger mlog.Logger
	client *http.Client
}

// New builds an Adapter. logger may be nil.
func New(logger mlog.Logger) *Adapter {
	if logger == nil {
		logger = mlog.NopLogger{}
	}
	return &Adapter{logger: logger, client: &http.Client{}}
}

func joinURL(baseURL, path string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// mergedQueryParams merges moniker_params (legacy) with query_params (new),
// with query_params taking precedence on key conflict.
func mergedQueryParams(params map[string]any) map[string]any {
	merged := make(map[string]any)

	if nested, ok := params["moniker_params"].(map[string]any); ok {
		for k, v := range nested {
			merged[k] = v
		}
	}

	if nested, ok := params["query_params"].(map[string]any); ok {
		for k, v := range nested {
			merged[k] = v
		}
	}

	return merged
}

func applyQueryParams(u string, params map[string]any) (string, error) {
	if len(params) == 0 {
		return u, nil
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return "", err
	}

	q := parsed.Query()
	for k, v := range params {
		q.Set(k, fmt.Sprintf("%v", v))
	}
	parsed.RawQuery = q.Encode()

	return parsed.String(), nil
}

func (a *Adapter) applyAuth(headers map[string]string, binding mmodel.ResolvedSource, cfg *mconfig.Config) {
	authType, _ := binding.Connection["auth_type"].(string)

	switch authType {
	case "bearer":
		token, _ := binding.Params["bearer_token"].(string)
		if token == "" && cfg != nil {
			token = cfg.Credentials["rest_bearer_token"]
		}
		if token != "" {
			headers["Authorization"] = "Bearer " + token
		}

	case "api_key":
		key, _ := binding.Params["api_key"].(string)
		if key == "" && cfg != nil {
			key = cfg.Credentials["rest_api_key"]
		}
		headerName, _ := binding.Connection["api_key_header"].(string)
		if headerName == "" {
			headerName = "X-API-Key"
		}
		if key != "" {
			headers[headerName] = key
		}

	case "basic":
		username, _ := binding.Params["username"].(string)
		if username == "" && cfg != nil {
			username = cfg.Credentials["rest_username"]
		}
		password, _ := binding.Params["password"].(string)
		if password == "" && cfg != nil {
			password = cfg.Credentials["rest_password"]
		}
		creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers["Authorization"] = "Basic " + creds
	}
}

func headersFrom(binding mmodel.ResolvedSource) map[string]string {
	headers := make(map[string]string)
	if raw, ok := binding.Connection["headers"].(map[string]any); ok {
		for k, v := range raw {
			headers[k] = fmt.Sprintf("%v", v)
		}
	}
	return headers
}

// requestWithRetry runs its own local retry loop, distinct from the
// resolver's mretry engine: backoff = backoff_factor * 2^attempt.
func (a *Adapter) requestWithRetry(ctx context.Context, method, reqURL string, headers map[string]string, cfg *mconfig.Config) (any, error) {
	maxAttempts := cfg.RetryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	backoffFactor := cfg.RetryBackoffFactor

	retryable := make(map[int]struct{}, len(cfg.RetryStatusCodes))
	for _, code := range cfg.RetryStatusCodes {
		retryable[code] = struct{}{}
	}

	client := a.client
	if cfg.Timeout > 0 {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if isTimeout(err) {
				if attempt < maxAttempts-1 {
					time.Sleep(backoffDelay(backoffFactor, attempt))
					continue
				}
				return nil, &merrors.TimeoutError{Operation: "rest fetch " + reqURL, Err: err}
			}
			if attempt < maxAttempts-1 {
				time.Sleep(backoffDelay(backoffFactor, attempt))
				continue
			}
			return nil, &merrors.ConnectionRefusedError{Message: fmt.Sprintf("failed to connect to %s: %v", reqURL, err)}
		}

		if _, retry := retryable[resp.StatusCode]; retry && attempt < maxAttempts-1 {
			resp.Body.Close()
			time.Sleep(backoffDelay(backoffFactor, attempt))
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return nil, &merrors.NotFoundError{Path: reqURL}
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, &merrors.ResolutionError{Path: reqURL, StatusCode: resp.StatusCode}
		}

		var data any
		decodeErr := json.NewDecoder(resp.Body).Decode(&data)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, decodeErr
		}

		return data, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("unexpected retry loop exit for %s", reqURL)
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	if t, ok := err.(timeouter); ok {
		return t.Timeout()
	}
	return false
}

func backoffDelay(factor float64, attempt int) time.Duration {
	seconds := factor * float64(int(1)<<uint(attempt))
	return time.Duration(seconds * float64(time.Second))
}

// extractPath walks dot-notation segments; numeric segments index sequences.
func extractPath(data any, path string) any {
	for _, key := range strings.Split(path, ".") {
		switch v := data.(type) {
		case map[string]any:
			data = v[key]
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil
			}
			data = v[idx]
		default:
			return nil
		}
	}
	return data
}

func validateResponse(data any, schema map[string]any) error {
	raw, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("inline.json", doc); err != nil {
		return err
	}
	compiled, err := compiler.Compile("inline.json")
	if err != nil {
		return err
	}

	if err := compiled.Validate(data); err != nil {
		return &merrors.ValidationError{Message: "response validation failed", Err: err}
	}

	return nil
}

// Fetch implements madapter.Adapter.
func (a *Adapter) Fetch(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config, extra map[string]any) (*mmodel.AdapterResult, error) {
	start := time.Now()

	baseURL, _ := binding.Connection["base_url"].(string)
	if baseURL == "" {
		return nil, &merrors.ConfigurationError{Option: "base_url", Message: "base_url required for REST source"}
	}

	reqURL, err := joinURL(baseURL, binding.Query)
	if err != nil {
		return nil, &merrors.ConfigurationError{Option: "base_url", Message: err.Error()}
	}

	reqURL, err = applyQueryParams(reqURL, mergedQueryParams(binding.Params))
	if err != nil {
		return nil, err
	}

	method, _ := binding.Params["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	headers := headersFrom(binding)
	a.applyAuth(headers, binding, cfg)

	data, err := a.requestWithRetry(ctx, strings.ToUpper(method), reqURL, headers, cfg)
	if err != nil {
		return nil, err
	}

	if responsePath, ok := binding.Params["response_path"].(string); ok && responsePath != "" {
		data = extractPath(data, responsePath)
	}

	if schema, ok := binding.Params["response_schema"].(map[string]any); ok && schema != nil {
		if err := validateResponse(data, schema); err != nil {
			return nil, err
		}
	}

	rowCount := 1
	if items, ok := data.([]any); ok {
		rowCount = len(items)
	}

	return &mmodel.AdapterResult{
		Data:            data,
		RowCount:        rowCount,
		ExecutionTimeMS: time.Since(start).Milliseconds(),
		SourceType:      mmodel.SourceHTTP,
	}, nil
}

// ListChildren calls children_endpoint and normalizes array-of-strings,
// array-of-objects, or a wrapper object into a flat name list. All errors
// are swallowed.
func (a *Adapter) ListChildren(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config) []string {
	childrenEndpoint, _ := binding.Connection["children_endpoint"].(string)
	if childrenEndpoint == "" {
		return nil
	}

	baseURL, _ := binding.Connection["base_url"].(string)
	if baseURL == "" {
		return nil
	}

	reqURL, err := joinURL(baseURL, childrenEndpoint)
	if err != nil {
		return nil
	}

	headers := headersFrom(binding)
	a.applyAuth(headers, binding, cfg)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil
	}

	var data any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil
	}

	switch v := data.(type) {
	case []any:
		return extractChildrenNames(v)
	case map[string]any:
		for _, key := range []string{"children", "items", "results", "data"} {
			if list, ok := v[key].([]any); ok {
				return extractChildrenNames(list)
			}
		}
	}

	return nil
}

func extractChildrenNames(items []any) []string {
	var children []string
	for _, item := range items {
		switch v := item.(type) {
		case string:
			children = append(children, v)
		case map[string]any:
			for _, key := range []string{"name", "id", "path"} {
				if name, ok := v[key]; ok && name != nil {
					children = append(children, fmt.Sprintf("%v", name))
					break
				}
			}
		}
	}
	return children
}

// HealthCheck calls health_endpoint (falling back to base_url) and never
// raises: status < 400 is healthy.
func (a *Adapter) HealthCheck(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config) mmodel.HealthCheckResult {
	baseURL, _ := binding.Connection["base_url"].(string)
	if baseURL == "" {
		return mmodel.HealthCheckResult{Healthy: false, Message: "base_url not configured"}
	}

	healthEndpoint, _ := binding.Connection["health_endpoint"].(string)

	reqURL, err := joinURL(baseURL, healthEndpoint)
	if err != nil {
		return mmodel.HealthCheckResult{Healthy: false, Message: err.Error()}
	}

	headers := headersFrom(binding)
	a.applyAuth(headers, binding, cfg)

	client := a.client
	if cfg != nil && cfg.Timeout > 10*time.Second {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return mmodel.HealthCheckResult{Healthy: false, Message: err.Error(), LatencyMS: time.Since(start).Milliseconds()}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return mmodel.HealthCheckResult{Healthy: false, Message: fmt.Sprintf("connection failed: %v", err), LatencyMS: latency}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 400 {
		return mmodel.HealthCheckResult{
			Healthy:   true,
			Message:   fmt.Sprintf("OK (status %d)", resp.StatusCode),
			LatencyMS: latency,
			Details:   map[string]any{"url": reqURL},
		}
	}

	return mmodel.HealthCheckResult{
		Healthy:   false,
		Message:   fmt.Sprintf("unhealthy (status %d)", resp.StatusCode),
		LatencyMS: latency,
		Details:   map[string]any{"url": reqURL},
	}
}
