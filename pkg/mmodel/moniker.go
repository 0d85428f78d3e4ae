// Package mmodel holds the data records shared between the resolver client,
// the adapters, and the top-level client: the resolved binding, its result
// shapes, and the catalog introspection records.
package mmodel

import "time"

// SourceType tags the kind of backend a ResolvedSource binds to.
type SourceType string

// Recognized source-type tags.
const (
	SourceRelationalTemporal SourceType = "relational-with-temporal"
	SourceWarehouse          SourceType = "warehouse"
	SourceGenericSQL         SourceType = "generic-sql"
	SourceHTTP               SourceType = "http"
	SourceSpreadsheet        SourceType = "spreadsheet"
	SourceStatic             SourceType = "static"
)

// LifecycleStatus is the nullable lifecycle state of a binding.
type LifecycleStatus string

// Recognized lifecycle statuses.
const (
	StatusActive     LifecycleStatus = "active"
	StatusDeprecated LifecycleStatus = "deprecated"
	StatusDraft      LifecycleStatus = "draft"
)

// Ownership records who is accountable for a binding.
type Ownership struct {
	Team  string `json:"team,omitempty"`
	Owner string `json:"owner,omitempty"`
	ADOP  string `json:"adop,omitempty"`
}

// ResolvedSource is the authoritative binding record returned by the
// resolver. Instances are produced solely by the resolver client; callers
// must treat every field as read-only once constructed.
type ResolvedSource struct {
	Moniker     string          `json:"moniker"`
	Path        string          `json:"path"`
	SourceType  SourceType      `json:"source_type"`
	Connection  map[string]any  `json:"connection"`
	Query       string          `json:"query,omitempty"`
	Params      map[string]any  `json:"params,omitempty"`
	Schema      map[string]any  `json:"schema,omitempty"`
	ReadOnly    bool            `json:"read_only"`
	Ownership   Ownership       `json:"ownership"`
	BindingPath string          `json:"binding_path,omitempty"`
	SubPath     string          `json:"sub_path,omitempty"`
	Status      LifecycleStatus `json:"status,omitempty"`

	DeprecationMessage string `json:"deprecation_message,omitempty"`
	Successor          string `json:"successor,omitempty"`
	SunsetDate         string `json:"sunset_date,omitempty"`
	MigrationGuideURL  string `json:"migration_guide_url,omitempty"`
	RedirectedFrom     string `json:"redirected_from,omitempty"`
}

// IsDeprecated reports whether the binding has been marked deprecated by the
// resolver.
func (r ResolvedSource) IsDeprecated() bool {
	return r.Status == StatusDeprecated
}

// AdapterResult is the full envelope an adapter may return when the caller
// asked for it via extra["return_result"].
type AdapterResult struct {
	Data            any            `json:"data"`
	RowCount        int            `json:"row_count"`
	Columns         []string       `json:"columns,omitempty"`
	ExecutionTimeMS int64          `json:"execution_time_ms"`
	SourceType      SourceType     `json:"source_type"`
	ExecutedQuery   string         `json:"executed_query,omitempty"`
	Truncated       bool           `json:"truncated"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// HealthCheckResult is returned by every adapter's HealthCheck; it never
// carries an error value because health checks must never raise.
type HealthCheckResult struct {
	Healthy   bool           `json:"healthy"`
	Message   string         `json:"message,omitempty"`
	LatencyMS int64          `json:"latency_ms"`
	Details   map[string]any `json:"details,omitempty"`
}

// FetchResult is returned by the client's server-side fetch (GET /fetch/{path}).
type FetchResult struct {
	Data            any        `json:"data"`
	RowCount        int        `json:"row_count"`
	ExecutionTimeMS int64      `json:"execution_time_ms"`
	SourceType      SourceType `json:"source_type,omitempty"`
	Truncated       bool       `json:"truncated"`
}

// MetadataResult is returned by /metadata.
type MetadataResult struct {
	Path        string         `json:"path"`
	Owner       string         `json:"owner,omitempty"`
	Team        string         `json:"team,omitempty"`
	ADOP        string         `json:"adop,omitempty"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// SampleResult is returned by /sample.
type SampleResult struct {
	Path       string     `json:"path"`
	Rows       []any      `json:"rows"`
	RowCount   int        `json:"row_count"`
	SourceType SourceType `json:"source_type,omitempty"`
}

// TreeNode is one node of the nested catalog tree returned by /tree.
type TreeNode struct {
	Path             string     `json:"path"`
	Name             string     `json:"name"`
	SourceType       SourceType `json:"source_type,omitempty"`
	HasSourceBinding bool       `json:"has_source_binding"`
	Description      string     `json:"description,omitempty"`
	Children         []TreeNode `json:"children,omitempty"`
}

// SearchResult is returned by /catalog/search.
type SearchResult struct {
	Query        string           `json:"query"`
	TotalResults int              `json:"total_results"`
	Results      []map[string]any `json:"results"`
}

// CatalogStats is returned by /catalog/stats.
type CatalogStats struct {
	TotalMonikers int            `json:"total_monikers"`
	BySourceType  map[string]int `json:"by_source_type,omitempty"`
	ByStatus      map[string]int `json:"by_status,omitempty"`
	LastUpdated   time.Time      `json:"last_updated,omitempty"`
}

// ColumnInfo describes one column of a SchemaInfo.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// SchemaInfo is returned by /schema.
type SchemaInfo struct {
	Path          string       `json:"path"`
	Columns       []ColumnInfo `json:"columns"`
	SourceType    SourceType   `json:"source_type,omitempty"`
	LastRefreshed time.Time    `json:"last_refreshed,omitempty"`
}

// Reserved parameter keys that MUST NOT be interpreted as data filters by
// any adapter.
var ReservedParamKeys = map[string]struct{}{
	"moniker_version":  {},
	"moniker_revision": {},
	"as_of":            {},
	"limit":            {},
	"offset":           {},
	"order_by":         {},
	"method":           {},
	"response_path":    {},
	"query_params":     {},
	"moniker_params":   {},
}

// IsReservedParamKey reports whether k is one of the reserved parameter keys.
func IsReservedParamKey(k string) bool {
	_, ok := ReservedParamKeys[k]
	return ok
}
