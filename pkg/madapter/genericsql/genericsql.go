// Package genericsql implements the generic-SQL (MSSQL-class) adapter: the
// same filter injection as the relational-with-temporal adapter, minus
// temporal support, with limits injected as OFFSET 0 ROWS FETCH NEXT n ROWS
// ONLY, against a real MSSQL driver.
package genericsql

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/open-moniker/moniker-client/pkg/mconfig"
	"github.com/open-moniker/moniker-client/pkg/merrors"
	"github.com/open-moniker/moniker-client/pkg/mlog"
	"github.com/open-moniker/moniker-client/pkg/mmodel"
)

// Adapter is the generic-SQL (MSSQL-class) adapter. Like the relational
// adapter it caches live connections keyed by "user@dsn", but its query
// rewrite drops temporal injection entirely.
type Adapter struct {
	logger mlog.Logger

	mu    sync.Mutex
	conns map[string]*sql.DB
}

// New builds an Adapter. logger may be nil.
func New(logger mlog.Logger) *Adapter {
	if logger == nil {
		logger = mlog.NopLogger{}
	}
	return &Adapter{logger: logger, conns: make(map[string]*sql.DB)}
}

func buildDSN(conn map[string]any) (string, error) {
	server, _ := conn["server"].(string)
	if server == "" {
		server = "localhost"
	}

	port := 1433
	switch p := conn["port"].(type) {
	case int:
		port = p
	case float64:
		port = int(p)
	}

	database, _ := conn["database"].(string)
	if database == "" {
		return "", &merrors.ConfigurationError{Option: "connection", Message: "mssql database required"}
	}

	return fmt.Sprintf("server=%s;port=%d;database=%s", server, port, database), nil
}

func credentials(binding mmodel.ResolvedSource, cfg *mconfig.Config) (string, string, error) {
	user, _ := binding.Params["mssql_user"].(string)
	if user == "" && cfg != nil {
		user, _ = cfg.GetCredential("mssql", "user")
	}

	password, _ := binding.Params["mssql_password"].(string)
	if password == "" && cfg != nil {
		password, _ = cfg.GetCredential("mssql", "password")
	}

	if user == "" || password == "" {
		return "", "", &merrors.AuthenticationFailureError{Message: "mssql credentials not configured"}
	}

	return user, password, nil
}

func (a *Adapter) getConnection(ctx context.Context, dsn, user, password string) (*sql.DB, error) {
	key := user + "@" + dsn

	a.mu.Lock()
	defer a.mu.Unlock()

	if db, ok := a.conns[key]; ok {
		if err := db.PingContext(ctx); err == nil {
			return db, nil
		}
		db.Close()
		delete(a.conns, key)
	}

	connStr := fmt.Sprintf("%s;user id=%s;password=%s", dsn, user, password)
	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, err
	}

	a.conns[key] = db

	return db, nil
}

// CloseConnections closes every cached connection and clears the cache. It
// is idempotent and swallows per-connection errors.
func (a *Adapter) CloseConnections() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, db := range a.conns {
		_ = db.Close()
		delete(a.conns, key)
	}
}

// BuildQuery applies filter and limit injection only; unlike the relational
// adapter it never inspects as_of/moniker_version.
func BuildQuery(query string, params map[string]any) string {
	if query == "" {
		return ""
	}

	if filters := extractFilters(params); len(filters) > 0 {
		query = injectWhere(query, filters)
	}

	if limit, ok := params["limit"]; ok {
		query = injectLimit(query, limit)
	}

	return query
}

func (a *Adapter) Fetch(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config, extra map[string]any) (*mmodel.AdapterResult, error) {
	start := time.Now()

	dsn, err := buildDSN(binding.Connection)
	if err != nil {
		return nil, err
	}

	user, password, err := credentials(binding, cfg)
	if err != nil {
		return nil, err
	}

	if binding.Query == "" {
		return nil, &merrors.ConfigurationError{Option: "query", Message: "no query provided for generic-sql source"}
	}

	query := BuildQuery(binding.Query, binding.Params)

	db, err := a.getConnection(ctx, dsn, user, password)
	if err != nil {
		return nil, &merrors.FetchError{Path: binding.Path, Err: err}
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, &merrors.FetchError{Path: binding.Path, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &merrors.FetchError{Path: binding.Path, Err: err}
	}

	data, err := scanRows(rows, columns)
	if err != nil {
		return nil, &merrors.FetchError{Path: binding.Path, Err: err}
	}

	return &mmodel.AdapterResult{
		Data:            data,
		RowCount:        len(data),
		Columns:         columns,
		ExecutionTimeMS: time.Since(start).Milliseconds(),
		SourceType:      mmodel.SourceGenericSQL,
		ExecutedQuery:   query,
	}, nil
}

func scanRows(rows *sql.Rows, columns []string) ([]map[string]any, error) {
	data := make([]map[string]any, 0)

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		data = append(data, row)
	}

	return data, rows.Err()
}

// ListChildren queries INFORMATION_SCHEMA.TABLES, swallowing every error.
func (a *Adapter) ListChildren(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config) []string {
	dsn, err := buildDSN(binding.Connection)
	if err != nil {
		return nil
	}

	user, password, err := credentials(binding, cfg)
	if err != nil {
		return nil
	}

	db, err := a.getConnection(ctx, dsn, user, password)
	if err != nil {
		return nil
	}

	rows, err := db.QueryContext(ctx,
		"SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME")
	if err != nil {
		return nil
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil
		}
		tables = append(tables, name)
	}

	return tables
}

// HealthCheck runs SELECT 1 and never raises.
func (a *Adapter) HealthCheck(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config) mmodel.HealthCheckResult {
	dsn, err := buildDSN(binding.Connection)
	if err != nil {
		return mmodel.HealthCheckResult{Healthy: false, Message: err.Error()}
	}

	user, password, err := credentials(binding, cfg)
	if err != nil {
		return mmodel.HealthCheckResult{Healthy: false, Message: err.Error()}
	}

	start := time.Now()

	db, err := a.getConnection(ctx, dsn, user, password)
	if err != nil {
		return mmodel.HealthCheckResult{Healthy: false, Message: err.Error(), LatencyMS: time.Since(start).Milliseconds()}
	}

	if _, err := db.ExecContext(ctx, "SELECT 1"); err != nil {
		return mmodel.HealthCheckResult{Healthy: false, Message: err.Error(), LatencyMS: time.Since(start).Milliseconds()}
	}

	return mmodel.HealthCheckResult{
		Healthy:   true,
		Message:   "connected successfully",
		LatencyMS: time.Since(start).Milliseconds(),
		Details:   map[string]any{"dsn": dsn},
	}
}
