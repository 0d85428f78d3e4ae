package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/open-moniker/moniker-client/pkg/mconfig"
	"github.com/open-moniker/moniker-client/pkg/merrors"
	"github.com/open-moniker/moniker-client/pkg/mlog"
	"github.com/open-moniker/moniker-client/pkg/mmodel"
)

// Adapter is the relational-with-temporal (Oracle-class) adapter. It
// maintains its own cache of live connections keyed by "user@dsn" and
// performs the textual three-pass query rewrite ahead of execution.
//
// The connection pool is opened through database/sql against the jackc/pgx
// driver, registered under the "pgx" name. The rewrite and the error-code
// translation table operate on query text and error strings, so they hold
// regardless of which driver backs the pool.
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
	if dsn, ok := conn["dsn"].(string); ok && dsn != "" {
		return dsn, nil
	}

	host, _ := conn["host"].(string)
	if host == "" {
		host = "localhost"
	}

	port := 1521
	switch p := conn["port"].(type) {
	case int:
		port = p
	case float64:
		port = int(p)
	}

	serviceName, _ := conn["service_name"].(string)
	if serviceName == "" {
		return "", &merrors.ConfigurationError{Option: "dsn", Message: "oracle DSN or host/port/service_name required"}
	}

	return fmt.Sprintf("%s:%d/%s", host, port, serviceName), nil
}

func credentials(binding mmodel.ResolvedSource, cfg *mconfig.Config) (string, string, error) {
	user, _ := binding.Params["oracle_user"].(string)
	if user == "" && cfg != nil {
		user, _ = cfg.GetCredential("oracle", "user")
	}

	password, _ := binding.Params["oracle_password"].(string)
	if password == "" && cfg != nil {
		password, _ = cfg.GetCredential("oracle", "password")
	}

	if user == "" || password == "" {
		return "", "", &merrors.AuthenticationFailureError{Message: "oracle credentials not configured"}
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

	connStr := fmt.Sprintf("postgres://%s:%s@%s", user, password, dsn)
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, translateError(err, dsn)
	}

	a.conns[key] = db

	return db, nil
}

// CloseConnections closes every cached connection and clears the cache.
// Per-connection errors are swallowed; the operation is idempotent.
func (a *Adapter) CloseConnections() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, db := range a.conns {
		_ = db.Close()
		delete(a.conns, key)
	}
}

func translateError(err error, dsn string) error {
	if err == nil {
		return nil
	}

	msg := err.Error()

	switch {
	case strings.Contains(msg, "ORA-12541"):
		return &merrors.ConnectionRefusedError{Message: fmt.Sprintf("no listener at %s", dsn)}
	case strings.Contains(msg, "ORA-01017"):
		return &merrors.AuthenticationFailureError{Message: "oracle authentication failed", Err: err}
	case strings.Contains(msg, "ORA-12170"):
		return &merrors.TimeoutError{Operation: "oracle connect", Err: err}
	case strings.Contains(msg, "ORA-00942"):
		return &merrors.FetchError{Path: dsn, Err: fmt.Errorf("query target missing: %w", err)}
	default:
		return err
	}
}

// Fetch implements madapter.Adapter.
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
		return nil, &merrors.ConfigurationError{Option: "query", Message: "no query provided for relational source"}
	}

	query := BuildQuery(binding.Query, binding.Params)

	db, err := a.getConnection(ctx, dsn, user, password)
	if err != nil {
		return nil, translateError(err, dsn)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, translateError(err, dsn)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, translateError(err, dsn)
	}

	data, err := scanRows(rows, columns)
	if err != nil {
		return nil, translateError(err, dsn)
	}

	result := &mmodel.AdapterResult{
		Data:            data,
		RowCount:        len(data),
		Columns:         columns,
		ExecutionTimeMS: time.Since(start).Milliseconds(),
		SourceType:      mmodel.SourceRelationalTemporal,
		ExecutedQuery:   query,
	}

	return result, nil
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

// ListChildren returns the tables in the connected schema, swallowing every
// error per contract.
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

	rows, err := db.QueryContext(ctx, "SELECT table_name FROM user_tables ORDER BY table_name")
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

// HealthCheck runs SELECT 1 FROM DUAL and never raises.
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

	if _, err := db.ExecContext(ctx, "SELECT 1 FROM DUAL"); err != nil {
		return mmodel.HealthCheckResult{Healthy: false, Message: err.Error(), LatencyMS: time.Since(start).Milliseconds()}
	}

	return mmodel.HealthCheckResult{
		Healthy:   true,
		Message:   "connected successfully",
		LatencyMS: time.Since(start).Milliseconds(),
		Details:   map[string]any{"dsn": dsn},
	}
}
