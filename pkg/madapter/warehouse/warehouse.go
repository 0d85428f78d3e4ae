// Package warehouse implements the warehouse (Snowflake-class) adapter:
// account/warehouse/database/schema connection parameters, user+password or
// user+private-key-file credentials, and per-call connection lifecycle.
//
// The pool is opened through database/sql against github.com/lib/pq. SHOW
// TABLES parsing and the open/close-per-call discipline are adapter-level
// logic independent of the underlying driver.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/open-moniker/moniker-client/pkg/mconfig"
	"github.com/open-moniker/moniker-client/pkg/merrors"
	"github.com/open-moniker/moniker-client/pkg/mlog"
	"github.com/open-moniker/moniker-client/pkg/mmodel"
)

// Adapter is the warehouse (Snowflake-class) adapter.
type Adapter struct {
	logger mlog.Logger
}

// New builds an Adapter. logger may be nil.
func New(logger mlog.Logger) *Adapter {
	if logger == nil {
		logger = mlog.NopLogger{}
	}
	return &Adapter{logger: logger}
}

type connParams struct {
	account   string
	warehouse string
	database  string
	schema    string
	role      string
}

func buildConnParams(conn map[string]any) (connParams, error) {
	account, _ := conn["account"].(string)
	warehouse, _ := conn["warehouse"].(string)
	database, _ := conn["database"].(string)
	schema, _ := conn["schema"].(string)
	role, _ := conn["role"].(string)

	if schema == "" {
		schema = "PUBLIC"
	}

	if account == "" || warehouse == "" || database == "" {
		return connParams{}, &merrors.ConfigurationError{Option: "connection", Message: "warehouse account/warehouse/database required"}
	}

	return connParams{account: account, warehouse: warehouse, database: database, schema: schema, role: role}, nil
}

// credentials resolves user+password OR user+private-key-path. When only a
// key-file is configured the password is omitted entirely from the
// connection call rather than passed as empty.
func credentials(cfg *mconfig.Config) (user, password, privateKeyPath string, err error) {
	if cfg == nil {
		return "", "", "", &merrors.AuthenticationFailureError{Message: "snowflake credentials not configured"}
	}

	user = cfg.SnowflakeUser
	if user == "" {
		return "", "", "", &merrors.AuthenticationFailureError{Message: "snowflake credentials not configured"}
	}

	if cfg.SnowflakePassword == "" && cfg.SnowflakePrivateKeyPath != "" {
		return user, "", cfg.SnowflakePrivateKeyPath, nil
	}

	if cfg.SnowflakePassword == "" {
		return "", "", "", &merrors.AuthenticationFailureError{Message: "snowflake credentials not configured"}
	}

	return user, cfg.SnowflakePassword, "", nil
}

func dataSourceName(cp connParams, user, password, privateKeyPath string) string {
	dsn := fmt.Sprintf("user=%s dbname=%s host=%s.snowflakecomputing.com sslmode=require", user, cp.database, cp.account)
	if password != "" {
		dsn += fmt.Sprintf(" password=%s", password)
	}
	if privateKeyPath != "" {
		dsn += fmt.Sprintf(" sslkey=%s", privateKeyPath)
	}
	dsn += fmt.Sprintf(" options='--warehouse=%s --search_path=%s'", cp.warehouse, cp.schema)
	if cp.role != "" {
		dsn += fmt.Sprintf(" options='--role=%s'", cp.role)
	}
	return dsn
}

func (a *Adapter) open(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config) (*sql.DB, error) {
	cp, err := buildConnParams(binding.Connection)
	if err != nil {
		return nil, err
	}

	user, password, keyPath, err := credentials(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dataSourceName(cp, user, password, keyPath))
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Fetch opens a connection, executes the query, and closes the connection
// on every exit path, including failure.
func (a *Adapter) Fetch(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config, extra map[string]any) (*mmodel.AdapterResult, error) {
	start := time.Now()

	if binding.Query == "" {
		return nil, &merrors.ConfigurationError{Option: "query", Message: "no query provided for warehouse source"}
	}

	db, err := a.open(ctx, binding, cfg)
	if err != nil {
		return nil, &merrors.FetchError{Path: binding.Path, Err: err}
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, binding.Query)
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
		SourceType:      mmodel.SourceWarehouse,
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

// ListChildren runs SHOW TABLES and returns the second column of each row.
// It swallows every error, per contract.
func (a *Adapter) ListChildren(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config) []string {
	db, err := a.open(ctx, binding, cfg)
	if err != nil {
		return nil
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil || len(columns) < 2 {
		return nil
	}

	var names []string
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil
		}
		if name, ok := values[1].(string); ok {
			names = append(names, name)
		} else if b, ok := values[1].([]byte); ok {
			names = append(names, string(b))
		}
	}

	return names
}

// HealthCheck never raises.
func (a *Adapter) HealthCheck(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config) mmodel.HealthCheckResult {
	start := time.Now()

	db, err := a.open(ctx, binding, cfg)
	if err != nil {
		return mmodel.HealthCheckResult{Healthy: false, Message: err.Error(), LatencyMS: time.Since(start).Milliseconds()}
	}
	defer db.Close()

	return mmodel.HealthCheckResult{
		Healthy:   true,
		Message:   "connected successfully",
		LatencyMS: time.Since(start).Milliseconds(),
	}
}
