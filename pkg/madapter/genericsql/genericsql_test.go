package genericsql

import (
	"testing"

	"github.com/open-moniker/moniker-client/pkg/mconfig"
	"github.com/open-moniker/moniker-client/pkg/merrors"
	"github.com/open-moniker/moniker-client/pkg/mmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSNDefaultsServerAndPort(t *testing.T) {
	dsn, err := buildDSN(map[string]any{"database": "analytics"})
	require.NoError(t, err)
	assert.Equal(t, "server=localhost;port=1433;database=analytics", dsn)
}

func TestBuildDSNMissingDatabaseErrors(t *testing.T) {
	_, err := buildDSN(map[string]any{})
	require.Error(t, err)
	var cfgErr *merrors.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestCredentialsPrefersParamsOverConfig(t *testing.T) {
	cfg := mconfig.Defaults()
	cfg.MSSQLUser = "config-user"
	cfg.MSSQLPassword = "config-pass"

	binding := mmodel.ResolvedSource{Params: map[string]any{
		"mssql_user":     "param-user",
		"mssql_password": "param-pass",
	}}

	user, password, err := credentials(binding, cfg)
	require.NoError(t, err)
	assert.Equal(t, "param-user", user)
	assert.Equal(t, "param-pass", password)
}

func TestCredentialsMissingReturnsAuthFailure(t *testing.T) {
	_, _, err := credentials(mmodel.ResolvedSource{}, mconfig.Defaults())
	require.Error(t, err)
	var authErr *merrors.AuthenticationFailureError
	assert.ErrorAs(t, err, &authErr)
}

func TestBuildQueryHasNoTemporalSupport(t *testing.T) {
	query := "SELECT * FROM employees"
	got := BuildQuery(query, map[string]any{"as_of": "2024-01-15 10:30:00"})
	assert.Equal(t, query, got)
}

func TestBuildQueryAppliesFilterAndLimit(t *testing.T) {
	query := "SELECT * FROM employees"
	got := BuildQuery(query, map[string]any{"dept_id": 10, "limit": 50})
	assert.Equal(t, "SELECT * FROM employees WHERE dept_id = 10 ORDER BY (SELECT NULL) OFFSET 0 ROWS FETCH NEXT 50 ROWS ONLY", got)
}

func TestBuildQueryEmptySequenceFilterDropped(t *testing.T) {
	query := "SELECT * FROM employees"
	got := BuildQuery(query, map[string]any{"tags": []any{}})
	assert.Equal(t, query, got)
}

func TestBuildQueryNoLimitInjectedWhenOffsetPresent(t *testing.T) {
	query := "SELECT * FROM employees ORDER BY id OFFSET 0 ROWS FETCH NEXT 5 ROWS ONLY"
	got := BuildQuery(query, map[string]any{"limit": 100})
	assert.Equal(t, query, got)
}

func TestCloseConnectionsIsIdempotent(t *testing.T) {
	a := New(nil)
	a.CloseConnections()
	a.CloseConnections()
}
