package relational

import (
	"testing"

	"github.com/open-moniker/moniker-client/pkg/mconfig"
	"github.com/open-moniker/moniker-client/pkg/merrors"
	"github.com/open-moniker/moniker-client/pkg/mmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSNFromExplicitDSN(t *testing.T) {
	dsn, err := buildDSN(map[string]any{"dsn": "myhost:1521/orcl"})
	require.NoError(t, err)
	assert.Equal(t, "myhost:1521/orcl", dsn)
}

func TestBuildDSNFromHostPortService(t *testing.T) {
	dsn, err := buildDSN(map[string]any{"service_name": "orcl"})
	require.NoError(t, err)
	assert.Equal(t, "localhost:1521/orcl", dsn)
}

func TestBuildDSNMissingServiceNameErrors(t *testing.T) {
	_, err := buildDSN(map[string]any{})
	require.Error(t, err)
	var cfgErr *merrors.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestCredentialsPrefersParamsOverConfig(t *testing.T) {
	cfg := mconfig.Defaults()
	cfg.OracleUser = "config-user"
	cfg.OraclePassword = "config-pass"

	binding := mmodel.ResolvedSource{Params: map[string]any{
		"oracle_user":     "param-user",
		"oracle_password": "param-pass",
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

func TestTranslateErrorMapsOracleCodes(t *testing.T) {
	cases := map[string]any{
		"ORA-12541: no listener": &merrors.ConnectionRefusedError{},
		"ORA-01017: invalid":     &merrors.AuthenticationFailureError{},
		"ORA-12170: timeout":     &merrors.TimeoutError{},
		"ORA-00942: table":       &merrors.FetchError{},
	}

	for msg, want := range cases {
		err := translateError(assertError(msg), "host:1521/orcl")
		assert.IsType(t, want, err)
	}
}

func assertError(msg string) error { return errString(msg) }

type errString string

func (e errString) Error() string { return string(e) }

func TestCloseConnectionsIsIdempotent(t *testing.T) {
	a := New(nil)
	a.CloseConnections()
	a.CloseConnections()
}
