package relational

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQueryIdentityWithNoParams(t *testing.T) {
	query := "SELECT * FROM employees"
	assert.Equal(t, query, BuildQuery(query, map[string]any{}))
}

func TestBuildQueryTemporalTimestamp(t *testing.T) {
	query := "SELECT * FROM employees"
	params := map[string]any{
		"as_of":   "2024-01-15 10:30:00",
		"dept_id": 10,
		"limit":   100,
	}

	got := BuildQuery(query, params)
	want := "SELECT * FROM employees AS OF TIMESTAMP TO_TIMESTAMP('2024-01-15 10:30:00', 'YYYY-MM-DD HH24:MI:SS') WHERE dept_id = 10 FETCH FIRST 100 ROWS ONLY"
	assert.Equal(t, want, got)
}

func TestBuildQueryTemporalSCN(t *testing.T) {
	query := "SELECT * FROM employees"
	got := BuildQuery(query, map[string]any{"as_of": "12345"})
	assert.Contains(t, got, "AS OF SCN 12345")
}

func TestBuildQueryNoFromClauseUnchanged(t *testing.T) {
	query := "BEGIN NULL; END;"
	got := BuildQuery(query, map[string]any{"as_of": "2024-01-15 10:30:00"})
	assert.Equal(t, query, got)
}

func TestBuildQueryAppendsToExistingWhere(t *testing.T) {
	query := "SELECT * FROM employees WHERE active = 1"
	got := BuildQuery(query, map[string]any{"dept_id": 10})
	assert.Equal(t, "SELECT * FROM employees WHERE dept_id = 10 AND active = 1", got)
}

func TestBuildQueryEmptySequenceFilterDropped(t *testing.T) {
	query := "SELECT * FROM employees"
	got := BuildQuery(query, map[string]any{"tags": []any{}})
	assert.Equal(t, query, got)
}

func TestBuildQueryNoFetchInjectedWhenAlreadyPresent(t *testing.T) {
	query := "SELECT * FROM employees FETCH FIRST 5 ROWS ONLY"
	got := BuildQuery(query, map[string]any{"limit": 100})
	assert.Equal(t, query, got)
}

func TestBuildQueryIdempotent(t *testing.T) {
	query := "SELECT * FROM employees"
	params := map[string]any{"dept_id": 10, "limit": 50}

	once := BuildQuery(query, params)
	twice := BuildQuery(once, params)

	assert.Equal(t, once, twice)
}

func TestBuildQueryIdempotentWithTemporal(t *testing.T) {
	query := "SELECT * FROM employees"
	params := map[string]any{"as_of": "2024-01-15 10:30:00", "dept_id": 10, "limit": 50}

	once := BuildQuery(query, params)
	twice := BuildQuery(once, params)

	assert.Equal(t, once, twice)
}

func TestBuildQueryFiltersFromMonikerParamsNested(t *testing.T) {
	query := "SELECT * FROM employees"
	got := BuildQuery(query, map[string]any{
		"moniker_params": map[string]any{"region": "us-east"},
	})
	assert.Equal(t, "SELECT * FROM employees WHERE region = 'us-east'", got)
}

func TestBuildQueryReservedKeysNeverFiltered(t *testing.T) {
	query := "SELECT * FROM employees"
	got := BuildQuery(query, map[string]any{"order_by": "id", "offset": 5})
	assert.Equal(t, query, got)
}

func TestBuildQueryInClauseForSequence(t *testing.T) {
	query := "SELECT * FROM employees"
	got := BuildQuery(query, map[string]any{"region": []any{"us-east", "us-west"}})
	assert.Equal(t, "SELECT * FROM employees WHERE region IN ('us-east', 'us-west')", got)
}
