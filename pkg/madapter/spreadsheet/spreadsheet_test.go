package spreadsheet

import (
	"context"
	"testing"

	"github.com/open-moniker/moniker-client/pkg/mconfig"
	"github.com/open-moniker/moniker-client/pkg/mmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchInlineRowsAppliesFilterAndLimit(t *testing.T) {
	a := New(nil)
	binding := mmodel.ResolvedSource{
		Connection: map[string]any{
			"rows": []any{
				map[string]any{"region": "us-east", "id": 1},
				map[string]any{"region": "us-west", "id": 2},
				map[string]any{"region": "us-east", "id": 3},
			},
		},
		Params: map[string]any{"region": "us-east", "limit": 1},
	}

	result, err := a.Fetch(context.Background(), binding, mconfig.Defaults(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
	assert.Equal(t, mmodel.SourceStatic, result.SourceType)
}

func TestFetchInlineRowsAppliesOffset(t *testing.T) {
	a := New(nil)
	binding := mmodel.ResolvedSource{
		Connection: map[string]any{
			"rows": []any{
				map[string]any{"id": 1},
				map[string]any{"id": 2},
				map[string]any{"id": 3},
			},
		},
		Params: map[string]any{"offset": 2},
	}

	result, err := a.Fetch(context.Background(), binding, mconfig.Defaults(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
}

func TestFetchMissingFilePathErrors(t *testing.T) {
	a := New(nil)
	_, err := a.Fetch(context.Background(), mmodel.ResolvedSource{}, mconfig.Defaults(), nil)
	require.Error(t, err)
}

func TestListChildrenStaticReturnsRowKeys(t *testing.T) {
	a := New(nil)
	binding := mmodel.ResolvedSource{
		Connection: map[string]any{
			"rows": []any{map[string]any{"id": 1, "name": "a"}},
		},
	}
	got := a.ListChildren(context.Background(), binding, mconfig.Defaults())
	assert.Equal(t, []string{"id", "name"}, got)
}

func TestHealthCheckStaticHealthyWhenRowsPresent(t *testing.T) {
	a := New(nil)
	binding := mmodel.ResolvedSource{
		Connection: map[string]any{"rows": []any{map[string]any{"id": 1}}},
	}
	result := a.HealthCheck(context.Background(), binding, mconfig.Defaults())
	assert.True(t, result.Healthy)
}

func TestHealthCheckMissingFilePathNeverRaises(t *testing.T) {
	a := New(nil)
	result := a.HealthCheck(context.Background(), mmodel.ResolvedSource{}, mconfig.Defaults())
	assert.False(t, result.Healthy)
	assert.Equal(t, "file_path not configured", result.Message)
}
