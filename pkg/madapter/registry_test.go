package madapter

import (
	"context"
	"testing"

	"github.com/open-moniker/moniker-client/pkg/mconfig"
	"github.com/open-moniker/moniker-client/pkg/mmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct{}

func (stubAdapter) Fetch(ctx context.Context, b mmodel.ResolvedSource, cfg *mconfig.Config, extra map[string]any) (*mmodel.AdapterResult, error) {
	return &mmodel.AdapterResult{Data: "ok"}, nil
}

func (stubAdapter) ListChildren(ctx context.Context, b mmodel.ResolvedSource, cfg *mconfig.Config) []string {
	return nil
}

func (stubAdapter) HealthCheck(ctx context.Context, b mmodel.ResolvedSource, cfg *mconfig.Config) mmodel.HealthCheckResult {
	return mmodel.HealthCheckResult{Healthy: true}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("rest", stubAdapter{})

	a, ok := r.Lookup("rest")
	require.True(t, ok)

	res, err := a.Fetch(context.Background(), mmodel.ResolvedSource{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Data)
}

func TestRegistryLookupMiss(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("nonexistent")
	assert.False(t, ok)
}

func TestWantsResult(t *testing.T) {
	assert.False(t, WantsResult(nil))
	assert.False(t, WantsResult(map[string]any{"return_result": false}))
	assert.True(t, WantsResult(map[string]any{"return_result": true}))
}
