// Package madapter defines the adapter capability contract and the
// process-wide registry dispatching by source-type tag.
package madapter

import (
	"context"

	"github.com/open-moniker/moniker-client/pkg/mconfig"
	"github.com/open-moniker/moniker-client/pkg/mmodel"
)

// Adapter is the capability set every source-type tag must implement. No
// method raises on a health check or a children listing; both swallow
// errors per contract.
type Adapter interface {
	// Fetch executes binding's query against the source and returns the
	// full result envelope; extra recognizes "return_result" to signal
	// whether the caller wants the envelope or just the raw data payload.
	Fetch(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config, extra map[string]any) (*mmodel.AdapterResult, error)

	// ListChildren returns the ordered child names under binding, or an
	// empty slice if the source has none or listing failed.
	ListChildren(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config) []string

	// HealthCheck probes the binding's underlying source. It never raises.
	HealthCheck(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config) mmodel.HealthCheckResult
}

// WantsResult reports whether extra requests the full AdapterResult rather
// than the bare data payload.
func WantsResult(extra map[string]any) bool {
	if extra == nil {
		return false
	}
	v, ok := extra["return_result"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
