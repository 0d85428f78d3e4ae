package moniker

import (
	"context"

	"github.com/open-moniker/moniker-client/pkg/mmodel"
)

// Read dispatches to Client.Read: resolve m, then fetch through the
// matching adapter.
func (m Moniker) Read(ctx context.Context, extra map[string]any) (any, error) {
	return m.clientOrDefault().Read(ctx, m, extra)
}

// Fetch dispatches to Client.FetchServerSide: GET /fetch/{path} against the
// resolver itself, rather than a client-side adapter.
func (m Moniker) Fetch(ctx context.Context, limit int, extra map[string]string) (mmodel.FetchResult, error) {
	return m.clientOrDefault().FetchServerSide(ctx, m, limit, extra)
}

// Describe dispatches to Client.Describe.
func (m Moniker) Describe(ctx context.Context) (map[string]any, error) {
	return m.clientOrDefault().Describe(ctx, m)
}

// Metadata dispatches to Client.Metadata.
func (m Moniker) Metadata(ctx context.Context) (mmodel.MetadataResult, error) {
	return m.clientOrDefault().Metadata(ctx, m)
}

// Sample dispatches to Client.Sample.
func (m Moniker) Sample(ctx context.Context, limit int) (mmodel.SampleResult, error) {
	return m.clientOrDefault().Sample(ctx, m, limit)
}

// Resolve dispatches to Client.Resolve.
func (m Moniker) Resolve(ctx context.Context) (mmodel.ResolvedSource, error) {
	return m.clientOrDefault().Resolve(ctx, m)
}

// Lineage dispatches to Client.Lineage.
func (m Moniker) Lineage(ctx context.Context) (map[string]any, error) {
	return m.clientOrDefault().Lineage(ctx, m)
}

// Children dispatches to Client.ListChildren.
func (m Moniker) Children(ctx context.Context) ([]string, error) {
	return m.clientOrDefault().ListChildren(ctx, m)
}

// Tree dispatches to Client.Tree.
func (m Moniker) Tree(ctx context.Context, depth int) (mmodel.TreeNode, error) {
	return m.clientOrDefault().Tree(ctx, m, depth)
}

// Schema dispatches to Client.Schema.
func (m Moniker) Schema(ctx context.Context) (mmodel.SchemaInfo, error) {
	return m.clientOrDefault().Schema(ctx, m)
}

// ---- free functions over the process-default client ----

// Read builds a Moniker from raw and reads it through the process-default
// Client.
func Read(ctx context.Context, raw string, extra map[string]any) (any, error) {
	return New(raw).Read(ctx, extra)
}

// Fetch builds a Moniker from raw and server-side-fetches it through the
// process-default Client.
func Fetch(ctx context.Context, raw string, limit int, extra map[string]string) (mmodel.FetchResult, error) {
	return New(raw).Fetch(ctx, limit, extra)
}

// Metadata builds a Moniker from raw and fetches its metadata through the
// process-default Client.
func Metadata(ctx context.Context, raw string) (mmodel.MetadataResult, error) {
	return New(raw).Metadata(ctx)
}
