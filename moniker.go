// Package moniker is the client-side runtime of the data-federation
// service: the Moniker value type and fluent navigation, the top-level
// Client that composes the resolution pipeline (cache, retry, circuit
// breaker) with adapter dispatch, telemetry reporting, and deprecation
// awareness.
package moniker

import "strings"

const schemePrefix = "moniker://"

// Moniker is an immutable, normalized path naming a dataset. Two Monikers
// are equal iff their normalized paths are equal. A Moniker constructed
// without an explicit client delegates its data operations to the
// process-default singleton (see Default()).
type Moniker struct {
	path   string
	client *Client
}

// New builds a Moniker from any string form: the optional "moniker://"
// scheme prefix is stripped, and leading/trailing "/" separators are
// trimmed. The returned value delegates to the process-default client.
func New(raw string) Moniker {
	return Moniker{path: normalize(raw)}
}

// NewWithClient is like New but binds c as the Moniker's client, so its
// data operations delegate to c instead of the process-default singleton.
func NewWithClient(raw string, c *Client) Moniker {
	return Moniker{path: normalize(raw), client: c}
}

func normalize(raw string) string {
	s := strings.TrimPrefix(raw, schemePrefix)
	s = strings.Trim(s, "/")
	return s
}

// Path returns the normalized path, with no scheme prefix and no
// leading/trailing separator.
func (m Moniker) Path() string { return m.path }

// URI returns the scheme-prefixed string form, which is also Moniker's
// String form.
func (m Moniker) URI() string { return schemePrefix + m.path }

// String implements fmt.Stringer as the URI form.
func (m Moniker) String() string { return m.URI() }

// Equal reports whether m and other name the same normalized path.
func (m Moniker) Equal(other Moniker) bool { return m.path == other.path }

// Child returns a new Moniker formed by appending subpath after stripping
// its own separators, immutable with respect to m. An empty subpath
// returns m unchanged.
func (m Moniker) Child(subpath string) Moniker {
	sp := strings.Trim(subpath, "/")
	if sp == "" {
		return m
	}

	path := sp
	if m.path != "" {
		path = m.path + "/" + sp
	}

	return Moniker{path: path, client: m.client}
}

// Parent returns the Moniker's parent, or ok=false if m is already the
// root (has no ancestors).
func (m Moniker) Parent() (Moniker, bool) {
	if m.path == "" {
		return Moniker{}, false
	}

	idx := strings.LastIndex(m.path, "/")
	if idx < 0 {
		return Moniker{path: "", client: m.client}, true
	}

	return Moniker{path: m.path[:idx], client: m.client}, true
}

// Ancestors returns every ancestor of m, nearest first, down to (and
// including) the root.
func (m Moniker) Ancestors() []Moniker {
	var out []Moniker

	cur := m
	for {
		parent, ok := cur.Parent()
		if !ok {
			break
		}
		out = append(out, parent)
		cur = parent
	}

	return out
}

// clientOrDefault returns m's bound client, or the process-default
// singleton if none was bound at construction.
func (m Moniker) clientOrDefault() *Client {
	if m.client != nil {
		return m.client
	}
	return Default()
}
