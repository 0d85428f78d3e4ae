package moniker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStripsSchemeAndSeparators(t *testing.T) {
	assert.Equal(t, "a/b/c", New("moniker://a/b/c/").Path())
	assert.Equal(t, "a/b/c", New("/a/b/c").Path())
	assert.Equal(t, "a/b/c", New("a/b/c").Path())
}

func TestURIRoundTripsThroughPath(t *testing.T) {
	m := New("a/b/c")
	assert.Equal(t, m.Path(), New(m.URI()).Path())
}

func TestChildThenParentRoundTrips(t *testing.T) {
	m := New("a/b")
	child := m.Child("c")

	parent, ok := child.Parent()
	require.True(t, ok)
	assert.Equal(t, m.Path(), parent.Path())
}

func TestChildWithEmptySubpathIsIdentity(t *testing.T) {
	m := New("a/b")
	assert.True(t, m.Equal(m.Child("")))
}

func TestParentOfRootHasNoParent(t *testing.T) {
	root := New("")
	_, ok := root.Parent()
	assert.False(t, ok)
}

func TestEqualityByNormalizedPath(t *testing.T) {
	a := New("moniker://a/b/")
	b := New("a/b")
	assert.True(t, a.Equal(b))
}

func TestStringFormIsURI(t *testing.T) {
	m := New("a/b")
	assert.Equal(t, m.URI(), m.String())
}

func TestAncestorsOrderedNearestFirst(t *testing.T) {
	m := New("a/b/c")
	ancestors := m.Ancestors()

	require.Len(t, ancestors, 3)
	assert.Equal(t, "a/b", ancestors[0].Path())
	assert.Equal(t, "a", ancestors[1].Path())
	assert.Equal(t, "", ancestors[2].Path())
}
