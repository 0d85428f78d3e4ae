package mcache

import (
	"sync"
	"testing"
	"time"

	"github.com/open-moniker/moniker-client/pkg/mmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheHitWithinTTL(t *testing.T) {
	c := New(time.Minute)
	binding := mmodel.ResolvedSource{Moniker: "moniker://a/b", Path: "a/b"}
	c.Put("moniker://a/b", binding)

	got, ok := c.Get("moniker://a/b")
	require.True(t, ok)
	assert.Equal(t, binding, got)
}

func TestCacheMissAfterExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Put("moniker://a/b", mmodel.ResolvedSource{Path: "a/b"})

	frozen := time.Now().Add(time.Second)
	c.now = func() time.Time { return frozen }

	_, ok := c.Get("moniker://a/b")
	assert.False(t, ok)
}

func TestCacheDisabledWhenTTLZero(t *testing.T) {
	c := New(0)
	c.Put("moniker://a/b", mmodel.ResolvedSource{Path: "a/b"})

	_, ok := c.Get("moniker://a/b")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Put("moniker://x", mmodel.ResolvedSource{Path: "x"})
		}(i)
		go func(i int) {
			defer wg.Done()
			c.Get("moniker://x")
		}(i)
	}

	wg.Wait()
}

func TestCacheFlush(t *testing.T) {
	c := New(time.Minute)
	c.Put("moniker://a", mmodel.ResolvedSource{Path: "a"})
	c.Flush()
	assert.Equal(t, 0, c.Len())
}
