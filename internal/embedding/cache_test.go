package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddingCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewEmbeddingCache(2)
	_, ok := c.Get("revenue")
	assert.False(t, ok)

	c.Set("revenue", []float32{1, 2, 3})
	c.Set("costs", []float32{4, 5})
	// touching revenue makes costs the eviction candidate
	v, ok := c.Get("revenue")
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)

	c.Set("headcount", []float32{6})
	_, ok = c.Get("costs")
	assert.False(t, ok, "costs should be evicted")
	_, ok = c.Get("headcount")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())

	assert.Equal(t, CacheStats{Hits: 2, Misses: 2, Entries: 2}, c.Stats())
}

func TestEmbeddingCache_Overwrite(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("a", []float32{2})
	v, _ := c.Get("a")
	assert.Equal(t, []float32{2}, v)
	assert.Equal(t, 1, c.Len())
}

func TestEmbeddingCache_ReturnsCopies(t *testing.T) {
	c := NewEmbeddingCache(1)
	orig := []float32{1, 2}
	c.Set("k", orig)
	orig[0] = 99
	v, _ := c.Get("k")
	assert.Equal(t, float32(1), v[0], "cache aliased caller slice")

	v[1] = 42
	again, _ := c.Get("k")
	assert.Equal(t, float32(2), again[1], "cache returned aliased slice")
}

func TestEmbeddingCache_Disabled(t *testing.T) {
	c := NewEmbeddingCache(0)
	c.Set("a", []float32{1})
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}
