package embedding

import (
	"container/list"
	"sync"
)

// CacheStats counts lookups served by an EmbeddingCache.
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// EmbeddingCache keeps the most recently used text embeddings. Vectors are copied on the
// way in and out, so callers may modify what they pass or receive.
type EmbeddingCache struct {
	mu      sync.Mutex
	limit   int
	order   *list.List // front is most recent
	entries map[string]*list.Element
	hits    uint64
	misses  uint64
}

type cached struct {
	text   string
	vector []float32
}

// NewEmbeddingCache returns a cache holding at most limit vectors. limit <= 0 disables it.
func NewEmbeddingCache(limit int) *EmbeddingCache {
	return &EmbeddingCache{
		limit:   limit,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Get returns the vector stored for text.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return cloneVector(el.Value.(*cached).vector), true
}

// Set stores vector for text, dropping the least recently used entry when full.
func (c *EmbeddingCache) Set(text string, vector []float32) {
	if c.limit <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[text]; ok {
		el.Value.(*cached).vector = cloneVector(vector)
		c.order.MoveToFront(el)
		return
	}
	c.entries[text] = c.order.PushFront(&cached{text: text, vector: cloneVector(vector)})
	for c.order.Len() > c.limit {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.entries, last.Value.(*cached).text)
	}
}

// Len returns the number of cached vectors.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns hit and miss counts since creation.
func (c *EmbeddingCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Entries: c.order.Len()}
}

func cloneVector(v []float32) []float32 {
	return append([]float32(nil), v...)
}
