// Package memo provides a bounded memoization cache.
package memo

// Stats counts cache activity since creation.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Flushes uint64
}

// Cache memoizes fn. When an insert would exceed the capacity the whole
// cache is cleared first. Not safe for concurrent use; each owner keeps
// its own.
type Cache[K comparable, V any] struct {
	capacity int
	fn       func(K) V
	entries  map[K]V
	stats    Stats
}

func New[K comparable, V any](capacity int, fn func(K) V) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache[K, V]{
		capacity: capacity,
		fn:       fn,
		entries:  make(map[K]V, capacity),
	}
}

func (c *Cache[K, V]) Get(key K) V {
	if v, ok := c.entries[key]; ok {
		c.stats.Hits++
		return v
	}
	c.stats.Misses++
	if len(c.entries) >= c.capacity {
		clear(c.entries)
		c.stats.Flushes++
	}
	v := c.fn(key)
	c.entries[key] = v
	return v
}

func (c *Cache[K, V]) Len() int      { return len(c.entries) }
func (c *Cache[K, V]) Capacity() int { return c.capacity }
func (c *Cache[K, V]) Stats() Stats  { return c.stats }
