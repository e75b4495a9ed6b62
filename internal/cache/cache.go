// Package cache holds the per-screen working set of entities.
//
// A Cache is owned by exactly one mounted view and is only touched from the
// event loop goroutine, so it carries no locks. Nothing is shared between
// screens: a remounted view starts from an empty cache and refetches.
package cache

// Cache is an insertion-ordered map from entity id to last-known state.
type Cache[K comparable, V any] struct {
	order []K
	items map[K]V
}

// New returns an empty cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{items: make(map[K]V)}
}

// Get returns the entry for k.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	v, ok := c.items[k]
	return v, ok
}

// Put inserts or overwrites k. New keys are appended to the order.
func (c *Cache[K, V]) Put(k K, v V) {
	if _, ok := c.items[k]; !ok {
		c.order = append(c.order, k)
	}
	c.items[k] = v
}

// Update applies fn to the entry for k and stores the result.
// It reports false and does nothing when k is absent.
func (c *Cache[K, V]) Update(k K, fn func(V) V) bool {
	v, ok := c.items[k]
	if !ok {
		return false
	}
	c.items[k] = fn(v)
	return true
}

// Delete removes k.
func (c *Cache[K, V]) Delete(k K) {
	if _, ok := c.items[k]; !ok {
		return
	}
	delete(c.items, k)
	for i, o := range c.order {
		if o == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Replace discards the current contents and loads vs in order.
func (c *Cache[K, V]) Replace(vs []V, key func(V) K) {
	c.Clear()
	for _, v := range vs {
		c.Put(key(v), v)
	}
}

// Values returns a copy of the entries in insertion order.
func (c *Cache[K, V]) Values() []V {
	out := make([]V, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.items[k])
	}
	return out
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int { return len(c.order) }

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.order = nil
	c.items = make(map[K]V)
}
