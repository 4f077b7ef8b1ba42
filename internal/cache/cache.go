// Package cache is an explicit keyed cache with TTL expiry and manual
// invalidation. Keys are composed from a query name plus its parameters so
// entries for different users can never collide.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry[V any] struct {
	v   V
	exp time.Time
}

type TTLCache[V any] struct {
	mu   sync.RWMutex
	data map[string]entry[V]
	ttl  time.Duration
}

func NewTTL[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{data: make(map[string]entry[V]), ttl: ttl}
}

// Key joins a query name and its parameters into a cache key.
func Key(name string, params ...string) string {
	return name + "|" + strings.Join(params, "|")
}

func (c *TTLCache[V]) Get(k string) (V, bool) {
	c.mu.RLock()
	e, ok := c.data[k]
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if time.Now().After(e.exp) {
		c.mu.Lock()
		delete(c.data, k)
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.v, true
}

func (c *TTLCache[V]) Set(k string, v V) {
	c.mu.Lock()
	c.data[k] = entry[V]{v: v, exp: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *TTLCache[V]) Invalidate(k string) {
	c.mu.Lock()
	delete(c.data, k)
	c.mu.Unlock()
}

// InvalidatePrefix drops every entry whose key starts with prefix. Used to
// evict derived entries (detail batches) together with their source list.
func (c *TTLCache[V]) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	c.mu.Unlock()
}

func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	c.data = make(map[string]entry[V])
	c.mu.Unlock()
}
