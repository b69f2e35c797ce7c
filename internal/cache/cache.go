// Package cache provides small bounded TTL caches for signed blob URLs
// and list query results.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultSize bounds the number of live entries. One verification session
// produces at most a dozen screenshots, so this covers hundreds of
// concurrently viewed sessions.
const DefaultSize = 4096

// URLCache maps blob storage paths to previously signed URLs. Entries
// expire well before the underlying signature does, so a cache hit is
// always still fetchable.
type URLCache struct {
	lru *expirable.LRU[string, string]
}

// New builds a cache whose entries expire after ttl.
func New(ttl time.Duration) *URLCache {
	return NewSized(DefaultSize, ttl)
}

// NewSized builds a cache bounded to at most size entries.
func NewSized(size int, ttl time.Duration) *URLCache {
	return &URLCache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

// Get returns the cached URL for a storage path, if still fresh.
func (c *URLCache) Get(path string) (string, bool) {
	return c.lru.Get(path)
}

// Put records a freshly signed URL for a storage path.
func (c *URLCache) Put(path, url string) {
	c.lru.Add(path, url)
}

// Invalidate drops a single entry.
func (c *URLCache) Invalidate(path string) {
	c.lru.Remove(path)
}

// Clear drops every entry; callers use this to force re-signing.
func (c *URLCache) Clear() {
	c.lru.Purge()
}

// Len reports the number of live entries.
func (c *URLCache) Len() int {
	return c.lru.Len()
}

// ListCache caches query results keyed by their filter string. Entries
// expire on their own after ttl; writers call Purge when the underlying
// data changes so readers never see a stale page longer than one event
// delivery.
type ListCache[V any] struct {
	lru *expirable.LRU[string, V]
}

// NewList builds a list cache bounded to size entries expiring after ttl.
func NewList[V any](size int, ttl time.Duration) *ListCache[V] {
	return &ListCache[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

// Get returns the cached result for a filter key, if still fresh.
func (c *ListCache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

// Put records a result for a filter key.
func (c *ListCache[V]) Put(key string, value V) {
	c.lru.Add(key, value)
}

// Purge drops every entry. Called whenever the underlying data changes;
// list filters overlap too much for per-key invalidation to be worth it.
func (c *ListCache[V]) Purge() {
	c.lru.Purge()
}

// Len reports the number of live entries.
func (c *ListCache[V]) Len() int {
	return c.lru.Len()
}
