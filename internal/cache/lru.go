// Package cache provides score result caching and per-tenant counters.
//
// Score results are deterministic functions of the profile, so they are
// cached under the profile fingerprint and never need invalidation beyond
// their TTL.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/opensource-finance/fhi/internal/domain"
)

// LRUCache is a thread-safe, size-bounded cache with per-entry TTL.
// Used for single-node deployments and as L1 in two-phase caching.
type LRUCache struct {
	mu       sync.Mutex
	maxSize  int
	items    map[string]*list.Element
	order    *list.List // front is most recently used
	counters map[string]*counterEntry
	now      func() time.Time
}

type cacheEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

type counterEntry struct {
	count     int64
	expiresAt time.Time
}

// NewLRUCache creates an LRU cache holding at most maxSize entries.
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &LRUCache{
		maxSize:  maxSize,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		counters: make(map[string]*counterEntry),
		now:      time.Now,
	}
}

// Get returns the value for key, or nil on a miss or expiry.
func (c *LRUCache) Get(_ context.Context, tenantID string, key string) ([]byte, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	fullKey := tenantID + ":" + key

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[fullKey]
	if !ok {
		return nil, nil
	}
	entry := elem.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.remove(elem)
		return nil, nil
	}
	c.order.MoveToFront(elem)
	return entry.value, nil
}

// Set stores value under key for ttl, evicting least recently used entries
// once the cache is full.
func (c *LRUCache) Set(_ context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	if tenantID == "" {
		return ErrTenantRequired
	}
	fullKey := tenantID + ":" + key
	expiresAt := c.now().Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[fullKey]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return nil
	}

	c.items[fullKey] = c.order.PushFront(&cacheEntry{key: fullKey, value: value, expiresAt: expiresAt})
	for c.order.Len() > c.maxSize {
		c.remove(c.order.Back())
	}
	return nil
}

// Delete removes key.
func (c *LRUCache) Delete(_ context.Context, tenantID string, key string) error {
	if tenantID == "" {
		return ErrTenantRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[tenantID+":"+key]; ok {
		c.remove(elem)
	}
	return nil
}

// GetResult returns the cached result for a profile fingerprint.
func (c *LRUCache) GetResult(ctx context.Context, tenantID string, fingerprint string) (*domain.ScoreResult, error) {
	b, err := c.Get(ctx, tenantID, resultKey(fingerprint))
	if err != nil {
		return nil, err
	}
	return decodeResult(b)
}

// SetResult caches a result under a profile fingerprint.
func (c *LRUCache) SetResult(ctx context.Context, tenantID string, fingerprint string, result *domain.ScoreResult, ttl time.Duration) error {
	b, err := encodeResult(result)
	if err != nil {
		return err
	}
	return c.Set(ctx, tenantID, resultKey(fingerprint), b, ttl)
}

// IncrementCounter increments a fixed-window counter. The window starts at
// the first increment and the counter resets once it elapses.
func (c *LRUCache) IncrementCounter(_ context.Context, tenantID string, key string, window time.Duration) (int64, error) {
	if tenantID == "" {
		return 0, ErrTenantRequired
	}
	fullKey := tenantID + ":" + counterPrefix + key
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.counters[fullKey]
	if !ok || now.After(entry.expiresAt) {
		c.sweepCounters(now)
		c.counters[fullKey] = &counterEntry{count: 1, expiresAt: now.Add(window)}
		return 1, nil
	}
	entry.count++
	return entry.count, nil
}

// sweepCounters drops expired windows so idle tenants do not accumulate.
func (c *LRUCache) sweepCounters(now time.Time) {
	for k, e := range c.counters {
		if now.After(e.expiresAt) {
			delete(c.counters, k)
		}
	}
}

// Ping always succeeds.
func (c *LRUCache) Ping(context.Context) error {
	return nil
}

// Close drops every entry.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order = list.New()
	c.counters = make(map[string]*counterEntry)
	return nil
}

// Stats returns the current entry count and capacity.
func (c *LRUCache) Stats() (size int, capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len(), c.maxSize
}

func (c *LRUCache) remove(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*cacheEntry).key)
}
