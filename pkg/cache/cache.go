package cache

import (
	"context"
	"sync"
	"time"
)

type item[V any] struct {
	value      V
	expiration int64
}

func (i item[V]) expired(now int64) bool {
	return i.expiration > 0 && now > i.expiration
}

// Options configures a Cache
type Options struct {
	// TTL is the default expiration; zero means entries never expire
	TTL time.Duration
	// CleanupInterval is how often expired entries are purged; zero disables the purge loop
	CleanupInterval time.Duration
	// MaxItems bounds the cache size; zero means unbounded
	MaxItems int
}

// Cache is a thread-safe in-memory cache with expiration
type Cache[K comparable, V any] struct {
	items     map[K]item[V]
	mu        sync.RWMutex
	opts      Options
	onEvicted func(K, V)
}

// New creates a cache. When CleanupInterval is set the purge loop runs until ctx is cancelled.
func New[K comparable, V any](ctx context.Context, opts Options) *Cache[K, V] {
	c := &Cache[K, V]{
		items: make(map[K]item[V]),
		opts:  opts,
	}

	if opts.CleanupInterval > 0 {
		go c.startCleanupTimer(ctx)
	}

	return c
}

// Set adds an item to the cache with the default expiration
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithExpiration(key, value, c.opts.TTL)
}

// SetWithExpiration adds an item to the cache with a specific expiration time
func (c *Cache[K, V]) SetWithExpiration(key K, value V, d time.Duration) {
	var exp int64
	if d > 0 {
		exp = time.Now().Add(d).UnixNano()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.opts.MaxItems > 0 && len(c.items) >= c.opts.MaxItems {
		c.evictOldest()
	}

	c.items[key] = item[V]{value: value, expiration: exp}
}

// Get retrieves an item from the cache
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, found := c.items[key]
	if !found || it.expired(time.Now().UnixNano()) {
		var zero V
		return zero, false
	}

	return it.value, true
}

// Delete removes an item from the cache
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if it, found := c.items[key]; found && c.onEvicted != nil {
		c.onEvicted(key, it.value)
	}

	delete(c.items, key)
}

// Flush removes all items from the cache
func (c *Cache[K, V]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvicted != nil {
		for k, v := range c.items {
			c.onEvicted(k, v.value)
		}
	}

	c.items = make(map[K]item[V])
}

// Count returns the number of items in the cache (including expired items)
func (c *Cache[K, V]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// SetOnEvicted sets the callback to be called when an item is evicted
func (c *Cache[K, V]) SetOnEvicted(f func(K, V)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onEvicted = f
}

func (c *Cache[K, V]) startCleanupTimer(ctx context.Context) {
	ticker := time.NewTicker(c.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.deleteExpired()
		}
	}
}

func (c *Cache[K, V]) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	for k, v := range c.items {
		if v.expired(now) {
			if c.onEvicted != nil {
				c.onEvicted(k, v.value)
			}
			delete(c.items, k)
		}
	}
}

// evictOldest removes the entry closest to expiry. Caller holds the lock.
func (c *Cache[K, V]) evictOldest() {
	var (
		oldestKey  K
		oldestTime int64
		found      bool
	)

	for k, v := range c.items {
		if !found || (v.expiration != 0 && (oldestTime == 0 || v.expiration < oldestTime)) {
			oldestKey = k
			oldestTime = v.expiration
			found = true
		}
	}

	if !found {
		return
	}

	if c.onEvicted != nil {
		c.onEvicted(oldestKey, c.items[oldestKey].value)
	}
	delete(c.items, oldestKey)
}
