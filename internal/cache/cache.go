package cache

import (
	"sync"
	"time"
)

const (
	DefaultMaxSize         = 100
	DefaultExpiry          = time.Hour
	DefaultCleanupInterval = 10 * time.Minute
)

type item[V any] struct {
	value     V
	expiresAt time.Time
	storedAt  time.Time
}

func (i *item[V]) expired(now time.Time) bool {
	return now.After(i.expiresAt)
}

// Cache is a bounded in-memory TTL cache. When full, the oldest entry is
// evicted to make room.
type Cache[V any] struct {
	mu            sync.RWMutex
	items         map[string]*item[V]
	maxSize       int
	defaultExpiry time.Duration
	stop          chan struct{}
	closeOnce     sync.Once
	now           func() time.Time
}

// New creates a cache with default settings.
func New[V any]() *Cache[V] {
	return NewWithConfig[V](DefaultMaxSize, DefaultExpiry, DefaultCleanupInterval)
}

// NewWithConfig creates a cache and starts its background sweeper.
func NewWithConfig[V any](maxSize int, defaultExpiry, cleanupInterval time.Duration) *Cache[V] {
	if maxSize < 1 {
		maxSize = 1
	}
	c := &Cache[V]{
		items:         make(map[string]*item[V]),
		maxSize:       maxSize,
		defaultExpiry: defaultExpiry,
		stop:          make(chan struct{}),
		now:           time.Now,
	}
	go c.sweep(cleanupInterval)
	return c
}

func (c *Cache[V]) Set(key string, value V) {
	c.SetWithExpiry(key, value, c.defaultExpiry)
}

func (c *Cache[V]) SetWithExpiry(key string, value V, expiry time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
		c.evictOldest()
	}
	c.items[key] = &item[V]{value: value, expiresAt: now.Add(expiry), storedAt: now}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	it, exists := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !exists {
		return zero, false
	}
	if it.expired(c.now()) {
		c.Delete(key)
		return zero, false
	}
	return it.value, true
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *Cache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the sweeper. Safe to call more than once.
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) sweep(interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, it := range c.items {
		if it.expired(now) {
			delete(c.items, key)
		}
	}
}

// evictOldest must be called with the write lock held.
func (c *Cache[V]) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, it := range c.items {
		if !found || it.storedAt.Before(oldest) {
			oldestKey, oldest, found = key, it.storedAt, true
		}
	}
	if found {
		delete(c.items, oldestKey)
	}
}
