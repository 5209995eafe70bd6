// Package memcache is an in-process LRU page cache for the forecast client.
package memcache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/jonboulle/clockwork"
)

// Cache is a thread-safe LRU of encoded historical pages with a per-entry TTL.
// It implements client.Cache.
type Cache struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu  sync.Mutex
	lru *simplelru.LRU[string, entry]
}

type entry struct {
	value   []byte
	expires time.Time
}

// New creates a cache holding at most maxEntries pages. A zero ttl keeps
// entries until they are evicted.
func New(maxEntries int, ttl time.Duration) *Cache {
	return NewWithClock(maxEntries, ttl, clockwork.NewRealClock())
}

// NewWithClock is New with an injected clock.
func NewWithClock(maxEntries int, ttl time.Duration, clock clockwork.Clock) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	// NewLRU only fails for a non-positive size.
	lru, _ := simplelru.NewLRU[string, entry](maxEntries, nil)
	return &Cache{
		ttl:   ttl,
		clock: clock,
		lru:   lru,
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if c.expired(e) {
		c.lru.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expires time.Time
	if c.ttl > 0 {
		expires = c.clock.Now().Add(c.ttl)
	}
	c.lru.Add(key, entry{value: value, expires: expires})
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache) expired(e entry) bool {
	return !e.expires.IsZero() && !c.clock.Now().Before(e.expires)
}
