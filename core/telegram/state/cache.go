package state

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/m3rciful/gobot-ui/core/metrics"
)

const (
	// DefaultCacheSize and DefaultCacheTTL size the process-wide data cache.
	DefaultCacheSize = 128
	DefaultCacheTTL  = time.Hour
)

// LayoutKeyPrefix marks data keys owned by the layout machinery. Plain FSM views
// neither show nor overwrite them.
const LayoutKeyPrefix = "__lt_ctx:"

var sharedCache = NewCache(DefaultCacheSize, DefaultCacheTTL)

// SharedCache is the process-wide cache used when no other is configured.
func SharedCache() *Cache { return sharedCache }

func withoutReserved(d Data) Data {
	out := make(Data, len(d))
	for k, v := range d {
		if !strings.HasPrefix(k, LayoutKeyPrefix) {
			out[k] = v
		}
	}
	return out
}

// Cache remembers the last known data per key. It is shared between updates and
// goroutines; the LRU does its own locking.
type Cache struct {
	lru *expirable.LRU[Key, Data]
}

// NewCache builds a cache holding at most size keys for ttl each.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{lru: expirable.NewLRU[Key, Data](size, nil, ttl)}
}

// Get returns a copy of the cached data.
func (c *Cache) Get(key Key) (Data, bool) {
	d, ok := c.lru.Get(key)
	if !ok {
		metrics.StateCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.StateCache.WithLabelValues("hit").Inc()
	return d.Clone(), true
}

// Put stores a copy of data.
func (c *Cache) Put(key Key, data Data) {
	c.lru.Add(key, data.Clone())
}

// Forget drops key.
func (c *Cache) Forget(key Key) {
	c.lru.Remove(key)
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Load returns the cached data for key, reading through to s on a miss.
func (c *Cache) Load(ctx context.Context, s Storage, key Key) (Data, error) {
	if d, ok := c.Get(key); ok {
		return d, nil
	}
	d, err := s.Data(ctx, key)
	if err != nil {
		return nil, err
	}
	c.Put(key, d)
	return d.Clone(), nil
}
