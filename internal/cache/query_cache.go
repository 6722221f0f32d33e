// Package cache provides the in-memory fetch cache for upstream catalog queries.
//
// Each distinct query (object types + attributes) is fetched at most once per
// TTL. Concurrent requests for the same query join the in-flight fetch instead
// of issuing their own. Failed fetches are never cached, so the next request
// for that query goes upstream again.
package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/star/assetlist/internal/catalog"
	"github.com/star/assetlist/internal/metrics"
)

// Config holds cache configuration.
type Config struct {
	Size int           // Max cached queries (default: 32)
	TTL  time.Duration // How long a result stays fresh (default: 5m)
}

// Fetcher issues one upstream query.
type Fetcher interface {
	Fetch(ctx context.Context, q catalog.Query) ([]catalog.ObjectRecord, error)
}

// CacheEntry is one cached query result.
type CacheEntry struct {
	Dataset *catalog.Dataset
}

// QueryCache deduplicates and caches upstream queries.
// Safe for concurrent use by multiple goroutines.
type QueryCache struct {
	entries *expirable.LRU[string, *CacheEntry]
	group   singleflight.Group

	config  Config
	fetcher Fetcher
	store   *catalog.Store
	logger  *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	shared atomic.Int64
}

// NewQueryCache creates a query cache in front of fetcher. Every successful
// fetch also becomes the store's current dataset.
func NewQueryCache(config Config, fetcher Fetcher, store *catalog.Store, logger *slog.Logger) *QueryCache {
	if config.Size <= 0 {
		config.Size = 32
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}

	logger.Info("query cache initialized",
		"size", config.Size,
		"ttl_seconds", config.TTL.Seconds(),
	)

	c := &QueryCache{
		config:  config,
		fetcher: fetcher,
		store:   store,
		logger:  logger,
	}
	c.entries = expirable.NewLRU[string, *CacheEntry](config.Size, func(key string, _ *CacheEntry) {
		logger.Debug("query cache eviction", "key", key)
	}, config.TTL)
	return c
}

// Get returns the dataset for q, fetching it if it is not cached.
// The upstream fetch itself is not cancelled when ctx is; ctx only bounds how
// long this caller waits, and other callers sharing the fetch still get it.
func (c *QueryCache) Get(ctx context.Context, q catalog.Query) (*catalog.Dataset, error) {
	key := q.Key()

	if entry, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		metrics.IncQueryCacheHits()
		return entry.Dataset, nil
	}

	c.misses.Add(1)
	metrics.IncQueryCacheMisses()

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		records, err := c.fetcher.Fetch(fetchCtx, q)
		if err != nil {
			return nil, err
		}
		ds := &catalog.Dataset{
			Query:     q,
			FetchedAt: time.Now(),
			Records:   records,
		}
		c.entries.Add(key, &CacheEntry{Dataset: ds})
		metrics.SetQueryCacheEntries(c.entries.Len())
		if c.store != nil {
			c.store.Set(ds)
		}
		return ds, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.shared.Add(1)
			metrics.IncQueryCacheShared()
		}
		if res.Err != nil {
			c.logger.Warn("query fetch failed", "key", key, "error", res.Err)
			return nil, res.Err
		}
		return res.Val.(*catalog.Dataset), nil
	}
}

// Invalidate drops the cached result for q.
func (c *QueryCache) Invalidate(q catalog.Query) {
	c.entries.Remove(q.Key())
	metrics.SetQueryCacheEntries(c.entries.Len())
}

// Purge drops every cached result.
func (c *QueryCache) Purge() {
	c.entries.Purge()
	metrics.SetQueryCacheEntries(0)
}

// Stats returns current cache statistics.
func (c *QueryCache) Stats() CacheStats {
	return CacheStats{
		Entries: c.entries.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Shared:  c.shared.Load(),
	}
}

// CacheStats holds cache statistics for the stats endpoint.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Shared  int64 `json:"shared"`
}
