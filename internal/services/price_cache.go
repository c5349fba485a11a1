package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/codyseavey/bank-tracker/internal/metrics"
	"github.com/codyseavey/bank-tracker/internal/models"
)

// DefaultPriceCacheTTL is how long a fetched price table is reused
const DefaultPriceCacheTTL = 3 * time.Hour

// PriceFetcher downloads current market prices
type PriceFetcher interface {
	FetchLatest(ctx context.Context) (models.PriceTable, error)
}

// PriceSource supplies the current price table to a snapshot pass
type PriceSource interface {
	CurrentPrices(ctx context.Context) (models.PriceTable, error)
}

// CachedPrices is a price table with the time it was fetched
type CachedPrices struct {
	FetchedAt time.Time
	Prices    models.PriceTable
}

// CacheStore persists the last known good price table. Get returns nil, nil
// when nothing has been stored yet.
type CacheStore interface {
	Get(ctx context.Context) (*CachedPrices, error)
	Put(ctx context.Context, cached CachedPrices) error
	Name() string
}

// PriceCache is a read-through cache in front of the price feed. Concurrent
// refreshes are not coordinated; the last writer wins.
type PriceCache struct {
	fetcher PriceFetcher
	store   CacheStore
	ttl     time.Duration
	now     func() time.Time

	mu             sync.RWMutex
	lastFetchAt    time.Time
	lastFetchError string
}

func NewPriceCache(fetcher PriceFetcher, store CacheStore, ttl time.Duration) *PriceCache {
	if store == nil {
		store = NewMemoryCacheStore()
	}
	return &PriceCache{
		fetcher: fetcher,
		store:   store,
		ttl:     ttl,
		now:     time.Now,
	}
}

// CurrentPrices returns the cached table while it is younger than the TTL and
// otherwise fetches and stores a fresh one. Fetch errors are returned as is;
// there is no fallback to a stale table.
func (c *PriceCache) CurrentPrices(ctx context.Context) (models.PriceTable, error) {
	now := c.now()

	cached, err := c.store.Get(ctx)
	if err != nil {
		log.Printf("Price cache: failed to read %s store, refetching: %v", c.store.Name(), err)
	}
	if cached != nil && now.Sub(cached.FetchedAt) < c.ttl {
		metrics.PriceCacheHits.Inc()
		metrics.PriceCacheAgeSeconds.Set(now.Sub(cached.FetchedAt).Seconds())
		return cached.Prices, nil
	}

	metrics.PriceCacheMisses.Inc()
	prices, err := c.fetcher.FetchLatest(ctx)

	c.mu.Lock()
	c.lastFetchAt = now
	c.lastFetchError = ""
	if err != nil {
		c.lastFetchError = err.Error()
	}
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}

	fresh := CachedPrices{FetchedAt: now, Prices: prices}
	if err := c.store.Put(ctx, fresh); err != nil {
		log.Printf("Price cache: failed to persist prices to %s store: %v", c.store.Name(), err)
	}
	metrics.PriceCacheAgeSeconds.Set(0)

	log.Printf("Price cache: fetched %d market prices", len(prices))
	return prices, nil
}

// Status describes the cached table without triggering a fetch
func (c *PriceCache) Status(ctx context.Context) models.PriceCacheStatus {
	status := models.PriceCacheStatus{
		Backend: c.store.Name(),
		TTL:     c.ttl,
	}

	if cached, err := c.store.Get(ctx); err == nil && cached != nil {
		cachedAt := cached.FetchedAt
		expiresAt := cachedAt.Add(c.ttl)
		status.CachedAt = &cachedAt
		status.ExpiresAt = &expiresAt
		status.Fresh = c.now().Sub(cachedAt) < c.ttl
		status.MarketCount = len(cached.Prices)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.lastFetchAt.IsZero() {
		lastFetch := c.lastFetchAt
		status.LastFetchAt = &lastFetch
	}
	status.LastFetchError = c.lastFetchError

	return status
}

// MemoryCacheStore keeps the price table in process memory only
type MemoryCacheStore struct {
	mu     sync.RWMutex
	cached *CachedPrices
}

func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{}
}

func (s *MemoryCacheStore) Get(ctx context.Context) (*CachedPrices, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached == nil {
		return nil, nil
	}
	c := *s.cached
	return &c, nil
}

func (s *MemoryCacheStore) Put(ctx context.Context, cached CachedPrices) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = &cached
	return nil
}

func (s *MemoryCacheStore) Name() string {
	return "memory"
}
