package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/codyseavey/bank-tracker/internal/models"
)

func newTestPriceCache(fetcher PriceFetcher, store CacheStore, clock *testClock) *PriceCache {
	c := NewPriceCache(fetcher, store, DefaultPriceCacheTTL)
	c.now = clock.Now
	return c
}

func TestPriceCacheServesFreshTable(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	feed := &fakePriceSource{prices: testPrices()}
	cache := newTestPriceCache(feed, NewMemoryCacheStore(), clock)

	if _, err := cache.CurrentPrices(ctx); err != nil {
		t.Fatalf("CurrentPrices() error = %v", err)
	}
	clock.Advance(2 * time.Hour)
	got, err := cache.CurrentPrices(ctx)
	if err != nil {
		t.Fatalf("CurrentPrices() error = %v", err)
	}

	if feed.callCount() != 1 {
		t.Errorf("feed called %d times, want 1", feed.callCount())
	}
	if len(got) != len(testPrices()) {
		t.Errorf("CurrentPrices() returned %d markets, want %d", len(got), len(testPrices()))
	}
}

func TestPriceCacheRefetchesAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	feed := &fakePriceSource{prices: testPrices()}
	store := NewMemoryCacheStore()
	cache := newTestPriceCache(feed, store, clock)

	if _, err := cache.CurrentPrices(ctx); err != nil {
		t.Fatalf("CurrentPrices() error = %v", err)
	}
	clock.Advance(DefaultPriceCacheTTL)
	if _, err := cache.CurrentPrices(ctx); err != nil {
		t.Fatalf("CurrentPrices() error = %v", err)
	}

	if feed.callCount() != 2 {
		t.Errorf("feed called %d times, want 2", feed.callCount())
	}
	cached, _ := store.Get(ctx)
	if cached == nil || !cached.FetchedAt.Equal(clock.Now()) {
		t.Errorf("store not refreshed: %+v", cached)
	}
}

func TestPriceCacheFetchErrorPropagates(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := NewMemoryCacheStore()
	store.Put(ctx, CachedPrices{FetchedAt: clock.Now().Add(-4 * time.Hour), Prices: testPrices()})

	feedErr := errors.New("connection refused")
	cache := newTestPriceCache(&fakePriceSource{err: feedErr}, store, clock)

	got, err := cache.CurrentPrices(ctx)
	if !errors.Is(err, feedErr) {
		t.Fatalf("CurrentPrices() error = %v, want %v", err, feedErr)
	}
	if got != nil {
		t.Error("stale table must not be returned when the fetch fails")
	}

	status := cache.Status(ctx)
	if status.LastFetchError != feedErr.Error() {
		t.Errorf("Status().LastFetchError = %q, want %q", status.LastFetchError, feedErr.Error())
	}
	if status.Fresh {
		t.Error("Status().Fresh = true for a 4 hour old table")
	}
}

type failingStore struct{ MemoryCacheStore }

func (s *failingStore) Get(ctx context.Context) (*CachedPrices, error) {
	return nil, errors.New("disk on fire")
}

func (s *failingStore) Put(ctx context.Context, cached CachedPrices) error {
	return errors.New("disk on fire")
}

func TestPriceCacheStoreErrorsAreNotFatal(t *testing.T) {
	feed := &fakePriceSource{prices: testPrices()}
	cache := newTestPriceCache(feed, &failingStore{}, newTestClock())

	got, err := cache.CurrentPrices(context.Background())
	if err != nil {
		t.Fatalf("CurrentPrices() error = %v", err)
	}
	if len(got) == 0 {
		t.Error("expected fetched prices despite store failures")
	}
}

func TestFileCacheStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileCacheStore(filepath.Join(t.TempDir(), "cache", "prices_cache.json"))

	got, err := store.Get(ctx)
	if err != nil || got != nil {
		t.Fatalf("Get() on missing file = %v, %v; want nil, nil", got, err)
	}

	fetched := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Put(ctx, CachedPrices{FetchedAt: fetched, Prices: testPrices()}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err = store.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.FetchedAt.Sub(fetched).Abs() > time.Millisecond {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, fetched)
	}
	high, low, ok := got.Prices.Quote("4151")
	if !ok || high != 1_500_000 || low != 1_450_000 {
		t.Errorf("Quote(4151) = %d, %d, %v", high, low, ok)
	}
}

func TestDecodeCacheRecordLegacyFormat(t *testing.T) {
	data := []byte(`{"timestamp": 1717243200.5, "data": {"data": {"995": {"high": null, "low": null}, "4151": {"high": 10, "highTime": 1, "low": 9, "lowTime": 2}}}}`)

	got, err := decodeCacheRecord(data)
	if err != nil {
		t.Fatalf("decodeCacheRecord() error = %v", err)
	}
	want := time.Unix(1717243200, 500_000_000).UTC()
	if !got.FetchedAt.Equal(want) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, want)
	}
	if !got.Prices.Has("995") {
		t.Error("null quoted market should still be listed")
	}
	if _, _, ok := got.Prices.Quote("995"); ok {
		t.Error("null quoted market should have no quote")
	}
}

func TestDBCacheStoreUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewDBCacheStore(newTestDB(t))

	got, err := store.Get(ctx)
	if err != nil || got != nil {
		t.Fatalf("Get() on empty table = %v, %v; want nil, nil", got, err)
	}

	first := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(3 * time.Hour)
	if err := store.Put(ctx, CachedPrices{FetchedAt: first, Prices: testPrices()}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, CachedPrices{FetchedAt: second, Prices: models.PriceTable{"1": models.NewMarketPrice(2, 1)}}); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	got, err = store.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.FetchedAt.Equal(second) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, second)
	}
	if len(got.Prices) != 1 {
		t.Errorf("got %d markets, want 1", len(got.Prices))
	}
}

func TestNewCacheStore(t *testing.T) {
	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{"", CacheBackendDB, false},
		{"db", CacheBackendDB, false},
		{"file", CacheBackendFile, false},
		{"redis", CacheBackendRedis, false},
		{"memcached", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			store, err := NewCacheStore(tt.backend, nil, "prices.json", "localhost:6379", "", 0)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCacheStore(%q) error = %v, wantErr %v", tt.backend, err, tt.wantErr)
			}
			if err == nil && store.Name() != tt.want {
				t.Errorf("NewCacheStore(%q).Name() = %q, want %q", tt.backend, store.Name(), tt.want)
			}
			if rs, ok := store.(*RedisCacheStore); ok {
				rs.Close()
			}
		})
	}
}
