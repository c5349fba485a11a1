package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/bank-tracker/internal/models"
)

const (
	CacheBackendDB    = "db"
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"

	priceCacheKey = "latest_prices"
	redisCacheKey = "bank-tracker:prices"
)

var (
	_ CacheStore = (*DBCacheStore)(nil)
	_ CacheStore = (*FileCacheStore)(nil)
	_ CacheStore = (*RedisCacheStore)(nil)
	_ CacheStore = (*MemoryCacheStore)(nil)
)

// cacheRecord is the persisted form of a price table:
// {"timestamp": <epoch seconds>, "data": <feed response>}
type cacheRecord struct {
	Timestamp float64                  `json:"timestamp"`
	Data      models.PriceFeedResponse `json:"data"`
}

func encodeCacheRecord(cached CachedPrices) ([]byte, error) {
	rec := cacheRecord{
		Timestamp: float64(cached.FetchedAt.UnixNano()) / float64(time.Second),
		Data:      models.PriceFeedResponse{Data: cached.Prices},
	}
	return json.Marshal(rec)
}

func decodeCacheRecord(data []byte) (*CachedPrices, error) {
	var rec cacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode cached prices: %w", err)
	}
	sec, frac := math.Modf(rec.Timestamp)
	return &CachedPrices{
		FetchedAt: time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(),
		Prices:    rec.Data.Data,
	}, nil
}

// DBCacheStore keeps the price table in the cached_price_feeds table
type DBCacheStore struct {
	db *gorm.DB
}

func NewDBCacheStore(db *gorm.DB) *DBCacheStore {
	return &DBCacheStore{db: db}
}

func (s *DBCacheStore) Get(ctx context.Context) (*CachedPrices, error) {
	var row models.CachedPriceFeed
	// struct condition so gorm quotes the column; key is reserved in MySQL
	err := s.db.WithContext(ctx).Where(&models.CachedPriceFeed{Key: priceCacheKey}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var prices models.PriceTable
	if err := json.Unmarshal(row.Payload, &prices); err != nil {
		return nil, fmt.Errorf("failed to decode cached prices: %w", err)
	}
	return &CachedPrices{FetchedAt: row.FetchedAt, Prices: prices}, nil
}

func (s *DBCacheStore) Put(ctx context.Context, cached CachedPrices) error {
	payload, err := json.Marshal(cached.Prices)
	if err != nil {
		return err
	}

	row := models.CachedPriceFeed{
		Key:       priceCacheKey,
		FetchedAt: cached.FetchedAt,
		Payload:   payload,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"fetched_at", "payload"}),
	}).Create(&row).Error
}

func (s *DBCacheStore) Name() string {
	return CacheBackendDB
}

// FileCacheStore keeps the price table in a JSON file
type FileCacheStore struct {
	path string
}

func NewFileCacheStore(path string) *FileCacheStore {
	return &FileCacheStore{path: path}
}

func (s *FileCacheStore) Get(ctx context.Context) (*CachedPrices, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeCacheRecord(data)
}

func (s *FileCacheStore) Put(ctx context.Context, cached CachedPrices) error {
	data, err := encodeCacheRecord(cached)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	// write then rename so a crash never leaves a truncated cache file
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileCacheStore) Name() string {
	return CacheBackendFile
}

// RedisCacheStore keeps the price table under a single Redis key. Expiry is left
// to the PriceCache TTL so the last known good table survives in Redis.
type RedisCacheStore struct {
	client *redis.Client
	key    string
}

func NewRedisCacheStore(addr, password string, db int) *RedisCacheStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCacheStore{client: client, key: redisCacheKey}
}

func (s *RedisCacheStore) Get(ctx context.Context) (*CachedPrices, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeCacheRecord(data)
}

func (s *RedisCacheStore) Put(ctx context.Context, cached CachedPrices) error {
	data, err := encodeCacheRecord(cached)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

func (s *RedisCacheStore) Name() string {
	return CacheBackendRedis
}

func (s *RedisCacheStore) Close() error {
	return s.client.Close()
}

// NewCacheStore builds the store named by backend
func NewCacheStore(backend string, db *gorm.DB, filePath, redisAddr, redisPassword string, redisDB int) (CacheStore, error) {
	switch backend {
	case CacheBackendDB, "":
		return NewDBCacheStore(db), nil
	case CacheBackendFile:
		return NewFileCacheStore(filePath), nil
	case CacheBackendRedis:
		return NewRedisCacheStore(redisAddr, redisPassword, redisDB), nil
	default:
		return nil, fmt.Errorf("unknown price cache backend %q", backend)
	}
}
