package models

import (
	"strconv"
	"time"
)

// MarketPrice is one entry of the latest-prices feed. Either side can be null
// when the instrument has not traded recently.
type MarketPrice struct {
	High     *int64 `json:"high"`
	HighTime *int64 `json:"highTime,omitempty"`
	Low      *int64 `json:"low"`
	LowTime  *int64 `json:"lowTime,omitempty"`
}

// PriceTable maps a market id (decimal string) to its latest quote
type PriceTable map[string]MarketPrice

// PriceFeedResponse is the body returned by the latest-prices endpoint
type PriceFeedResponse struct {
	Data PriceTable `json:"data"`
}

// Has reports whether the market id is listed, regardless of its quote
func (t PriceTable) Has(marketID string) bool {
	_, ok := t[marketID]
	return ok
}

// Quote returns the high and low price of a market. ok is false when the market
// is not listed or either side has no quote.
func (t PriceTable) Quote(marketID string) (high, low int64, ok bool) {
	p, listed := t[marketID]
	if !listed || p.High == nil || p.Low == nil {
		return 0, 0, false
	}
	return *p.High, *p.Low, true
}

// NewMarketPrice builds a quote with both sides set
func NewMarketPrice(high, low int64) MarketPrice {
	return MarketPrice{High: &high, Low: &low}
}

// MarketKey converts a numeric item id into a price table key
func MarketKey(id int) string {
	return strconv.Itoa(id)
}

// CachedPriceFeed holds the last known good feed payload for the database cache store
type CachedPriceFeed struct {
	Key       string    `json:"key" gorm:"primaryKey;size:64"`
	FetchedAt time.Time `json:"fetched_at" gorm:"not null"`
	Payload   []byte    `json:"-"`
}

// PriceCacheStatus is reported by the prices status endpoint
type PriceCacheStatus struct {
	Backend          string        `json:"backend"`
	TTL              time.Duration `json:"ttl"`
	CachedAt         *time.Time    `json:"cached_at,omitempty"`
	ExpiresAt        *time.Time    `json:"expires_at,omitempty"`
	Fresh            bool          `json:"fresh"`
	MarketCount      int           `json:"market_count"`
	LastFetchAt      *time.Time    `json:"last_fetch_at,omitempty"`
	LastFetchError   string        `json:"last_fetch_error,omitempty"`
	CooldownWindow   time.Duration `json:"cooldown_window"`
	AutoRepriceEvery time.Duration `json:"auto_reprice_every,omitempty"`
}
