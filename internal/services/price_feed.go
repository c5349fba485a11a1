package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/codyseavey/bank-tracker/internal/metrics"
	"github.com/codyseavey/bank-tracker/internal/models"
)

const (
	DefaultPriceFeedURL       = "https://prices.runescape.wiki/api/v1/osrs/latest"
	DefaultPriceFeedUserAgent = "bank-tracker/1.0"
	priceFeedDefaultTimeout   = 30 * time.Second
)

// WikiPriceClient fetches the latest prices of every exchange item. The wiki
// rejects requests without a descriptive User-Agent.
type WikiPriceClient struct {
	client  *resty.Client
	url     string
	limiter *rate.Limiter
}

// NewWikiPriceClient creates a feed client that sends at most one request per
// minInterval. A zero interval disables client side limiting.
func NewWikiPriceClient(url, userAgent string, minInterval time.Duration) *WikiPriceClient {
	if url == "" {
		url = DefaultPriceFeedURL
	}
	if userAgent == "" {
		userAgent = DefaultPriceFeedUserAgent
	}

	client := resty.New()
	client.SetTimeout(priceFeedDefaultTimeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "application/json")

	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}

	return &WikiPriceClient{
		client:  client,
		url:     url,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// FetchLatest downloads the full latest-prices table
func (c *WikiPriceClient) FetchLatest(ctx context.Context) (models.PriceTable, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.PriceFeedRequestsTotal.WithLabelValues("rate_limited").Inc()
		return nil, fmt.Errorf("price feed rate limiter: %w", err)
	}

	start := time.Now()
	resp, err := c.client.R().SetContext(ctx).Get(c.url)
	metrics.PriceFeedLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PriceFeedRequestsTotal.WithLabelValues("network").Inc()
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}

	if resp.IsError() {
		metrics.PriceFeedRequestsTotal.WithLabelValues("status").Inc()
		return nil, fmt.Errorf("price feed returned status %d", resp.StatusCode())
	}

	var feed models.PriceFeedResponse
	if err := json.Unmarshal(resp.Body(), &feed); err != nil {
		metrics.PriceFeedRequestsTotal.WithLabelValues("parse").Inc()
		return nil, fmt.Errorf("failed to decode price feed: %w", err)
	}

	if len(feed.Data) == 0 {
		metrics.PriceFeedRequestsTotal.WithLabelValues("empty").Inc()
		return nil, fmt.Errorf("price feed returned no prices")
	}

	metrics.PriceFeedRequestsTotal.WithLabelValues("success").Inc()
	return feed.Data, nil
}
