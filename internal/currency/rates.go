package currency

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultRatesTTL = time.Hour

var fallbackRates = map[string]float64{
	"USD": 1,
	"EUR": 0.85,
	"RSD": 110,
}

// RateFetcher loads the latest USD based exchange rate table.
type RateFetcher interface {
	LatestRates(ctx context.Context) (map[string]float64, error)
}

// RateCache keeps one USD based rate table for an hour. When the upstream
// API fails it serves the last good table, or the fallback rates if there
// never was one.
type RateCache struct {
	fetcher RateFetcher
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	rates     map[string]float64
	fetchedAt time.Time
}

func NewRateCache(fetcher RateFetcher, ttl time.Duration, now func() time.Time) *RateCache {
	if ttl <= 0 {
		ttl = defaultRatesTTL
	}
	if now == nil {
		now = time.Now
	}
	return &RateCache{
		fetcher: fetcher,
		ttl:     ttl,
		now:     now,
	}
}

// Rates returns a copy of the current rate table.
func (c *RateCache) Rates(ctx context.Context) map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	table := c.load(ctx)
	out := make(map[string]float64, len(table))
	for code, rate := range table {
		out[code] = rate
	}
	return out
}

// Rate returns how many units of currency one dollar buys.
func (c *RateCache) Rate(ctx context.Context, currency string) (float64, bool) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "USD" {
		return 1, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rate, ok := c.load(ctx)[currency]
	if !ok || rate <= 0 {
		return 0, false
	}
	return rate, true
}

// Refresh drops the cached table and loads a fresh one.
func (c *RateCache) Refresh(ctx context.Context) error {
	rates, err := c.fetcher.LatestRates(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.rates = rates
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return nil
}

// load must be called with c.mu held.
func (c *RateCache) load(ctx context.Context) map[string]float64 {
	now := c.now()
	if c.rates != nil && now.Sub(c.fetchedAt) < c.ttl {
		return c.rates
	}

	rates, err := c.fetcher.LatestRates(ctx)
	if err != nil {
		if c.rates != nil {
			log.WithError(err).Warn("Error fetching exchange rates, serving stale table")
			return c.rates
		}
		log.WithError(err).Warn("Error fetching exchange rates, using fallback rates")
		return fallbackRates
	}

	c.rates = rates
	c.fetchedAt = now
	return c.rates
}
