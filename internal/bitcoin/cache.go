package bitcoin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const (
	BaseCurrency         = "USD"
	DateLayout           = "2006-01-02"
	currentPriceTTL      = time.Hour
	genericFallbackPrice = 45000
)

var fallbackPrices = map[string]float64{
	"USD": 45000,
	"EUR": 38250,
	"RSD": 4950000,
}

// Fetcher talks to the upstream price API.
type Fetcher interface {
	HistoricalPrice(ctx context.Context, date time.Time, currency string) (float64, error)
	CurrentPrice(ctx context.Context, currency string) (float64, error)
}

// RateSource returns how many units of currency one US dollar buys.
type RateSource interface {
	Rate(ctx context.Context, currency string) (float64, bool)
}

// FallbackPrice is the price used when the upstream API cannot answer.
func FallbackPrice(currency string) float64 {
	if price, ok := fallbackPrices[normalizeCurrency(currency)]; ok {
		return price
	}
	return genericFallbackPrice
}

type cacheKey struct {
	date     string
	currency string
}

type cacheEntry struct {
	price     float64
	fetchedAt time.Time
	// historical entries come from the by-date endpoint and never expire
	historical bool
}

type PriceCache struct {
	fetcher Fetcher
	rates   RateSource
	direct  map[string]bool
	now     func() time.Time
	metrics *cacheMetrics

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

type Option func(*options)

type options struct {
	now    func() time.Time
	direct []string
	reg    prometheus.Registerer
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithDirectCurrencies sets the currencies the price API quotes natively.
// USD is always included.
func WithDirectCurrencies(codes ...string) Option {
	return func(o *options) { o.direct = codes }
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

func NewPriceCache(fetcher Fetcher, rates RateSource, opts ...Option) *PriceCache {
	o := options{
		now:    time.Now,
		direct: []string{"USD", "EUR"},
	}
	for _, opt := range opts {
		opt(&o)
	}

	direct := map[string]bool{BaseCurrency: true}
	for _, code := range o.direct {
		direct[normalizeCurrency(code)] = true
	}

	return &PriceCache{
		fetcher: fetcher,
		rates:   rates,
		direct:  direct,
		now:     o.now,
		metrics: newCacheMetrics(o.reg),
		entries: make(map[cacheKey]cacheEntry),
	}
}

func normalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return BaseCurrency
	}
	return currency
}

// IsDirect reports whether currency is quoted natively by the price API.
func (c *PriceCache) IsDirect(currency string) bool {
	return c.direct[normalizeCurrency(currency)]
}

// PriceForDate returns the price of one bitcoin in currency on the given
// calendar date. It never fails: upstream errors yield FallbackPrice.
func (c *PriceCache) PriceForDate(ctx context.Context, date time.Time, currency string) float64 {
	currency = normalizeCurrency(currency)
	if !c.isPastDate(date) {
		return c.CurrentPrice(ctx, currency)
	}

	var price float64
	var err error
	if c.direct[currency] {
		price, err = c.historical(ctx, date, currency)
	} else {
		price, err = c.historical(ctx, date, BaseCurrency)
		if err == nil {
			price = c.crossConvert(ctx, price, currency)
		}
	}
	if err != nil {
		return c.fallback(currency, err)
	}
	return price
}

// CurrentPrice returns today's price, re-fetching once the cached value is
// older than an hour.
func (c *PriceCache) CurrentPrice(ctx context.Context, currency string) float64 {
	currency = normalizeCurrency(currency)

	var price float64
	var err error
	if c.direct[currency] {
		price, err = c.current(ctx, currency)
	} else {
		price, err = c.current(ctx, BaseCurrency)
		if err == nil {
			price = c.crossConvert(ctx, price, currency)
		}
	}
	if err != nil {
		return c.fallback(currency, err)
	}
	return price
}

// Refresh warms the current price of every directly quoted currency.
func (c *PriceCache) Refresh(ctx context.Context) error {
	var errs []error
	for currency := range c.direct {
		if _, err := c.current(ctx, currency); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", currency, err))
		}
	}
	return errors.Join(errs...)
}

func (c *PriceCache) isPastDate(date time.Time) bool {
	return date.Format(DateLayout) < c.now().Format(DateLayout)
}

func (c *PriceCache) historical(ctx context.Context, date time.Time, currency string) (float64, error) {
	key := cacheKey{date: date.Format(DateLayout), currency: currency}

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && entry.historical {
		c.metrics.hits.WithLabelValues("historical").Inc()
		return entry.price, nil
	}

	price, err := c.fetcher.HistoricalPrice(ctx, date, currency)
	if err == nil && price <= 0 {
		err = fmt.Errorf("invalid historical price %v", price)
	}
	c.metrics.fetch("history", currency, err)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{price: price, fetchedAt: c.now(), historical: true}
	c.mu.Unlock()
	return price, nil
}

func (c *PriceCache) current(ctx context.Context, currency string) (float64, error) {
	now := c.now()
	key := cacheKey{date: now.Format(DateLayout), currency: currency}

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && now.Sub(entry.fetchedAt) < currentPriceTTL {
		c.metrics.hits.WithLabelValues("current").Inc()
		return entry.price, nil
	}

	price, err := c.fetcher.CurrentPrice(ctx, currency)
	if err == nil && price <= 0 {
		err = fmt.Errorf("invalid current price %v", price)
	}
	c.metrics.fetch("simple", currency, err)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{price: price, fetchedAt: now}
	c.mu.Unlock()
	return price, nil
}

// crossConvert turns a USD price into currency. Currencies without a known
// rate keep the USD value.
func (c *PriceCache) crossConvert(ctx context.Context, usdPrice float64, currency string) float64 {
	if c.rates == nil {
		return usdPrice
	}
	rate, ok := c.rates.Rate(ctx, currency)
	if !ok || rate <= 0 {
		log.WithField("currency", currency).Debug("No exchange rate, using USD bitcoin price")
		return usdPrice
	}
	return usdPrice * rate
}

func (c *PriceCache) fallback(currency string, cause error) float64 {
	price := FallbackPrice(currency)
	c.metrics.fallbacks.WithLabelValues(currency).Inc()
	log.WithError(cause).WithFields(log.Fields{
		"currency": currency,
		"fallback": price,
	}).Warn("Bitcoin price lookup failed, using fallback price")
	return price
}
