package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

var (
	ErrRateLimited   = errors.New("market data API rate limit exceeded")
	ErrPriceNotFound = errors.New("bitcoin price not found in response")
)

// CoinGeckoClient reads bitcoin prices from the CoinGecko v3 API.
type CoinGeckoClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type historyResponse struct {
	MarketData struct {
		CurrentPrice map[string]float64 `json:"current_price"`
	} `json:"market_data"`
}

type simplePriceResponse map[string]map[string]float64

func NewCoinGeckoClient(baseURL, apiKey string, timeout time.Duration) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = defaultCoinGeckoURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CoinGeckoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: newTransport(),
		},
	}
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
}

// HistoricalPrice returns the bitcoin price on date, read from
// market_data.current_price.<currency>.
func (c *CoinGeckoClient) HistoricalPrice(ctx context.Context, date time.Time, currency string) (float64, error) {
	currency = strings.ToLower(currency)

	q := url.Values{}
	q.Set("date", date.Format("02-01-2006"))
	q.Set("localization", "false")

	var data historyResponse
	if err := c.get(ctx, "/coins/bitcoin/history?"+q.Encode(), &data); err != nil {
		return 0, err
	}

	price, ok := data.MarketData.CurrentPrice[currency]
	if !ok {
		return 0, fmt.Errorf("%w: market_data.current_price.%s", ErrPriceNotFound, currency)
	}
	return price, nil
}

// CurrentPrice returns the latest bitcoin price, read from bitcoin.<currency>.
func (c *CoinGeckoClient) CurrentPrice(ctx context.Context, currency string) (float64, error) {
	currency = strings.ToLower(currency)

	q := url.Values{}
	q.Set("ids", "bitcoin")
	q.Set("vs_currencies", currency)

	var data simplePriceResponse
	if err := c.get(ctx, "/simple/price?"+q.Encode(), &data); err != nil {
		return 0, err
	}

	price, ok := data["bitcoin"][currency]
	if !ok {
		return 0, fmt.Errorf("%w: bitcoin.%s", ErrPriceNotFound, currency)
	}
	return price, nil
}

func (c *CoinGeckoClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-pro-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error querying coingecko: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode coingecko response: %w", err)
	}
	return nil
}
