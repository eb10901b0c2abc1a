package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultExchangeRateURL = "https://api.exchangerate-api.com/v4/latest/USD"

// ExchangeRateClient fetches USD based exchange rates.
type ExchangeRateClient struct {
	url        string
	httpClient *http.Client
}

type latestRatesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func NewExchangeRateClient(url string, timeout time.Duration) *ExchangeRateClient {
	if url == "" {
		url = defaultExchangeRateURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExchangeRateClient{
		url: url,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: newTransport(),
		},
	}
}

// LatestRates returns rates.<CCY>, the units of CCY bought by one dollar.
func (c *ExchangeRateClient) LatestRates(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange rate API error: %s", resp.Status)
	}

	var data latestRatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("could not decode exchange rates: %w", err)
	}
	if len(data.Rates) == 0 {
		return nil, fmt.Errorf("exchange rate response has no rates")
	}
	return data.Rates, nil
}
