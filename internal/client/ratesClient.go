package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type RatesClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewRatesClient talks to an open.er-api.com compatible exchange-rate feed.
// The returned value satisfies currency.RateFetcher.
func NewRatesClient(baseURL string) *RatesClient {
	return &RatesClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
	}
}

type ratesResponse struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

func (c *RatesClient) FetchRates(ctx context.Context, base string) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(base), nil)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates feed status %d", resp.StatusCode)
	}

	var res ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode rates response: %w", err)
	}
	if res.Result != "success" || len(res.Rates) == 0 {
		return nil, fmt.Errorf("rates feed returned result %q", res.Result)
	}
	if res.BaseCode != "" && res.BaseCode != base {
		return nil, fmt.Errorf("rates feed base %s, want %s", res.BaseCode, base)
	}

	return res.Rates, nil
}
