// Package currency consumes the external exchange-rate API. The client only
// surfaces outcomes (a rate table or an error); protocol detail stays here.
package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns nil when the API is not configured; callers treat a nil
// client as "conversion unavailable" rather than an error.
func NewClient(endpoint, apiKey string) *Client {
	if strings.TrimSpace(endpoint) == "" {
		return nil
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 8 * time.Second},
	}
}

type Rates struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func (c *Client) GetRates(ctx context.Context, base string) (Rates, error) {
	if c == nil {
		return Rates{}, errors.New("currency client is nil")
	}
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return Rates{}, errors.New("missing base currency")
	}

	reqURL := c.endpoint + "/latest?base=" + url.QueryEscape(base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Rates{}, fmt.Errorf("currency create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Rates{}, fmt.Errorf("currency request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Rates{}, fmt.Errorf("currency rates failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out Rates
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Rates{}, fmt.Errorf("currency decode response: %w", err)
	}
	if out.Base == "" {
		out.Base = base
	}
	return out, nil
}

// Convert resolves one amount through the rate table.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	rates, err := c.GetRates(ctx, from)
	if err != nil {
		return 0, err
	}
	rate, ok := rates.Rates[strings.ToUpper(strings.TrimSpace(to))]
	if !ok {
		return 0, fmt.Errorf("no rate from %s to %s", from, to)
	}
	return amount * rate, nil
}
