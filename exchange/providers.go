package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
)

// provider describes one supported rates API: how to build the request for
// canonical rates and how to parse its response shape.
type provider struct {
	endpoint string
	request  func(ctx context.Context, endpoint, base, apiKey string) (*http.Request, error)
	parse    func(base string, body []byte) (map[string]float64, error)
}

// providers registers the supported rate APIs by configuration name.
var providers = map[string]provider{
	"exchangerate.host": {
		endpoint: "https://api.exchangerate.host",
		request: func(ctx context.Context, endpoint, base, _ string) (*http.Request, error) {
			return getRequest(ctx, endpoint+"/latest", url.Values{"base": {base}})
		},
		parse: parseRatesObject,
	},
	"exchangeratesapi": {
		endpoint: "https://api.exchangeratesapi.io",
		request: func(ctx context.Context, endpoint, base, apiKey string) (*http.Request, error) {
			return getRequest(ctx, endpoint+"/v1/latest", url.Values{"access_key": {apiKey}, "base": {base}})
		},
		parse: parseRatesObject,
	},
	"fixer": {
		endpoint: "https://data.fixer.io",
		request: func(ctx context.Context, endpoint, base, apiKey string) (*http.Request, error) {
			return getRequest(ctx, endpoint+"/api/latest", url.Values{"access_key": {apiKey}, "base": {base}})
		},
		parse: parseRatesObject,
	},
	"openexchangerates": {
		endpoint: "https://openexchangerates.org",
		request: func(ctx context.Context, endpoint, base, apiKey string) (*http.Request, error) {
			return getRequest(ctx, endpoint+"/api/latest.json", url.Values{"app_id": {apiKey}, "base": {base}})
		},
		parse: parseRatesObject,
	},
	"currencyapi": {
		endpoint: "https://api.currencyapi.com",
		request: func(ctx context.Context, endpoint, base, apiKey string) (*http.Request, error) {
			req, err := getRequest(ctx, endpoint+"/v3/latest", url.Values{"base_currency": {base}})
			if err != nil {
				return nil, err
			}
			req.Header.Set("apikey", apiKey)
			return req, nil
		},
		parse: parseDataValues,
	},
	"currencylayer": {
		endpoint: "https://api.currencylayer.com",
		request: func(ctx context.Context, endpoint, base, apiKey string) (*http.Request, error) {
			req, err := getRequest(ctx, endpoint+"/live", url.Values{"source": {base}})
			if err != nil {
				return nil, err
			}
			req.Header.Set("apikey", apiKey)
			return req, nil
		},
		parse: parseQuotePairs,
	},
}

// ProviderNames returns the supported provider names, sorted, for config
// validation messages.
func ProviderNames() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func getRequest(ctx context.Context, rawURL string, query url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = query.Encode()
	return req, nil
}

// parseRatesObject handles the common {"rates": {"USD": 0.74, ...}} shape.
func parseRatesObject(_ string, body []byte) (map[string]float64, error) {
	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("could not decode rates response: %w", err)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("rates response contains no rates")
	}
	return payload.Rates, nil
}

// parseDataValues handles the {"data": {"USD": {"value": 0.74}, ...}} shape.
func parseDataValues(_ string, body []byte) (map[string]float64, error) {
	var payload struct {
		Data map[string]struct {
			Value float64 `json:"value"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("could not decode rates response: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, fmt.Errorf("rates response contains no rates")
	}
	rates := make(map[string]float64, len(payload.Data))
	for currency, entry := range payload.Data {
		rates[currency] = entry.Value
	}
	return rates, nil
}

// parseQuotePairs handles the {"quotes": {"CADUSD": 0.74, ...}} shape, where
// every key is the source currency concatenated with the target.
func parseQuotePairs(base string, body []byte) (map[string]float64, error) {
	var payload struct {
		Quotes map[string]float64 `json:"quotes"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("could not decode rates response: %w", err)
	}
	if len(payload.Quotes) == 0 {
		return nil, fmt.Errorf("rates response contains no rates")
	}
	rates := make(map[string]float64, len(payload.Quotes))
	for pair, value := range payload.Quotes {
		if len(pair) != len(base)+3 || pair[:len(base)] != base {
			continue
		}
		rates[pair[len(base):]] = value
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("rates response contains no %s quotes", base)
	}
	return rates, nil
}
