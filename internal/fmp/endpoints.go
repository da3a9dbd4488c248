package fmp

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"fmpfetcher/internal/coerce"
	"fmpfetcher/internal/fetcher"
	"fmpfetcher/internal/payload"
)

// Endpoint is a per-symbol API resource. The symbol is appended to Path.
type Endpoint struct {
	Name   string
	Path   string
	Params map[string]string
}

var endpoints = []Endpoint{
	{Name: "profile", Path: "v3/company/profile/"},
	{Name: "ratios", Path: "financial-ratios/"},
	{Name: "enterprise-value", Path: "v3/enterprise-value/"},
	{Name: "key-metrics", Path: "v3/company-key-metrics/"},
	{Name: "growth", Path: "v3/financial-statement-growth/"},
	{Name: "rating", Path: "v3/company/rating/"},
	{Name: "dcf", Path: "v3/company/discounted-cash-flow/"},
	{Name: "historical-dcf", Path: "v3/company/historical-discounted-cash-flow/"},
	{Name: "price", Path: "v3/stock/real-time-price/"},
	{Name: "historical-price", Path: "v3/historical-price-full/", Params: map[string]string{"serietype": "line"}},
	{Name: "ohlcv", Path: "v3/historical-price-full/"},
}

// SymbolsListPath lists every symbol the service knows.
const SymbolsListPath = "v3/company/stock/list"

// EndpointNames returns the catalog's names.
func EndpointNames() []string {
	names := make([]string, len(endpoints))
	for i, ep := range endpoints {
		names[i] = ep.Name
	}
	return names
}

// LookupEndpoint finds a catalog entry by name.
func LookupEndpoint(name string) (Endpoint, error) {
	for _, ep := range endpoints {
		if strings.EqualFold(ep.Name, name) {
			return ep, nil
		}
	}
	return Endpoint{}, fetcher.NewConfigurationError(fmt.Sprintf(
		"unknown endpoint %q (want one of %s)", name, strings.Join(EndpointNames(), ", ")))
}

// EndpointResult maps each symbol to its decoded payload. Symbols whose
// request failed are in Errors instead.
type EndpointResult struct {
	Data   map[string]coerce.Value
	Errors []payload.ErrorRecord
}

// Endpoint fetches ep once per symbol, in order. A failed symbol is recorded
// and the loop moves on; a body that cannot be decoded aborts the call.
func (c *Client) Endpoint(ctx context.Context, ep Endpoint, symbols []string, params map[string]string) (*EndpointResult, error) {
	symbols = NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, fetcher.NewConfigurationError("no symbols requested")
	}

	query := map[string]string{"datatype": "json"}
	maps.Copy(query, ep.Params)
	maps.Copy(query, params)

	result := &EndpointResult{Data: make(map[string]coerce.Value, len(symbols))}
	for _, symbol := range symbols {
		url := c.baseURL + ep.Path + symbol
		logger := c.logger.With("endpoint", ep.Name, "symbol", symbol, "url", url)
		logger.Debug("fetching endpoint")

		resp, err := c.transport.Fetch(ctx, url, maps.Clone(query))
		v, rec, err := payload.FromValue(resp, err, []string{symbol})
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", ep.Name, symbol, err)
		}
		if rec != nil {
			result.Errors = append(result.Errors, *rec)
			logger.Warn("endpoint failed", "kind", rec.Kind)
			continue
		}
		result.Data[symbol] = v
	}
	return result, nil
}

// SymbolsList fetches the full symbol list as one decoded payload.
func (c *Client) SymbolsList(ctx context.Context, params map[string]string) (coerce.Value, error) {
	url := c.baseURL + SymbolsListPath
	resp, err := c.transport.Fetch(ctx, url, maps.Clone(params))
	v, rec, err := payload.FromValue(resp, err, nil)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return nil, fmt.Errorf("symbols list: %s (%s)", coerce.Format(rec.Raw), rec.Kind)
	}
	return v, nil
}
