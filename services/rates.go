package services

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"intellicourse/errors"
	"intellicourse/logger"
	"intellicourse/models"
)

// FallbackRates are the storefront's built-in quotes, ZAR per unit. They
// seed the cache so a payment can be priced before the first feed refresh
// succeeds.
var FallbackRates = map[string]decimal.Decimal{
	"ZAR":  decimal.NewFromInt(1),
	"USD":  decimal.RequireFromString("18.5"),
	"EUR":  decimal.RequireFromString("20.1"),
	"GBP":  decimal.RequireFromString("23.2"),
	"BTC":  decimal.NewFromInt(350000),
	"ETH":  decimal.NewFromInt(25000),
	"USDT": decimal.RequireFromString("18.5"),
}

// RateFetcher pulls a fresh set of rates (ZAR per unit of currency).
type RateFetcher interface {
	Fetch(ctx context.Context) (map[string]decimal.Decimal, error)
}

// RateCache holds the last successfully fetched snapshot. Reads never block
// on an in-flight refresh; a failed refresh leaves the previous snapshot in
// place.
type RateCache struct {
	mu      sync.RWMutex
	snap    *models.RateSnapshot
	fetcher RateFetcher
	timeout time.Duration
}

// NewRateCache creates a cache backed by fetcher. seed may be nil, in which
// case Rate fails until the first successful Refresh.
func NewRateCache(fetcher RateFetcher, seed map[string]decimal.Decimal) *RateCache {
	c := &RateCache{
		fetcher: fetcher,
		timeout: 10 * time.Second,
	}
	if seed != nil {
		rates := make(map[string]decimal.Decimal, len(seed))
		for k, v := range seed {
			rates[k] = v
		}
		c.snap = &models.RateSnapshot{
			BaseCurrency: "ZAR",
			Rates:        rates,
			FetchedAt:    time.Now(),
		}
	}
	return c
}

// Refresh fetches a new snapshot. On failure the last-known-good snapshot
// keeps serving.
func (c *RateCache) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rates, err := c.fetcher.Fetch(ctx)
	if err != nil {
		logger.Warn("Rate refresh failed, keeping last snapshot: %v", err)
		return err
	}

	snap := &models.RateSnapshot{
		BaseCurrency: "ZAR",
		Rates:        rates,
		FetchedAt:    time.Now(),
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	logger.Info("Exchange rates refreshed, %d currencies", len(rates))
	return nil
}

// Rate returns the ZAR price of one unit of the given currency code.
func (c *RateCache) Rate(code string) (decimal.Decimal, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()

	if snap == nil {
		return decimal.Decimal{}, errors.E(errors.RateUnavailable, "no rate snapshot available")
	}
	rate, ok := snap.Rate(code)
	if !ok {
		return decimal.Decimal{}, errors.E(errors.RateUnavailable, "unknown currency: "+code)
	}
	return rate, nil
}

// Snapshot returns the current snapshot, or nil when none was ever fetched.
func (c *RateCache) Snapshot() *models.RateSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// HTTPRateFetcher reads fiat rates from an exchangerate.host style feed and
// overlays the crypto quotes, which have no public ZAR feed and keep their
// configured values.
type HTTPRateFetcher struct {
	URL    string
	Client *http.Client
}

func NewHTTPRateFetcher(url string) *HTTPRateFetcher {
	return &HTTPRateFetcher{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *HTTPRateFetcher) Fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewError("rate feed returned status " + resp.Status)
	}

	// Feed shape: {"base":"ZAR","rates":{"USD":0.054,...}} where values are
	// foreign units per ZAR, so the stored ZAR-per-unit rate is the inverse.
	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Rates) == 0 {
		return nil, errors.NewError("rate feed returned no rates")
	}

	rates := map[string]decimal.Decimal{"ZAR": decimal.NewFromInt(1)}
	one := decimal.NewFromInt(1)
	for code, perZAR := range body.Rates {
		if perZAR <= 0 {
			continue
		}
		rates[code] = one.DivRound(decimal.NewFromFloat(perZAR), 8)
	}

	// Crypto quotes come from configuration, not the fiat feed.
	for _, code := range []string{"BTC", "ETH", "USDT"} {
		if _, ok := rates[code]; !ok {
			rates[code] = FallbackRates[code]
		}
	}

	return rates, nil
}
