package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"intellicourse/errors"
)

type stubFetcher struct {
	rates map[string]decimal.Decimal
	err   error
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rates, nil
}

func TestRateCacheServesSeedBeforeFirstRefresh(t *testing.T) {
	cache := NewRateCache(&stubFetcher{}, FallbackRates)

	rate, err := cache.Rate("USD")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("18.5")) {
		t.Errorf("USD = %s, want 18.5", rate)
	}
}

func TestRateCacheUnseededFailsUntilRefresh(t *testing.T) {
	fetcher := &stubFetcher{rates: map[string]decimal.Decimal{
		"ZAR": decimal.NewFromInt(1),
		"USD": decimal.RequireFromString("19.2"),
	}}
	cache := NewRateCache(fetcher, nil)

	if _, err := cache.Rate("USD"); errors.KindOf(err) != errors.RateUnavailable {
		t.Fatalf("kind = %v, want RateUnavailable", errors.KindOf(err))
	}

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	rate, err := cache.Rate("USD")
	if err != nil {
		t.Fatalf("Rate after refresh: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("19.2")) {
		t.Errorf("USD = %s, want 19.2", rate)
	}
}

func TestRateCacheKeepsLastGoodOnFailedRefresh(t *testing.T) {
	fetcher := &stubFetcher{rates: map[string]decimal.Decimal{
		"ZAR": decimal.NewFromInt(1),
		"USD": decimal.RequireFromString("19.2"),
	}}
	cache := NewRateCache(fetcher, nil)

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	fetcher.err = errors.NewError("feed down")
	if err := cache.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	rate, err := cache.Rate("USD")
	if err != nil {
		t.Fatalf("Rate after failed refresh: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("19.2")) {
		t.Errorf("USD = %s, want last-known-good 19.2", rate)
	}
}

func TestRateCacheUnknownCurrency(t *testing.T) {
	cache := NewRateCache(&stubFetcher{}, FallbackRates)

	_, err := cache.Rate("XYZ")
	if errors.KindOf(err) != errors.RateUnavailable {
		t.Fatalf("kind = %v, want RateUnavailable", errors.KindOf(err))
	}
}
