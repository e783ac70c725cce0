package moa

import (
	"context"
	"math"
	"sync"
	"time"

	"catalystcore/clock"
	"catalystcore/marketdata"
	"catalystcore/types"
)

// PriceProvider fetches a single historical price at an instant. §6 leaves
// the concrete backend pluggable (primary+fallback chain); moa only needs
// this one narrow operation rather than the full get_intraday_bars/
// get_daily_bars surface.
type PriceProvider interface {
	PriceAt(ctx context.Context, ticker string, at time.Time) (float64, bool, error)
}

const maxSkipDays = 7

// AlpacaPriceProvider adapts marketdata.Client to PriceProvider, choosing
// intraday minute bars for fine-grained lookups (within the last 7 days, as
// Alpaca's free intraday window allows) and daily bars otherwise, then
// picking the bar closest in time to the requested instant.
type AlpacaPriceProvider struct {
	Client *marketdata.Client
}

func NewAlpacaPriceProvider(c *marketdata.Client) *AlpacaPriceProvider {
	return &AlpacaPriceProvider{Client: c}
}

func (p *AlpacaPriceProvider) PriceAt(ctx context.Context, ticker string, at time.Time) (float64, bool, error) {
	age := time.Since(at)
	var bars []marketdata.Bar
	var err error
	if age >= 0 && age <= maxSkipDays*24*time.Hour {
		bars, err = p.Client.GetIntradayBars(ctx, ticker, "1Min", at.Add(-12*time.Hour))
	} else {
		bars, err = p.Client.GetDailyBars(ctx, ticker, at.AddDate(0, 0, -5), at.AddDate(0, 0, 5))
	}
	if err != nil {
		return 0, false, err
	}
	return closestBar(bars, at)
}

func closestBar(bars []marketdata.Bar, at time.Time) (float64, bool, error) {
	var best *marketdata.Bar
	var bestDiff time.Duration
	for i := range bars {
		diff := bars[i].Timestamp.Sub(at)
		if diff < 0 {
			diff = -diff
		}
		if best == nil || diff < bestDiff {
			b := bars[i]
			best = &b
			bestDiff = diff
		}
	}
	if best == nil {
		return 0, false, nil
	}
	if bestDiff > 24*time.Hour {
		return 0, false, nil
	}
	return best.Close, true, nil
}

type cacheEntry struct {
	price float64
	ok    bool
}

// PriceCache shares one PriceProvider across repeated lookups for the same
// (ticker, timestamp) and skips weekends/holidays by advancing up to
// maxSkipDays calendar days, per §4.13 step 2.
type PriceCache struct {
	provider PriceProvider

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewPriceCache(provider PriceProvider) *PriceCache {
	return &PriceCache{provider: provider, cache: make(map[string]cacheEntry)}
}

func (c *PriceCache) priceAt(ctx context.Context, ticker string, at time.Time) (float64, bool, error) {
	adjusted := at
	skipped := 0
	for skipped < maxSkipDays && (clock.IsWeekend(adjusted) || clock.IsMarketHoliday(adjusted)) {
		adjusted = adjusted.AddDate(0, 0, 1)
		skipped++
	}
	if clock.IsWeekend(adjusted) || clock.IsMarketHoliday(adjusted) {
		return 0, false, nil
	}

	key := ticker + "|" + adjusted.UTC().Format(time.RFC3339)
	c.mu.Lock()
	if entry, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return entry.price, entry.ok, nil
	}
	c.mu.Unlock()

	price, ok, err := c.provider.PriceAt(ctx, ticker, adjusted)
	if err != nil {
		return 0, false, err
	}
	c.mu.Lock()
	c.cache[key] = cacheEntry{price: price, ok: ok}
	c.mu.Unlock()
	return price, ok, nil
}

// HorizonReturnPct returns the percentage price change from rejectionTime to
// rejectionTime+horizon, refusing to look into the future and returning
// ok=false if either endpoint's price is unavailable.
func (c *PriceCache) HorizonReturnPct(ctx context.Context, rejectionTime time.Time, horizon types.OutcomeHorizon, ticker string) (float64, bool, error) {
	targetTime := rejectionTime.Add(horizonDuration(horizon))
	if targetTime.After(time.Now()) {
		return 0, false, nil
	}

	entryPrice, ok, err := c.priceAt(ctx, ticker, rejectionTime)
	if err != nil || !ok || math.Abs(entryPrice) < 1e-9 {
		return 0, false, err
	}
	exitPrice, ok, err := c.priceAt(ctx, ticker, targetTime)
	if err != nil || !ok {
		return 0, false, err
	}
	return (exitPrice - entryPrice) / entryPrice * 100.0, true, nil
}
