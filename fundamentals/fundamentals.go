// Package fundamentals implements §4.7: a cached float-shares/short-interest
// scorer. Provider calls are grounded directly on
// provider/alpaca_stock_data.go's GetShortInterest (FINRA short-interest
// endpoint) and its FMP-backed float-shares lookup; caching reuses the
// shared cache.TTLCache grounded on market/data.go's FundingRateCache.
package fundamentals

import (
	"context"
	"fmt"
	"time"

	"catalystcore/cache"
	"catalystcore/clock"
)

// Provider fetches the raw inputs this scorer bands. Implementations call
// out to Alpaca/FMP/FINRA; tests substitute a stub.
type Provider interface {
	FloatShares(ctx context.Context, ticker string) (float64, error)
	ShortInterestPct(ctx context.Context, ticker string) (float64, error)
}

const defaultTTL = 6 * time.Hour

// Scorer caches Provider results per ticker and produces the §4.7 bounded
// additive score plus descriptive tags.
type Scorer struct {
	Provider Provider
	Clock    clock.Clock
	floatCache *cache.TTLCache[float64]
	shortCache *cache.TTLCache[float64]
}

// NewScorer wires a Scorer with its own TTL caches.
func NewScorer(provider Provider, clk clock.Clock) *Scorer {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Scorer{
		Provider:   provider,
		Clock:      clk,
		floatCache: cache.New[float64](clk),
		shortCache: cache.New[float64](clk),
	}
}

// Score is the §4.7 output: a bounded additive contribution to the
// classifier's total score plus descriptive tags for the alert payload.
type Score struct {
	Value            float64
	FloatShares      float64
	ShortInterestPct float64
	Tags             []string
}

// Compute fetches (or reuses cached) float shares and short interest for
// ticker, then bands them per §4.7:
//
//	float   < 10M  -> +0.5   "low_float"
//	float   < 50M  -> +0.3   "small_float"
//	float   < 100M -> +0.1   "mid_float"
//	else           -> -0.1   "large_float"
//
//	short_interest >= 20% -> +0.5 "high_short_interest"
//	short_interest >= 15% -> +0.3 "elevated_short_interest"
//	short_interest >= 10% -> +0.15 "moderate_short_interest"
//	else                  -> +0 (no tag)
func (s *Scorer) Compute(ctx context.Context, ticker string) (Score, error) {
	floatShares, err := s.cachedFloat(ctx, ticker)
	if err != nil {
		return Score{}, fmt.Errorf("float shares lookup for %s: %w", ticker, err)
	}
	shortPct, err := s.cachedShortInterest(ctx, ticker)
	if err != nil {
		return Score{}, fmt.Errorf("short interest lookup for %s: %w", ticker, err)
	}

	var value float64
	var tags []string

	switch {
	case floatShares < 10_000_000:
		value += 0.5
		tags = append(tags, "low_float")
	case floatShares < 50_000_000:
		value += 0.3
		tags = append(tags, "small_float")
	case floatShares < 100_000_000:
		value += 0.1
		tags = append(tags, "mid_float")
	default:
		value -= 0.1
		tags = append(tags, "large_float")
	}

	switch {
	case shortPct >= 20:
		value += 0.5
		tags = append(tags, "high_short_interest")
	case shortPct >= 15:
		value += 0.3
		tags = append(tags, "elevated_short_interest")
	case shortPct >= 10:
		value += 0.15
		tags = append(tags, "moderate_short_interest")
	}

	return Score{Value: value, FloatShares: floatShares, ShortInterestPct: shortPct, Tags: tags}, nil
}

func (s *Scorer) cachedFloat(ctx context.Context, ticker string) (float64, error) {
	if v, ok := s.floatCache.Get(ticker); ok {
		return v, nil
	}
	v, err := s.Provider.FloatShares(ctx, ticker)
	if err != nil {
		return 0, err
	}
	s.floatCache.Set(ticker, v, defaultTTL)
	return v, nil
}

func (s *Scorer) cachedShortInterest(ctx context.Context, ticker string) (float64, error) {
	if v, ok := s.shortCache.Get(ticker); ok {
		return v, nil
	}
	v, err := s.Provider.ShortInterestPct(ctx, ticker)
	if err != nil {
		return 0, err
	}
	s.shortCache.Set(ticker, v, defaultTTL)
	return v, nil
}
