package moa

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalystcore/types"
)

// fakePriceProvider answers PriceAt from a fixed ticker/time -> price table,
// keyed to the minute, so tests can script exact entry/exit prices without
// touching a network.
type fakePriceProvider struct {
	prices map[string]float64
	calls  int
}

func newFakeProvider() *fakePriceProvider {
	return &fakePriceProvider{prices: make(map[string]float64)}
}

func (f *fakePriceProvider) set(ticker string, at time.Time, price float64) {
	f.prices[ticker+"|"+at.UTC().Truncate(time.Minute).Format(time.RFC3339)] = price
}

func (f *fakePriceProvider) PriceAt(ctx context.Context, ticker string, at time.Time) (float64, bool, error) {
	f.calls++
	price, ok := f.prices[ticker+"|"+at.UTC().Truncate(time.Minute).Format(time.RFC3339)]
	return price, ok, nil
}

func TestPriceCache_HorizonReturnPct_ComputesPercentChange(t *testing.T) {
	fp := newFakeProvider()
	// Monday 2024-01-08 14:00 UTC is a regular trading day.
	rejectionTime := time.Date(2024, 1, 8, 14, 0, 0, 0, time.UTC)
	fp.set("ABCD", rejectionTime, 2.00)
	fp.set("ABCD", rejectionTime.Add(time.Hour), 2.05)

	cache := NewPriceCache(fp)
	pct, ok, err := cache.HorizonReturnPct(context.Background(), rejectionTime, types.Horizon1h, "ABCD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2.5, pct, 1e-9)
}

func TestPriceCache_RefusesFutureTargets(t *testing.T) {
	fp := newFakeProvider()
	cache := NewPriceCache(fp)
	_, ok, err := cache.HorizonReturnPct(context.Background(), time.Now(), types.Horizon7d, "ABCD")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPriceCache_CachesRepeatedLookups(t *testing.T) {
	fp := newFakeProvider()
	rejectionTime := time.Date(2024, 1, 8, 14, 0, 0, 0, time.UTC)
	fp.set("ABCD", rejectionTime, 2.00)
	fp.set("ABCD", rejectionTime.Add(time.Hour), 2.05)

	cache := NewPriceCache(fp)
	_, _, err := cache.HorizonReturnPct(context.Background(), rejectionTime, types.Horizon1h, "ABCD")
	require.NoError(t, err)
	callsAfterFirst := fp.calls

	_, _, err = cache.HorizonReturnPct(context.Background(), rejectionTime, types.Horizon1h, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, fp.calls)
}

func TestPriceCache_SkipsWeekendForward(t *testing.T) {
	fp := newFakeProvider()
	// Saturday 2024-01-06; the cache should advance to Monday 2024-01-08.
	saturday := time.Date(2024, 1, 6, 15, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 1, 8, 15, 0, 0, 0, time.UTC)
	fp.set("ABCD", monday, 10.0)
	fp.set("ABCD", monday.Add(time.Hour), 11.0)

	cache := NewPriceCache(fp)
	pct, ok, err := cache.HorizonReturnPct(context.Background(), saturday, types.Horizon1h, "ABCD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 10.0, pct, 1e-9)
}
