// Package regime implements §4.9: classifying the current market regime
// from VIX and SPY's trailing 20-day return, and emitting a multiplicative
// adjustment for the classifier. The cache and the primary-then-secondary
// fetch fallback are grounded on market/data.go's FundingRateCache pattern
// and provider/alpaca_stock_data.go's "try primary, fall back" shape.
package regime

import (
	"context"
	"time"

	"catalystcore/cache"
	"catalystcore/clock"
)

// Regime is one of the §4.9 VIX bands.
type Regime string

const (
	RegimeBull    Regime = "BULL_MARKET"
	RegimeNeutral Regime = "NEUTRAL"
	RegimeHighVol Regime = "HIGH_VOLATILITY"
	RegimeBear    Regime = "BEAR_MARKET"
	RegimeCrash   Regime = "CRASH"
)

// Multiplier returns the classifier's multiplicative adjustment for r.
func (r Regime) Multiplier() float64 {
	switch r {
	case RegimeBull:
		return 1.2
	case RegimeNeutral:
		return 1.0
	case RegimeHighVol:
		return 0.8
	case RegimeBear:
		return 0.7
	case RegimeCrash:
		return 0.5
	default:
		return 1.0
	}
}

// ClassifyVIX bands VIX per §4.9: <15 bull, <20 neutral, <30 high-vol, <40
// bear, >=40 crash.
func ClassifyVIX(vix float64) Regime {
	switch {
	case vix < 15:
		return RegimeBull
	case vix < 20:
		return RegimeNeutral
	case vix < 30:
		return RegimeHighVol
	case vix < 40:
		return RegimeBear
	default:
		return RegimeCrash
	}
}

// Trend is SPY's 20-day-return bucket.
type Trend string

const (
	TrendUptrend  Trend = "UPTREND"
	TrendSideways Trend = "SIDEWAYS"
	TrendDowntrend Trend = "DOWNTREND"
)

// ClassifyTrend buckets a 20-day SPY total return percent per §4.9:
// > +2% uptrend, < -2% downtrend, else sideways.
func ClassifyTrend(spy20dReturnPct float64) Trend {
	switch {
	case spy20dReturnPct > 2:
		return TrendUptrend
	case spy20dReturnPct < -2:
		return TrendDowntrend
	default:
		return TrendSideways
	}
}

// impliedTrend is the trend a regime would "expect" to see, used only to
// score alignment/conflict for the confidence adjustment below.
func (r Regime) impliedTrend() Trend {
	switch r {
	case RegimeBull:
		return TrendUptrend
	case RegimeBear, RegimeCrash:
		return TrendDowntrend
	default:
		return TrendSideways
	}
}

// Snapshot is the fused regime reading.
type Snapshot struct {
	Regime       Regime
	Trend        Trend
	VIX          float64
	SPY20DReturn float64
	Multiplier   float64
	Confidence   float64
}

// VIXProvider supplies the current VIX level; a real implementation fetches
// it from a market-data feed, tests stub it directly.
type VIXProvider interface {
	CurrentVIX(ctx context.Context) (float64, error)
}

// SPYProvider supplies SPY's trailing 20-trading-day total return as a
// percent.
type SPYProvider interface {
	SPY20DayReturnPct(ctx context.Context) (float64, error)
}

const cacheKey = "regime"
const defaultTTL = 5 * time.Minute

// Provider fuses VIXProvider and SPYProvider behind a shared TTL cache.
type Provider struct {
	Primary   VIXProvider
	Secondary VIXProvider
	SPY       SPYProvider
	cache     *cache.TTLCache[Snapshot]
}

func NewProvider(primary, secondary VIXProvider, spy SPYProvider, clk clock.Clock) *Provider {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Provider{Primary: primary, Secondary: secondary, SPY: spy, cache: cache.New[Snapshot](clk)}
}

// Current returns the cached regime snapshot, refreshing it if the TTL has
// lapsed. If both VIX sources fail, it returns NEUTRAL with multiplier 1.0
// and confidence 0.0 per §4.9's fallback chain, rather than erroring the
// whole classification pipeline.
func (p *Provider) Current(ctx context.Context) Snapshot {
	if snap, ok := p.cache.Get(cacheKey); ok {
		return snap
	}

	vix, vixOK := p.fetchVIX(ctx)
	if !vixOK {
		return Snapshot{Regime: RegimeNeutral, Multiplier: RegimeNeutral.Multiplier(), Confidence: 0.0}
	}

	spyReturn, spyOK := 0.0, false
	if p.SPY != nil {
		if r, err := p.SPY.SPY20DayReturnPct(ctx); err == nil {
			spyReturn, spyOK = r, true
		}
	}

	r := ClassifyVIX(vix)
	trend := ClassifyTrend(spyReturn)

	confidence := 0.6
	if spyOK {
		confidence = 1.0
		switch {
		case r.impliedTrend() == trend:
			confidence += 0.2
		case isOppositeTrend(r.impliedTrend(), trend):
			confidence -= 0.2
		}
	}
	confidence = clampConfidence(confidence)

	snap := Snapshot{
		Regime:       r,
		Trend:        trend,
		VIX:          vix,
		SPY20DReturn: spyReturn,
		Multiplier:   r.Multiplier(),
		Confidence:   confidence,
	}
	p.cache.Set(cacheKey, snap, defaultTTL)
	return snap
}

func isOppositeTrend(a, b Trend) bool {
	return (a == TrendUptrend && b == TrendDowntrend) || (a == TrendDowntrend && b == TrendUptrend)
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func (p *Provider) fetchVIX(ctx context.Context) (float64, bool) {
	if p.Primary != nil {
		if v, err := p.Primary.CurrentVIX(ctx); err == nil {
			return v, true
		}
	}
	if p.Secondary != nil {
		if v, err := p.Secondary.CurrentVIX(ctx); err == nil {
			return v, true
		}
	}
	return 0, false
}
