// Package enrich implements §4.8: the slow-path multiplicative/additive
// adjustments applied to a ScoredItem once fast-path classification has
// run. RVOL is grounded on provider/alpaca_stock_data.go's GetVolumeSurge;
// VWAP is grounded on trader/vwap_collector.go's CalculateVWAP/
// CalculateSlope; divergence bands are grounded on the original
// volume_price_divergence.py semantics.
package enrich

import (
	"context"
	"time"

	"catalystcore/logger"
	"catalystcore/types"
)

// RVOLProvider supplies the current RVOL (current/avg-20d volume ratio) for
// a ticker.
type RVOLProvider interface {
	RVOL(ctx context.Context, ticker string) (float64, error)
}

// FloatClassProvider supplies the float-size-derived volatility multiplier
// (distinct from §4.7's additive float score).
type FloatClassProvider interface {
	FloatMultiplier(ctx context.Context, ticker string) (floatShares float64, mult float64, class string, err error)
}

// PriceChangeProvider supplies the 1-day price change percent (5.0 = +5%)
// used by the divergence step.
type PriceChangeProvider interface {
	OneDayPriceChangePct(ctx context.Context, ticker string) (float64, error)
}

// VWAPProvider supplies the session VWAP and current price for a ticker.
type VWAPProvider interface {
	VWAP(ctx context.Context, ticker string) (vwap float64, currentPrice float64, err error)
}

// Enricher runs the fixed RVOL -> Float -> Divergence -> VWAP pipeline.
type Enricher struct {
	RVOL        RVOLProvider
	FloatClass  FloatClassProvider
	PriceChange PriceChangeProvider
	VWAP        VWAPProvider
	Now         func() time.Time
}

func rvolMultiplier(rvol float64) float64 {
	switch {
	case rvol > 5:
		return 1.4
	case rvol >= 3:
		return 1.3
	case rvol >= 2:
		return 1.2
	case rvol >= 1:
		return 1.0
	default:
		return 0.8
	}
}

// Enrich mutates item in place, applying each step in the fixed order and
// logging pre/post total_score at each step. Any step whose provider errors
// logs at debug and leaves total_score unchanged, per §4.8's error policy —
// it never raises to the caller. On completion, Enriched is set true and
// EnrichmentTimestamp is stamped.
func (e *Enricher) Enrich(ctx context.Context, item *types.ScoredItem, ticker string) {
	e.applyRVOL(ctx, item, ticker)
	e.applyFloat(ctx, item, ticker)
	e.applyDivergence(ctx, item, ticker)
	e.applyVWAP(ctx, item, ticker)

	item.Enriched = true
	now := e.now()
	item.EnrichmentTimestamp = &now
}

func (e *Enricher) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

func (e *Enricher) applyRVOL(ctx context.Context, item *types.ScoredItem, ticker string) {
	if e.RVOL == nil {
		return
	}
	rvol, err := e.RVOL.RVOL(ctx, ticker)
	if err != nil {
		logger.Debugf("enrich: rvol lookup failed ticker=%s err=%v", ticker, err)
		return
	}
	mult := rvolMultiplier(rvol)
	pre := item.TotalScore
	item.TotalScore *= mult
	logger.Debugf("enrich: rvol ticker=%s rvol=%.2f mult=%.2f pre=%.3f post=%.3f", ticker, rvol, mult, pre, item.TotalScore)
	item.Attach(types.RVOLAttachment{RVOL: rvol, Multiplier: mult})
}

func (e *Enricher) applyFloat(ctx context.Context, item *types.ScoredItem, ticker string) {
	if e.FloatClass == nil {
		return
	}
	floatShares, mult, class, err := e.FloatClass.FloatMultiplier(ctx, ticker)
	if err != nil {
		logger.Debugf("enrich: float class lookup failed ticker=%s err=%v", ticker, err)
		return
	}
	pre := item.TotalScore
	item.TotalScore *= mult
	logger.Debugf("enrich: float ticker=%s class=%s mult=%.2f pre=%.3f post=%.3f", ticker, class, mult, pre, item.TotalScore)
	item.Attach(types.FloatAttachment{FloatShares: floatShares, Multiplier: mult, Class: class})
}

func (e *Enricher) applyDivergence(ctx context.Context, item *types.ScoredItem, ticker string) {
	if e.PriceChange == nil {
		return
	}
	priceChangePct, err := e.PriceChange.OneDayPriceChangePct(ctx, ticker)
	if err != nil {
		logger.Debugf("enrich: price change lookup failed ticker=%s err=%v", ticker, err)
		return
	}
	rvolAttach, hasRVOL := item.RVOL()
	if !hasRVOL {
		return
	}
	volumeChangePct := rvolAttach.RVOL - 1.0

	// The provider reports percent; classifyDivergence takes fractions.
	dtype, adjustment := classifyDivergence(priceChangePct/100, volumeChangePct)
	if dtype == divergenceNone {
		return
	}
	pre := item.TotalScore
	item.TotalScore += adjustment
	logger.Debugf("enrich: divergence ticker=%s type=%s adj=%.3f pre=%.3f post=%.3f", ticker, dtype, adjustment, pre, item.TotalScore)
	item.Attach(types.DivergenceAttachment{
		PriceChangePct:  priceChangePct,
		VolumeChangePct: volumeChangePct,
		Classification:  string(dtype),
		Adjustment:      adjustment,
	})
}

func vwapClassification(distancePct float64) (string, float64) {
	switch {
	case distancePct < -2:
		return "STRONG_BEARISH", 0.7
	case distancePct < -0.5:
		return "BEARISH", 0.9
	case distancePct <= 0.5:
		return "NEUTRAL", 1.0
	case distancePct <= 2:
		return "BULLISH", 1.1
	default:
		return "STRONG_BULLISH", 1.2
	}
}

func (e *Enricher) applyVWAP(ctx context.Context, item *types.ScoredItem, ticker string) {
	if e.VWAP == nil {
		return
	}
	vwap, currentPrice, err := e.VWAP.VWAP(ctx, ticker)
	if err != nil || vwap == 0 {
		logger.Debugf("enrich: vwap lookup failed ticker=%s err=%v", ticker, err)
		return
	}
	distancePct := (currentPrice - vwap) / vwap * 100
	classification, mult := vwapClassification(distancePct)
	vwapBreak := distancePct < -1.0

	pre := item.TotalScore
	item.TotalScore *= mult
	logger.Debugf("enrich: vwap ticker=%s distance=%.2f%% class=%s mult=%.2f pre=%.3f post=%.3f", ticker, distancePct, classification, mult, pre, item.TotalScore)
	item.Attach(types.VWAPAttachment{
		VWAP:           vwap,
		CurrentPrice:   currentPrice,
		DistancePct:    distancePct,
		Classification: classification,
		Multiplier:     mult,
		VWAPBreak:      vwapBreak,
	})
}
