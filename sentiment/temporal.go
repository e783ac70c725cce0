package sentiment

import (
	"context"

	"catalystcore/clock"
)

// PremarketSource is valid only in (4:00-9:30 ET) and the first 30 minutes
// after the open; outside that window it must abstain, never return zero
// (§4.3 "Temporal applicability").
type PremarketSource struct{}

func (PremarketSource) ID() SourceID { return SourcePremarket }

func (PremarketSource) Score(ctx context.Context, rc *RequestContext) (Contribution, error) {
	if rc.PremarketReturnPct == nil {
		return Abstain(), nil
	}
	now := rc.now()
	sess := clock.Session(now)
	sinceOpen := clock.MinutesSinceOpen(now)

	// The first-30-minutes-after-open grace window is strictly after the
	// open instant: at exactly 09:30:00 the session is already "regular"
	// and zero minutes have elapsed, so the boundary abstains.
	applicable := sess == clock.SessionPreMarket || (sess == clock.SessionRegular && sinceOpen > 0 && sinceOpen < 30)
	if !applicable {
		return Abstain(), nil
	}

	ret, err := rc.PremarketReturnPct(ctx, rc.Ticker)
	if err != nil {
		return Contribution{}, err
	}
	score := clamp(ret/10.0, -1, 1)
	return Contribution{Score: score, Confidence: DefaultConfidence[SourcePremarket]}, nil
}

// AftermarketSource is valid only in (16:00-20:00 ET) and the first 30
// minutes after 4:00 AM ET the following trading day; abstains otherwise.
type AftermarketSource struct{}

func (AftermarketSource) ID() SourceID { return SourceAftermarket }

func (AftermarketSource) Score(ctx context.Context, rc *RequestContext) (Contribution, error) {
	if rc.AftermarketReturnPct == nil {
		return Abstain(), nil
	}
	now := rc.now()
	sess := clock.Session(now)
	sincePreMarketStart := clock.MinutesSincePreMarketStart(now)

	applicable := sess == clock.SessionAfterHours || (sess == clock.SessionPreMarket && sincePreMarketStart > 0 && sincePreMarketStart < 30)
	if !applicable {
		return Abstain(), nil
	}

	ret, err := rc.AftermarketReturnPct(ctx, rc.Ticker)
	if err != nil {
		return Contribution{}, err
	}
	score := clamp(ret/10.0, -1, 1)
	return Contribution{Score: score, Confidence: DefaultConfidence[SourceAftermarket]}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
