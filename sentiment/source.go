// Package sentiment implements §4.3/§4.4: the multi-source sentiment
// aggregator and the short-interest squeeze amplifier. Each source is a
// small struct satisfying Source, grounded on the Design Notes' "list of
// (SourceId, score, confidence) triples" prescription — this keeps the
// aggregator source-agnostic instead of threading a free-form map through
// it the way the teacher's AI-prompt builders do.
package sentiment

import (
	"context"
	"time"

	"catalystcore/clock"
	"catalystcore/types"
)

// SourceID names one of the §4.3 sentiment sources.
type SourceID string

const (
	SourceEarnings     SourceID = "earnings"
	SourceML           SourceID = "ml"
	SourceVader        SourceID = "vader"
	SourceLLM          SourceID = "llm"
	SourceGoogleTrends SourceID = "google_trends"
	SourceShortInterest SourceID = "short_interest"
	SourcePremarket    SourceID = "premarket_action"
	SourceAftermarket  SourceID = "aftermarket_action"
	SourceNewsVelocity SourceID = "news_velocity"
	SourceInsider      SourceID = "insider"
	SourceDivergence   SourceID = "divergence"
)

// DefaultWeights is the default weight table from §4.3, environment-overridable
// via config.SentimentWeights.
var DefaultWeights = map[SourceID]float64{
	SourceEarnings:      0.35,
	SourceML:            0.25,
	SourceVader:         0.25,
	SourceLLM:           0.15,
	SourceGoogleTrends:  0.08,
	SourceShortInterest: 0.08,
	SourcePremarket:     0.15,
	SourceAftermarket:   0.15,
	SourceNewsVelocity:  0.05,
	SourceInsider:       0.12,
	SourceDivergence:    0.08,
}

// DefaultConfidence is the per-source confidence multiplier from §4.3.
var DefaultConfidence = map[SourceID]float64{
	SourceEarnings:      0.95,
	SourceML:            0.85,
	SourceVader:         0.60,
	SourceLLM:           0.70,
	SourceGoogleTrends:  0.65,
	SourceShortInterest: 0.80,
	SourcePremarket:     0.80,
	SourceAftermarket:   0.80,
	SourceNewsVelocity:  0.70,
	SourceInsider:       0.85,
	SourceDivergence:    0.75,
}

// Contribution is what a Source returns: a sentiment in [-1,1] with a
// confidence, or an abstention. Abstaining sources do not contribute to
// either the numerator or denominator of the aggregation (§4.3) — the
// aggregator must never substitute zero for "missing".
type Contribution struct {
	Score      float64
	Confidence float64
	Abstained  bool
}

func Abstain() Contribution { return Contribution{Abstained: true} }

// Source is one sentiment signal. Errors propagate as explicit results per
// the Design Notes' "Exceptions for control flow" note: a transient provider
// failure is reported, not silently swallowed into a zero score.
type Source interface {
	ID() SourceID
	Score(ctx context.Context, rc *RequestContext) (Contribution, error)
}

// RequestContext carries everything a Source needs: the news item, the
// clock (injectable for deterministic tests per the Design Notes' "Global
// singletons -> explicit context" note), and the provider accessors a
// source may call. Accessors are nil-able function fields rather than a
// fat interface so a test can wire only the ones it needs.
type RequestContext struct {
	Item   types.NewsItem
	Ticker string
	Clock  clock.Clock
	VIX    float64

	// GoogleTrendsRatio returns the current/baseline search-interest ratio.
	GoogleTrendsRatio func(ctx context.Context, ticker string) (float64, error)
	// ShortInterestPct returns short interest as a percent of float.
	ShortInterestPct func(ctx context.Context, ticker string) (float64, error)
	// InsiderNetValueUSD returns net Form-4 buy(+)/sell(-) value over a trailing window.
	InsiderNetValueUSD func(ctx context.Context, ticker string) (float64, error)
	// NewsVelocity returns (articles in the last hour, trailing hourly baseline).
	NewsVelocity func(ctx context.Context, ticker string) (current float64, baseline float64, err error)
	// PremarketReturnPct returns the ticker's pre-market % move so far today.
	PremarketReturnPct func(ctx context.Context, ticker string) (float64, error)
	// AftermarketReturnPct returns the ticker's after-hours % move so far.
	AftermarketReturnPct func(ctx context.Context, ticker string) (float64, error)
	// PriceVolumeChange returns the trailing price and volume % change used
	// by the divergence source.
	PriceVolumeChange func(ctx context.Context, ticker string) (priceChangePct float64, volumeChangePct float64, err error)
	// MLClassify returns a finance-domain lexical classifier's sentiment.
	MLClassify func(ctx context.Context, text string) (float64, error)
	// LLMScore delegates to the llm package's sentiment endpoint.
	LLMScore func(ctx context.Context, item types.NewsItem) (float64, error)
}

// now returns rc.Clock.Now(), defaulting to a real clock if unset so tests
// that don't care about time can omit it.
func (rc *RequestContext) now() time.Time {
	if rc.Clock == nil {
		return time.Now().UTC()
	}
	return rc.Clock.Now()
}
