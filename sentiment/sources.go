package sentiment

import "context"

// MLSource is the "ml" finance-domain lexical classifier entry. §4.3 treats
// it as a pluggable classifier (training is a declared Non-goal); this is a
// thin adapter over an injected classifier function so a real model can be
// wired in without touching the aggregator.
type MLSource struct{}

func (MLSource) ID() SourceID { return SourceML }

func (MLSource) Score(ctx context.Context, rc *RequestContext) (Contribution, error) {
	if rc.MLClassify == nil {
		return Abstain(), nil
	}
	score, err := rc.MLClassify(ctx, rc.Item.CombinedText())
	if err != nil {
		return Contribution{}, err
	}
	return Contribution{Score: clamp(score, -1, 1), Confidence: DefaultConfidence[SourceML]}, nil
}

// LLMSourceAdapter delegates to the llm package's sentiment endpoint (§6).
type LLMSourceAdapter struct{}

func (LLMSourceAdapter) ID() SourceID { return SourceLLM }

func (LLMSourceAdapter) Score(ctx context.Context, rc *RequestContext) (Contribution, error) {
	if rc.LLMScore == nil {
		return Abstain(), nil
	}
	score, err := rc.LLMScore(ctx, rc.Item)
	if err != nil {
		return Contribution{}, err
	}
	return Contribution{Score: clamp(score, -1, 1), Confidence: DefaultConfidence[SourceLLM]}, nil
}

// GoogleTrendsSource turns a search-interest spike ratio into a bounded,
// never-negative sentiment: ratio <= 1.0 (flat or declining interest)
// abstains rather than scoring bearish, and every 2x above that maps to
// +0.5, clamped to [0,1]. Declining search interest says nothing bearish on
// its own, only that attention isn't spiking.
type GoogleTrendsSource struct{}

func (GoogleTrendsSource) ID() SourceID { return SourceGoogleTrends }

func (GoogleTrendsSource) Score(ctx context.Context, rc *RequestContext) (Contribution, error) {
	if rc.GoogleTrendsRatio == nil {
		return Abstain(), nil
	}
	ratio, err := rc.GoogleTrendsRatio(ctx, rc.Ticker)
	if err != nil {
		return Contribution{}, err
	}
	if ratio <= 1.0 {
		return Abstain(), nil
	}
	score := clamp((ratio-1.0)/2.0, 0, 1)
	return Contribution{Score: score, Confidence: DefaultConfidence[SourceGoogleTrends]}, nil
}

// NewsVelocitySource compares the current hourly article rate to its
// trailing baseline; a velocity spike is treated as a mild bullish signal
// (attention), a drop as mildly bearish (fading interest).
type NewsVelocitySource struct{}

func (NewsVelocitySource) ID() SourceID { return SourceNewsVelocity }

func (NewsVelocitySource) Score(ctx context.Context, rc *RequestContext) (Contribution, error) {
	if rc.NewsVelocity == nil {
		return Abstain(), nil
	}
	current, baseline, err := rc.NewsVelocity(ctx, rc.Ticker)
	if err != nil {
		return Contribution{}, err
	}
	if baseline <= 0 {
		return Abstain(), nil
	}
	ratio := current / baseline
	score := clamp((ratio-1.0)/3.0, -1, 1)
	return Contribution{Score: score, Confidence: DefaultConfidence[SourceNewsVelocity]}, nil
}

// InsiderSource scores Form-4 net insider buying/selling; net value is
// expressed in USD and scaled against a $1M reference so typical insider
// transactions land within [-1,1] without clipping every signal to the rail.
type InsiderSource struct{}

func (InsiderSource) ID() SourceID { return SourceInsider }

func (InsiderSource) Score(ctx context.Context, rc *RequestContext) (Contribution, error) {
	if rc.InsiderNetValueUSD == nil {
		return Abstain(), nil
	}
	net, err := rc.InsiderNetValueUSD(ctx, rc.Ticker)
	if err != nil {
		return Contribution{}, err
	}
	if net == 0 {
		return Abstain(), nil
	}
	score := clamp(net/1_000_000.0, -1, 1)
	return Contribution{Score: score, Confidence: DefaultConfidence[SourceInsider]}, nil
}

// DivergenceSource is the sentiment-facing half of §4.8's price/volume
// divergence signal: price up on falling volume (or vice versa) is a weak
// warning sign, folded in here as a small nudge against the price
// direction; price and volume moving together reinforces the move's
// sentiment mildly.
type DivergenceSource struct{}

func (DivergenceSource) ID() SourceID { return SourceDivergence }

func (DivergenceSource) Score(ctx context.Context, rc *RequestContext) (Contribution, error) {
	if rc.PriceVolumeChange == nil {
		return Abstain(), nil
	}
	priceChangePct, volumeChangePct, err := rc.PriceVolumeChange(ctx, rc.Ticker)
	if err != nil {
		return Contribution{}, err
	}
	classification, adjustment := classifyDivergence(priceChangePct, volumeChangePct)
	if classification == divergenceNone {
		return Abstain(), nil
	}
	return Contribution{Score: clamp(adjustment, -1, 1), Confidence: DefaultConfidence[SourceDivergence]}, nil
}

// EarningsResult is the earnings-beat/miss signal detected in the fast
// path (§4.5 step 1); it feeds the aggregator with its own weight and,
// separately, additively adjusts the classifier's total score.
type EarningsResult struct {
	SentimentScore float64
	Label          string
	ActualEPS      *float64
	EstimateEPS    *float64
	ActualRevenue  *float64
	EstimateRevenue *float64
}

// EarningsSource wraps a pre-computed EarningsResult (produced upstream by
// the earnings detector) as a Source so it flows through the same
// aggregation math as every other source.
type EarningsSource struct {
	Result *EarningsResult
}

func (EarningsSource) ID() SourceID { return SourceEarnings }

func (s EarningsSource) Score(ctx context.Context, rc *RequestContext) (Contribution, error) {
	if s.Result == nil {
		return Abstain(), nil
	}
	return Contribution{Score: clamp(s.Result.SentimentScore, -1, 1), Confidence: DefaultConfidence[SourceEarnings]}, nil
}
