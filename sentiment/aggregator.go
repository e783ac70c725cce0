package sentiment

import (
	"context"

	"catalystcore/logger"
)

// Aggregator runs every configured Source and combines their contributions
// per §4.3. Weights/confidences are environment-overridable, so the zero
// value falls back to DefaultWeights/DefaultConfidence.
type Aggregator struct {
	Sources     []Source
	Weights     map[SourceID]float64
	Confidence  map[SourceID]float64
}

// Result is the aggregator's output: the fused sentiment, its confidence,
// and the per-source contributions actually used (for audit/debug).
type Result struct {
	Sentiment  float64
	Confidence float64
	Used       map[SourceID]Contribution
}

func (a *Aggregator) weight(id SourceID) float64 {
	if a.Weights != nil {
		if w, ok := a.Weights[id]; ok {
			return w
		}
	}
	return DefaultWeights[id]
}

func (a *Aggregator) confidenceMult(id SourceID) float64 {
	if a.Confidence != nil {
		if c, ok := a.Confidence[id]; ok {
			return c
		}
	}
	return DefaultConfidence[id]
}

// Aggregate implements §4.3's fusion: W_eff_i = weight_i * confidence_i over
// contributing (non-abstaining) sources; sentiment = Σ(score_i*W_eff_i) /
// Σ(W_eff_i), else 0 if nothing contributed. Confidence is
// min(1, ΣW_eff_i / Σweight_i_over_all_known_sources), then optionally
// scaled down by the VIX penalty.
func (a *Aggregator) Aggregate(ctx context.Context, rc *RequestContext) (Result, error) {
	var numerator, denomWEff, totalKnownWeight float64
	used := make(map[SourceID]Contribution)

	for _, src := range a.Sources {
		id := src.ID()
		totalKnownWeight += a.weight(id)

		contrib, err := src.Score(ctx, rc)
		if err != nil {
			// Sources never raise to the aggregator per §7; a source that
			// errors anyway is treated as an abstention so one transient
			// failure doesn't zero out every other source's contribution.
			logger.Warnf("sentiment: source %s errored, treating as abstention: %v", id, err)
			continue
		}
		if contrib.Abstained {
			continue
		}
		weff := a.weight(id) * a.confidenceMult(id)
		numerator += contrib.Score * weff
		denomWEff += weff
		used[id] = contrib
	}

	sentiment := 0.0
	if denomWEff > 0 {
		sentiment = numerator / denomWEff
	}

	confidence := 0.0
	if totalKnownWeight > 0 {
		confidence = denomWEff / totalKnownWeight
		if confidence > 1 {
			confidence = 1
		}
	}

	if rc.VIX > 20 {
		penalty := 1 - 0.02*(rc.VIX-20)
		if penalty < 0.5 {
			penalty = 0.5
		}
		confidence *= penalty
	}

	return Result{Sentiment: sentiment, Confidence: confidence, Used: used}, nil
}

// AllSources returns every §4.3 source wired to its default/zero-value
// implementation, suitable as the default Aggregator.Sources list. Callers
// inject behavior by populating the RequestContext's accessor fields rather
// than swapping sources out.
func AllSources(earningsResult *EarningsResult) []Source {
	return []Source{
		EarningsSource{Result: earningsResult},
		MLSource{},
		LexiconSource{},
		LLMSourceAdapter{},
		GoogleTrendsSource{},
		ShortInterestSource{},
		PremarketSource{},
		AftermarketSource{},
		NewsVelocitySource{},
		InsiderSource{},
		DivergenceSource{},
	}
}
