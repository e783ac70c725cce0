// Package classify implements §4.5: the fast-path classifier that
// orchestrates offering detection, the sentiment aggregator, keyword
// matching, source credibility, ticker affinity, fundamentals, and market
// regime into one ScoredItem. Step order is enforced by FastPath threading
// the ScoredItem's TotalScore as the running total, grounded on decision/localfunc.go's
// staged cotBuilder-accumulating style (there a chain-of-thought string,
// here a score).
package classify

import (
	"context"

	"catalystcore/config"
	"catalystcore/credibility"
	"catalystcore/fundamentals"
	"catalystcore/offering"
	"catalystcore/regime"
	"catalystcore/sentiment"
	"catalystcore/tickerprofile"
	"catalystcore/types"
)

const defaultMinOfferingConfidence = 0.7

// Deps bundles the collaborators FastPath threads through each step. Every
// field is optional except Aggregator; a nil collaborator disables its
// step, mirroring the feature-flag gating of §6 without the classifier
// needing to know which flag maps to which field.
type Deps struct {
	Config         *config.Config
	Aggregator     *sentiment.Aggregator
	Fundamentals   *fundamentals.Scorer
	Regime         *regime.Provider
	TickerProfiles *tickerprofile.Store
	Credibility    *credibility.DynamicScorer
	DynamicWeights map[string]float64 // loaded from MOA output per step 4
	Sector         string             // for ticker-profiler sector fallback
}

// FastPath runs the §4.5 eleven-step pipeline over item and returns a
// ScoredItem with Enriched=false. It never returns an error: per §7's
// propagation rule, the classifier's public contract is total.
func FastPath(ctx context.Context, deps Deps, item types.NewsItem, rc *sentiment.RequestContext) *types.ScoredItem {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}

	scored := &types.ScoredItem{
		Item:             item,
		NegativeKeywords: make(map[string]bool),
		AlertType:        "NEUTRAL",
	}

	// Step 1: optional earnings scoring.
	var earningsResult *sentiment.EarningsResult
	var earningsBand *EarningsResult
	if cfg.Features.EarningsScorer && item.Ticker != "" {
		if er, ok := DetectEarnings(item.Title, item.Summary); ok {
			earningsBand = &er
			earningsResult = &sentiment.EarningsResult{
				SentimentScore: er.SentimentScore,
				Label:          string(er.Label),
			}
			scored.Attach(types.EarningsAttachment{
				SentimentScore:  er.SentimentScore,
				Label:           string(er.Label),
				ScoreAdjustment: er.ScoreAdjustment,
				ConfidenceBump:  er.ConfidenceBump,
			})
		}
	}

	// Step 2: sentiment aggregator (§4.3).
	aggResult := sentiment.Result{}
	if deps.Aggregator != nil {
		if earningsResult != nil {
			deps.Aggregator.Sources = sentiment.AllSources(earningsResult)
		}
		r, err := deps.Aggregator.Aggregate(ctx, rc)
		if err == nil {
			aggResult = r
		}
	}
	scored.Sentiment = aggResult.Sentiment

	// Step 3: optional multi-dimensional sentiment blend from raw.sentiment_analysis.
	// Numeric/categorical blend wins over the aggregator's fused sentiment
	// when it is present, passes blendMultiDimSentiment's threshold, and its
	// confidence is higher than the aggregator's.
	if blended, ok := blendMultiDimSentiment(item); ok && blended.Confidence > aggResult.Confidence {
		scored.Sentiment = blended.Blended
		scored.Attach(blended)
	}

	// Step 2b (§4.2): offering-stage detection and correction. Runs after
	// aggregation so it can override the aggregated sentiment per the
	// integration contract.
	if det, ok := offering.Detect(item.Title, item.Summary); ok {
		applied := det.ShouldOverride(defaultMinOfferingConfidence)
		if applied {
			scored.Sentiment = det.Sentiment
			if det.SuppressesOfferingNegative() {
				scored.NegativeKeywords["offering_negative"] = true // marks "removed", see step 5
			}
		}
		scored.Attach(types.OfferingAttachment{
			IsOffering: true,
			Stage:      string(det.Stage),
			Confidence: det.Confidence,
			Sentiment:  det.Sentiment,
			Applied:    applied,
		})
	}

	// Step 4: keyword matching.
	combined := item.CombinedText()
	hits, totalKeywordScore := MatchKeywords(combined, deps.DynamicWeights, cfg.Features.ExtendedKeywords)
	scored.KeywordHits = hits
	scored.Tags = dedupe(hits)

	// Step 5: negative-keyword handling. §4.2 may have already marked
	// offering_negative as removed (NegativeKeywords[...] = true means
	// "removed", consistent with the offering-suppression semantics above);
	// a hit on any *other* negative category still coerces the alert red.
	offeringSuppressed := scored.NegativeKeywords["offering_negative"]
	var activeNegative bool
	for _, hit := range hits {
		if !IsNegativeCategory(hit) {
			continue
		}
		if hit == "offering_negative" && offeringSuppressed {
			continue
		}
		activeNegative = true
	}
	if activeNegative && cfg.Features.NegativeAlerts {
		scored.AlertType = "NEGATIVE"
		totalKeywordScore *= -2.0
	}

	// Step 6: source credibility. combined_source_weight = legacy static
	// weight * dynamic credibility weight (§4.1). SourceWeight is the
	// stable per-item multiplier (Open Question b); CredibilityAttachment
	// carries the full tier/dynamic breakdown separately.
	domain := credibility.BaseDomain(item.SourceHost)
	tier := credibility.ClassifyTier(item.SourceHost)
	staticWeight := tier.StaticWeight()
	combinedSourceWeight := staticWeight
	dynamicMult := 1.0
	if deps.Credibility != nil {
		combinedSourceWeight = deps.Credibility.EffectiveWeight(domain, staticWeight)
		if staticWeight != 0 {
			dynamicMult = combinedSourceWeight / staticWeight
		}
	}
	scored.SourceWeight = combinedSourceWeight
	scored.Attach(types.CredibilityAttachment{
		Domain:          domain,
		Tier:            int(tier),
		StaticWeight:    staticWeight,
		DynamicMult:     dynamicMult,
		EffectiveWeight: combinedSourceWeight,
	})

	// Step 7: optional semantic keyphrase extraction.
	if cfg.Features.SemanticKeywords {
		if phrases := extractSemanticKeywords(combined); len(phrases) > 0 {
			scored.Attach(types.SemanticKeywordsAttachment{Phrases: phrases})
		}
	}

	// Step 8: relevance, ticker multiplier, running total seed.
	relevance := totalKeywordScore * combinedSourceWeight
	if cfg.Features.TickerProfiler && deps.TickerProfiles != nil && item.Ticker != "" {
		tickerMult := deps.TickerProfiles.Multiplier(item.Ticker, hits, deps.Sector)
		relevance *= tickerMult
	}
	scored.Relevance = relevance
	scored.TotalScore = relevance + scored.Sentiment

	// Step 9: earnings boost/penalty bands. ConfidenceBump is carried on the
	// EarningsAttachment (already attached in step 1) rather than tracked
	// here, since ScoredItem has no standalone confidence field to bump.
	if earningsBand != nil {
		scored.TotalScore += earningsBand.ScoreAdjustment
	}

	// Step 10: fundamental score.
	if cfg.Features.FundamentalScoring && deps.Fundamentals != nil && item.Ticker != "" {
		if fscore, err := deps.Fundamentals.Compute(ctx, item.Ticker); err == nil {
			scored.TotalScore += fscore.Value
			scored.Attach(types.FundamentalAttachment{
				Score:            fscore.Value,
				FloatShares:      fscore.FloatShares,
				ShortInterestPct: fscore.ShortInterestPct,
				Tags:             fscore.Tags,
			})
		}
	}

	// Step 11: market-regime multiplier.
	if cfg.Features.MarketRegime && deps.Regime != nil {
		snap := deps.Regime.Current(ctx)
		scored.TotalScore *= snap.Multiplier
		scored.Attach(types.RegimeAttachment{
			Regime:     string(snap.Regime),
			Trend:      string(snap.Trend),
			Multiplier: snap.Multiplier,
			Confidence: snap.Confidence,
		})
	}

	scored.Enriched = false
	return scored
}

func blendMultiDimSentiment(item types.NewsItem) (types.MultiDimSentimentAttachment, bool) {
	raw, ok := item.Raw["sentiment_analysis"].(map[string]interface{})
	if !ok {
		return types.MultiDimSentimentAttachment{}, false
	}
	confidence, _ := raw["confidence"].(float64)
	if confidence < 0.5 {
		return types.MultiDimSentimentAttachment{}, false
	}
	numeric, _ := raw["numeric"].(float64)
	categorical, _ := raw["categorical"].(string)
	blended := 0.7*numeric + 0.3*categoricalToScore(categorical)
	return types.MultiDimSentimentAttachment{
		Numeric:     numeric,
		Categorical: categorical,
		Blended:     blended,
		Confidence:  confidence,
	}, true
}

func categoricalToScore(label string) float64 {
	switch label {
	case "bullish":
		return 0.7
	case "bearish":
		return -0.7
	default:
		return 0
	}
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

// extractSemanticKeywords is a minimal keyphrase extractor: it splits the
// lower-cased text on any character that is not a-z or a space and keeps
// the first five runs longer than 20 characters, as a stand-in for the MiniLM-backed
// extractor original_source's semantic_keywords.py uses (an embedding model
// is out of scope here; inference-only, not training, per the Non-goal).
func extractSemanticKeywords(combined string) []string {
	words := []string{}
	current := ""
	for _, r := range combined {
		if (r >= 'a' && r <= 'z') || r == ' ' {
			current += string(r)
			continue
		}
		if current != "" {
			words = append(words, current)
			current = ""
		}
	}
	if current != "" {
		words = append(words, current)
	}
	var phrases []string
	for _, w := range words {
		if len(w) > 20 {
			phrases = append(phrases, w)
		}
		if len(phrases) >= 5 {
			break
		}
	}
	return phrases
}
