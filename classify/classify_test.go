package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalystcore/config"
	"catalystcore/sentiment"
	"catalystcore/types"
)

func TestMatchKeywords_EachCategoryAtMostOnce(t *testing.T) {
	combined := "company announces fda approval and also received fda clearance today"
	hits, score := MatchKeywords(combined, nil, false)
	assert.Equal(t, []string{"fda"}, hits)
	assert.InDelta(t, 1.5, score, 1e-9)
}

func TestMatchKeywords_ExtendedGatedByFlag(t *testing.T) {
	combined := "company signs multi-year government contract"
	hits, _ := MatchKeywords(combined, nil, false)
	assert.Empty(t, hits)

	hits, score := MatchKeywords(combined, nil, true)
	assert.Equal(t, []string{"tech_contracts"}, hits)
	assert.InDelta(t, 0.8, score, 1e-9)
}

func TestMatchKeywords_DynamicWeightOverridesDefault(t *testing.T) {
	combined := "fda approval granted"
	_, score := MatchKeywords(combined, map[string]float64{"fda": 2.0}, false)
	assert.InDelta(t, 2.0, score, 1e-9)
}

func TestDetectEarnings_BigBeatTakesPriorityOverBeat(t *testing.T) {
	er, ok := DetectEarnings("Company crushes analyst estimates in Q2 results", "")
	require.True(t, ok)
	assert.Equal(t, EarningsBigBeat, er.Label)
	assert.InDelta(t, 2.0, er.ScoreAdjustment, 1e-9)
}

func TestDetectEarnings_NoMatchReturnsFalse(t *testing.T) {
	_, ok := DetectEarnings("Company announces new product", "")
	assert.False(t, ok)
}

func fixedConfig() *config.Config {
	cfg := config.Default()
	cfg.Features.ExtendedKeywords = true
	cfg.Features.NegativeAlerts = true
	cfg.Features.EarningsScorer = true
	cfg.Features.SemanticKeywords = false
	cfg.Features.TickerProfiler = false
	cfg.Features.FundamentalScoring = false
	cfg.Features.MarketRegime = false
	return cfg
}

func TestFastPath_PlainFDANewsProducesPositiveScore(t *testing.T) {
	item := types.NewsItem{
		Ticker:     "XYZ",
		SourceHost: "businesswire.com",
		Title:      "XYZ Receives FDA Approval for Lead Candidate",
		Summary:    "The approval follows a positive phase 3 trial readout.",
	}
	scored := FastPath(context.Background(), Deps{Config: fixedConfig()}, item, &sentiment.RequestContext{Item: item, Ticker: "XYZ"})

	require.NotNil(t, scored)
	assert.False(t, scored.Enriched)
	assert.Contains(t, scored.KeywordHits, "fda")
	assert.Contains(t, scored.KeywordHits, "trial")
	assert.Equal(t, "NEUTRAL", scored.AlertType)
	assert.Greater(t, scored.Relevance, 0.0)

	cred, ok := scored.Credibility()
	require.True(t, ok)
	assert.Equal(t, "businesswire.com", cred.Domain)
	assert.Equal(t, 1.0, cred.StaticWeight)
	assert.Equal(t, scored.SourceWeight, cred.EffectiveWeight)
}

func TestFastPath_NegativeKeywordCoercesAlertRed(t *testing.T) {
	item := types.NewsItem{
		Ticker:     "ABC",
		SourceHost: "accesswire.com",
		Title:      "ABC Announces Going Concern Doubt in Latest Filing",
		Summary:    "The company disclosed substantial doubt about its ability to continue.",
	}
	scored := FastPath(context.Background(), Deps{Config: fixedConfig()}, item, &sentiment.RequestContext{Item: item, Ticker: "ABC"})

	assert.Equal(t, "NEGATIVE", scored.AlertType)
	assert.Contains(t, scored.KeywordHits, "distress_negative")
}

func TestFastPath_OfferingDetectionOverridesSentimentAndSuppressesNegative(t *testing.T) {
	item := types.NewsItem{
		Ticker:     "POET",
		SourceHost: "globenewswire.com",
		Title:      "POET Technologies Announces Closing of Public Offering",
		Summary:    "The offering of common shares has closed.",
	}
	scored := FastPath(context.Background(), Deps{Config: fixedConfig()}, item, &sentiment.RequestContext{Item: item, Ticker: "POET"})

	off, ok := scored.Offering()
	require.True(t, ok)
	assert.Equal(t, "closing", off.Stage)
	assert.True(t, off.Applied)
	assert.Equal(t, off.Sentiment, scored.Sentiment)
	// offering_negative was suppressed by the closing-stage correction, so
	// even though "offering" keyword phrases matched, the alert stays neutral.
	assert.NotEqual(t, "NEGATIVE", scored.AlertType)
}

func TestFastPath_PSECDebtOfferingDoesNotTriggerEquityOfferingStage(t *testing.T) {
	item := types.NewsItem{
		Ticker:     "PSEC",
		SourceHost: "prnewswire.com",
		Title:      "PSEC Prices Offering of $300 Million Senior Notes",
		Summary:    "The notes offering is expected to close next week.",
	}
	scored := FastPath(context.Background(), Deps{Config: fixedConfig()}, item, &sentiment.RequestContext{Item: item, Ticker: "PSEC"})

	off, ok := scored.Offering()
	require.True(t, ok)
	assert.Equal(t, "debt", off.Stage)
}

func TestFastPath_EarningsBigMissPenalizesScore(t *testing.T) {
	item := types.NewsItem{
		Ticker:     "DEF",
		SourceHost: "cnbc.com",
		Title:      "DEF Reports Q2 Results, Stock Plunges on Guidance Cut",
		Summary:    "Shares fell sharply after management slashed full-year guidance.",
	}
	cfg := fixedConfig()
	scored := FastPath(context.Background(), Deps{Config: cfg}, item, &sentiment.RequestContext{Item: item, Ticker: "DEF"})

	earn, ok := scored.Earnings()
	require.True(t, ok)
	assert.Equal(t, "big_miss", earn.Label)
	assert.InDelta(t, -1.5, earn.ScoreAdjustment, 1e-9)
}

func TestFastPath_EarningsScorerDisabledSkipsStep(t *testing.T) {
	item := types.NewsItem{
		Ticker:     "DEF",
		SourceHost: "cnbc.com",
		Title:      "DEF Reports Q2 Results, Stock Plunges on Guidance Cut",
		Summary:    "",
	}
	cfg := fixedConfig()
	cfg.Features.EarningsScorer = false
	scored := FastPath(context.Background(), Deps{Config: cfg}, item, &sentiment.RequestContext{Item: item, Ticker: "DEF"})

	_, ok := scored.Earnings()
	assert.False(t, ok)
}

func TestFastPath_MultiDimSentimentWinsWhenMoreConfident(t *testing.T) {
	item := types.NewsItem{
		Ticker:     "GHI",
		SourceHost: "yahoo.com",
		Title:      "GHI announces strategic partnership",
		Summary:    "no sentiment sources configured",
		Raw: map[string]interface{}{
			"sentiment_analysis": map[string]interface{}{
				"numeric":     0.8,
				"categorical": "bullish",
				"confidence":  0.9,
			},
		},
	}
	scored := FastPath(context.Background(), Deps{Config: fixedConfig()}, item, &sentiment.RequestContext{Item: item, Ticker: "GHI"})

	md, ok := scored.MultiDimSentiment()
	require.True(t, ok)
	assert.InDelta(t, 0.7*0.8+0.3*0.7, md.Blended, 1e-9)
	assert.InDelta(t, md.Blended, scored.Sentiment, 1e-9)
}

func TestFastPath_MultiDimSentimentBelowConfidenceThresholdIgnored(t *testing.T) {
	item := types.NewsItem{
		Ticker:  "GHI",
		Title:   "GHI announces strategic partnership",
		Summary: "",
		Raw: map[string]interface{}{
			"sentiment_analysis": map[string]interface{}{
				"numeric":     0.8,
				"categorical": "bullish",
				"confidence":  0.2,
			},
		},
	}
	scored := FastPath(context.Background(), Deps{Config: fixedConfig()}, item, &sentiment.RequestContext{Item: item, Ticker: "GHI"})

	_, ok := scored.MultiDimSentiment()
	assert.False(t, ok)
}

func TestFastPath_UnknownSourceFallsToTier3(t *testing.T) {
	item := types.NewsItem{
		Ticker:     "JKL",
		SourceHost: "some-random-blog.example",
		Title:      "JKL announces new product line",
		Summary:    "",
	}
	scored := FastPath(context.Background(), Deps{Config: fixedConfig()}, item, &sentiment.RequestContext{Item: item, Ticker: "JKL"})

	cred, ok := scored.Credibility()
	require.True(t, ok)
	assert.Equal(t, 3, cred.Tier)
	assert.Equal(t, 0.5, cred.StaticWeight)
}
