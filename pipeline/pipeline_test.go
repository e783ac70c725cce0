package pipeline

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalystcore/classify"
	"catalystcore/config"
	"catalystcore/sentiment"
	"catalystcore/signalgen"
	"catalystcore/types"
)

func fixedPrice(price decimal.Decimal) PriceLookup {
	return func(ctx context.Context, ticker string) (decimal.Decimal, error) {
		return price, nil
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.SignalMinScore = 1.5
	cfg.SignalMinConfidence = 0.55
	cfg.PositionSizeBasePct = 2.0
	cfg.PositionSizeMaxPct = 5.0
	return cfg
}

func TestRun_FDANewsFlowsThroughToABuySignal(t *testing.T) {
	cfg := testConfig()
	item := types.NewsItem{
		Ticker:     "XYZ",
		SourceHost: "businesswire.com",
		Title:      "XYZ Receives FDA Approval for Lead Candidate",
		Summary:    "The approval follows a positive phase 3 trial readout.",
	}
	rc := &sentiment.RequestContext{Item: item, Ticker: "XYZ"}

	p := &Pipeline{
		ClassifyDeps: classify.Deps{Config: cfg},
		Generator:    &signalgen.Generator{Config: cfg},
		Price:        fixedPrice(decimal.NewFromFloat(25.50)),
	}

	signal, scored, err := p.Run(context.Background(), item, rc)
	require.NoError(t, err)
	require.NotNil(t, scored)
	assert.Contains(t, scored.KeywordHits, "fda")

	require.NotNil(t, signal)
	assert.Equal(t, types.ActionBuy, signal.Action)
	assert.Equal(t, "XYZ", signal.Ticker)
	assert.True(t, signal.Confidence >= cfg.SignalMinConfidence)
}

func TestRun_BelowThresholdProducesScoredItemButNoSignal(t *testing.T) {
	cfg := testConfig()
	item := types.NewsItem{
		Ticker:     "ABC",
		SourceHost: "prnewswire.com",
		Title:      "ABC announces routine quarterly update",
		Summary:    "Nothing notable happened this quarter.",
	}
	rc := &sentiment.RequestContext{Item: item, Ticker: "ABC"}

	p := &Pipeline{
		ClassifyDeps: classify.Deps{Config: cfg},
		Generator:    &signalgen.Generator{Config: cfg},
		Price:        fixedPrice(decimal.NewFromFloat(10.00)),
	}

	signal, scored, err := p.Run(context.Background(), item, rc)
	require.NoError(t, err)
	require.NotNil(t, scored)
	assert.Nil(t, signal)
}

func TestRun_NoTickerSkipsSignalGenerationEntirely(t *testing.T) {
	cfg := testConfig()
	item := types.NewsItem{
		SourceHost: "businesswire.com",
		Title:      "Generic market news with no ticker attached",
	}
	rc := &sentiment.RequestContext{Item: item}

	p := &Pipeline{
		ClassifyDeps: classify.Deps{Config: cfg},
		Generator:    &signalgen.Generator{Config: cfg},
		Price:        fixedPrice(decimal.NewFromFloat(10.00)),
	}

	signal, scored, err := p.Run(context.Background(), item, rc)
	require.NoError(t, err)
	require.NotNil(t, scored)
	assert.Nil(t, signal)
}

func TestRun_PriceLookupErrorPropagates(t *testing.T) {
	cfg := testConfig()
	item := types.NewsItem{
		Ticker:     "XYZ",
		SourceHost: "businesswire.com",
		Title:      "XYZ Receives FDA Approval for Lead Candidate",
		Summary:    "The approval follows a positive phase 3 trial readout.",
	}
	rc := &sentiment.RequestContext{Item: item, Ticker: "XYZ"}

	boom := assertError{}
	p := &Pipeline{
		ClassifyDeps: classify.Deps{Config: cfg},
		Generator:    &signalgen.Generator{Config: cfg},
		Price: func(ctx context.Context, ticker string) (decimal.Decimal, error) {
			return decimal.Zero, boom
		},
	}

	signal, scored, err := p.Run(context.Background(), item, rc)
	assert.Error(t, err)
	assert.Nil(t, signal)
	require.NotNil(t, scored)
}

type assertError struct{}

func (assertError) Error() string { return "price lookup failed" }
