package sentiment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalystcore/clock"
	"catalystcore/types"
)

func TestLexiconSource_Bullish(t *testing.T) {
	rc := &RequestContext{Item: types.NewsItem{Title: "Company beats estimates, shares surge on strong growth"}}
	c, err := (LexiconSource{}).Score(context.Background(), rc)
	require.NoError(t, err)
	require.False(t, c.Abstained)
	assert.Greater(t, c.Score, 0.0)
}

func TestLexiconSource_AbstainsWithNoKeywords(t *testing.T) {
	rc := &RequestContext{Item: types.NewsItem{Title: "Company opens new office in Austin"}}
	c, err := (LexiconSource{}).Score(context.Background(), rc)
	require.NoError(t, err)
	assert.True(t, c.Abstained)
}

func TestAmplifySqueeze_Bands(t *testing.T) {
	a, applied := AmplifySqueeze(25, 0.55)
	assert.True(t, applied)
	assert.InDelta(t, 0.55*1.3, a, 1e-9)

	_, applied2 := AmplifySqueeze(25, 0.3) // sentiment below 0.5 threshold for the 20% band
	assert.False(t, applied2)

	_, applied3 := AmplifySqueeze(10, 0.9) // short interest too low
	assert.False(t, applied3)
}

func TestAmplifySqueeze_NeverAmplifiesNegative(t *testing.T) {
	_, applied := AmplifySqueeze(50, -0.8)
	assert.False(t, applied)
}

func TestPremarketSource_AbstainsAtExactOpen(t *testing.T) {
	loc := clock.EasternLocation()
	openInstant := time.Date(2024, 3, 4, 9, 30, 0, 0, loc) // a Monday
	rc := &RequestContext{
		Ticker: "ABCD",
		Clock:  clock.NewFrozen(openInstant),
		PremarketReturnPct: func(ctx context.Context, ticker string) (float64, error) {
			return 5.0, nil
		},
	}
	c, err := (PremarketSource{}).Score(context.Background(), rc)
	require.NoError(t, err)
	assert.True(t, c.Abstained)
}

func TestPremarketSource_ValidDuringPreMarket(t *testing.T) {
	loc := clock.EasternLocation()
	pm := time.Date(2024, 3, 4, 7, 0, 0, 0, loc)
	rc := &RequestContext{
		Ticker: "ABCD",
		Clock:  clock.NewFrozen(pm),
		PremarketReturnPct: func(ctx context.Context, ticker string) (float64, error) {
			return 5.0, nil
		},
	}
	c, err := (PremarketSource{}).Score(context.Background(), rc)
	require.NoError(t, err)
	require.False(t, c.Abstained)
	assert.InDelta(t, 0.5, c.Score, 1e-9)
}

func TestPremarketSource_ValidInFirst30MinAfterOpen(t *testing.T) {
	loc := clock.EasternLocation()
	afterOpen := time.Date(2024, 3, 4, 9, 45, 0, 0, loc)
	rc := &RequestContext{
		Ticker: "ABCD",
		Clock:  clock.NewFrozen(afterOpen),
		PremarketReturnPct: func(ctx context.Context, ticker string) (float64, error) {
			return 2.0, nil
		},
	}
	c, err := (PremarketSource{}).Score(context.Background(), rc)
	require.NoError(t, err)
	assert.False(t, c.Abstained)
}

func TestAggregator_IgnoresAbstentions(t *testing.T) {
	agg := &Aggregator{Sources: []Source{LexiconSource{}}}
	rc := &RequestContext{Item: types.NewsItem{Title: "nothing relevant here at all"}}
	res, err := agg.Aggregate(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Sentiment)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Empty(t, res.Used)
}

func TestAggregator_WeightedAverage(t *testing.T) {
	agg := &Aggregator{
		Sources: []Source{stubSource{id: "a", score: 1.0, conf: 1.0}, stubSource{id: "b", score: -1.0, conf: 1.0}},
		Weights: map[SourceID]float64{"a": 0.6, "b": 0.4},
		Confidence: map[SourceID]float64{"a": 1.0, "b": 1.0},
	}
	res, err := agg.Aggregate(context.Background(), &RequestContext{})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, res.Sentiment, 1e-9) // 0.6*1 + 0.4*-1 = 0.2
}

func TestAggregator_VIXPenalty(t *testing.T) {
	agg := &Aggregator{
		Sources:    []Source{stubSource{id: "a", score: 1.0, conf: 1.0}},
		Weights:    map[SourceID]float64{"a": 1.0},
		Confidence: map[SourceID]float64{"a": 1.0},
	}
	res, err := agg.Aggregate(context.Background(), &RequestContext{VIX: 35})
	require.NoError(t, err)
	// penalty = max(0.5, 1 - 0.02*(35-20)) = max(0.5, 0.7) = 0.7
	assert.InDelta(t, 0.7, res.Confidence, 1e-9)
}

type stubSource struct {
	id    SourceID
	score float64
	conf  float64
}

func (s stubSource) ID() SourceID { return s.id }
func (s stubSource) Score(ctx context.Context, rc *RequestContext) (Contribution, error) {
	return Contribution{Score: s.score, Confidence: s.conf}, nil
}
