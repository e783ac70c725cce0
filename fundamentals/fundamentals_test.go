package fundamentals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalystcore/clock"
)

var fixedNow = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

type stubProvider struct {
	float      float64
	shortPct   float64
	calls      int
}

func (p *stubProvider) FloatShares(ctx context.Context, ticker string) (float64, error) {
	p.calls++
	return p.float, nil
}

func (p *stubProvider) ShortInterestPct(ctx context.Context, ticker string) (float64, error) {
	return p.shortPct, nil
}

func TestCompute_LowFloatHighShortInterest(t *testing.T) {
	p := &stubProvider{float: 8_000_000, shortPct: 22}
	s := NewScorer(p, clock.NewFrozen(fixedNow))
	score, err := s.Compute(context.Background(), "ABCD")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score.Value, 1e-9) // +0.5 low_float + 0.5 high_short_interest
	assert.Contains(t, score.Tags, "low_float")
	assert.Contains(t, score.Tags, "high_short_interest")
}

func TestCompute_FloatBoundaryExactly10M(t *testing.T) {
	p := &stubProvider{float: 10_000_000, shortPct: 0}
	s := NewScorer(p, clock.NewFrozen(fixedNow))
	score, err := s.Compute(context.Background(), "ABCD")
	require.NoError(t, err)
	assert.Contains(t, score.Tags, "small_float")
	assert.InDelta(t, 0.3, score.Value, 1e-9)
}

func TestCompute_LargeFloatNoShortInterest(t *testing.T) {
	p := &stubProvider{float: 500_000_000, shortPct: 2}
	s := NewScorer(p, clock.NewFrozen(fixedNow))
	score, err := s.Compute(context.Background(), "ABCD")
	require.NoError(t, err)
	assert.InDelta(t, -0.1, score.Value, 1e-9)
	assert.Equal(t, []string{"large_float"}, score.Tags)
}

func TestCompute_CachesProviderCalls(t *testing.T) {
	p := &stubProvider{float: 1_000_000, shortPct: 5}
	s := NewScorer(p, clock.NewFrozen(fixedNow))
	_, err := s.Compute(context.Background(), "ABCD")
	require.NoError(t, err)
	_, err = s.Compute(context.Background(), "ABCD")
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
}
