package regime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"catalystcore/clock"
)

type stubVIX struct {
	v   float64
	err error
}

func (s stubVIX) CurrentVIX(ctx context.Context) (float64, error) { return s.v, s.err }

type stubSPY struct {
	r   float64
	err error
}

func (s stubSPY) SPY20DayReturnPct(ctx context.Context) (float64, error) { return s.r, s.err }

func TestClassifyVIX_Bands(t *testing.T) {
	assert.Equal(t, RegimeBull, ClassifyVIX(10))
	assert.Equal(t, RegimeNeutral, ClassifyVIX(18))
	assert.Equal(t, RegimeHighVol, ClassifyVIX(25))
	assert.Equal(t, RegimeBear, ClassifyVIX(35))
	assert.Equal(t, RegimeCrash, ClassifyVIX(45))
}

func TestClassifyTrend_Buckets(t *testing.T) {
	assert.Equal(t, TrendUptrend, ClassifyTrend(3))
	assert.Equal(t, TrendSideways, ClassifyTrend(0))
	assert.Equal(t, TrendDowntrend, ClassifyTrend(-3))
}

func TestProvider_AlignedRegimeBumpsConfidence(t *testing.T) {
	p := NewProvider(stubVIX{v: 10}, nil, stubSPY{r: 5}, clock.NewFrozen(time.Now()))
	snap := p.Current(context.Background())
	assert.Equal(t, RegimeBull, snap.Regime)
	assert.Equal(t, TrendUptrend, snap.Trend)
	assert.InDelta(t, 1.0, snap.Confidence, 1e-9) // clamped from 1.2
	assert.InDelta(t, 1.2, snap.Multiplier, 1e-9)
}

func TestProvider_ConflictingTrendLowersConfidence(t *testing.T) {
	p := NewProvider(stubVIX{v: 10}, nil, stubSPY{r: -5}, clock.NewFrozen(time.Now()))
	snap := p.Current(context.Background())
	assert.Equal(t, RegimeBull, snap.Regime)
	assert.InDelta(t, 0.8, snap.Confidence, 1e-9)
}

func TestProvider_FallsBackToSecondary(t *testing.T) {
	p := NewProvider(stubVIX{err: errors.New("timeout")}, stubVIX{v: 22}, stubSPY{r: 0}, clock.NewFrozen(time.Now()))
	snap := p.Current(context.Background())
	assert.Equal(t, RegimeHighVol, snap.Regime)
}

func TestProvider_BothSourcesFailReturnsNeutralZeroConfidence(t *testing.T) {
	p := NewProvider(stubVIX{err: errors.New("down")}, stubVIX{err: errors.New("down")}, nil, clock.NewFrozen(time.Now()))
	snap := p.Current(context.Background())
	assert.Equal(t, RegimeNeutral, snap.Regime)
	assert.Equal(t, 1.0, snap.Multiplier)
	assert.Equal(t, 0.0, snap.Confidence)
}

func TestProvider_CachesWithinTTL(t *testing.T) {
	calls := 0
	counting := countingVIX{v: 10, calls: &calls}
	p := NewProvider(counting, nil, stubSPY{r: 0}, clock.NewFrozen(time.Now()))
	p.Current(context.Background())
	p.Current(context.Background())
	assert.Equal(t, 1, calls)
}

type countingVIX struct {
	v     float64
	calls *int
}

func (c countingVIX) CurrentVIX(ctx context.Context) (float64, error) {
	*c.calls++
	return c.v, nil
}
