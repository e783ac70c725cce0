package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTradingSignal_Validate_Buy(t *testing.T) {
	stop := dec("23.75")
	target := dec("28.00")
	s := TradingSignal{
		Action:          ActionBuy,
		EntryPrice:      dec("25.00"),
		StopLossPrice:   &stop,
		TakeProfitPrice: &target,
	}
	require.NoError(t, s.Validate())

	rr, ok := s.RiskReward()
	require.True(t, ok)
	assert.True(t, rr.GreaterThanOrEqual(dec("2.0")))
}

func TestTradingSignal_Validate_BuyRejectsInvertedPrices(t *testing.T) {
	stop := dec("26.00") // above entry: invalid for a buy
	target := dec("28.00")
	s := TradingSignal{
		Action:          ActionBuy,
		EntryPrice:      dec("25.00"),
		StopLossPrice:   &stop,
		TakeProfitPrice: &target,
	}
	assert.Error(t, s.Validate())
}

func TestTradingSignal_Validate_Sell(t *testing.T) {
	stop := dec("26.00")
	target := dec("22.00")
	s := TradingSignal{
		Action:          ActionSell,
		EntryPrice:      dec("25.00"),
		StopLossPrice:   &stop,
		TakeProfitPrice: &target,
	}
	require.NoError(t, s.Validate())
}

func TestTradingSignal_Validate_CloseSkipsRiskParams(t *testing.T) {
	s := TradingSignal{Action: ActionClose}
	assert.NoError(t, s.Validate())
}

func TestScoredItem_AttachAndAccess(t *testing.T) {
	var si ScoredItem
	si.Attach(RegimeAttachment{Regime: "BULL_MARKET", Multiplier: 1.2})
	si.Attach(RVOLAttachment{RVOL: 3.2, Multiplier: 1.2})

	r, ok := si.Regime()
	require.True(t, ok)
	assert.Equal(t, "BULL_MARKET", r.Regime)

	// Re-attaching the same kind replaces rather than appends.
	si.Attach(RegimeAttachment{Regime: "CRASH", Multiplier: 0.5})
	r2, _ := si.Regime()
	assert.Equal(t, "CRASH", r2.Regime)
	assert.Len(t, si.Attachments, 2)
}

func TestOutcomeRecord_Recompute(t *testing.T) {
	rec := OutcomeRecord{
		Outcomes: map[OutcomeHorizon]*HorizonOutcome{
			Horizon1h: {ReturnPct: 2.5},
			Horizon4h: {ReturnPct: 15.0},
		},
	}
	rec.Recompute()
	assert.True(t, rec.IsMissedOpportunity)
	assert.InDelta(t, 15.0, rec.MaxReturnPct, 1e-9)
}

func TestOutcomeRecord_Recompute_NoHit(t *testing.T) {
	rec := OutcomeRecord{
		Outcomes: map[OutcomeHorizon]*HorizonOutcome{
			Horizon1h: {ReturnPct: 2.5},
		},
	}
	rec.Recompute()
	assert.False(t, rec.IsMissedOpportunity)
	assert.InDelta(t, 2.5, rec.MaxReturnPct, 1e-9)
}
