package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordClassification_IncrementsCountersAndObservesDuration(t *testing.T) {
	before := testutil.ToFloat64(ItemsClassifiedTotal.WithLabelValues("accept"))
	RecordClassification("businesswire", "accept", 0.42)
	after := testutil.ToFloat64(ItemsClassifiedTotal.WithLabelValues("accept"))
	assert.Equal(t, before+1, after)
}

func TestRecordSignal_IncrementsActionCounter(t *testing.T) {
	before := testutil.ToFloat64(SignalsGeneratedTotal.WithLabelValues("buy"))
	RecordSignal("buy", 0.8)
	after := testutil.ToFloat64(SignalsGeneratedTotal.WithLabelValues("buy"))
	assert.Equal(t, before+1, after)
}

func TestSetPositionMetrics_ThenClear_RemovesSeries(t *testing.T) {
	SetPositionMetrics("ABCD", 123.45)
	assert.Equal(t, 123.45, testutil.ToFloat64(PositionUnrealizedPnL.WithLabelValues("ABCD")))

	ClearPositionMetrics("ABCD")
	assert.Equal(t, 0, testutil.CollectAndCount(PositionUnrealizedPnL, "catalyst_position_unrealized_pnl_usd"))
}

func TestRecordMOARun_SetsGaugesOnlyOnSuccess(t *testing.T) {
	RecordMOARun("no_data", 0, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(MOAMissedOpportunities))

	RecordMOARun("success", 7, 3)
	assert.Equal(t, 7.0, testutil.ToFloat64(MOAMissedOpportunities))
	assert.Equal(t, 3.0, testutil.ToFloat64(MOARecommendationsPending))
}

func TestSetLLMCircuitOpen_TogglesGauge(t *testing.T) {
	SetLLMCircuitOpen(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(LLMCircuitState))

	SetLLMCircuitOpen(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(LLMCircuitState))
}

func TestRecordPositionClosed_AddsSignedPnLToGauge(t *testing.T) {
	before := testutil.ToFloat64(RealizedPnLTotal)
	RecordPositionClosed("stop_loss", -42.50)
	after := testutil.ToFloat64(RealizedPnLTotal)
	assert.InDelta(t, before-42.50, after, 1e-9)
}
