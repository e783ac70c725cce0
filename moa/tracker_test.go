package moa

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalystcore/types"
)

func TestTracker_RunOnce_RecordsMatureHorizonsOnly(t *testing.T) {
	store := Open(t.TempDir())
	fp := newFakeProvider()

	// Rejected 2 hours ago: 15m/30m/1h have matured, 4h/1d/7d have not. The
	// per-ticker in-pass rate limit lets only the first matured horizon (15m)
	// be priced in this pass; 30m and 1h wait for a later pass.
	rejectionTime := time.Now().Add(-2 * time.Hour)
	fp.set("ABCD", rejectionTime, 5.00)
	fp.set("ABCD", rejectionTime.Add(15*time.Minute), 5.10)
	fp.set("ABCD", rejectionTime.Add(30*time.Minute), 5.20)
	fp.set("ABCD", rejectionTime.Add(time.Hour), 5.30)

	require.NoError(t, store.AppendRejected(RejectedItem{Ticker: "ABCD", Timestamp: rejectionTime, Price: 5.00}))

	tracker := NewTracker(store, NewPriceCache(fp))
	counts, err := tracker.RunOnce(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, 1, counts[types.Horizon15m])
	assert.Equal(t, 0, counts[types.Horizon30m])
	assert.Equal(t, 0, counts[types.Horizon1h])
	assert.Equal(t, 0, counts[types.Horizon4h])

	outcomes, err := store.LoadOutcomes()
	require.NoError(t, err)
	rec := outcomes[outcomeKey("ABCD", rejectionTime)]
	require.NotNil(t, rec)
	require.NotNil(t, rec.Outcomes[types.Horizon15m])
	assert.Nil(t, rec.Outcomes[types.Horizon4h])
}

func TestTracker_RunOnce_SkipsHorizonAlreadyPriced(t *testing.T) {
	store := Open(t.TempDir())
	fp := newFakeProvider()

	rejectionTime := time.Now().Add(-2 * time.Hour)
	fp.set("ABCD", rejectionTime, 5.00)
	fp.set("ABCD", rejectionTime.Add(time.Hour), 5.30)

	require.NoError(t, store.AppendRejected(RejectedItem{Ticker: "ABCD", Timestamp: rejectionTime, Price: 5.00}))
	require.NoError(t, store.UpsertOutcome(&types.OutcomeRecord{
		Ticker:         "ABCD",
		RejectionTS:    rejectionTime,
		RejectionPrice: 5.00,
		Outcomes:       map[types.OutcomeHorizon]*types.HorizonOutcome{types.Horizon1h: {ReturnPct: 6.0}},
	}))

	tracker := NewTracker(store, NewPriceCache(fp))
	counts, err := tracker.RunOnce(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[types.Horizon1h])
}
