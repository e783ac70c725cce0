package position

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalystcore/broker"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "positions.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestOpenPosition_ComputesCostBasisAndPersists(t *testing.T) {
	store := newTestStore(t)
	b := broker.NewPaper(dec(100000))
	mgr, err := NewManager(store, b)
	require.NoError(t, err)

	stop := dec(9.5)
	target := dec(12.0)
	p := mgr.OpenPosition("XYZ", broker.PositionLong, dec(100), dec(10.0), "order-1", "signal-1", &stop, &target)

	assert.True(t, p.CostBasis.Equal(dec(1000)))
	assert.True(t, p.MarketValue.Equal(dec(1000)))
	assert.True(t, p.UnrealizedPnL.IsZero())

	// Reload from a fresh manager against the same store to confirm persistence.
	mgr2, err := NewManager(store, b)
	require.NoError(t, err)
	reloaded := mgr2.PositionByTicker("XYZ")
	require.NotNil(t, reloaded)
	assert.True(t, reloaded.EntryPrice.Equal(dec(10.0)))
	require.NotNil(t, reloaded.StopLossPrice)
	assert.True(t, reloaded.StopLossPrice.Equal(stop))
}

func TestUpdatePositionPrices_RecomputesPnLAndSkipsMissing(t *testing.T) {
	store := newTestStore(t)
	b := broker.NewPaper(dec(100000))
	mgr, err := NewManager(store, b)
	require.NoError(t, err)

	mgr.OpenPosition("XYZ", broker.PositionLong, dec(100), dec(10.0), "order-1", "signal-1", nil, nil)
	mgr.OpenPosition("ABC", broker.PositionLong, dec(50), dec(20.0), "order-2", "signal-2", nil, nil)

	updated := mgr.UpdatePositionPrices(map[string]decimal.Decimal{"XYZ": dec(11.0)})
	assert.Equal(t, 1, updated)

	xyz := mgr.PositionByTicker("XYZ")
	assert.True(t, xyz.CurrentPrice.Equal(dec(11.0)))
	assert.True(t, xyz.UnrealizedPnL.Equal(dec(100))) // (11-10)*100
	assert.True(t, xyz.UnrealizedPnLPct.Equal(dec(0.1)))

	abc := mgr.PositionByTicker("ABC")
	assert.True(t, abc.CurrentPrice.Equal(dec(20.0))) // unchanged, not zeroed
}

func TestUpdatePositionPrices_ShortPositionPnLSign(t *testing.T) {
	store := newTestStore(t)
	b := broker.NewPaper(dec(100000))
	mgr, err := NewManager(store, b)
	require.NoError(t, err)

	mgr.OpenPosition("XYZ", broker.PositionShort, dec(100), dec(10.0), "order-1", "signal-1", nil, nil)
	mgr.UpdatePositionPrices(map[string]decimal.Decimal{"XYZ": dec(9.0)})

	p := mgr.PositionByTicker("XYZ")
	assert.True(t, p.UnrealizedPnL.Equal(dec(100))) // (10-9)*100, short profits on price drop
}

func TestCheckAndExecuteExits_StopLossTakesPriorityOverTarget(t *testing.T) {
	store := newTestStore(t)
	b := broker.NewPaper(dec(100000))
	b.SetLastPrice("XYZ", dec(10.0))
	mgr, err := NewManager(store, b)
	require.NoError(t, err)

	stop := dec(9.0)
	// A target below entry is contrived, but it lets one price satisfy both
	// rules: at 8.5 the stop (<= 9.0) and the target (>= 8.0) both fire, and
	// the stop must win.
	target := dec(8.0)
	mgr.OpenPosition("XYZ", broker.PositionLong, dec(100), dec(10.0), "order-1", "signal-1", &stop, &target)
	mgr.UpdatePositionPrices(map[string]decimal.Decimal{"XYZ": dec(8.5)})

	closed := mgr.CheckAndExecuteExits(context.Background(), 24)
	require.Len(t, closed, 1)
	assert.Equal(t, ExitStopLoss, closed[0].ExitReason)
	assert.Nil(t, mgr.PositionByTicker("XYZ"))
}

func TestCheckAndExecuteExits_TakeProfitTriggersWhenNoStopHit(t *testing.T) {
	store := newTestStore(t)
	b := broker.NewPaper(dec(100000))
	b.SetLastPrice("XYZ", dec(10.0))
	mgr, err := NewManager(store, b)
	require.NoError(t, err)

	stop := dec(9.0)
	target := dec(12.0)
	mgr.OpenPosition("XYZ", broker.PositionLong, dec(100), dec(10.0), "order-1", "signal-1", &stop, &target)
	mgr.UpdatePositionPrices(map[string]decimal.Decimal{"XYZ": dec(12.5)})

	closed := mgr.CheckAndExecuteExits(context.Background(), 24)
	require.Len(t, closed, 1)
	assert.Equal(t, ExitTakeProfit, closed[0].ExitReason)
	assert.True(t, closed[0].RealizedPnL.Equal(dec(250))) // (12.5-10)*100
}

func TestCheckAndExecuteExits_MaxHoldTriggersWhenNeitherPriceRuleFires(t *testing.T) {
	store := newTestStore(t)
	b := broker.NewPaper(dec(100000))
	b.SetLastPrice("XYZ", dec(10.0))
	mgr, err := NewManager(store, b)
	require.NoError(t, err)

	p := mgr.OpenPosition("XYZ", broker.PositionLong, dec(100), dec(10.0), "order-1", "signal-1", nil, nil)
	p.OpenedAt = time.Now().Add(-25 * time.Hour) // force past max hold

	closed := mgr.CheckAndExecuteExits(context.Background(), 24)
	require.Len(t, closed, 1)
	assert.Equal(t, ExitMaxHold, closed[0].ExitReason)
}

func TestCheckAndExecuteExits_NoTriggerLeavesPositionOpen(t *testing.T) {
	store := newTestStore(t)
	b := broker.NewPaper(dec(100000))
	b.SetLastPrice("XYZ", dec(10.0))
	mgr, err := NewManager(store, b)
	require.NoError(t, err)

	stop := dec(9.0)
	target := dec(12.0)
	mgr.OpenPosition("XYZ", broker.PositionLong, dec(100), dec(10.0), "order-1", "signal-1", &stop, &target)

	closed := mgr.CheckAndExecuteExits(context.Background(), 24)
	assert.Empty(t, closed)
	assert.NotNil(t, mgr.PositionByTicker("XYZ"))
}

func TestClosePosition_ManualReasonAndPersistence(t *testing.T) {
	store := newTestStore(t)
	b := broker.NewPaper(dec(100000))
	b.SetLastPrice("XYZ", dec(10.0))
	mgr, err := NewManager(store, b)
	require.NoError(t, err)

	p := mgr.OpenPosition("XYZ", broker.PositionLong, dec(100), dec(10.0), "order-1", "signal-1", nil, nil)
	closed := mgr.ClosePosition(context.Background(), p.PositionID)
	require.NotNil(t, closed)
	assert.Equal(t, ExitManual, closed.ExitReason)
	assert.Nil(t, mgr.PositionByTicker("XYZ"))
}

func TestClosePosition_UnknownIDReturnsNil(t *testing.T) {
	store := newTestStore(t)
	b := broker.NewPaper(dec(100000))
	mgr, err := NewManager(store, b)
	require.NoError(t, err)
	assert.Nil(t, mgr.ClosePosition(context.Background(), "does-not-exist"))
}

func TestShouldStopLoss_ShortDirectionIsInverted(t *testing.T) {
	stop := dec(11.0)
	p := &Managed{Side: broker.PositionShort, StopLossPrice: &stop, CurrentPrice: dec(11.5)}
	assert.True(t, p.ShouldStopLoss())

	p.CurrentPrice = dec(10.5)
	assert.False(t, p.ShouldStopLoss())
}
