package executor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalystcore/broker"
	"catalystcore/position"
	"catalystcore/types"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func newTestExecutor(t *testing.T, b *broker.Paper) (*Executor, *position.Manager) {
	t.Helper()
	posStore, err := position.Open(filepath.Join(t.TempDir(), "positions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { posStore.Close() })

	mgr, err := position.NewManager(posStore, b)
	require.NoError(t, err)

	execStore, err := Open(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { execStore.Close() })

	return NewExecutor(b, execStore, mgr), mgr
}

func buySignal(ticker string) types.TradingSignal {
	stop := dec(9.0)
	target := dec(12.0)
	return types.TradingSignal{
		SignalID:        "sig-1",
		Ticker:          ticker,
		Action:          types.ActionBuy,
		EntryPrice:      dec(10.0),
		CurrentPrice:    dec(10.0),
		PositionSizePct: 2.0,
		StopLossPrice:   &stop,
		TakeProfitPrice: &target,
	}
}

func TestShareQuantity_FloorsAndFloorsAtOne(t *testing.T) {
	qty, err := shareQuantity(2.0, dec(100000), dec(10.0))
	require.NoError(t, err)
	assert.Equal(t, int64(200), qty) // 0.02*100000/10 = 200

	qty, err = shareQuantity(0.001, dec(1000), dec(500))
	require.NoError(t, err)
	assert.Equal(t, int64(1), qty) // would floor to 0, clamped to 1
}

func TestShareQuantity_RejectsNonPositiveEntryPrice(t *testing.T) {
	_, err := shareQuantity(2.0, dec(100000), dec(0))
	assert.Error(t, err)
}

func TestSubmit_RegularHoursPlacesBracketAndOpensPosition(t *testing.T) {
	b := broker.NewPaper(dec(100000))
	b.SetLastPrice("XYZ", dec(10.0))
	exec, mgr := newTestExecutor(t, b)

	rec, err := exec.Submit(context.Background(), buySignal("XYZ"), dec(100000), true)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, broker.StatusFilled, rec.Status)
	assert.Equal(t, broker.OrderTypeMarket, rec.OrderType)

	p := mgr.PositionByTicker("XYZ")
	require.NotNil(t, p)
	assert.True(t, p.Quantity.Equal(dec(200)))
	require.NotNil(t, p.StopLossPrice)
	assert.True(t, p.StopLossPrice.Equal(dec(9.0)))
}

func TestSubmit_ExtendedHoursUsesDayLimitWithMarkup(t *testing.T) {
	b := broker.NewPaper(dec(100000))
	exec, mgr := newTestExecutor(t, b)

	rec, err := exec.Submit(context.Background(), buySignal("XYZ"), dec(100000), false)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, broker.OrderTypeLimit, rec.OrderType)
	require.NotNil(t, rec.LimitPrice)
	assert.True(t, rec.LimitPrice.Equal(dec(10.2))) // 10.0 * 1.02

	p := mgr.PositionByTicker("XYZ")
	require.NotNil(t, p)
}

func TestSubmit_ExtendedHoursSellUsesCurrentPriceAsLimit(t *testing.T) {
	b := broker.NewPaper(dec(100000))
	exec, _ := newTestExecutor(t, b)

	stop := dec(11.0)
	target := dec(8.0)
	signal := types.TradingSignal{
		SignalID:        "sig-2",
		Ticker:          "ABC",
		Action:          types.ActionSell,
		EntryPrice:      dec(10.0),
		CurrentPrice:    dec(10.0),
		PositionSizePct: 2.0,
		StopLossPrice:   &stop,
		TakeProfitPrice: &target,
	}

	rec, err := exec.Submit(context.Background(), signal, dec(100000), false)
	require.NoError(t, err)
	require.NotNil(t, rec.LimitPrice)
	assert.True(t, rec.LimitPrice.Equal(dec(10.0)))
}

func TestSubmit_AvoidIsANoOp(t *testing.T) {
	b := broker.NewPaper(dec(100000))
	exec, _ := newTestExecutor(t, b)

	rec, err := exec.Submit(context.Background(), types.TradingSignal{Action: types.ActionAvoid}, dec(100000), true)
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSubmit_CloseRequiresExistingPosition(t *testing.T) {
	b := broker.NewPaper(dec(100000))
	exec, _ := newTestExecutor(t, b)

	_, err := exec.Submit(context.Background(), types.TradingSignal{Action: types.ActionClose, Ticker: "NOPE"}, dec(100000), true)
	assert.Error(t, err)
}

func TestSubmit_CloseClosesExistingPosition(t *testing.T) {
	b := broker.NewPaper(dec(100000))
	b.SetLastPrice("XYZ", dec(10.0))
	exec, mgr := newTestExecutor(t, b)

	_, err := exec.Submit(context.Background(), buySignal("XYZ"), dec(100000), true)
	require.NoError(t, err)
	require.NotNil(t, mgr.PositionByTicker("XYZ"))

	b.SetLastPrice("XYZ", dec(11.0))
	rec, err := exec.Submit(context.Background(), types.TradingSignal{Action: types.ActionClose, Ticker: "XYZ"}, dec(100000), true)
	require.NoError(t, err)
	assert.Equal(t, broker.StatusFilled, rec.Status)
	assert.Nil(t, mgr.PositionByTicker("XYZ"))
}

func TestSubmit_InvalidSignalIsRejectedBeforeBrokerCall(t *testing.T) {
	b := broker.NewPaper(dec(100000))
	exec, _ := newTestExecutor(t, b)

	stop := dec(12.0) // inverted: stop above entry on a buy
	target := dec(9.0)
	signal := types.TradingSignal{
		Action:          types.ActionBuy,
		Ticker:          "BAD",
		EntryPrice:      dec(10.0),
		PositionSizePct: 2.0,
		StopLossPrice:   &stop,
		TakeProfitPrice: &target,
	}
	_, err := exec.Submit(context.Background(), signal, dec(100000), true)
	assert.Error(t, err)
}

func TestSubmit_BrokerRejectionIsPersistedAsRejected(t *testing.T) {
	b := broker.NewPaper(dec(100000)) // no last price seeded -> bracket fill fails
	exec, _ := newTestExecutor(t, b)

	rec, err := exec.Submit(context.Background(), buySignal("XYZ"), dec(100000), true)
	assert.Error(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, broker.StatusRejected, rec.Status)
	assert.NotEmpty(t, rec.ErrorMessage)
}

func TestHalt_RejectsSubmitUntilResumed(t *testing.T) {
	b := broker.NewPaper(dec(100000))
	b.SetLastPrice("HLT", dec(10.0))
	exec, _ := newTestExecutor(t, b)

	exec.Halt()
	assert.True(t, exec.Halted())
	_, err := exec.Submit(context.Background(), buySignal("HLT"), dec(100000), true)
	assert.Error(t, err)

	exec.Resume()
	assert.False(t, exec.Halted())
	_, err = exec.Submit(context.Background(), buySignal("HLT"), dec(100000), true)
	assert.NoError(t, err)
}
