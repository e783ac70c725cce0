package executor

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"catalystcore/broker"
	"catalystcore/logger"
	"catalystcore/position"
	"catalystcore/types"
	"catalystcore/xerrors"
)

// extendedHoursMarkup is the §4.11 buy-entry limit markup over the signal's
// entry price during pre-market/after-hours sessions.
const extendedHoursMarkup = 1.02

// Executor converts a TradingSignal into a broker order, persists the
// outcome, and opens a managed position on fill (§4.11).
type Executor struct {
	Broker  broker.Broker
	Store   *Store
	Managed *position.Manager

	halted atomic.Bool
}

// NewExecutor wires the broker, executed_orders store, and position manager
// together; all three are required.
func NewExecutor(b broker.Broker, store *Store, managed *position.Manager) *Executor {
	return &Executor{Broker: b, Store: store, Managed: managed}
}

// Halt engages the kill switch: every subsequent Submit call fails until
// Resume is called. Existing managed positions are untouched — halting only
// stops new order submission, per §7's "halts the executor pool" scope.
func (e *Executor) Halt() { e.halted.Store(true) }

// Resume disengages the kill switch.
func (e *Executor) Resume() { e.halted.Store(false) }

// Halted reports whether the kill switch is currently engaged.
func (e *Executor) Halted() bool { return e.halted.Load() }

// Submit converts one signal into a broker order. marketOpen selects §4.11's
// dispatch: true takes the regular-hours market+bracket path, false takes
// the extended-hours DAY-limit path. A nil, nil return means the signal was
// a no-op (ActionAvoid). ActionClose closes the ticker's existing managed
// position instead of submitting a new entry.
func (e *Executor) Submit(ctx context.Context, signal types.TradingSignal, equity decimal.Decimal, marketOpen bool) (*ExecutedOrder, error) {
	if e.halted.Load() {
		return nil, xerrors.New(xerrors.ErrValidation, "executor is halted by the kill switch")
	}
	if err := signal.Validate(); err != nil {
		return nil, err
	}

	switch signal.Action {
	case types.ActionAvoid:
		return nil, nil
	case types.ActionClose:
		return e.submitClose(ctx, signal)
	case types.ActionBuy, types.ActionSell:
		return e.submitEntry(ctx, signal, equity, marketOpen)
	default:
		return nil, xerrors.New(xerrors.ErrValidation, "unrecognized signal action "+string(signal.Action))
	}
}

func (e *Executor) submitClose(ctx context.Context, signal types.TradingSignal) (*ExecutedOrder, error) {
	p := e.Managed.PositionByTicker(signal.Ticker)
	if p == nil {
		return nil, xerrors.New(xerrors.ErrPositionNotFound, signal.Ticker)
	}

	closed := e.Managed.ClosePosition(ctx, p.PositionID)
	side := broker.SideSell
	if p.Side == broker.PositionShort {
		side = broker.SideBuy
	}

	now := time.Now()
	rec := &ExecutedOrder{
		OrderID:        uuid.NewString(),
		ClientOrderID:  uuid.NewString(),
		Ticker:         signal.Ticker,
		SignalID:       signal.SignalID,
		Side:           side,
		OrderType:      broker.OrderTypeMarket,
		Quantity:       p.Quantity,
		FilledQuantity: p.Quantity,
		Status:         broker.StatusFilled,
		SubmittedAt:    now,
		FilledAt:       &now,
	}
	if closed != nil {
		avg := closed.ExitPrice
		rec.FilledAvgPrice = &avg
	}
	if err := e.Store.insert(rec); err != nil {
		logger.Errorf("executed_order_save_failed order_id=%s error=%v", rec.OrderID, err)
	}
	return rec, nil
}

func (e *Executor) submitEntry(ctx context.Context, signal types.TradingSignal, equity decimal.Decimal, marketOpen bool) (*ExecutedOrder, error) {
	qty, err := shareQuantity(signal.PositionSizePct, equity, signal.EntryPrice)
	if err != nil {
		return nil, err
	}

	side := broker.SideBuy
	positionSide := broker.PositionLong
	if signal.Action == types.ActionSell {
		side = broker.SideSell
		positionSide = broker.PositionShort
	}

	clientOrderID := uuid.NewString()
	now := time.Now()

	var filled broker.Order
	var submitErr error
	if marketOpen {
		filled, submitErr = e.placeRegularHours(ctx, signal, side, qty, clientOrderID)
	} else {
		filled, submitErr = e.placeExtendedHours(ctx, signal, side, qty, clientOrderID)
	}

	rec := &ExecutedOrder{
		ClientOrderID: clientOrderID,
		Ticker:        signal.Ticker,
		SignalID:      signal.SignalID,
		Side:          side,
		Quantity:      decimal.NewFromInt(qty),
		SubmittedAt:   now,
	}

	if submitErr != nil {
		rec.OrderID = uuid.NewString()
		rec.OrderType = broker.OrderTypeMarket
		rec.Status = broker.StatusRejected
		rec.ErrorMessage = submitErr.Error()
		if err := e.Store.insert(rec); err != nil {
			logger.Errorf("executed_order_save_failed order_id=%s error=%v", rec.OrderID, err)
		}
		return rec, submitErr
	}

	rec.OrderID = filled.OrderID
	rec.OrderType = filled.Type
	rec.LimitPrice = filled.LimitPrice
	rec.StopPrice = filled.StopPrice
	rec.FilledAvgPrice = filled.FilledAvgPrice
	rec.FilledQuantity = filled.FilledQuantity
	rec.Status = filled.Status
	rec.FilledAt = filled.FilledAt

	if err := e.Store.insert(rec); err != nil {
		logger.Errorf("executed_order_save_failed order_id=%s error=%v", rec.OrderID, err)
	}

	if filled.Status == broker.StatusFilled {
		entryPrice := signal.EntryPrice
		if filled.FilledAvgPrice != nil {
			entryPrice = *filled.FilledAvgPrice
		}
		filledQty := decimal.NewFromInt(qty)
		if !filled.FilledQuantity.IsZero() {
			filledQty = filled.FilledQuantity
		}
		e.Managed.OpenPosition(signal.Ticker, positionSide, filledQty, entryPrice, filled.OrderID, signal.SignalID, signal.StopLossPrice, signal.TakeProfitPrice)
	}

	return rec, nil
}

// placeRegularHours submits a market-order entry with a broker-native
// bracket for stop-loss/take-profit, per §4.11's regular-hours path.
func (e *Executor) placeRegularHours(ctx context.Context, signal types.TradingSignal, side broker.OrderSide, qty int64, clientOrderID string) (broker.Order, error) {
	stop := decimal.Zero
	target := decimal.Zero
	if signal.StopLossPrice != nil {
		stop = *signal.StopLossPrice
	}
	if signal.TakeProfitPrice != nil {
		target = *signal.TakeProfitPrice
	}

	bracket, err := e.Broker.PlaceBracketOrder(ctx, broker.BracketOrderRequest{
		Ticker:          signal.Ticker,
		Side:            side,
		Quantity:        decimal.NewFromInt(qty),
		EntryType:       broker.OrderTypeMarket,
		StopLossPrice:   stop,
		TakeProfitPrice: target,
		TimeInForce:     broker.TIFGTC,
		ExtendedHours:   false,
		ClientOrderID:   clientOrderID,
	})
	if err != nil {
		return broker.Order{}, err
	}
	return bracket.EntryOrder, nil
}

// placeExtendedHours submits a DAY limit order per §4.11's extended-hours
// path. Bracket legs are not supported extended-hours; stop/target are
// still attached to the signal and recorded as managed prices for the
// position manager to enforce synthetically.
func (e *Executor) placeExtendedHours(ctx context.Context, signal types.TradingSignal, side broker.OrderSide, qty int64, clientOrderID string) (broker.Order, error) {
	limit := signal.CurrentPrice
	if side == broker.SideBuy {
		limit = signal.EntryPrice.Mul(decimal.NewFromFloat(extendedHoursMarkup))
	}

	return e.Broker.PlaceOrder(ctx, broker.OrderRequest{
		Ticker:        signal.Ticker,
		Side:          side,
		Quantity:      decimal.NewFromInt(qty),
		Type:          broker.OrderTypeLimit,
		LimitPrice:    &limit,
		TimeInForce:   broker.TIFDay,
		ExtendedHours: true,
		ClientOrderID: clientOrderID,
	})
}

// shareQuantity implements §4.11: floor(position_size_pct × equity /
// entry_price), with a floor of 1 share.
func shareQuantity(positionSizePct float64, equity, entryPrice decimal.Decimal) (int64, error) {
	if entryPrice.Sign() <= 0 {
		return 0, xerrors.New(xerrors.ErrValidation, "entry_price must be positive")
	}
	fraction := decimal.NewFromFloat(positionSizePct).Div(decimal.NewFromInt(100))
	raw := fraction.Mul(equity).Div(entryPrice)
	qty := int64(math.Floor(raw.InexactFloat64()))
	if qty < 1 {
		qty = 1
	}
	return qty, nil
}
