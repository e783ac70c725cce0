package position

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"catalystcore/broker"
	"catalystcore/logger"
)

// Manager tracks open positions in memory (backed by Store) and drives
// price refresh + exit evaluation, grounded on §4.12. A per-ticker mutex
// (held in lockFor) serializes price update + exit check + order submission
// for one ticker, per §5's "position updates for a given ticker must be
// serialized" rule.
type Manager struct {
	store  *Store
	broker broker.Broker

	mu        sync.RWMutex
	positions map[string]*Managed // position_id -> position

	tickerLocks sync.Map // ticker -> *sync.Mutex
}

func NewManager(store *Store, b broker.Broker) (*Manager, error) {
	m := &Manager{store: store, broker: b, positions: make(map[string]*Managed)}
	existing, err := store.loadOpenPositions()
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		m.positions[p.PositionID] = p
	}
	logger.Infof("position_manager_initialized positions=%d", len(existing))
	return m, nil
}

func (m *Manager) lockFor(ticker string) *sync.Mutex {
	v, _ := m.tickerLocks.LoadOrStore(ticker, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// OpenPosition creates a new position from a filled order (§4.11's "on a
// fill, call PositionManager.open_position").
func (m *Manager) OpenPosition(ticker string, side broker.PositionSide, quantity, entryPrice decimal.Decimal, entryOrderID, signalID string, stopLoss, takeProfit *decimal.Decimal) *Managed {
	lock := m.lockFor(ticker)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()
	costBasis := entryPrice.Mul(quantity)
	p := &Managed{
		PositionID:      uuid.NewString(),
		Ticker:          ticker,
		Side:            side,
		Quantity:        quantity,
		EntryPrice:      entryPrice,
		CurrentPrice:    entryPrice,
		CostBasis:       costBasis,
		MarketValue:     costBasis,
		UnrealizedPnL:   decimal.Zero,
		UnrealizedPnLPct: decimal.Zero,
		StopLossPrice:   stopLoss,
		TakeProfitPrice: takeProfit,
		OpenedAt:        now,
		UpdatedAt:       now,
		EntryOrderID:    entryOrderID,
		SignalID:        signalID,
		Strategy:        "catalyst_alert",
	}

	if err := m.store.upsertPosition(p); err != nil {
		logger.Errorf("save_position_failed ticker=%s error=%v", ticker, err)
	}

	m.mu.Lock()
	m.positions[p.PositionID] = p
	m.mu.Unlock()

	logger.Infof("position_opened ticker=%s qty=%s entry=%s", ticker, quantity.String(), entryPrice.String())
	return p
}

// UpdatePositionPrices refreshes current_price/market_value/unrealized_pnl
// for every open position present in priceMap. Missing prices are skipped,
// never zeroed, per §4.12. Returns the count updated.
func (m *Manager) UpdatePositionPrices(priceMap map[string]decimal.Decimal) int {
	m.mu.RLock()
	snapshot := make([]*Managed, 0, len(m.positions))
	for _, p := range m.positions {
		snapshot = append(snapshot, p)
	}
	m.mu.RUnlock()

	updated := 0
	for _, p := range snapshot {
		price, ok := priceMap[p.Ticker]
		if !ok {
			continue
		}

		lock := m.lockFor(p.Ticker)
		lock.Lock()
		p.CurrentPrice = price
		p.MarketValue = price.Mul(p.Quantity)
		if p.Side == broker.PositionShort {
			p.UnrealizedPnL = p.EntryPrice.Sub(price).Mul(p.Quantity)
		} else {
			p.UnrealizedPnL = price.Sub(p.EntryPrice).Mul(p.Quantity)
		}
		if !p.CostBasis.IsZero() {
			p.UnrealizedPnLPct = p.UnrealizedPnL.Div(p.CostBasis)
		} else {
			p.UnrealizedPnLPct = decimal.Zero
		}
		p.UpdatedAt = time.Now()

		if err := m.store.upsertPosition(p); err != nil {
			logger.Errorf("update_price_failed ticker=%s error=%v", p.Ticker, err)
		} else {
			updated++
		}
		lock.Unlock()
	}

	if updated > 0 {
		logger.Debugf("prices_updated count=%d", updated)
	}
	return updated
}

// CheckAndExecuteExits evaluates every open position for an exit trigger in
// the fixed priority order of §4.12: stop-loss, then take-profit, then
// max-hold duration. The first rule that fires closes the position; the
// remaining rules are not consulted for that position this pass.
func (m *Manager) CheckAndExecuteExits(ctx context.Context, maxHoldHours int) []*Closed {
	m.mu.RLock()
	snapshot := make([]*Managed, 0, len(m.positions))
	for _, p := range m.positions {
		snapshot = append(snapshot, p)
	}
	m.mu.RUnlock()

	var closedPositions []*Closed
	now := time.Now()
	for _, p := range snapshot {
		lock := m.lockFor(p.Ticker)
		lock.Lock()

		var reason ExitReason
		switch {
		case p.ShouldStopLoss():
			reason = ExitStopLoss
			logger.Warnf("stop_loss_triggered ticker=%s current=%s stop=%s", p.Ticker, p.CurrentPrice, p.StopLossPrice)
		case p.ShouldTakeProfit():
			reason = ExitTakeProfit
			logger.Infof("take_profit_triggered ticker=%s current=%s target=%s", p.Ticker, p.CurrentPrice, p.TakeProfitPrice)
		case p.HoldDuration(now) >= time.Duration(maxHoldHours)*time.Hour:
			reason = ExitMaxHold
			logger.Infof("max_hold_time_triggered ticker=%s hold_hours=%.1f", p.Ticker, p.HoldDuration(now).Hours())
		default:
			lock.Unlock()
			continue
		}

		closed := m.closePositionLocked(ctx, p, reason)
		lock.Unlock()
		if closed != nil {
			closedPositions = append(closedPositions, closed)
		}
	}
	return closedPositions
}

// ClosePosition closes a single position on demand (reason "manual").
func (m *Manager) ClosePosition(ctx context.Context, positionID string) *Closed {
	m.mu.RLock()
	p, ok := m.positions[positionID]
	m.mu.RUnlock()
	if !ok {
		logger.Warnf("close_position_failed position_id=%s reason=not_found", positionID)
		return nil
	}

	lock := m.lockFor(p.Ticker)
	lock.Lock()
	defer lock.Unlock()
	return m.closePositionLocked(ctx, p, ExitManual)
}

// closePositionLocked requires the caller to already hold p's ticker lock.
func (m *Manager) closePositionLocked(ctx context.Context, p *Managed, reason ExitReason) *Closed {
	exitPrice := p.CurrentPrice
	if err := m.broker.ClosePosition(ctx, p.Ticker); err != nil {
		logger.Errorf("broker_close_failed ticker=%s error=%v", p.Ticker, err)
	}

	var realizedPnL decimal.Decimal
	if p.Side == broker.PositionShort {
		realizedPnL = p.EntryPrice.Sub(exitPrice).Mul(p.Quantity)
	} else {
		realizedPnL = exitPrice.Sub(p.EntryPrice).Mul(p.Quantity)
	}
	var realizedPnLPct decimal.Decimal
	if !p.CostBasis.IsZero() {
		realizedPnLPct = realizedPnL.Div(p.CostBasis)
	}

	now := time.Now()
	closed := &Closed{
		PositionID:          p.PositionID,
		Ticker:              p.Ticker,
		Side:                p.Side,
		Quantity:            p.Quantity,
		EntryPrice:          p.EntryPrice,
		ExitPrice:           exitPrice,
		CostBasis:           p.CostBasis,
		RealizedPnL:         realizedPnL,
		RealizedPnLPct:      realizedPnLPct,
		OpenedAt:            p.OpenedAt,
		ClosedAt:            now,
		HoldDurationSeconds: int64(now.Sub(p.OpenedAt).Seconds()),
		ExitReason:          reason,
		EntryOrderID:        p.EntryOrderID,
		SignalID:            p.SignalID,
		Strategy:            p.Strategy,
	}

	if err := m.store.insertClosedPosition(closed); err != nil {
		logger.Errorf("save_closed_position_failed position_id=%s error=%v", p.PositionID, err)
	}

	m.mu.Lock()
	delete(m.positions, p.PositionID)
	m.mu.Unlock()

	logger.Infof("position_closed ticker=%s pnl=%s pnl_pct=%s reason=%s", p.Ticker, realizedPnL.String(), realizedPnLPct.String(), reason)
	return closed
}

// AllPositions returns a snapshot of every currently open position.
func (m *Manager) AllPositions() []*Managed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Managed, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out
}

// PositionByTicker returns the open position for a ticker, if any.
func (m *Manager) PositionByTicker(ticker string) *Managed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.positions {
		if p.Ticker == ticker {
			return p
		}
	}
	return nil
}
