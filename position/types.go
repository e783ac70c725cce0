// Package position implements §4.12: persisting open/closed positions,
// recomputing P&L on every price refresh, and evaluating stop/target/
// max-hold exits in a fixed priority order. Grounded on
// store/strategy.go's database/sql-backed store shape, adapted to the
// positions/closed_positions schema.
package position

import (
	"time"

	"github.com/shopspring/decimal"

	"catalystcore/broker"
)

// ExitReason is why a position was closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitMaxHold    ExitReason = "max_hold_time"
	ExitManual     ExitReason = "manual"
)

// Managed is an open position tracked in memory and in the positions table.
type Managed struct {
	PositionID string
	Ticker     string
	Side       broker.PositionSide

	Quantity     decimal.Decimal
	EntryPrice   decimal.Decimal
	CurrentPrice decimal.Decimal

	CostBasis        decimal.Decimal
	MarketValue      decimal.Decimal
	UnrealizedPnL    decimal.Decimal
	UnrealizedPnLPct decimal.Decimal

	StopLossPrice   *decimal.Decimal
	TakeProfitPrice *decimal.Decimal

	OpenedAt  time.Time
	UpdatedAt time.Time

	EntryOrderID string
	SignalID     string
	Strategy     string
}

// ShouldStopLoss reports whether the current price has breached the stop,
// direction-aware: for a long position the stop is a floor, for a short it
// is a ceiling.
func (m *Managed) ShouldStopLoss() bool {
	if m.StopLossPrice == nil {
		return false
	}
	if m.Side == broker.PositionShort {
		return m.CurrentPrice.GreaterThanOrEqual(*m.StopLossPrice)
	}
	return m.CurrentPrice.LessThanOrEqual(*m.StopLossPrice)
}

// ShouldTakeProfit is the mirror of ShouldStopLoss for the target price.
func (m *Managed) ShouldTakeProfit() bool {
	if m.TakeProfitPrice == nil {
		return false
	}
	if m.Side == broker.PositionShort {
		return m.CurrentPrice.LessThanOrEqual(*m.TakeProfitPrice)
	}
	return m.CurrentPrice.GreaterThanOrEqual(*m.TakeProfitPrice)
}

// HoldDuration is how long the position has been open as of now.
func (m *Managed) HoldDuration(now time.Time) time.Duration {
	return now.Sub(m.OpenedAt)
}

// Closed is an archived, realized-P&L row moved out of the open set.
type Closed struct {
	PositionID string
	Ticker     string
	Side       broker.PositionSide
	Quantity   decimal.Decimal

	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal

	CostBasis      decimal.Decimal
	RealizedPnL    decimal.Decimal
	RealizedPnLPct decimal.Decimal

	OpenedAt            time.Time
	ClosedAt            time.Time
	HoldDurationSeconds int64

	ExitReason   ExitReason
	ExitOrderID  string
	EntryOrderID string
	SignalID     string
	Strategy     string
}
