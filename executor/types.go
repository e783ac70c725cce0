// Package executor implements §4.11: turning a TradingSignal into a broker
// order, sizing the position, dispatching by market session, and handing a
// fill off to the position manager. Grounded on trader/alpaca_trader.go's
// REST shape for the broker leg and trader/auto_trader.go's
// poll-then-record-position idiom for order bookkeeping.
package executor

import (
	"time"

	"github.com/shopspring/decimal"

	"catalystcore/broker"
)

// ExecutedOrder is one row of the executed_orders table: every order the
// executor submits, regardless of outcome.
type ExecutedOrder struct {
	OrderID       string
	ClientOrderID string
	Ticker        string
	SignalID      string
	Side          broker.OrderSide
	OrderType     broker.OrderType

	Quantity       decimal.Decimal
	FilledQuantity decimal.Decimal
	LimitPrice     *decimal.Decimal
	StopPrice      *decimal.Decimal
	FilledAvgPrice *decimal.Decimal

	Status OrderStatus

	SubmittedAt  time.Time
	FilledAt     *time.Time
	CancelledAt  *time.Time
	ErrorMessage string
}

// OrderStatus reuses broker's total enum; a call that errors before the
// broker returns an Order at all is recorded with StatusRejected.
type OrderStatus = broker.OrderStatus
