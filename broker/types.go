// Package broker implements §6's broker abstraction plus two
// implementations: Alpaca (REST, over net/http) and Paper (in-memory),
// grounded on trader/alpaca_trader.go's request/response shapes,
// generalized to the richer, total-enum broker contract §6 specifies.
package broker

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

type TimeInForce string

const (
	TIFDay TimeInForce = "day"
	TIFGTC TimeInForce = "gtc"
)

// OrderStatus is a closed, total enum (§4.11): any broker response that
// cannot be mapped becomes StatusPending plus a logged error, never an
// "unknown" sink.
type OrderStatus string

const (
	StatusPending         OrderStatus = "pending"
	StatusSubmitted       OrderStatus = "submitted"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCancelled       OrderStatus = "cancelled"
	StatusRejected        OrderStatus = "rejected"
	StatusExpired         OrderStatus = "expired"
)

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountRestricted AccountStatus = "restricted"
)

type Account struct {
	Equity           decimal.Decimal
	BuyingPower      decimal.Decimal
	Cash             decimal.Decimal
	Status           AccountStatus
	PositionCount    int
}

type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

type Position struct {
	Ticker        string
	Side          PositionSide
	Quantity      decimal.Decimal
	EntryPrice    decimal.Decimal
	CurrentPrice  decimal.Decimal
	UnrealizedPnL decimal.Decimal
}

type Order struct {
	OrderID        string
	ClientOrderID  string
	Ticker         string
	Side           OrderSide
	Type           OrderType
	Quantity       decimal.Decimal
	FilledQuantity decimal.Decimal
	LimitPrice     *decimal.Decimal
	StopPrice      *decimal.Decimal
	FilledAvgPrice *decimal.Decimal
	Status         OrderStatus
	TimeInForce    TimeInForce
	ExtendedHours  bool
	SubmittedAt    time.Time
	FilledAt       *time.Time
}

// OrderRequest is a single (non-bracket) order.
type OrderRequest struct {
	Ticker        string
	Side          OrderSide
	Quantity      decimal.Decimal
	Type          OrderType
	LimitPrice    *decimal.Decimal
	StopPrice     *decimal.Decimal
	TimeInForce   TimeInForce
	ExtendedHours bool
	ClientOrderID string
}

// BracketOrderRequest places an entry order plus native stop-loss/take-profit
// legs in one call (broker-enforced OCO).
type BracketOrderRequest struct {
	Ticker          string
	Side            OrderSide
	Quantity        decimal.Decimal
	EntryType       OrderType
	EntryLimitPrice *decimal.Decimal
	StopLossPrice   decimal.Decimal
	TakeProfitPrice decimal.Decimal
	TimeInForce     TimeInForce
	ExtendedHours   bool
	ClientOrderID   string
}

type BracketOrder struct {
	EntryOrder      Order
	StopLossOrder   Order
	TakeProfitOrder Order
}

// MarketClock is the §6 get_clock() result.
type MarketClock struct {
	IsOpen    bool
	NextOpen  time.Time
	NextClose time.Time
}

// OrdersFilter narrows GetOrders to a status/page size.
type OrdersFilter struct {
	Status *OrderStatus
	Limit  int
}

// Broker is the §6 abstract trading interface every backend implements.
type Broker interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	GetAccount(ctx context.Context) (Account, error)
	GetPositions(ctx context.Context) ([]Position, error)
	GetPosition(ctx context.Context, ticker string) (*Position, error)
	ClosePosition(ctx context.Context, ticker string) error

	PlaceOrder(ctx context.Context, req OrderRequest) (Order, error)
	PlaceBracketOrder(ctx context.Context, req BracketOrderRequest) (BracketOrder, error)
	CancelOrder(ctx context.Context, orderID string) error
	CancelAllOrders(ctx context.Context) (int, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	GetOrders(ctx context.Context, filter OrdersFilter) ([]Order, error)

	GetClock(ctx context.Context) (MarketClock, error)
	IsMarketOpen(ctx context.Context) (bool, error)
}
