package broker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"catalystcore/xerrors"
)

// Paper is an in-memory Broker that fills every order immediately at the
// requested (or last-quoted) price. It implements the same interface as
// Alpaca so the executor and position manager never need to know which
// backend they're driving — the split trader/alpaca_trader.go's AlpacaTrader
// already models (one concrete type per venue behind one contract), here
// generalized into a second, dependency-free implementation for tests and
// local dry runs.
type Paper struct {
	mu        sync.Mutex
	connected bool

	equity      decimal.Decimal
	buyingPower decimal.Decimal
	cash        decimal.Decimal

	positions map[string]Position
	orders    map[string]Order
	lastPrice map[string]decimal.Decimal

	marketOpen bool
}

func NewPaper(startingEquity decimal.Decimal) *Paper {
	return &Paper{
		equity:      startingEquity,
		buyingPower: startingEquity,
		cash:        startingEquity,
		positions:   make(map[string]Position),
		orders:      make(map[string]Order),
		lastPrice:   make(map[string]decimal.Decimal),
		marketOpen:  true,
	}
}

// SetLastPrice lets callers (tests, the position-price tick) seed the price
// a market order fills at.
func (p *Paper) SetLastPrice(ticker string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastPrice[ticker] = price
}

func (p *Paper) SetMarketOpen(open bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marketOpen = open
}

func (p *Paper) Connect(ctx context.Context) error    { p.connected = true; return nil }
func (p *Paper) Disconnect(ctx context.Context) error { p.connected = false; return nil }
func (p *Paper) IsConnected() bool                    { return p.connected }

func (p *Paper) GetAccount(ctx context.Context) (Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Account{
		Equity:        p.equity,
		BuyingPower:   p.buyingPower,
		Cash:          p.cash,
		Status:        AccountActive,
		PositionCount: len(p.positions),
	}, nil
}

func (p *Paper) GetPositions(ctx context.Context) ([]Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	return out, nil
}

func (p *Paper) GetPosition(ctx context.Context, ticker string) (*Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[ticker]
	if !ok {
		return nil, xerrors.New(xerrors.ErrPositionNotFound, ticker)
	}
	return &pos, nil
}

func (p *Paper) ClosePosition(ctx context.Context, ticker string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[ticker]
	if !ok {
		return xerrors.New(xerrors.ErrPositionNotFound, ticker)
	}
	price := p.priceFor(ticker, pos.CurrentPrice)
	p.settleClose(pos, price)
	delete(p.positions, ticker)
	return nil
}

func (p *Paper) priceFor(ticker string, fallback decimal.Decimal) decimal.Decimal {
	if px, ok := p.lastPrice[ticker]; ok {
		return px
	}
	return fallback
}

func (p *Paper) settleClose(pos Position, exitPrice decimal.Decimal) {
	proceeds := exitPrice.Mul(pos.Quantity)
	p.cash = p.cash.Add(proceeds)
	p.buyingPower = p.buyingPower.Add(proceeds)
}

func (p *Paper) PlaceOrder(ctx context.Context, req OrderRequest) (Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	price := p.priceFor(req.Ticker, decimal.Zero)
	if req.LimitPrice != nil {
		price = *req.LimitPrice
	}
	if price.IsZero() {
		return Order{}, xerrors.New(xerrors.ErrBrokerOrderRejected, "no price available to fill paper order for "+req.Ticker)
	}

	order := p.fill(req.Ticker, req.Side, req.Quantity, price, req.Type, req.TimeInForce, req.ExtendedHours, req.ClientOrderID)
	order.LimitPrice = req.LimitPrice
	p.applyFill(order)
	return order, nil
}

func (p *Paper) PlaceBracketOrder(ctx context.Context, req BracketOrderRequest) (BracketOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	price := p.priceFor(req.Ticker, decimal.Zero)
	if req.EntryLimitPrice != nil {
		price = *req.EntryLimitPrice
	}
	if price.IsZero() {
		return BracketOrder{}, xerrors.New(xerrors.ErrBrokerOrderRejected, "no price available to fill paper bracket order for "+req.Ticker)
	}

	entry := p.fill(req.Ticker, req.Side, req.Quantity, price, req.EntryType, req.TimeInForce, req.ExtendedHours, req.ClientOrderID)
	p.applyFill(entry)

	exitSide := SideSell
	if req.Side == SideSell {
		exitSide = SideBuy
	}
	stopLeg := Order{
		OrderID: uuid.NewString(), Ticker: req.Ticker, Side: exitSide, Type: OrderTypeStop,
		Quantity: req.Quantity, StopPrice: &req.StopLossPrice, Status: StatusSubmitted,
		TimeInForce: TIFGTC, SubmittedAt: time.Now(),
	}
	targetLeg := Order{
		OrderID: uuid.NewString(), Ticker: req.Ticker, Side: exitSide, Type: OrderTypeLimit,
		Quantity: req.Quantity, LimitPrice: &req.TakeProfitPrice, Status: StatusSubmitted,
		TimeInForce: TIFGTC, SubmittedAt: time.Now(),
	}
	p.orders[stopLeg.OrderID] = stopLeg
	p.orders[targetLeg.OrderID] = targetLeg

	return BracketOrder{EntryOrder: entry, StopLossOrder: stopLeg, TakeProfitOrder: targetLeg}, nil
}

func (p *Paper) fill(ticker string, side OrderSide, qty, price decimal.Decimal, typ OrderType, tif TimeInForce, extended bool, clientID string) Order {
	now := time.Now()
	return Order{
		OrderID:        uuid.NewString(),
		ClientOrderID:  clientID,
		Ticker:         ticker,
		Side:           side,
		Type:           typ,
		Quantity:       qty,
		FilledQuantity: qty,
		FilledAvgPrice: &price,
		Status:         StatusFilled,
		TimeInForce:    tif,
		ExtendedHours:  extended,
		SubmittedAt:    now,
		FilledAt:       &now,
	}
}

// applyFill updates cash/positions/buying-power for an immediately filled
// order. Caller holds p.mu.
func (p *Paper) applyFill(order Order) {
	p.orders[order.OrderID] = order
	cost := order.FilledAvgPrice.Mul(order.FilledQuantity)

	existing, hasPosition := p.positions[order.Ticker]
	switch order.Side {
	case SideBuy:
		p.cash = p.cash.Sub(cost)
		p.buyingPower = p.buyingPower.Sub(cost)
		if hasPosition {
			totalQty := existing.Quantity.Add(order.FilledQuantity)
			totalCost := existing.EntryPrice.Mul(existing.Quantity).Add(cost)
			existing.Quantity = totalQty
			existing.EntryPrice = totalCost.Div(totalQty)
			existing.CurrentPrice = *order.FilledAvgPrice
			p.positions[order.Ticker] = existing
		} else {
			p.positions[order.Ticker] = Position{
				Ticker: order.Ticker, Side: PositionLong, Quantity: order.FilledQuantity,
				EntryPrice: *order.FilledAvgPrice, CurrentPrice: *order.FilledAvgPrice,
			}
		}
	case SideSell:
		p.cash = p.cash.Add(cost)
		p.buyingPower = p.buyingPower.Add(cost)
		if hasPosition {
			remaining := existing.Quantity.Sub(order.FilledQuantity)
			if remaining.Sign() <= 0 {
				delete(p.positions, order.Ticker)
			} else {
				existing.Quantity = remaining
				p.positions[order.Ticker] = existing
			}
		}
	}
}

func (p *Paper) CancelOrder(ctx context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	order, ok := p.orders[orderID]
	if !ok {
		return xerrors.New(xerrors.ErrOrderNotFound, orderID)
	}
	if order.Status == StatusFilled {
		return xerrors.New(xerrors.ErrBrokerOrderRejected, "order already filled, cannot cancel")
	}
	order.Status = StatusCancelled
	p.orders[orderID] = order
	return nil
}

func (p *Paper) CancelAllOrders(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for id, order := range p.orders {
		if order.Status == StatusSubmitted || order.Status == StatusPending {
			order.Status = StatusCancelled
			p.orders[id] = order
			n++
		}
	}
	return n, nil
}

func (p *Paper) GetOrder(ctx context.Context, orderID string) (Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	order, ok := p.orders[orderID]
	if !ok {
		return Order{}, xerrors.New(xerrors.ErrOrderNotFound, orderID)
	}
	return order, nil
}

func (p *Paper) GetOrders(ctx context.Context, filter OrdersFilter) ([]Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Order
	for _, order := range p.orders {
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		out = append(out, order)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (p *Paper) GetClock(ctx context.Context) (MarketClock, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	clock := MarketClock{IsOpen: p.marketOpen, NextOpen: now, NextClose: now}
	return clock, nil
}

func (p *Paper) IsMarketOpen(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.marketOpen, nil
}
