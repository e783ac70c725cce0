package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"catalystcore/logger"
	"catalystcore/xerrors"
)

const (
	alpacaLiveBaseURL  = "https://api.alpaca.markets"
	alpacaPaperBaseURL = "https://paper-api.alpaca.markets"

	retryBaseDelay = 1 * time.Second
	maxRetries     = 3
)

// Alpaca implements Broker against Alpaca's trading REST API, grounded on
// trader/alpaca_trader.go's doRequest helper: same header/auth shape, same
// plain net/http client, generalized here with the §4.11 retry policy
// (5xx/429 exponential backoff base 1s capped at 3 retries, no retry on
// 401) that the teacher's own client doesn't implement.
type Alpaca struct {
	APIKey    string
	APISecret string
	BaseURL   string // overridable for tests
	DataURL   string

	httpClient *http.Client
	connected  bool
}

func NewAlpaca(apiKey, apiSecret string, paper bool) *Alpaca {
	base := alpacaLiveBaseURL
	if paper {
		base = alpacaPaperBaseURL
	}
	return &Alpaca{
		APIKey:     apiKey,
		APISecret:  apiSecret,
		BaseURL:    base,
		DataURL:    "https://data.alpaca.markets",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Alpaca) Connect(ctx context.Context) error {
	_, err := a.request(ctx, http.MethodGet, "/v2/account", nil)
	if err != nil {
		return err
	}
	a.connected = true
	return nil
}

func (a *Alpaca) Disconnect(ctx context.Context) error {
	a.connected = false
	return nil
}

func (a *Alpaca) IsConnected() bool { return a.connected }

// request performs one Alpaca call, retrying 429/5xx with exponential
// backoff (base 1s, capped at 3 retries) and surfacing 401 immediately
// without retrying, per §4.11.
func (a *Alpaca) request(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var reqBody io.Reader
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			reqBody = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("APCA-API-KEY-ID", a.APIKey)
		req.Header.Set("APCA-API-SECRET-KEY", a.APISecret)
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.httpClient.Do(req)
		if err != nil {
			lastErr = xerrors.Wrap(xerrors.ErrTransientProvider, "alpaca request failed", err)
			continue
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, xerrors.New(xerrors.ErrAuth, "alpaca authentication failed")
		case resp.StatusCode == http.StatusTooManyRequests:
			logger.Warnf("alpaca rate limited, attempt=%d", attempt)
			lastErr = xerrors.New(xerrors.ErrTransientProvider, "alpaca rate limit exceeded")
			continue
		case resp.StatusCode >= 500:
			lastErr = xerrors.New(xerrors.ErrTransientProvider, fmt.Sprintf("alpaca server error %d", resp.StatusCode))
			continue
		case resp.StatusCode >= 400:
			msg := string(respBody)
			if containsAny(msg, "insufficient", "buying power") {
				return nil, xerrors.New(xerrors.ErrInsufficientFunds, msg)
			}
			return nil, xerrors.New(xerrors.ErrBrokerOrderRejected, msg)
		default:
			return respBody, nil
		}
	}
	return nil, lastErr
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(s) >= len(sub) {
			for i := 0; i+len(sub) <= len(s); i++ {
				if equalFold(s[i:i+len(sub)], sub) {
					return true
				}
			}
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func (a *Alpaca) GetAccount(ctx context.Context) (Account, error) {
	body, err := a.request(ctx, http.MethodGet, "/v2/account", nil)
	if err != nil {
		return Account{}, err
	}
	var raw struct {
		Equity      string `json:"equity"`
		BuyingPower string `json:"buying_power"`
		Cash        string `json:"cash"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Account{}, fmt.Errorf("parsing account: %w", err)
	}
	equity, _ := decimal.NewFromString(raw.Equity)
	bp, _ := decimal.NewFromString(raw.BuyingPower)
	cash, _ := decimal.NewFromString(raw.Cash)
	status := AccountActive
	if raw.Status != "ACTIVE" {
		status = AccountRestricted
	}
	return Account{Equity: equity, BuyingPower: bp, Cash: cash, Status: status}, nil
}

type alpacaPosition struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
	CurrentPrice  string `json:"current_price"`
	UnrealizedPL  string `json:"unrealized_pl"`
}

func (a *Alpaca) GetPositions(ctx context.Context) ([]Position, error) {
	body, err := a.request(ctx, http.MethodGet, "/v2/positions", nil)
	if err != nil {
		return nil, err
	}
	var raw []alpacaPosition
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing positions: %w", err)
	}
	positions := make([]Position, 0, len(raw))
	for _, p := range raw {
		positions = append(positions, parsePosition(p))
	}
	return positions, nil
}

func parsePosition(p alpacaPosition) Position {
	qty, _ := decimal.NewFromString(p.Qty)
	side := PositionLong
	if qty.Sign() < 0 {
		side = PositionShort
		qty = qty.Abs()
	}
	entry, _ := decimal.NewFromString(p.AvgEntryPrice)
	cur, _ := decimal.NewFromString(p.CurrentPrice)
	pnl, _ := decimal.NewFromString(p.UnrealizedPL)
	return Position{
		Ticker:        p.Symbol,
		Side:          side,
		Quantity:      qty,
		EntryPrice:    entry,
		CurrentPrice:  cur,
		UnrealizedPnL: pnl,
	}
}

func (a *Alpaca) GetPosition(ctx context.Context, ticker string) (*Position, error) {
	body, err := a.request(ctx, http.MethodGet, "/v2/positions/"+ticker, nil)
	if err != nil {
		if xerrors.Transient(err) {
			return nil, err
		}
		return nil, xerrors.Wrap(xerrors.ErrPositionNotFound, ticker, err)
	}
	var raw alpacaPosition
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	pos := parsePosition(raw)
	return &pos, nil
}

func (a *Alpaca) ClosePosition(ctx context.Context, ticker string) error {
	_, err := a.request(ctx, http.MethodDelete, "/v2/positions/"+ticker, nil)
	return err
}

func (a *Alpaca) PlaceOrder(ctx context.Context, req OrderRequest) (Order, error) {
	payload := map[string]interface{}{
		"symbol":        req.Ticker,
		"qty":           req.Quantity.String(),
		"side":          string(req.Side),
		"type":          string(req.Type),
		"time_in_force": string(req.TimeInForce),
		"extended_hours": req.ExtendedHours,
	}
	if req.LimitPrice != nil {
		payload["limit_price"] = req.LimitPrice.String()
	}
	if req.StopPrice != nil {
		payload["stop_price"] = req.StopPrice.String()
	}
	if req.ClientOrderID != "" {
		payload["client_order_id"] = req.ClientOrderID
	}

	body, err := a.request(ctx, http.MethodPost, "/v2/orders", payload)
	if err != nil {
		return Order{}, err
	}
	return parseOrder(body)
}

func (a *Alpaca) PlaceBracketOrder(ctx context.Context, req BracketOrderRequest) (BracketOrder, error) {
	payload := map[string]interface{}{
		"symbol":        req.Ticker,
		"qty":           req.Quantity.String(),
		"side":          string(req.Side),
		"type":          string(req.EntryType),
		"time_in_force": string(req.TimeInForce),
		"order_class":   "bracket",
		"take_profit":   map[string]string{"limit_price": req.TakeProfitPrice.String()},
		"stop_loss":     map[string]string{"stop_price": req.StopLossPrice.String()},
		"extended_hours": req.ExtendedHours,
	}
	if req.EntryLimitPrice != nil {
		payload["limit_price"] = req.EntryLimitPrice.String()
	}
	if req.ClientOrderID != "" {
		payload["client_order_id"] = req.ClientOrderID
	}

	body, err := a.request(ctx, http.MethodPost, "/v2/orders", payload)
	if err != nil {
		return BracketOrder{}, err
	}

	var raw struct {
		alpacaOrder
		Legs []alpacaOrder `json:"legs"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return BracketOrder{}, fmt.Errorf("parsing bracket order: %w", err)
	}
	entry := raw.alpacaOrder.toOrder()

	var stopLeg, targetLeg *Order
	for _, leg := range raw.Legs {
		o := leg.toOrder()
		if leg.StopPrice != "" {
			stopLeg = &o
		} else {
			targetLeg = &o
		}
	}
	if stopLeg == nil || targetLeg == nil {
		return BracketOrder{}, xerrors.New(xerrors.ErrBrokerOrderRejected, "bracket order missing stop loss or take profit leg")
	}
	return BracketOrder{EntryOrder: entry, StopLossOrder: *stopLeg, TakeProfitOrder: *targetLeg}, nil
}

func (a *Alpaca) CancelOrder(ctx context.Context, orderID string) error {
	_, err := a.request(ctx, http.MethodDelete, "/v2/orders/"+orderID, nil)
	return err
}

func (a *Alpaca) CancelAllOrders(ctx context.Context) (int, error) {
	body, err := a.request(ctx, http.MethodDelete, "/v2/orders", nil)
	if err != nil {
		return 0, err
	}
	var cancelled []interface{}
	if err := json.Unmarshal(body, &cancelled); err != nil {
		return 0, nil
	}
	return len(cancelled), nil
}

func (a *Alpaca) GetOrder(ctx context.Context, orderID string) (Order, error) {
	body, err := a.request(ctx, http.MethodGet, "/v2/orders/"+orderID, nil)
	if err != nil {
		return Order{}, err
	}
	return parseOrder(body)
}

func (a *Alpaca) GetOrders(ctx context.Context, filter OrdersFilter) ([]Order, error) {
	status := "open"
	if filter.Status != nil {
		status = mapStatusForQuery(*filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	path := fmt.Sprintf("/v2/orders?status=%s&limit=%d", status, limit)
	body, err := a.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var raw []alpacaOrder
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing orders: %w", err)
	}
	orders := make([]Order, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, o.toOrder())
	}
	return orders, nil
}

func mapStatusForQuery(status OrderStatus) string {
	switch status {
	case StatusFilled, StatusCancelled, StatusRejected, StatusExpired:
		return "closed"
	default:
		return "open"
	}
}

type alpacaOrder struct {
	ID             string `json:"id"`
	ClientOrderID  string `json:"client_order_id"`
	Symbol         string `json:"symbol"`
	Side           string `json:"side"`
	Type           string `json:"type"`
	Qty            string `json:"qty"`
	FilledQty      string `json:"filled_qty"`
	LimitPrice     string `json:"limit_price"`
	StopPrice      string `json:"stop_price"`
	FilledAvgPrice string `json:"filled_avg_price"`
	Status         string `json:"status"`
	TimeInForce    string `json:"time_in_force"`
	ExtendedHours  bool   `json:"extended_hours"`
	SubmittedAt    string `json:"submitted_at"`
	FilledAt       string `json:"filled_at"`
}

func parseOrder(body []byte) (Order, error) {
	var raw alpacaOrder
	if err := json.Unmarshal(body, &raw); err != nil {
		return Order{}, fmt.Errorf("parsing order: %w", err)
	}
	return raw.toOrder(), nil
}

func (o alpacaOrder) toOrder() Order {
	qty, _ := decimal.NewFromString(o.Qty)
	filledQty, _ := decimal.NewFromString(o.FilledQty)

	var limitPrice, stopPrice, filledAvg *decimal.Decimal
	if o.LimitPrice != "" {
		d, _ := decimal.NewFromString(o.LimitPrice)
		limitPrice = &d
	}
	if o.StopPrice != "" {
		d, _ := decimal.NewFromString(o.StopPrice)
		stopPrice = &d
	}
	if o.FilledAvgPrice != "" {
		d, _ := decimal.NewFromString(o.FilledAvgPrice)
		filledAvg = &d
	}

	submitted, _ := time.Parse(time.RFC3339, o.SubmittedAt)
	var filledAt *time.Time
	if o.FilledAt != "" {
		if t, err := time.Parse(time.RFC3339, o.FilledAt); err == nil {
			filledAt = &t
		}
	}

	return Order{
		OrderID:        o.ID,
		ClientOrderID:  o.ClientOrderID,
		Ticker:         o.Symbol,
		Side:           OrderSide(o.Side),
		Type:           OrderType(o.Type),
		Quantity:       qty,
		FilledQuantity: filledQty,
		LimitPrice:     limitPrice,
		StopPrice:      stopPrice,
		FilledAvgPrice: filledAvg,
		Status:         mapOrderStatus(o.Status),
		TimeInForce:    TimeInForce(o.TimeInForce),
		ExtendedHours:  o.ExtendedHours,
		SubmittedAt:    submitted,
		FilledAt:       filledAt,
	}
}

// mapOrderStatus is the total enum mapping of §4.11: an Alpaca status this
// table doesn't recognize is logged at error level here and resolves to
// StatusPending, never an opaque passthrough string.
func mapOrderStatus(alpacaStatus string) OrderStatus {
	switch alpacaStatus {
	case "new", "accepted", "pending_cancel", "pending_replace":
		return StatusSubmitted
	case "pending_new":
		return StatusPending
	case "partially_filled":
		return StatusPartiallyFilled
	case "filled", "done_for_day":
		return StatusFilled
	case "canceled", "replaced":
		return StatusCancelled
	case "expired":
		return StatusExpired
	case "rejected":
		return StatusRejected
	default:
		logger.Errorf("alpaca: unmapped order status %q, defaulting to pending", alpacaStatus)
		return StatusPending
	}
}

func (a *Alpaca) GetClock(ctx context.Context) (MarketClock, error) {
	body, err := a.request(ctx, http.MethodGet, "/v2/clock", nil)
	if err != nil {
		return MarketClock{}, err
	}
	var raw struct {
		IsOpen    bool   `json:"is_open"`
		NextOpen  string `json:"next_open"`
		NextClose string `json:"next_close"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return MarketClock{}, fmt.Errorf("parsing clock: %w", err)
	}
	nextOpen, _ := time.Parse(time.RFC3339, raw.NextOpen)
	nextClose, _ := time.Parse(time.RFC3339, raw.NextClose)
	return MarketClock{IsOpen: raw.IsOpen, NextOpen: nextOpen, NextClose: nextClose}, nil
}

func (a *Alpaca) IsMarketOpen(ctx context.Context) (bool, error) {
	clock, err := a.GetClock(ctx)
	if err != nil {
		return false, err
	}
	return clock.IsOpen, nil
}
