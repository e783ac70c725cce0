package broker

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"catalystcore/logger"
)

// FillEvent is one push notification off Alpaca's trade_updates stream:
// "fill", "partial_fill", "canceled", "rejected", "new", etc., carrying the
// order as it stood at that event.
type FillEvent struct {
	Event string
	Order Order
}

type streamMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type tradeUpdateData struct {
	Event string      `json:"event"`
	Order alpacaOrder `json:"order"`
}

// StreamFills connects to Alpaca's trade_updates websocket and invokes
// handler for every push notification, reconnecting with a fixed delay on
// any disconnect until ctx is cancelled. Grounded on
// other_examples/b5a4fabb_yohannesjx-sniperterminal__predator_engine.go.go's
// PredatorWorker.Run (DefaultDialer.Dial, ReadMessage loop, reconnect-after-
// delay on read error) adapted from a market-data stream to Alpaca's own
// authenticate/listen handshake.
//
// Per §5's at-least-once delivery rule, a reconnect can replay an event the
// caller already saw (Alpaca does not offer a resume cursor over this
// stream); handler must tolerate being invoked more than once for the same
// order/event pair, which position.Manager's fill application already does
// by re-deriving state from the order rather than accumulating deltas.
func (a *Alpaca) StreamFills(ctx context.Context, handler func(FillEvent)) error {
	wsURL := strings.Replace(strings.Replace(a.BaseURL, "https://", "wss://", 1), "http://", "ws://", 1) + "/stream"

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			logger.Warnf("broker: trade_updates stream dial failed, retrying: %v", err)
			if !sleepOrDone(ctx, 5*time.Second) {
				return ctx.Err()
			}
			continue
		}

		if err := a.authenticateStream(conn); err != nil {
			logger.Warnf("broker: trade_updates stream auth failed: %v", err)
			conn.Close()
			if !sleepOrDone(ctx, 5*time.Second) {
				return ctx.Err()
			}
			continue
		}

		a.readStreamLoop(ctx, conn, handler)
		conn.Close()

		if !sleepOrDone(ctx, 5*time.Second) {
			return ctx.Err()
		}
	}
}

func (a *Alpaca) authenticateStream(conn *websocket.Conn) error {
	authMsg := map[string]interface{}{
		"action": "authenticate",
		"data": map[string]string{
			"key_id":     a.APIKey,
			"secret_key": a.APISecret,
		},
	}
	if err := conn.WriteJSON(authMsg); err != nil {
		return err
	}
	listenMsg := map[string]interface{}{
		"action": "listen",
		"data": map[string][]string{
			"streams": {"trade_updates"},
		},
	}
	return conn.WriteJSON(listenMsg)
}

func (a *Alpaca) readStreamLoop(ctx context.Context, conn *websocket.Conn, handler func(FillEvent)) {
	for {
		if ctx.Err() != nil {
			return
		}
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			logger.Warnf("broker: trade_updates stream read failed, reconnecting: %v", err)
			return
		}
		if msg.Stream != "trade_updates" {
			continue
		}
		var data tradeUpdateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			logger.Warnf("broker: trade_updates stream decode failed: %v", err)
			continue
		}
		handler(FillEvent{Event: data.Event, Order: data.Order.toOrder()})
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
