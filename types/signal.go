package types

import (
	"time"

	"github.com/shopspring/decimal"

	"catalystcore/xerrors"
)

type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionAvoid Action = "avoid"
	ActionClose Action = "close"
)

// TradingSignal is the boundary value between the signal generator and the
// order executor (§3). Position sizing is normalized on percent (Design
// Note, Open Question a): PositionSizePct is e.g. 2.5 meaning 2.5%, not
// 0.025.
type TradingSignal struct {
	SignalID    string
	Ticker      string
	Timestamp   time.Time
	Action      Action
	Confidence  float64
	EntryPrice  decimal.Decimal
	CurrentPrice decimal.Decimal
	PositionSizePct float64

	SignalType string
	Timeframe  string
	Strategy   string

	StopLossPrice   *decimal.Decimal
	TakeProfitPrice *decimal.Decimal
	ExtendedHours   bool
	Metadata        map[string]interface{}
}

// Validate checks the invariants of §3/§8: for buy, stop < entry < target
// (inverted for sell); close signals carry no risk parameters and bypass
// these checks.
func (s TradingSignal) Validate() error {
	if s.Action == ActionClose || s.Action == ActionAvoid {
		return nil
	}
	if s.StopLossPrice == nil || s.TakeProfitPrice == nil {
		return xerrors.New(xerrors.ErrValidation, "buy/sell signal missing stop_loss_price or take_profit_price")
	}
	stop := *s.StopLossPrice
	target := *s.TakeProfitPrice
	switch s.Action {
	case ActionBuy:
		if !(stop.LessThan(s.EntryPrice) && s.EntryPrice.LessThan(target)) {
			return xerrors.New(xerrors.ErrValidation, "buy signal requires stop_loss < entry_price < take_profit_price")
		}
	case ActionSell:
		if !(target.LessThan(s.EntryPrice) && s.EntryPrice.LessThan(stop)) {
			return xerrors.New(xerrors.ErrValidation, "sell signal requires take_profit_price < entry_price < stop_loss")
		}
	}
	return nil
}

// RiskReward returns |target - entry| / |entry - stop|, the ratio gated at
// >= 2.0 by §4.10.
func (s TradingSignal) RiskReward() (decimal.Decimal, bool) {
	if s.StopLossPrice == nil || s.TakeProfitPrice == nil {
		return decimal.Zero, false
	}
	risk := s.EntryPrice.Sub(*s.StopLossPrice).Abs()
	reward := s.TakeProfitPrice.Sub(s.EntryPrice).Abs()
	if risk.IsZero() {
		return decimal.Zero, false
	}
	return reward.Div(risk), true
}

// OutcomeHorizon is one of the MOA's tracked return windows.
type OutcomeHorizon string

const (
	Horizon15m OutcomeHorizon = "15m"
	Horizon30m OutcomeHorizon = "30m"
	Horizon1h  OutcomeHorizon = "1h"
	Horizon4h  OutcomeHorizon = "4h"
	Horizon1d  OutcomeHorizon = "1d"
	Horizon7d  OutcomeHorizon = "7d"
)

var AllHorizons = []OutcomeHorizon{Horizon15m, Horizon30m, Horizon1h, Horizon4h, Horizon1d, Horizon7d}

// HorizonOutcome is a single horizon's priced outcome, or nil if the
// provider had no data in its window.
type HorizonOutcome struct {
	Price     float64
	ReturnPct float64
	CheckedAt time.Time
}

// OutcomeRecord is keyed by (ticker, rejection_ts) per §3.
type OutcomeRecord struct {
	Ticker          string
	RejectionTS     time.Time
	RejectionPrice  float64
	RejectionReason string
	Keywords        []string
	Title           string

	Outcomes map[OutcomeHorizon]*HorizonOutcome

	IsMissedOpportunity bool
	MaxReturnPct        float64
}

// Recompute refreshes IsMissedOpportunity and MaxReturnPct from Outcomes per
// the §8 invariant: IsMissedOpportunity iff any horizon's return_pct >= 10%,
// MaxReturnPct is the max over non-null outcomes (0 if none present).
func (o *OutcomeRecord) Recompute() {
	o.IsMissedOpportunity = false
	max := 0.0
	any := false
	for _, h := range AllHorizons {
		out := o.Outcomes[h]
		if out == nil {
			continue
		}
		if !any || out.ReturnPct > max {
			max = out.ReturnPct
			any = true
		}
		if out.ReturnPct >= 10.0 {
			o.IsMissedOpportunity = true
		}
	}
	if any {
		o.MaxReturnPct = max
	} else {
		o.MaxReturnPct = 0
	}
}

