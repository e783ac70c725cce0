// Package pipeline wires the fast-path classifier (§4.5) into the signal
// generator (§4.10), closing spec.md §2's dataflow: NewsItem -> ScoredItem ->
// TradingSignal. Grounded on trader/auto_trader.go's runCycle (build
// context, call the decision engine, act on the result) adapted from one
// scan-loop iteration to a single item's classify-then-generate chain.
package pipeline

import (
	"context"

	"github.com/shopspring/decimal"

	"catalystcore/classify"
	"catalystcore/logger"
	"catalystcore/sentiment"
	"catalystcore/signalgen"
	"catalystcore/types"
)

// PriceLookup resolves the current tradable price for a ticker. Wired to
// marketdata.Client.GetLastPriceSnapshot in production; tests supply a
// fixed-price stub.
type PriceLookup func(ctx context.Context, ticker string) (decimal.Decimal, error)

// Pipeline bundles the fast-path classifier's collaborators with the signal
// generator and a price lookup, so Run carries one NewsItem from ingest to
// an (optional) TradingSignal in a single call.
type Pipeline struct {
	ClassifyDeps classify.Deps
	Generator    *signalgen.Generator
	Price        PriceLookup
}

// Run classifies item via the fast path, then — if it has a ticker and a
// price is available — generates a trading signal from the resulting
// ScoredItem. A nil signal with a nil error means the item was classified
// but gated out downstream (no ticker, no keyword match, below threshold,
// poor risk/reward): an ordinary outcome, not a failure. The ScoredItem is
// always returned so callers (enrichment, MOA logging, audit) see the full
// classification even when no signal results.
func (p *Pipeline) Run(ctx context.Context, item types.NewsItem, rc *sentiment.RequestContext) (*types.TradingSignal, *types.ScoredItem, error) {
	scored := classify.FastPath(ctx, p.ClassifyDeps, item, rc)

	if item.Ticker == "" {
		return nil, scored, nil
	}
	if p.Price == nil {
		logger.Warnf("pipeline: no price lookup configured, skipping signal generation for %s", item.Ticker)
		return nil, scored, nil
	}

	price, err := p.Price(ctx, item.Ticker)
	if err != nil {
		return nil, scored, err
	}

	signal := p.Generator.Generate(scored, item.Ticker, price)
	if signal != nil {
		logger.Infof("pipeline: generated %s signal for %s (confidence=%.2f)", signal.Action, item.Ticker, signal.Confidence)
	}
	return signal, scored, nil
}
