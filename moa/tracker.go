package moa

import (
	"context"
	"time"

	"catalystcore/logger"
	"catalystcore/types"
)

// rateLimitInterval is the minimum gap between price checks for the same
// ticker within one Tracker.RunOnce pass, mirroring moa_price_tracker.py's
// RATE_LIMIT_SECONDS.
const rateLimitInterval = 60 * time.Second

// Tracker is the §4.13 "separate price-tracker background task": on each
// tick it finds rejected items whose horizon has elapsed but whose outcome
// hasn't been priced yet, fetches the price, and upserts the outcome
// record. The Analyzer then reads these outcomes instead of re-fetching.
type Tracker struct {
	Store  *Store
	Prices *PriceCache
}

func NewTracker(store *Store, prices *PriceCache) *Tracker {
	return &Tracker{Store: store, Prices: prices}
}

// RunOnce checks every tracked horizon once and returns how many outcome
// updates it recorded per horizon.
func (t *Tracker) RunOnce(ctx context.Context, sinceDays int) (map[types.OutcomeHorizon]int, error) {
	cutoff := time.Now().AddDate(0, 0, -sinceDays)
	rejected, err := t.Store.LoadRejectedSince(cutoff)
	if err != nil {
		return nil, err
	}
	existing, err := t.Store.LoadOutcomes()
	if err != nil {
		return nil, err
	}

	counts := make(map[types.OutcomeHorizon]int, len(types.AllHorizons))
	lastChecked := make(map[string]time.Time)
	now := time.Now()

	for _, horizon := range types.AllHorizons {
		elapsed := horizonDuration(horizon)
		for _, item := range rejected {
			if item.Timestamp.Add(elapsed).After(now) {
				continue // not enough time has passed yet
			}

			key := outcomeKey(item.Ticker, item.Timestamp)
			rec, hasRec := existing[key]
			if hasRec && rec.Outcomes[horizon] != nil {
				continue // already priced for this horizon
			}

			if last, ok := lastChecked[item.Ticker]; ok && now.Sub(last) < rateLimitInterval {
				continue
			}

			returnPct, ok, err := t.Prices.HorizonReturnPct(ctx, item.Timestamp, horizon, item.Ticker)
			if err != nil {
				logger.Errorf("moa_tracker_price_fetch_failed ticker=%s horizon=%s error=%v", item.Ticker, horizon, err)
				continue
			}
			if !ok {
				continue
			}
			lastChecked[item.Ticker] = now

			if !hasRec {
				rec = &types.OutcomeRecord{
					Ticker:          item.Ticker,
					RejectionTS:     item.Timestamp,
					RejectionPrice:  item.Price,
					RejectionReason: item.RejectionReason,
					Keywords:        item.Keywords,
					Title:           item.Title,
					Outcomes:        make(map[types.OutcomeHorizon]*types.HorizonOutcome),
				}
				existing[key] = rec
			}
			rec.Outcomes[horizon] = &types.HorizonOutcome{ReturnPct: returnPct, CheckedAt: now}
			rec.Recompute()

			if err := t.Store.UpsertOutcome(rec); err != nil {
				logger.Errorf("moa_tracker_upsert_failed ticker=%s error=%v", item.Ticker, err)
				continue
			}
			counts[horizon]++
		}
	}
	return counts, nil
}
