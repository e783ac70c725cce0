// Package signalgen implements §4.10: converting a classified ScoredItem
// into a TradingSignal. Action is resolved by a fixed keyword-category
// priority (close > avoid > strongest buy), grounded on
// decision/localfunc.go's switch-on-config dispatch style (there the switch
// picks an algorithm; here it picks an action from keyword categories).
package signalgen

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"catalystcore/config"
	"catalystcore/types"
)

// KeywordConfig is a single BUY category's trading parameters.
type KeywordConfig struct {
	BaseConfidence  float64
	SizeMultiplier  float64
	StopLossPct     float64
	TakeProfitPct   float64
	Rationale       string
}

// buyKeywords is the always-enabled core set (§4.10).
var buyKeywords = map[string]KeywordConfig{
	"fda":         {0.92, 1.6, 5.0, 12.0, "FDA approval is a strong catalyst"},
	"merger":      {0.95, 2.0, 4.0, 15.0, "Merger/acquisition is a high-probability event"},
	"partnership": {0.85, 1.4, 5.0, 10.0, "Strategic partnership is a positive catalyst"},
	"trial":       {0.88, 1.5, 6.0, 12.0, "Successful trial results drive a strong move"},
	"clinical":    {0.88, 1.5, 6.0, 12.0, "Clinical trial progress is a biotech catalyst"},
	"acquisition": {0.90, 1.7, 4.5, 14.0, "Acquisition is a growth catalyst"},
	"uplisting":   {0.87, 1.3, 5.5, 11.0, "Exchange uplisting is a legitimacy boost"},
}

// extendedBuyKeywords is gated behind FEATURE_EXTENDED_KEYWORDS.
var extendedBuyKeywords = map[string]KeywordConfig{
	"earnings":               {0.82, 1.3, 5.0, 10.0, "Positive earnings surprise is a momentum catalyst"},
	"guidance":               {0.80, 1.2, 5.5, 9.0, "Raised guidance is a forward-looking bullish signal"},
	"energy_discovery":       {0.85, 1.5, 6.0, 15.0, "Oil/gas discovery increases asset value"},
	"advanced_therapies":     {0.86, 1.4, 6.0, 12.0, "Gene/cell therapy progress is a biotech moonshot"},
	"tech_contracts":         {0.83, 1.3, 5.0, 10.0, "Government/enterprise contract is a revenue catalyst"},
	"ai_quantum":             {0.84, 1.4, 5.5, 12.0, "AI/quantum partnership gives high-growth sector exposure"},
	"crypto_blockchain":      {0.78, 1.2, 7.0, 15.0, "Crypto/blockchain adoption drives speculative momentum"},
	"mining_resources":       {0.82, 1.3, 6.0, 12.0, "Mineral discovery/feasibility is an asset-value catalyst"},
	"compliance":             {0.80, 1.2, 5.0, 8.0, "Regaining compliance removes delisting fear"},
	"activist_institutional": {0.81, 1.3, 5.0, 10.0, "Activist/institutional interest is a potential catalyst"},
}

// avoidKeywords skip the trade entirely when any are present.
var avoidKeywords = map[string]bool{
	"offering":          true,
	"dilution":          true,
	"warrant":           true,
	"reverse_split":     true,
	"offering_negative": true,
	"warrant_negative":  true,
	"dilution_negative": true,
}

// closeKeywords take priority over everything else and exit existing
// positions rather than opening new ones.
var closeKeywords = map[string]bool{
	"bankruptcy":        true,
	"delisting":         true,
	"going_concern":     true,
	"fraud":             true,
	"distress_negative": true,
}

// activeBuyKeywords returns the core set, plus the extended set when enabled.
func activeBuyKeywords(extended bool) map[string]KeywordConfig {
	if !extended {
		return buyKeywords
	}
	active := make(map[string]KeywordConfig, len(buyKeywords)+len(extendedBuyKeywords))
	for k, v := range buyKeywords {
		active[k] = v
	}
	for k, v := range extendedBuyKeywords {
		active[k] = v
	}
	return active
}

// Generator converts ScoredItems into TradingSignals per §4.10's gates and
// sizing formulas.
type Generator struct {
	Config *config.Config

	feedbackMu sync.RWMutex
	// FeedbackMultipliers is the keyword -> historical-performance
	// multiplier map the MOA's recommendations produce; nil or a missing
	// entry is treated as 1.0 (no adjustment). Access through
	// SetFeedbackMultiplier/feedbackMultiplier, not directly — an admin
	// surface may update this map while Generate runs concurrently.
	FeedbackMultipliers map[string]float64
}

// SetFeedbackMultiplier applies one keyword's updated multiplier, creating
// the map on first use. Safe for concurrent use with Generate.
func (g *Generator) SetFeedbackMultiplier(keyword string, mult float64) {
	g.feedbackMu.Lock()
	defer g.feedbackMu.Unlock()
	if g.FeedbackMultipliers == nil {
		g.FeedbackMultipliers = make(map[string]float64)
	}
	g.FeedbackMultipliers[keyword] = mult
}

func (g *Generator) feedbackMultiplier(keyword string) (float64, bool) {
	g.feedbackMu.RLock()
	defer g.feedbackMu.RUnlock()
	mult, ok := g.FeedbackMultipliers[keyword]
	return mult, ok
}

// Generate implements §4.10's full pipeline. It returns nil, with no error,
// whenever the signal is gated out (avoid keyword, no match, below the
// score/confidence thresholds, or a risk/reward ratio below 2:1) — a missing
// signal is an ordinary outcome, not a failure.
func (g *Generator) Generate(item *types.ScoredItem, ticker string, currentPrice decimal.Decimal) *types.TradingSignal {
	cfg := g.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if currentPrice.Sign() <= 0 || ticker == "" {
		return nil
	}
	if len(item.KeywordHits) == 0 {
		return nil
	}

	// Step: CLOSE keywords take priority over score/confidence gates.
	for _, kw := range item.KeywordHits {
		if closeKeywords[kw] {
			return closeSignal(item, ticker, currentPrice)
		}
	}

	if item.TotalScore < cfg.SignalMinScore {
		return nil
	}

	// Step: AVOID keywords skip the trade.
	for _, kw := range item.KeywordHits {
		if avoidKeywords[kw] {
			return nil
		}
	}

	action, keyword, kwCfg, ok := strongestBuyKeyword(item.KeywordHits, activeBuyKeywords(cfg.Features.ExtendedKeywords))
	if !ok {
		return nil
	}

	confidence := g.calculateConfidence(item.Sentiment, action, keyword, kwCfg)
	if confidence < cfg.SignalMinConfidence {
		return nil
	}

	positionSizePct := calculatePositionSize(cfg, confidence, kwCfg)
	stop := calculateStopLoss(action, currentPrice, kwCfg)
	target := calculateTakeProfit(action, currentPrice, kwCfg)

	if !verifyRiskReward(currentPrice, stop, target) {
		return nil
	}

	return &types.TradingSignal{
		SignalID:        uuid.NewString(),
		Ticker:          ticker,
		Timestamp:       time.Now(),
		Action:          action,
		Confidence:      confidence,
		EntryPrice:      currentPrice,
		CurrentPrice:    currentPrice,
		StopLossPrice:   &stop,
		TakeProfitPrice: &target,
		PositionSizePct: positionSizePct,
		SignalType:      "catalyst",
		Timeframe:       "intraday",
		Strategy:        "keyword_signal_generator",
		Metadata: map[string]interface{}{
			"keywords":        item.KeywordHits,
			"keyword_category": kwCfg.Rationale,
			"total_score":     item.TotalScore,
			"sentiment":       item.Sentiment,
			"base_confidence": kwCfg.BaseConfidence,
		},
	}
}

func closeSignal(item *types.ScoredItem, ticker string, currentPrice decimal.Decimal) *types.TradingSignal {
	return &types.TradingSignal{
		SignalID:        uuid.NewString(),
		Ticker:          ticker,
		Timestamp:       time.Now(),
		Action:          types.ActionClose,
		Confidence:      1.0,
		EntryPrice:      currentPrice,
		CurrentPrice:    currentPrice,
		PositionSizePct: 0,
		SignalType:      "risk_management",
		Timeframe:       "immediate",
		Strategy:        "keyword_signal_generator",
		Metadata: map[string]interface{}{
			"keywords":    item.KeywordHits,
			"reason":      "distress_signal_detected",
			"total_score": item.TotalScore,
		},
	}
}

// strongestBuyKeyword picks the keyword with the highest weight *
// base_confidence, treating every hit's weight as 1.0 (ScoredItem.KeywordHits
// is a multiset of category names, not a weight map).
func strongestBuyKeyword(hits []string, active map[string]KeywordConfig) (types.Action, string, KeywordConfig, bool) {
	var (
		bestScore float64
		bestName  string
		bestCfg   KeywordConfig
		found     bool
	)
	for _, kw := range hits {
		cfg, ok := active[kw]
		if !ok {
			continue
		}
		combined := cfg.BaseConfidence // weight=1.0 per hit
		if !found || combined > bestScore {
			bestScore = combined
			bestName = kw
			bestCfg = cfg
			found = true
		}
	}
	if !found {
		return "", "", KeywordConfig{}, false
	}
	return types.ActionBuy, bestName, bestCfg, true
}

func (g *Generator) calculateConfidence(sentiment float64, action types.Action, keyword string, kwCfg KeywordConfig) float64 {
	confidence := kwCfg.BaseConfidence

	aligned := (action == types.ActionBuy && sentiment > 0.3) || (action == types.ActionSell && sentiment < -0.3)
	if aligned {
		confidence *= 1.2
	}

	if mult, ok := g.feedbackMultiplier(keyword); ok && mult != 1.0 {
		confidence *= mult
	}

	return types.Clamp(confidence, 0, 1)
}

func calculatePositionSize(cfg *config.Config, confidence float64, kwCfg KeywordConfig) float64 {
	size := cfg.PositionSizeBasePct * confidence * kwCfg.SizeMultiplier
	return types.Clamp(size, 0.5, cfg.PositionSizeMaxPct)
}

func calculateStopLoss(action types.Action, entry decimal.Decimal, kwCfg KeywordConfig) decimal.Decimal {
	pct := decimal.NewFromFloat(kwCfg.StopLossPct).Div(decimal.NewFromInt(100))
	if action == types.ActionBuy {
		return entry.Mul(decimal.NewFromInt(1).Sub(pct)).Round(2)
	}
	return entry.Mul(decimal.NewFromInt(1).Add(pct)).Round(2)
}

func calculateTakeProfit(action types.Action, entry decimal.Decimal, kwCfg KeywordConfig) decimal.Decimal {
	pct := decimal.NewFromFloat(kwCfg.TakeProfitPct).Div(decimal.NewFromInt(100))
	if action == types.ActionBuy {
		return entry.Mul(decimal.NewFromInt(1).Add(pct)).Round(2)
	}
	return entry.Mul(decimal.NewFromInt(1).Sub(pct)).Round(2)
}

// verifyRiskReward enforces the 2:1 minimum reward:risk ratio of §4.10.
func verifyRiskReward(entry, stop, target decimal.Decimal) bool {
	risk := entry.Sub(stop).Abs()
	if risk.IsZero() {
		return false
	}
	reward := target.Sub(entry).Abs()
	return reward.Div(risk).GreaterThanOrEqual(decimal.NewFromInt(2))
}
