package moa

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"catalystcore/logger"
	"catalystcore/types"
)

// Config holds §4.13's tunable thresholds. Zero-value Config is invalid;
// use DefaultConfig.
type Config struct {
	SinceDays               int
	SuccessThresholdPct     float64
	MinOccurrences          int
	DiscoveryMinOccurrences int
	MinLift                 float64
	MaxNgramSize            int
	CheckTradeable          bool
	MinDailyVolume          float64
	MaxSpreadPct            float64
}

// DefaultConfig matches moa_analyzer.py's module-level constants.
func DefaultConfig() Config {
	return Config{
		SinceDays:               30,
		SuccessThresholdPct:     10.0,
		MinOccurrences:          15,
		DiscoveryMinOccurrences: 5,
		MinLift:                 2.0,
		MaxNgramSize:            4,
		CheckTradeable:          false,
		MinDailyVolume:          100_000,
		MaxSpreadPct:            0.05,
	}
}

// Analyzer runs the full §4.13 pipeline: load rejected items, price them
// out at every horizon, flag missed opportunities, mine keyword stats and
// discriminative n-grams, and emit weight recommendations.
type Analyzer struct {
	Store     *Store
	Prices    *PriceCache
	Negatives NegativePool
	Tradeable TradeabilityLookup
	Config    Config
}

// NewAnalyzer wires a Store and PriceCache with the default negative pool
// (all accepted items) and no tradeability filter.
func NewAnalyzer(store *Store, prices *PriceCache, cfg Config) *Analyzer {
	return &Analyzer{Store: store, Prices: prices, Negatives: AllAccepted, Config: cfg}
}

// Run executes one analysis pass. currentWeights is the keyword -> weight
// map the classifier is presently using; MOA proposes deltas against it but
// never mutates it — applying a recommendation is a separate, human-approved
// step performed elsewhere (§4.13 step 6).
func (a *Analyzer) Run(ctx context.Context, currentWeights map[string]float64) (*AnalysisResult, error) {
	cutoff := time.Now().AddDate(0, 0, -a.Config.SinceDays)

	rejected, err := a.Store.LoadRejectedSince(cutoff)
	if err != nil {
		return nil, err
	}
	if len(rejected) == 0 {
		return &AnalysisResult{Status: "no_data", Message: "no rejected items found to analyze"}, nil
	}

	periodStart, periodEnd := rejected[0].Timestamp, rejected[0].Timestamp
	for _, item := range rejected {
		if item.Timestamp.Before(periodStart) {
			periodStart = item.Timestamp
		}
		if item.Timestamp.After(periodEnd) {
			periodEnd = item.Timestamp
		}
	}

	missed, err := a.identifyMissedOpportunities(ctx, rejected)
	if err != nil {
		return nil, err
	}
	if len(missed) == 0 {
		return &AnalysisResult{
			Status:        "no_opportunities",
			Message:       "no missed opportunities identified",
			TotalRejected: len(rejected),
		}, nil
	}

	keywordStats := aggregateKeywordStats(missed, a.Config.SuccessThresholdPct, a.Config.MinOccurrences)

	accepted, err := a.Store.LoadAcceptedSince(cutoff)
	if err != nil {
		return nil, err
	}
	discovered := a.discoverKeywords(missed, accepted)

	if len(keywordStats) == 0 && len(discovered) == 0 {
		return &AnalysisResult{
			Status:              "no_keywords",
			Message:             "no keywords with sufficient occurrences",
			TotalRejected:       len(rejected),
			MissedOpportunities: len(missed),
		}, nil
	}

	recs := calculateWeightRecommendations(keywordStats, currentWeights, a.Config.MinOccurrences)
	recs = mergeDiscovered(recs, discovered)

	if err := a.Store.SaveRecommendations(recs); err != nil {
		logger.Errorf("moa_save_recommendations_failed error=%v", err)
	}
	state := AnalysisState{
		LastRun:              time.Now(),
		PeriodStart:          periodStart,
		PeriodEnd:            periodEnd,
		TotalRejected:        len(rejected),
		MissedOpportunities:  len(missed),
		RecommendationsCount: len(recs),
	}
	if err := a.Store.SaveAnalysisState(state); err != nil {
		logger.Errorf("moa_save_analysis_state_failed error=%v", err)
	}

	return &AnalysisResult{
		Status:               "success",
		TotalRejected:        len(rejected),
		MissedOpportunities:  len(missed),
		RecommendationsCount: len(recs),
		Recommendations:      recs,
	}, nil
}

// identifyMissedOpportunities prices each rejected item out at every
// horizon and keeps the ones where any horizon cleared the success
// threshold (§4.13 step 2).
func (a *Analyzer) identifyMissedOpportunities(ctx context.Context, rejected []RejectedItem) ([]*types.OutcomeRecord, error) {
	var missed []*types.OutcomeRecord
	for _, item := range rejected {
		var volumeData VolumeData
		hasVolume := false
		if a.Config.CheckTradeable && a.Tradeable != nil {
			volumeData, hasVolume = a.Tradeable(item.Ticker, item.Timestamp)
		}

		rec := &types.OutcomeRecord{
			Ticker:          item.Ticker,
			RejectionTS:     item.Timestamp,
			RejectionPrice:  item.Price,
			RejectionReason: item.RejectionReason,
			Keywords:        item.Keywords,
			Title:           item.Title,
			Outcomes:        make(map[types.OutcomeHorizon]*types.HorizonOutcome),
		}

		for _, horizon := range types.AllHorizons {
			returnPct, ok, err := a.Prices.HorizonReturnPct(ctx, item.Timestamp, horizon, item.Ticker)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if a.Config.CheckTradeable && hasVolume && !IsTradeable(volumeData, a.Config.MinDailyVolume, a.Config.MaxSpreadPct) {
				continue
			}
			rec.Outcomes[horizon] = &types.HorizonOutcome{
				ReturnPct: returnPct,
				CheckedAt: time.Now(),
			}
		}
		rec.Recompute()

		if err := a.Store.UpsertOutcome(rec); err != nil {
			logger.Errorf("moa_upsert_outcome_failed ticker=%s error=%v", item.Ticker, err)
		}

		if rec.IsMissedOpportunity {
			missed = append(missed, rec)
		}
	}
	return missed, nil
}

// aggregateKeywordStats mirrors extract_keywords_from_missed_opps: per
// keyword, occurrences/successes/avg-return using each item's single best
// horizon return, filtered to minOccurrences.
func aggregateKeywordStats(missed []*types.OutcomeRecord, successThresholdPct float64, minOccurrences int) []KeywordStats {
	type accum struct {
		occurrences int
		successes   int
		totalReturn float64
	}
	stats := map[string]*accum{}

	for _, rec := range missed {
		best := 0.0
		for _, out := range rec.Outcomes {
			if out != nil && out.ReturnPct > best {
				best = out.ReturnPct
			}
		}
		for _, kw := range rec.Keywords {
			key := strings.ToLower(kw)
			a, ok := stats[key]
			if !ok {
				a = &accum{}
				stats[key] = a
			}
			a.occurrences++
			if best >= successThresholdPct {
				a.successes++
			}
			a.totalReturn += best
		}
	}

	var results []KeywordStats
	for kw, a := range stats {
		if a.occurrences < minOccurrences {
			continue
		}
		results = append(results, KeywordStats{
			Keyword:      kw,
			Occurrences:  a.occurrences,
			Successes:    a.successes,
			SuccessRate:  float64(a.successes) / float64(a.occurrences),
			AvgReturnPct: a.totalReturn / float64(a.occurrences),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Keyword < results[j].Keyword })
	return results
}

// discoverKeywords mirrors discover_keywords_from_missed_opportunities: mine
// discriminative n-grams from missed-opportunity titles against the
// negative pool's titles, then price each into a recommended weight.
func (a *Analyzer) discoverKeywords(missed []*types.OutcomeRecord, accepted []AcceptedItem) []DiscoveredKeyword {
	var positiveTitles []string
	for _, rec := range missed {
		if rec.Title != "" {
			positiveTitles = append(positiveTitles, rec.Title)
		}
	}

	negativePool := a.Negatives
	if negativePool == nil {
		negativePool = AllAccepted
	}
	var negativeTitles []string
	for _, item := range accepted {
		if negativePool(item) && item.Title != "" {
			negativeTitles = append(negativeTitles, item.Title)
		}
	}

	if len(positiveTitles) == 0 || len(negativeTitles) == 0 {
		return nil
	}

	phrases := mineDiscriminativeKeywords(positiveTitles, negativeTitles, a.Config.DiscoveryMinOccurrences, a.Config.MinLift, a.Config.MaxNgramSize)
	for i := range phrases {
		phrases[i].RecommendedWeight = discoveredWeight(phrases[i].Lift, phrases[i].PositiveCount, a.Config.MinLift)
	}
	return phrases
}

// discoveredWeight implements §4.13 step 5's new-phrase formula.
func discoveredWeight(lift float64, positiveCount int, minLift float64) float64 {
	liftBonus := math.Min(0.5, (lift-minLift)*0.1)
	freqBonus := math.Min(0.2, float64(positiveCount)/20.0)
	weight := round2(0.3 + liftBonus + freqBonus)
	return math.Min(0.8, weight)
}

// calculateWeightRecommendations mirrors calculate_weight_recommendations:
// for each keyword with stats, either propose a new conservative weight
// (no current weight) or a success-rate-banded delta over the current one.
func calculateWeightRecommendations(stats []KeywordStats, currentWeights map[string]float64, minOccurrences int) []Recommendation {
	var recs []Recommendation
	for _, s := range stats {
		current, hasCurrent := currentWeights[s.Keyword]

		var rec Recommendation
		if !hasCurrent {
			recommended := round2(1.0 + (s.SuccessRate-0.5)*2.0)
			recommended = clamp(recommended, 0.5, 2.0)
			rec = Recommendation{
				Keyword:           s.Keyword,
				Type:              RecNew,
				RecommendedWeight: recommended,
			}
		} else {
			var delta float64
			switch {
			case s.SuccessRate >= 0.7:
				delta = 0.3
			case s.SuccessRate >= 0.6:
				delta = 0.2
			default:
				delta = 0.1
			}
			recommended := round2(current + delta)
			recommended = clamp(recommended, 0.5, 3.0)
			if math.Abs(recommended-current) < 0.1 {
				continue
			}
			cw := current
			rec = Recommendation{
				Keyword:           s.Keyword,
				Type:              RecWeightIncrease,
				CurrentWeight:     &cw,
				RecommendedWeight: recommended,
			}
		}

		rec.Occurrences = s.Occurrences
		rec.SuccessRate = round3(s.SuccessRate)
		rec.AvgReturnPct = round3(s.AvgReturnPct / 100)
		rec.Confidence = confidenceLabel(s.Occurrences, s.SuccessRate, minOccurrences)
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Confidence > recs[j].Confidence })
	return recs
}

// confidenceLabel mirrors calculate_weight_recommendations's sample-size/
// success-rate confidence bands.
func confidenceLabel(occurrences int, successRate float64, minOccurrences int) float64 {
	switch {
	case occurrences >= 20 && successRate >= 0.7:
		return 0.9
	case occurrences >= 10 && successRate >= 0.6:
		return 0.75
	case occurrences >= minOccurrences:
		return 0.6
	default:
		return 0.5
	}
}

// mergeDiscovered folds discovered n-grams into the existing-keyword
// recommendations: a phrase already present there takes the discovered
// weight and is relabeled only when the discovered weight is higher
// (otherwise it is left unchanged); an unseen phrase is appended as
// new_discovered with a fixed medium confidence.
func mergeDiscovered(recs []Recommendation, discovered []DiscoveredKeyword) []Recommendation {
	index := make(map[string]int, len(recs))
	for i, r := range recs {
		index[r.Keyword] = i
	}

	for _, d := range discovered {
		lift := d.Lift
		pos := d.PositiveCount
		neg := d.NegativeCount

		if i, ok := index[d.Phrase]; ok {
			if d.RecommendedWeight > recs[i].RecommendedWeight {
				recs[i].RecommendedWeight = d.RecommendedWeight
				recs[i].Type = RecDiscoveredAndExisting
				recs[i].Lift = &lift
				recs[i].PositiveCount = &pos
				recs[i].NegativeCount = &neg
			}
			continue
		}
		recs = append(recs, Recommendation{
			Keyword:           d.Phrase,
			Type:              RecNewDiscovered,
			RecommendedWeight: d.RecommendedWeight,
			Confidence:        0.7,
			Lift:              &lift,
			PositiveCount:     &pos,
			NegativeCount:     &neg,
		})
	}
	return recs
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
