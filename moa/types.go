// Package moa implements §4.13's missed-opportunities analyzer: an offline
// loop that replays the rejected-items log against realized prices, flags
// rejections that would have paid off, and mines both existing and newly
// discovered keywords for weight-adjustment recommendations. Grounded on
// moa_analyzer.go's pipeline shape and keyword_miner.go's n-gram/lift-ratio
// text mining.
package moa

import (
	"time"

	"catalystcore/types"
)

// RejectedItem is one row of the rejected-items log: a news item the
// classifier declined to alert on.
type RejectedItem struct {
	Ticker          string    `json:"ticker"`
	Timestamp       time.Time `json:"ts"`
	Price           float64   `json:"price"`
	RejectionReason string    `json:"rejection_reason"`
	Keywords        []string  `json:"keywords"`
	Title           string    `json:"title"`
}

// AcceptedItem is one row of the accepted-items log: a news item the
// classifier did alert on. These form the default negative pool for
// discriminative keyword mining.
type AcceptedItem struct {
	Ticker    string    `json:"ticker"`
	Timestamp time.Time `json:"ts"`
	Keywords  []string  `json:"keywords"`
	Title     string    `json:"title"`

	// ConfirmedFalsePositive is set once outcome tracking shows the alerted
	// ticker never moved; it is what ConfirmedFalsePositivesOnly filters on.
	ConfirmedFalsePositive bool `json:"confirmed_false_positive"`
}

// VolumeData is the optional tradeability context a RejectedItem may have
// at the time it was rejected.
type VolumeData struct {
	DailyVolume float64
	SpreadPct   *float64
}

// TradeabilityLookup supplies volume/spread context for the optional
// tradeability filter in step 2; a nil lookup (or one returning ok=false)
// disables the filter for that item, which matches the "no volume data ->
// assume tradeable" default in the source analyzer.
type TradeabilityLookup func(ticker string, at time.Time) (VolumeData, bool)

// IsTradeable reports whether vd clears the §4.13 volume/spread gate.
func IsTradeable(vd VolumeData, minDailyVolume, maxSpreadPct float64) bool {
	if vd.DailyVolume < minDailyVolume {
		return false
	}
	if vd.SpreadPct != nil && *vd.SpreadPct > maxSpreadPct {
		return false
	}
	return true
}

// NegativePool selects which accepted items count as negative examples for
// discriminative keyword mining (Open Question c: pluggable, not hardcoded).
type NegativePool func(AcceptedItem) bool

// AllAccepted is the default negative pool: every accepted item counts,
// mirroring the source's "use ALL accepted items as negatives (conservative
// approach)" stance.
func AllAccepted(AcceptedItem) bool { return true }

// ConfirmedFalsePositivesOnly restricts the negative pool to accepted items
// whose own outcome tracking confirmed they were false alarms. Disabled by
// default until outcome tracking on accepted items is wired up end to end.
func ConfirmedFalsePositivesOnly(item AcceptedItem) bool { return item.ConfirmedFalsePositive }

// KeywordStats aggregates one keyword's performance across missed
// opportunities (§4.13 step 3).
type KeywordStats struct {
	Keyword      string
	Occurrences  int
	Successes    int
	SuccessRate  float64
	AvgReturnPct float64
}

// DiscoveredKeyword is an n-gram mined from missed-opportunity titles that
// discriminates against the negative pool (§4.13 step 4).
type DiscoveredKeyword struct {
	Phrase            string
	Lift              float64
	PositiveCount     int
	NegativeCount     int
	RecommendedWeight float64
}

// RecommendationType labels how a Recommendation was derived.
type RecommendationType string

const (
	// RecNew is a keyword that has keyword-stats but no existing weight.
	RecNew RecommendationType = "new"
	// RecWeightIncrease is a keyword with both stats and an existing weight.
	RecWeightIncrease RecommendationType = "weight_increase"
	// RecNewDiscovered is an n-gram discovered by text mining with no
	// matching entry in the existing-keyword recommendations.
	RecNewDiscovered RecommendationType = "new_discovered"
	// RecDiscoveredAndExisting is a discovered n-gram that also appears as
	// an existing-keyword recommendation; the higher weight wins.
	RecDiscoveredAndExisting RecommendationType = "discovered_and_existing"
)

// Recommendation is one line of recommendations.json.
type Recommendation struct {
	Keyword           string             `json:"keyword"`
	Type              RecommendationType `json:"type"`
	CurrentWeight     *float64           `json:"current_weight"`
	RecommendedWeight float64            `json:"recommended_weight"`
	Confidence        float64            `json:"confidence"`
	Occurrences       int                `json:"occurrences,omitempty"`
	SuccessRate       float64            `json:"success_rate,omitempty"`
	AvgReturnPct      float64            `json:"avg_return_pct,omitempty"`
	Lift              *float64           `json:"lift,omitempty"`
	PositiveCount     *int               `json:"positive_count,omitempty"`
	NegativeCount     *int               `json:"negative_count,omitempty"`
}

// AnalysisState is the last-run metadata persisted to analysis_state.json.
type AnalysisState struct {
	LastRun              time.Time `json:"last_run"`
	PeriodStart          time.Time `json:"period_start"`
	PeriodEnd            time.Time `json:"period_end"`
	TotalRejected        int       `json:"total_rejected"`
	MissedOpportunities  int       `json:"missed_opportunities"`
	RecommendationsCount int       `json:"recommendations_count"`
}

// AnalysisResult summarizes one Analyzer.Run invocation (§4.13 step 6).
type AnalysisResult struct {
	Status               string           `json:"status"`
	Message              string           `json:"message,omitempty"`
	TotalRejected        int              `json:"total_rejected"`
	MissedOpportunities  int              `json:"missed_opportunities"`
	RecommendationsCount int              `json:"recommendations_count"`
	Recommendations      []Recommendation `json:"-"`
}

// horizonDuration converts a types.OutcomeHorizon to its elapsed window.
func horizonDuration(h types.OutcomeHorizon) time.Duration {
	switch h {
	case types.Horizon15m:
		return 15 * time.Minute
	case types.Horizon30m:
		return 30 * time.Minute
	case types.Horizon1h:
		return time.Hour
	case types.Horizon4h:
		return 4 * time.Hour
	case types.Horizon1d:
		return 24 * time.Hour
	case types.Horizon7d:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}
