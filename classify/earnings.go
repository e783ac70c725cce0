package classify

import (
	"regexp"
	"strings"
)

// earnings scoring grounded on the same pre-compiled-regex-table shape as
// offering.Detect: a headline that reads as an earnings result gets a
// sentiment score and label without needing a structured EPS feed.
var (
	reEarningsBeat       = regexp.MustCompile(`(?i)(beats?|tops?|exceeds?)\s+(analyst\s+)?estimates`)
	reEarningsBigBeat    = regexp.MustCompile(`(?i)(crushes?|smashes?)\s+(analyst\s+)?estimates`)
	reEarningsMiss       = regexp.MustCompile(`(?i)(misses?|falls?\s+short\s+of)\s+(analyst\s+)?estimates`)
	reEarningsBigMiss    = regexp.MustCompile(`(?i)(plunges?\s+on|steep\s+miss|guidance\s+cut)`)
	reEarningsResultWord = regexp.MustCompile(`(?i)\b(q[1-4]|quarterly|fiscal)\s+(results|earnings)\b`)
)

// EarningsLabel is the §4.5 step 1 classification.
type EarningsLabel string

const (
	EarningsBigBeat EarningsLabel = "big_beat"
	EarningsBeat    EarningsLabel = "beat"
	EarningsMiss    EarningsLabel = "miss"
	EarningsBigMiss EarningsLabel = "big_miss"
)

// EarningsResult is the non-null output of DetectEarnings.
type EarningsResult struct {
	Label          EarningsLabel
	SentimentScore float64
	ScoreAdjustment float64
	ConfidenceBump  float64
}

// earningsBands maps a label to its §4.5 step 1 additive score band and
// confidence bump.
var earningsBands = map[EarningsLabel]struct {
	sentiment       float64
	scoreAdjustment float64
	confidenceBump  float64
}{
	EarningsBigBeat: {sentiment: 0.8, scoreAdjustment: 2.0, confidenceBump: 0.15},
	EarningsBeat:    {sentiment: 0.5, scoreAdjustment: 1.0, confidenceBump: 0.10},
	EarningsMiss:    {sentiment: -0.4, scoreAdjustment: -0.5, confidenceBump: 0.05},
	EarningsBigMiss: {sentiment: -0.7, scoreAdjustment: -1.5, confidenceBump: 0.15},
}

// DetectEarnings runs only when a ticker is present (callers check that) and
// the title/summary reads as an earnings result. Returns ok=false when no
// earnings pattern matched.
func DetectEarnings(title, summary string) (EarningsResult, bool) {
	combined := strings.ToLower(title + " " + summary)
	if !reEarningsResultWord.MatchString(combined) && !reEarningsBeat.MatchString(combined) &&
		!reEarningsMiss.MatchString(combined) && !reEarningsBigBeat.MatchString(combined) && !reEarningsBigMiss.MatchString(combined) {
		return EarningsResult{}, false
	}

	var label EarningsLabel
	switch {
	case reEarningsBigBeat.MatchString(combined):
		label = EarningsBigBeat
	case reEarningsBigMiss.MatchString(combined):
		label = EarningsBigMiss
	case reEarningsBeat.MatchString(combined):
		label = EarningsBeat
	case reEarningsMiss.MatchString(combined):
		label = EarningsMiss
	default:
		return EarningsResult{}, false
	}

	band := earningsBands[label]
	return EarningsResult{
		Label:           label,
		SentimentScore:  band.sentiment,
		ScoreAdjustment: band.scoreAdjustment,
		ConfidenceBump:  band.confidenceBump,
	}, true
}
