// Package offering implements §4.2: detecting the stage of a public-offering
// news item and producing an override sentiment. Pattern groups are
// pre-compiled package-level regexps, grounded on decision/engine.go's
// reJSONFence/reReasoningTag table style.
package offering

import (
	"regexp"
	"strings"
)

// Stage is the detected offering stage.
type Stage string

const (
	StageAnnouncement Stage = "announcement"
	StagePricing      Stage = "pricing"
	StageUpsize       Stage = "upsize"
	StageClosing      Stage = "closing"
	StageDebt         Stage = "debt"
)

// Detection is the result of running the detector over a title/summary pair.
type Detection struct {
	Stage      Stage
	Confidence float64
	Sentiment  float64
}

var debtKeywords = []string{
	"notes offering",
	"note offering",
	"unsecured notes",
	"secured notes",
	"convertible notes",
	"debt offering",
	"bond offering",
	"senior notes",
	"subordinated notes",
	"institutional notes",
}

var offeringKeywords = []string{
	"offering",
	"offer",
	"priced",
	"upsized",
	"shares",
	"public offering",
	"secondary offering",
	"registered direct",
	"shelf offering",
	"underwritten",
	"notes",
	"debt",
}

// priorityOrder is the evaluation/resolution order per §4.2: the first stage
// in this slice with any matching pattern wins, regardless of match count.
var priorityOrder = []Stage{StageUpsize, StageClosing, StagePricing, StageAnnouncement}

var stagePatterns = map[Stage][]*regexp.Regexp{
	StageUpsize: {
		regexp.MustCompile(`(?i)upsizes?.*?offering`),
		regexp.MustCompile(`(?i)upsized.*?offering`),
		regexp.MustCompile(`(?i)increases?.*?offering.*?size`),
		regexp.MustCompile(`(?i)increased.*?offering.*?size`),
		regexp.MustCompile(`(?i)expands?.*?offering`),
		regexp.MustCompile(`(?i)expanded.*?offering`),
		regexp.MustCompile(`(?i)enlarges?.*?offering`),
	},
	StageClosing: {
		regexp.MustCompile(`(?i)closing\s+of.*?offering`),
		regexp.MustCompile(`(?i)closes.*?offering`),
		regexp.MustCompile(`(?i)closed.*?offering`),
		regexp.MustCompile(`(?i)completed.*?offering`),
		regexp.MustCompile(`(?i)announces?\s+the\s+closing`),
		regexp.MustCompile(`(?i)announced?\s+the\s+closing`),
		regexp.MustCompile(`(?i)completion\s+of.*?offering`),
		regexp.MustCompile(`(?i)consummation\s+of.*?offering`),
		regexp.MustCompile(`(?i)finalized.*?offering`),
	},
	StagePricing: {
		regexp.MustCompile(`(?i)prices?.*?offering\s+at`),
		regexp.MustCompile(`(?i)priced.*?offering`),
		regexp.MustCompile(`(?i)pricing\s+of.*?offering`),
		regexp.MustCompile(`(?i)offering\s+priced\s+at`),
		regexp.MustCompile(`(?i)sets?\s+price\s+at`),
		regexp.MustCompile(`(?i)per\s+share\s+in.*?offering`),
	},
	StageAnnouncement: {
		regexp.MustCompile(`(?i)announces?.*?offering`),
		regexp.MustCompile(`(?i)announced?.*?offering`),
		regexp.MustCompile(`(?i)files?.*?offering`),
		regexp.MustCompile(`(?i)filed.*?offering`),
		regexp.MustCompile(`(?i)intends?\s+to\s+offer`),
		regexp.MustCompile(`(?i)plans?\s+to\s+offer`),
		regexp.MustCompile(`(?i)proposes?.*?offering`),
		regexp.MustCompile(`(?i)proposed.*?offering`),
		regexp.MustCompile(`(?i)registr(?:ation|ing).*?offering`),
		regexp.MustCompile(`(?i)shelf.*?offering`),
		regexp.MustCompile(`(?i)preliminary.*?prospectus`),
	},
}

var stageConfidence = map[Stage]float64{
	StageUpsize:       0.95,
	StageClosing:      0.90,
	StagePricing:      0.90,
	StageAnnouncement: 0.85,
}

var stageSentiment = map[Stage]float64{
	StageUpsize:       -0.7,
	StageClosing:       0.2,
	StagePricing:      -0.5,
	StageAnnouncement: -0.6,
}

const debtSentiment = 0.3
const debtConfidence = 1.0

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// Detect runs the §4.2 pipeline: debt short-circuit first, then priority-
// ordered regex groups. Returns (Detection, false) if the title/summary
// carries no offering signal at all.
func Detect(title, summary string) (Detection, bool) {
	combined := strings.ToLower(title + " " + summary)

	if containsAny(combined, debtKeywords) {
		return Detection{Stage: StageDebt, Confidence: debtConfidence, Sentiment: debtSentiment}, true
	}

	if !containsAny(combined, offeringKeywords) {
		return Detection{}, false
	}

	for _, stage := range priorityOrder {
		for _, pat := range stagePatterns[stage] {
			if pat.MatchString(combined) {
				return Detection{
					Stage:      stage,
					Confidence: stageConfidence[stage],
					Sentiment:  stageSentiment[stage],
				}, true
			}
		}
	}
	return Detection{}, false
}

// ShouldOverride reports whether Detect's result is confident enough to
// replace the aggregated sentiment, per the §4.2 integration contract
// (default min_confidence 0.7).
func (d Detection) ShouldOverride(minConfidence float64) bool {
	return d.Confidence >= minConfidence
}

// SuppressesOfferingNegative reports whether, per §4.2, the classifier
// should drop `offering_negative` from the negative-keyword set for this
// detection (stage in {closing, debt}).
func (d Detection) SuppressesOfferingNegative() bool {
	return d.Stage == StageClosing || d.Stage == StageDebt
}
