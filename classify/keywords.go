package classify

import "strings"

// Category is one keyword-matching bucket. Positive categories contribute
// to relevance; negative categories (see negativeCategories) coerce the
// alert red unless §4.2's offering correction removes them first.
type Category struct {
	Name     string
	Weight   float64
	Phrases  []string
	Extended bool // gated behind FEATURE_EXTENDED_KEYWORDS
}

// categories is the keyword-category table the fast path matches against.
// The core set (fda, merger, partnership, trial, clinical, acquisition,
// uplisting) is always enabled per §4.10; the extended set and the four
// negative categories follow the same section and §4.5 step 5.
var categories = []Category{
	{Name: "fda", Weight: 1.5, Phrases: []string{"fda approval", "fda clearance", "breakthrough therapy", "fast track designation"}},
	{Name: "merger", Weight: 1.3, Phrases: []string{"merger agreement", "to merge with", "merger of equals"}},
	{Name: "partnership", Weight: 0.8, Phrases: []string{"strategic partnership", "collaboration agreement", "licensing agreement"}},
	{Name: "trial", Weight: 1.0, Phrases: []string{"phase 1 trial", "phase 2 trial", "phase 3 trial", "clinical trial results"}},
	{Name: "clinical", Weight: 0.9, Phrases: []string{"clinical data", "topline results", "primary endpoint met"}},
	{Name: "acquisition", Weight: 1.4, Phrases: []string{"to acquire", "acquisition agreement", "definitive agreement to acquire"}},
	{Name: "uplisting", Weight: 1.1, Phrases: []string{"uplisting to nasdaq", "uplisting to nyse", "approved for listing"}},

	{Name: "earnings", Weight: 0.9, Phrases: []string{"earnings beat", "record revenue", "raises guidance"}, Extended: true},
	{Name: "guidance", Weight: 0.7, Phrases: []string{"raises full-year guidance", "updates guidance"}, Extended: true},
	{Name: "energy_discovery", Weight: 1.0, Phrases: []string{"oil discovery", "gas discovery", "drilling results"}, Extended: true},
	{Name: "advanced_therapies", Weight: 1.0, Phrases: []string{"gene therapy", "cell therapy", "crispr"}, Extended: true},
	{Name: "tech_contracts", Weight: 0.8, Phrases: []string{"awarded contract", "multi-year contract", "government contract"}, Extended: true},
	{Name: "ai_quantum", Weight: 0.9, Phrases: []string{"artificial intelligence platform", "quantum computing"}, Extended: true},
	{Name: "crypto_blockchain", Weight: 0.7, Phrases: []string{"blockchain platform", "digital asset treasury"}, Extended: true},
	{Name: "mining_resources", Weight: 0.8, Phrases: []string{"high-grade intercept", "resource estimate"}, Extended: true},
	{Name: "compliance", Weight: 0.5, Phrases: []string{"regains compliance", "compliance with nasdaq"}, Extended: true},
	{Name: "activist_institutional", Weight: 0.6, Phrases: []string{"activist investor", "13d filing", "board representation"}, Extended: true},

	{Name: "offering_negative", Weight: -1.0, Phrases: []string{"public offering", "registered direct offering", "shelf offering"}},
	{Name: "warrant_negative", Weight: -0.8, Phrases: []string{"warrant exercise", "exercise of warrants"}},
	{Name: "dilution_negative", Weight: -1.2, Phrases: []string{"dilutive", "424b5", "shares outstanding increase"}},
	{Name: "distress_negative", Weight: -1.5, Phrases: []string{"going concern", "bankruptcy", "delisting notice", "reverse stock split"}},
}

var negativeCategories = map[string]bool{
	"offering_negative": true,
	"warrant_negative":  true,
	"dilution_negative": true,
	"distress_negative": true,
}

// MatchKeywords scans combined (already lower-cased title+summary) against
// every category, matching each category at most once, and returns the
// matched category names plus the summed weight. dynamicWeights overrides
// the compile-time Weight for a category when present (loaded from MOA
// output per §4.5 step 4); extendedEnabled gates the Extended set.
func MatchKeywords(combined string, dynamicWeights map[string]float64, extendedEnabled bool) (hits []string, totalScore float64) {
	for _, cat := range categories {
		if cat.Extended && !extendedEnabled {
			continue
		}
		if !matchesAny(combined, cat.Phrases) {
			continue
		}
		weight := cat.Weight
		if dynamicWeights != nil {
			if w, ok := dynamicWeights[cat.Name]; ok {
				weight = w
			}
		}
		hits = append(hits, cat.Name)
		totalScore += weight
	}
	return hits, totalScore
}

func matchesAny(haystack string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(haystack, p) {
			return true
		}
	}
	return false
}

// IsNegativeCategory reports whether category is one of §4.5 step 5's four
// negative classes.
func IsNegativeCategory(category string) bool {
	return negativeCategories[category]
}
