package moa

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// stopWords mirrors keyword_miner.py's STOP_WORDS: common function words and
// business boilerplate that are never themselves useful catalyst phrases.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "must": true, "can": true, "its": true, "it": true,
	"this": true, "that": true, "these": true, "those": true, "their": true,
	"them": true, "they": true, "we": true, "our": true, "us": true,
	"company": true, "companies": true, "inc": true, "corp": true, "ltd": true,
	"llc": true, "announces": true, "announced": true, "reports": true,
	"reported": true, "says": true, "said": true, "plans": true,
	"expected": true, "following": true, "after": true, "over": true,
	"under": true, "between": true, "through": true, "during": true,
	"before": true, "above": true, "below": true, "up": true, "down": true,
	"out": true, "off": true, "again": true, "further": true, "then": true,
	"once": true,
}

// nonCatalystPhrases mirrors NON_CATALYST_PHRASES: boilerplate n-grams that
// are never a meaningful signal regardless of frequency.
var nonCatalystPhrases = map[string]bool{
	"press release": true, "news release": true, "business wire": true,
	"globe newswire": true, "pr newswire": true, "accesswire": true,
	"marketwatch": true, "seeking alpha": true, "yahoo finance": true,
	"stock market": true, "wall street": true, "new york": true,
	"san francisco": true, "los angeles": true, "united states": true,
	"north america": true,
}

var (
	possessiveRe = regexp.MustCompile(`'s\b`)
	punctRe      = regexp.MustCompile(`[^a-z0-9\s]`)
)

// normalizeText lowercases, strips possessives/hyphens/punctuation, and
// collapses whitespace, the way normalize_text does (without the
// preserve-terms placeholder substitution, which this port skips — see
// DESIGN.md).
func normalizeText(text string) string {
	if text == "" {
		return ""
	}
	t := strings.ToLower(text)
	t = possessiveRe.ReplaceAllString(t, "")
	t = strings.ReplaceAll(t, "-", " ")
	t = punctRe.ReplaceAllString(t, " ")
	return strings.Join(strings.Fields(t), " ")
}

// isValidNgram mirrors is_valid_ngram: reject non-catalyst boilerplate,
// reject single stop-word/numeric tokens, reject multi-token phrases that
// are all stop words or that start/end on one.
func isValidNgram(ngram string, tokens []string) bool {
	if nonCatalystPhrases[ngram] {
		return false
	}
	if len(tokens) == 1 {
		token := tokens[0]
		if stopWords[token] {
			return false
		}
		if _, err := strconv.Atoi(token); err == nil {
			return false
		}
		return true
	}
	hasNonStop := false
	for _, tok := range tokens {
		if !stopWords[tok] {
			hasNonStop = true
			break
		}
	}
	if !hasNonStop {
		return false
	}
	if stopWords[tokens[0]] || stopWords[tokens[len(tokens)-1]] {
		return false
	}
	return true
}

// extractNgrams extracts every valid n-gram of size n from text.
func extractNgrams(text string, n int) []string {
	if text == "" || n < 1 {
		return nil
	}
	tokens := strings.Fields(normalizeText(text))
	if len(tokens) < n {
		return nil
	}
	var ngrams []string
	for i := 0; i+n <= len(tokens); i++ {
		window := tokens[i : i+n]
		ngram := strings.Join(window, " ")
		if isValidNgram(ngram, window) {
			ngrams = append(ngrams, ngram)
		}
	}
	return ngrams
}

// extractAllNgrams extracts 1..maxN-grams from text.
func extractAllNgrams(text string, maxN int) []string {
	var all []string
	for n := 1; n <= maxN; n++ {
		all = append(all, extractNgrams(text, n)...)
	}
	return all
}

// calculatePhraseScore is the lift ratio (positive_rate / negative_rate),
// with the source's 10.0 proxy for "infinite lift" when the phrase never
// appears in the negative set at all.
func calculatePhraseScore(positiveCount, negativeCount, totalPositive, totalNegative int) float64 {
	if totalPositive <= 0 || totalNegative <= 0 {
		return 0
	}
	positiveRate := float64(positiveCount) / float64(totalPositive)
	negativeRate := float64(negativeCount) / float64(totalNegative)
	if negativeRate == 0 {
		if positiveRate > 0 {
			return 10.0
		}
		return 0
	}
	return positiveRate / negativeRate
}

// mineDiscriminativeKeywords mirrors mine_discriminative_keywords: rank
// n-grams from positiveTitles by lift against negativeTitles, keeping only
// phrases meeting minOccurrences in the positive set and minLift overall.
// Ties in lift are broken by highest positive count, then lexicographic
// phrase order — the source leaves ties in whatever order the underlying
// hash map iterated, which isn't reproducible; this port makes the order
// deterministic instead.
func mineDiscriminativeKeywords(positiveTitles, negativeTitles []string, minOccurrences int, minLift float64, maxNgramSize int) []DiscoveredKeyword {
	if len(positiveTitles) == 0 || len(negativeTitles) == 0 {
		return nil
	}

	positiveCounts := map[string]int{}
	for _, title := range positiveTitles {
		for _, ng := range extractAllNgrams(title, maxNgramSize) {
			positiveCounts[ng]++
		}
	}
	negativeCounts := map[string]int{}
	for _, title := range negativeTitles {
		for _, ng := range extractAllNgrams(title, maxNgramSize) {
			negativeCounts[ng]++
		}
	}

	totalPositive := len(positiveTitles)
	totalNegative := len(negativeTitles)

	var results []DiscoveredKeyword
	for phrase, posCount := range positiveCounts {
		if posCount < minOccurrences {
			continue
		}
		negCount := negativeCounts[phrase]
		lift := calculatePhraseScore(posCount, negCount, totalPositive, totalNegative)
		if lift < minLift {
			continue
		}
		results = append(results, DiscoveredKeyword{
			Phrase:        phrase,
			Lift:          lift,
			PositiveCount: posCount,
			NegativeCount: negCount,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Lift != results[j].Lift {
			return results[i].Lift > results[j].Lift
		}
		if results[i].PositiveCount != results[j].PositiveCount {
			return results[i].PositiveCount > results[j].PositiveCount
		}
		return results[i].Phrase < results[j].Phrase
	})
	return results
}
