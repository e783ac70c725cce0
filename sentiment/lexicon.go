package sentiment

import (
	"context"
	"strings"
)

// bullishWords/bearishWords are the teacher's analyzeSentiment word lists
// (provider/alpaca_stock_data.go), generalized here to a continuous score
// instead of a 3-way bullish/bearish/neutral label.
var bullishWords = []string{
	"surge", "rally", "gain", "up", "higher", "beat", "exceed", "growth",
	"profit", "bullish", "upgrade", "buy", "outperform", "strong", "positive", "soar",
}

var bearishWords = []string{
	"drop", "fall", "decline", "down", "lower", "miss", "loss", "cut",
	"bearish", "downgrade", "sell", "underperform", "weak", "negative", "plunge", "crash",
}

// LexiconSource is the "vader" entry in §4.3's source table: a bullish vs.
// bearish keyword-count heuristic over the combined title+summary text.
type LexiconSource struct{}

func (LexiconSource) ID() SourceID { return SourceVader }

func (LexiconSource) Score(ctx context.Context, rc *RequestContext) (Contribution, error) {
	text := strings.ToLower(rc.Item.CombinedText())

	bullish, bearish := 0, 0
	for _, w := range bullishWords {
		if strings.Contains(text, w) {
			bullish++
		}
	}
	for _, w := range bearishWords {
		if strings.Contains(text, w) {
			bearish++
		}
	}

	if bullish == 0 && bearish == 0 {
		return Abstain(), nil
	}
	diff := bullish - bearish

	score := float64(diff) / 10.0
	if score > 1.0 {
		score = 1.0
	}
	if score < -1.0 {
		score = -1.0
	}
	return Contribution{Score: score, Confidence: DefaultConfidence[SourceVader]}, nil
}
