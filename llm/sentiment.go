package llm

import (
	"context"
	"regexp"
	"strconv"

	"catalystcore/types"
	"catalystcore/xerrors"
)

// sentimentNumber extracts the first signed decimal in an LLM's response,
// mirroring classify_batch_with_llm's `re.findall(r"-?\d+\.?\d*", llm_result)`.
var sentimentNumber = regexp.MustCompile(`-?\d+\.?\d*`)

// ScoreSentiment prompts the model for a single bullish/bearish score in
// [-1, 1] for one news item, the same prompt classify_batch_with_llm builds
// before parsing the first number out of the reply. It is the function
// wired into sentiment.RequestContext.LLMScore.
func (c *Client) ScoreSentiment(ctx context.Context, item types.NewsItem) (float64, error) {
	prompt := "Analyze this financial news headline for trading sentiment:\n\n" +
		item.Title +
		"\n\nRespond with ONLY a single number from -1.0 (very bearish) " +
		"to +1.0 (very bullish). No explanation, just the number."

	raw, err := c.Query(ctx, prompt, "", 0, 3)
	if err != nil {
		return 0, err
	}

	match := sentimentNumber.FindString(raw)
	if match == "" {
		return 0, xerrors.New(xerrors.ErrDataUnavailable, "llm reply had no parseable sentiment number")
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.ErrDataUnavailable, "llm reply had an unparseable sentiment number", err)
	}
	return clamp(score, -1, 1), nil
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
