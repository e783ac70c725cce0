package sentiment

import "context"

// AmplifySqueeze implements §4.4: when short interest is high and base
// sentiment is already positive, boost it to model forced-cover buying
// pressure. The amplifier never touches negative sentiment.
func AmplifySqueeze(shortInterestPct, baseSentiment float64) (amplified float64, applied bool) {
	var mult float64
	switch {
	case shortInterestPct >= 40 && baseSentiment >= 0.7:
		mult = 1.7
	case shortInterestPct >= 30 && baseSentiment >= 0.6:
		mult = 1.5
	case shortInterestPct >= 20 && baseSentiment >= 0.5:
		mult = 1.3
	default:
		return baseSentiment, false
	}
	if baseSentiment <= 0 {
		return baseSentiment, false
	}
	return baseSentiment * mult, true
}

// ShortInterestSource is the "short_interest" entry in §4.3's table. It
// does not emit the amplified value directly: per §4.4 it contributes the
// *delta* (amplified - base) so the aggregator's additive math stays
// consistent, using the vader lexicon score as the base sentiment to
// amplify.
type ShortInterestSource struct {
	// BaseSentiment supplies the sentiment to amplify; defaults to the
	// lexicon source's score when nil.
	BaseSentiment func(ctx context.Context, rc *RequestContext) (float64, error)
}

func (ShortInterestSource) ID() SourceID { return SourceShortInterest }

func (s ShortInterestSource) Score(ctx context.Context, rc *RequestContext) (Contribution, error) {
	if rc.ShortInterestPct == nil {
		return Abstain(), nil
	}
	pct, err := rc.ShortInterestPct(ctx, rc.Ticker)
	if err != nil {
		return Contribution{}, err
	}

	base, err := s.baseSentiment(ctx, rc)
	if err != nil {
		return Contribution{}, err
	}

	amplified, applied := AmplifySqueeze(pct, base)
	if !applied {
		return Abstain(), nil
	}
	delta := amplified - base
	return Contribution{Score: delta, Confidence: DefaultConfidence[SourceShortInterest]}, nil
}

func (s ShortInterestSource) baseSentiment(ctx context.Context, rc *RequestContext) (float64, error) {
	if s.BaseSentiment != nil {
		return s.BaseSentiment(ctx, rc)
	}
	c, err := (LexiconSource{}).Score(ctx, rc)
	if err != nil {
		return 0, err
	}
	if c.Abstained {
		return 0, nil
	}
	return c.Score, nil
}
