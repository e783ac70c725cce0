package types

import "time"

// ScoredItem is the output of the classifier (§3, §4.5, §4.8). Invariant:
// after the fast path Enriched is false; after the slow path it is true and
// EnrichmentTimestamp is set. TotalScore is the running total the fast/slow
// path steps accumulate into (Design Note, Open Question b); SourceWeight is
// the separate, stable credibility multiplier.
type ScoredItem struct {
	Item NewsItem

	Relevance    float64
	Sentiment    float64 // in [-1, 1]
	SourceWeight float64 // credibility multiplier, NOT a running total
	TotalScore   float64 // running total score accumulated across §4.5/§4.8

	KeywordHits []string // multiset of matched category names
	Tags        []string // deduplicated set of the same

	NegativeKeywords map[string]bool // categories removed per §4.2's fix

	AlertType string // "POSITIVE", "NEGATIVE", "NEUTRAL"

	Enriched            bool
	EnrichmentTimestamp *time.Time

	Attachments []Attachment
}

// Attach appends or replaces (by kind) an attachment.
func (s *ScoredItem) Attach(a Attachment) {
	for i, existing := range s.Attachments {
		if existing.Kind() == a.Kind() {
			s.Attachments[i] = a
			return
		}
	}
	s.Attachments = append(s.Attachments, a)
}

func find[T Attachment](s *ScoredItem, kind AttachmentKind) (T, bool) {
	var zero T
	for _, a := range s.Attachments {
		if a.Kind() == kind {
			if t, ok := a.(T); ok {
				return t, true
			}
		}
	}
	return zero, false
}

func (s *ScoredItem) Regime() (RegimeAttachment, bool) {
	return find[RegimeAttachment](s, KindRegime)
}
func (s *ScoredItem) RVOL() (RVOLAttachment, bool) { return find[RVOLAttachment](s, KindRVOL) }
func (s *ScoredItem) Float() (FloatAttachment, bool) { return find[FloatAttachment](s, KindFloat) }
func (s *ScoredItem) VWAP() (VWAPAttachment, bool) { return find[VWAPAttachment](s, KindVWAP) }
func (s *ScoredItem) Divergence() (DivergenceAttachment, bool) {
	return find[DivergenceAttachment](s, KindDivergence)
}
func (s *ScoredItem) Earnings() (EarningsAttachment, bool) {
	return find[EarningsAttachment](s, KindEarnings)
}
func (s *ScoredItem) Offering() (OfferingAttachment, bool) {
	return find[OfferingAttachment](s, KindOffering)
}
func (s *ScoredItem) MultiDimSentiment() (MultiDimSentimentAttachment, bool) {
	return find[MultiDimSentimentAttachment](s, KindMultiDimSent)
}
func (s *ScoredItem) Fundamental() (FundamentalAttachment, bool) {
	return find[FundamentalAttachment](s, KindFundamental)
}
func (s *ScoredItem) Credibility() (CredibilityAttachment, bool) {
	return find[CredibilityAttachment](s, KindCredibility)
}
func (s *ScoredItem) SemanticKeywords() (SemanticKeywordsAttachment, bool) {
	return find[SemanticKeywordsAttachment](s, KindSemanticKwds)
}

// HasKeyword reports whether category was matched during fast-path keyword
// matching.
func (s *ScoredItem) HasKeyword(category string) bool {
	for _, k := range s.KeywordHits {
		if k == category {
			return true
		}
	}
	return false
}
