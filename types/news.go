// Package types holds the data model of §3: NewsItem, ScoredItem and its
// attachments, TradingSignal, and the MOA's OutcomeRecord. Broker- and
// position-facing types (Order, BracketOrder, ManagedPosition,
// ClosedPosition) live in the broker and position packages respectively
// since they are owned by those components, per §3's ownership rules.
package types

import "time"

// NewsItem is produced externally (the RSS/feed ingest collaborator) and is
// never mutated by the core. raw carries provider-specific precomputed
// fields such as llm_sentiment or sector as a secondary channel.
type NewsItem struct {
	ID            string
	TsUTC         time.Time
	Title         string
	Summary       string
	Ticker        string
	SourceHost    string
	CanonicalURL  string
	Raw           map[string]interface{}
}

// RawString reads a string field out of Raw, returning "" if absent or of
// the wrong type.
func (n NewsItem) RawString(key string) string {
	if n.Raw == nil {
		return ""
	}
	if v, ok := n.Raw[key].(string); ok {
		return v
	}
	return ""
}

// RawFloat reads a numeric field out of Raw, returning (0, false) if absent
// or of the wrong type.
func (n NewsItem) RawFloat(key string) (float64, bool) {
	if n.Raw == nil {
		return 0, false
	}
	switch v := n.Raw[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// CombinedText is the lower-cased title+summary blob keyword matching and
// offering detection run over.
func (n NewsItem) CombinedText() string {
	return lowerJoin(n.Title, n.Summary)
}
