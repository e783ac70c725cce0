package types

// Attachment is the discriminated variant every optional enrichment result
// attaches to a ScoredItem (Design Note "Sum types vs. stringly-typed
// attachments"). Each concrete type below implements Kind() with its own
// constant so callers can type-switch when they need to, but the common
// path is the typed accessor methods on ScoredItem (Regime(), RVOL(), ...).
type AttachmentKind string

const (
	KindRegime         AttachmentKind = "regime"
	KindRVOL           AttachmentKind = "rvol"
	KindFloat          AttachmentKind = "float"
	KindVWAP           AttachmentKind = "vwap"
	KindDivergence     AttachmentKind = "divergence"
	KindEarnings       AttachmentKind = "earnings"
	KindOffering       AttachmentKind = "offering"
	KindMultiDimSent   AttachmentKind = "multidim_sentiment"
	KindFundamental    AttachmentKind = "fundamental"
	KindCredibility    AttachmentKind = "credibility"
	KindSemanticKwds   AttachmentKind = "semantic_keywords"
)

type Attachment interface {
	Kind() AttachmentKind
}

// RegimeAttachment is §4.9's market-regime classification.
type RegimeAttachment struct {
	Regime     string // BULL_MARKET, NEUTRAL, HIGH_VOLATILITY, BEAR_MARKET, CRASH
	Trend      string // UPTREND, SIDEWAYS, DOWNTREND
	Multiplier float64
	Confidence float64
}

func (RegimeAttachment) Kind() AttachmentKind { return KindRegime }

// RVOLAttachment is §4.8's relative-volume multiplier.
type RVOLAttachment struct {
	RVOL       float64
	Multiplier float64
}

func (RVOLAttachment) Kind() AttachmentKind { return KindRVOL }

// FloatAttachment is §4.8's float-class volatility multiplier (distinct from
// the additive float score in FundamentalAttachment per §4.7).
type FloatAttachment struct {
	FloatShares float64
	Multiplier  float64
	Class       string
}

func (FloatAttachment) Kind() AttachmentKind { return KindFloat }

// VWAPAttachment is §4.8's VWAP classification.
type VWAPAttachment struct {
	VWAP            float64
	CurrentPrice    float64
	DistancePct     float64 // signed distance from VWAP, percent
	Classification  string  // STRONG_BULLISH..STRONG_BEARISH
	Multiplier      float64
	VWAPBreak       bool
}

func (VWAPAttachment) Kind() AttachmentKind { return KindVWAP }

// DivergenceAttachment is §4.8's volume/price divergence classification.
type DivergenceAttachment struct {
	PriceChangePct  float64
	VolumeChangePct float64
	Classification  string // WEAK_RALLY, STRONG_SELLOFF_REVERSAL, CONFIRMED_RALLY, CONFIRMED_SELLOFF
	Adjustment      float64
}

func (DivergenceAttachment) Kind() AttachmentKind { return KindDivergence }

// EarningsAttachment is §4.5 step 1's earnings-result scoring.
type EarningsAttachment struct {
	SentimentScore float64
	Label          string // beat, miss, inline
	ActualEPS      *float64
	EstimateEPS    *float64
	ActualRevenue  *float64
	EstimateRevenue *float64
	ScoreAdjustment     float64
	ConfidenceBump      float64
}

func (EarningsAttachment) Kind() AttachmentKind { return KindEarnings }

// OfferingAttachment is §4.2's offering-stage detection result.
type OfferingAttachment struct {
	IsOffering bool
	Stage      string // announcement, pricing, upsize, closing, debt
	Confidence float64
	Sentiment  float64
	Applied    bool // true once the classifier has replaced sentiment with Sentiment
}

func (OfferingAttachment) Kind() AttachmentKind { return KindOffering }

// MultiDimSentimentAttachment is §4.5 step 3's blended sentiment-analysis
// payload parsed from raw.sentiment_analysis.
type MultiDimSentimentAttachment struct {
	Numeric     float64
	Categorical string // bullish, neutral, bearish
	Blended     float64
	Confidence  float64
}

func (MultiDimSentimentAttachment) Kind() AttachmentKind { return KindMultiDimSent }

// FundamentalAttachment is §4.7's additive float/short-interest score.
type FundamentalAttachment struct {
	Score             float64
	FloatShares       float64
	ShortInterestPct  float64
	Tags              []string
}

func (FundamentalAttachment) Kind() AttachmentKind { return KindFundamental }

// CredibilityAttachment is §4.1's source credibility weight — the stable,
// separate home for what the source repo conflated into source_weight
// (Design Note, Open Question b).
type CredibilityAttachment struct {
	Domain        string
	Tier          int
	StaticWeight  float64
	DynamicMult   float64
	EffectiveWeight float64
}

func (CredibilityAttachment) Kind() AttachmentKind { return KindCredibility }

// SemanticKeywordsAttachment is §4.5 step 7's extracted keyphrases.
type SemanticKeywordsAttachment struct {
	Phrases []string
}

func (SemanticKeywordsAttachment) Kind() AttachmentKind { return KindSemanticKwds }
