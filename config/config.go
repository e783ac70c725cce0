// Package config loads the §6 configuration surface from the environment,
// with a safe default for every field so a missing .env never crashes the
// core. Layout mirrors trader.AutoTraderConfig in the reference bot: one
// struct of typed, documented fields populated from os.Getenv.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"catalystcore/logger"
)

// Features toggles the optional pipeline steps enumerated in §6.
type Features struct {
	EarningsScorer         bool
	MLSentiment            bool
	SemanticKeywords       bool
	InsiderSentiment       bool
	GoogleTrends           bool
	ShortInterestBoost     bool
	PremarketSentiment     bool
	AftermarketSentiment   bool
	NewsVelocity           bool
	VolumePriceDivergence  bool
	MarketRegime           bool
	RVOL                   bool
	FundamentalScoring     bool
	TickerProfiler         bool
	DynamicSourceScorer    bool
	NegativeAlerts         bool
	ExtendedKeywords       bool
	LLMClassifier          bool
	MOAConfirmedFPOnly     bool
}

// SentimentWeights overrides the §4.3 default per-source weights.
type SentimentWeights struct {
	Earnings     float64
	ML           float64
	Vader        float64
	LLM          float64
	GoogleTrends float64
	ShortInterest float64
	Premarket    float64
	Aftermarket  float64
	NewsVelocity float64
	Insider      float64
	Divergence   float64
}

// Config is the fully resolved configuration surface of §6.
type Config struct {
	Features Features
	Weights  SentimentWeights

	SentimentBatchSize  int
	MistralBatchSize    int
	MistralBatchDelay   time.Duration
	MistralMinPrescale  float64

	SignalMinConfidence float64
	SignalMinScore      float64
	PositionSizeBasePct float64
	PositionSizeMaxPct  float64
	DefaultStopLossPct  float64
	DefaultTakeProfitPct float64
	MaxHoldHours        int

	TradingExtendedHours bool

	MarketOpenCycle     time.Duration
	ExtendedHoursCycle  time.Duration
	MarketClosedCycle   time.Duration
	PreopenWarmupHours  int

	BrokerAPIKey    string
	BrokerAPISecret string
	BrokerPaper     bool

	LLMEndpointURL    string
	LLMModelName      string
	LLMTimeout        time.Duration
	LLMMaxConcurrent  int

	DataDir string

	AdminPort         string
	AdminJWTSecret    string
	AdminTOTPSecret   string
	AdminPasswordHash string
}

// Default returns the configuration that results from an empty environment:
// every flag and numeric threshold at the value spec.md documents as the
// default.
func Default() *Config {
	return &Config{
		Features: Features{
			EarningsScorer:        true,
			MLSentiment:           true,
			SemanticKeywords:      false,
			InsiderSentiment:      false,
			GoogleTrends:          false,
			ShortInterestBoost:    true,
			PremarketSentiment:    true,
			AftermarketSentiment:  true,
			NewsVelocity:          false,
			VolumePriceDivergence: true,
			MarketRegime:          true,
			RVOL:                  true,
			FundamentalScoring:    true,
			TickerProfiler:        true,
			DynamicSourceScorer:   false,
			NegativeAlerts:        true,
			ExtendedKeywords:      false,
			LLMClassifier:         false,
			MOAConfirmedFPOnly:    false,
		},
		Weights: SentimentWeights{
			Earnings:      0.35,
			ML:            0.25,
			Vader:         0.25,
			LLM:           0.15,
			GoogleTrends:  0.08,
			ShortInterest: 0.08,
			Premarket:     0.15,
			Aftermarket:   0.15,
			NewsVelocity:  0.05,
			Insider:       0.12,
			Divergence:    0.08,
		},
		SentimentBatchSize:  10,
		MistralBatchSize:    5,
		MistralBatchDelay:   2 * time.Second,
		MistralMinPrescale:  0.20,
		SignalMinConfidence: 0.55,
		SignalMinScore:      1.5,
		PositionSizeBasePct: 2.0,
		PositionSizeMaxPct:  5.0,
		DefaultStopLossPct:  0.05,
		DefaultTakeProfitPct: 0.12,
		MaxHoldHours:        24,
		TradingExtendedHours: false,
		MarketOpenCycle:      60 * time.Second,
		ExtendedHoursCycle:   120 * time.Second,
		MarketClosedCycle:    300 * time.Second,
		PreopenWarmupHours:   1,
		BrokerPaper:          true,
		LLMEndpointURL:       "http://localhost:8080/v1",
		LLMModelName:         "gpt-oss-20b",
		LLMTimeout:           15 * time.Second,
		LLMMaxConcurrent:     5,
		DataDir:              "./data",
		AdminPort:            "8090",
	}
}

// Load reads an optional .env file (ignored if absent) and then layers
// environment variables over Default(). It never returns an error: every
// malformed value is logged and the default is kept.
func Load(envFile string) *Config {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			logger.Debugf("config: no .env file loaded from %s: %v", envFile, err)
		}
	}

	c := Default()

	boolVar(&c.Features.EarningsScorer, "FEATURE_EARNINGS_SCORER")
	boolVar(&c.Features.MLSentiment, "FEATURE_ML_SENTIMENT")
	boolVar(&c.Features.SemanticKeywords, "FEATURE_SEMANTIC_KEYWORDS")
	boolVar(&c.Features.InsiderSentiment, "FEATURE_INSIDER_SENTIMENT")
	boolVar(&c.Features.GoogleTrends, "FEATURE_GOOGLE_TRENDS")
	boolVar(&c.Features.ShortInterestBoost, "FEATURE_SHORT_INTEREST_BOOST")
	boolVar(&c.Features.PremarketSentiment, "FEATURE_PREMARKET_SENTIMENT")
	boolVar(&c.Features.AftermarketSentiment, "FEATURE_AFTERMARKET_SENTIMENT")
	boolVar(&c.Features.NewsVelocity, "FEATURE_NEWS_VELOCITY")
	boolVar(&c.Features.VolumePriceDivergence, "FEATURE_VOLUME_PRICE_DIVERGENCE")
	boolVar(&c.Features.MarketRegime, "FEATURE_MARKET_REGIME")
	boolVar(&c.Features.RVOL, "FEATURE_RVOL")
	boolVar(&c.Features.FundamentalScoring, "FEATURE_FUNDAMENTAL_SCORING")
	boolVar(&c.Features.TickerProfiler, "FEATURE_TICKER_PROFILER")
	boolVar(&c.Features.DynamicSourceScorer, "FEATURE_DYNAMIC_SOURCE_SCORER")
	boolVar(&c.Features.NegativeAlerts, "FEATURE_NEGATIVE_ALERTS")
	boolVar(&c.Features.ExtendedKeywords, "FEATURE_EXTENDED_KEYWORDS")
	boolVar(&c.Features.LLMClassifier, "FEATURE_LLM_CLASSIFIER")
	boolVar(&c.Features.MOAConfirmedFPOnly, "FEATURE_MOA_CONFIRMED_FP_ONLY")

	floatVar(&c.Weights.Earnings, "SENTIMENT_WEIGHT_EARNINGS")
	floatVar(&c.Weights.ML, "SENTIMENT_WEIGHT_ML")
	floatVar(&c.Weights.Vader, "SENTIMENT_WEIGHT_VADER")
	floatVar(&c.Weights.LLM, "SENTIMENT_WEIGHT_LLM")
	floatVar(&c.Weights.GoogleTrends, "SENTIMENT_WEIGHT_GOOGLE_TRENDS")
	floatVar(&c.Weights.ShortInterest, "SENTIMENT_WEIGHT_SHORT_INTEREST")
	floatVar(&c.Weights.Premarket, "SENTIMENT_WEIGHT_PREMARKET")
	floatVar(&c.Weights.Aftermarket, "SENTIMENT_WEIGHT_AFTERMARKET")
	floatVar(&c.Weights.NewsVelocity, "SENTIMENT_WEIGHT_NEWS_VELOCITY")
	floatVar(&c.Weights.Insider, "SENTIMENT_WEIGHT_INSIDER")
	floatVar(&c.Weights.Divergence, "SENTIMENT_WEIGHT_DIVERGENCE")

	intVar(&c.SentimentBatchSize, "SENTIMENT_BATCH_SIZE")
	intVar(&c.MistralBatchSize, "MISTRAL_BATCH_SIZE")
	durationSecVar(&c.MistralBatchDelay, "MISTRAL_BATCH_DELAY")
	floatVar(&c.MistralMinPrescale, "MISTRAL_MIN_PRESCALE")

	floatVar(&c.SignalMinConfidence, "SIGNAL_MIN_CONFIDENCE")
	floatVar(&c.SignalMinScore, "SIGNAL_MIN_SCORE")
	floatVar(&c.PositionSizeBasePct, "POSITION_SIZE_BASE_PCT")
	floatVar(&c.PositionSizeMaxPct, "POSITION_SIZE_MAX_PCT")
	floatVar(&c.DefaultStopLossPct, "DEFAULT_STOP_LOSS_PCT")
	floatVar(&c.DefaultTakeProfitPct, "DEFAULT_TAKE_PROFIT_PCT")
	intVar(&c.MaxHoldHours, "MAX_HOLD_HOURS")

	boolVar(&c.TradingExtendedHours, "TRADING_EXTENDED_HOURS")

	durationSecVar(&c.MarketOpenCycle, "MARKET_OPEN_CYCLE_SEC")
	durationSecVar(&c.ExtendedHoursCycle, "EXTENDED_HOURS_CYCLE_SEC")
	durationSecVar(&c.MarketClosedCycle, "MARKET_CLOSED_CYCLE_SEC")
	intVar(&c.PreopenWarmupHours, "PREOPEN_WARMUP_HOURS")

	strVar(&c.BrokerAPIKey, "BROKER_API_KEY")
	strVar(&c.BrokerAPISecret, "BROKER_API_SECRET")
	boolVar(&c.BrokerPaper, "BROKER_PAPER")

	strVar(&c.LLMEndpointURL, "LLM_ENDPOINT_URL")
	strVar(&c.LLMModelName, "LLM_MODEL_NAME")
	durationSecVar(&c.LLMTimeout, "LLM_TIMEOUT_SECS")
	intVar(&c.LLMMaxConcurrent, "LLM_MAX_CONCURRENT")

	strVar(&c.DataDir, "CATALYST_DATA_DIR")

	strVar(&c.AdminPort, "ADMIN_PORT")
	strVar(&c.AdminJWTSecret, "ADMIN_JWT_SECRET")
	strVar(&c.AdminTOTPSecret, "ADMIN_TOTP_SECRET")
	strVar(&c.AdminPasswordHash, "ADMIN_PASSWORD_HASH")

	return c
}

func strVar(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func boolVar(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warnf("config: %s=%q is not a bool, keeping default", key, v)
			return
		}
		*dst = b
	}
}

func floatVar(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			logger.Warnf("config: %s=%q is not a float, keeping default", key, v)
			return
		}
		*dst = f
	}
}

func intVar(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			logger.Warnf("config: %s=%q is not an int, keeping default", key, v)
			return
		}
		*dst = n
	}
}

func durationSecVar(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			logger.Warnf("config: %s=%q is not an int (seconds), keeping default", key, v)
			return
		}
		*dst = time.Duration(n) * time.Second
	}
}
