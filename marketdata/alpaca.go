// Package marketdata implements the HTTP-backed provider interfaces that
// enrich, fundamentals, and regime depend on: Alpaca for bars/VWAP,
// FMP for float shares, and FINRA for short interest. Grounded directly on
// provider/alpaca_stock_data.go's alpacaRequest/fmpRequest/finraRequest
// pattern (same bearer/API-key headers, same plain net/http client with a
// fixed timeout) — generalized to accept a context.Context and to return
// errors instead of logging past them.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	alpacaDataBaseURL = "https://data.alpaca.markets"
	finraBaseURL      = "https://api.finra.org"
	fmpBaseURL        = "https://financialmodelingprep.com/api/v3"

	requestTimeout = 15 * time.Second

	alpacaBarPageLimit = 1000
)

// Client wires the three upstream APIs the classifier's slow path and
// fundamentals scorer depend on. All credentials are supplied explicitly
// (no package-level mutable config, unlike the teacher's SetAlpacaStockDataCredentials)
// so a Client is safe to construct per-test.
type Client struct {
	AlpacaAPIKey    string
	AlpacaAPISecret string
	FMPAPIKey       string
	FINRAAPIKey     string

	// Base URLs, overridable so tests can point at an httptest.Server
	// instead of the live upstream.
	AlpacaBaseURL string
	FMPBaseURL    string
	FINRABaseURL  string

	httpClient *http.Client
}

// NewClient builds a Client with the shared-timeout HTTP client the teacher
// uses for every upstream call.
func NewClient(alpacaKey, alpacaSecret, fmpKey, finraKey string) *Client {
	return &Client{
		AlpacaAPIKey:    alpacaKey,
		AlpacaAPISecret: alpacaSecret,
		FMPAPIKey:       fmpKey,
		FINRAAPIKey:     finraKey,
		AlpacaBaseURL:   alpacaDataBaseURL,
		FMPBaseURL:      fmpBaseURL,
		FINRABaseURL:    finraBaseURL,
		httpClient:      &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) alpacaGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("APCA-API-KEY-ID", c.AlpacaAPIKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.AlpacaAPISecret)
	return c.do(req)
}

func (c *Client) finraGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.FINRAAPIKey)
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) fmpGet(ctx context.Context, endpoint string) ([]byte, error) {
	url := fmt.Sprintf("%s%s?apikey=%s", c.FMPBaseURL, endpoint, c.FMPAPIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", req.URL.Host, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d: %s", req.URL.Host, resp.StatusCode, string(body))
	}
	return body, nil
}

// dailyBar is the subset of Alpaca's bar schema every lookup below needs.
type dailyBar struct {
	VWAP   float64 `json:"vw"`
	Close  float64 `json:"c"`
	Volume int64   `json:"v"`
}

func (c *Client) dailyBars(ctx context.Context, ticker string, limit int) ([]dailyBar, error) {
	url := fmt.Sprintf("%s/v2/stocks/%s/bars?timeframe=1Day&limit=%d", c.AlpacaBaseURL, ticker, limit)
	body, err := c.alpacaGet(ctx, url)
	if err != nil {
		return nil, err
	}
	var response struct {
		Bars []dailyBar `json:"bars"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("parsing bars for %s: %w", ticker, err)
	}
	return response.Bars, nil
}

// Bar is one OHLCV bar, the common shape §6's market-data interface returns
// for both the intraday and daily lookups. Grounded on market/historical.go's
// AlpacaBar, trimmed to the fields callers in this module actually read.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// PriceSnapshot is the last-trade/prev-close pair §6 names
// get_last_price_snapshot; a nil snapshot (not an error) means the ticker
// has no recent trade.
type PriceSnapshot struct {
	Last      float64
	PrevClose float64
}

type alpacaRawBar struct {
	Timestamp string  `json:"t"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

func (c *Client) rawBars(ctx context.Context, ticker, timeframe string, start, end time.Time) ([]Bar, error) {
	url := fmt.Sprintf("%s/v2/stocks/%s/bars?timeframe=%s&start=%s&end=%s&limit=%d",
		c.AlpacaBaseURL, ticker, timeframe, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339), alpacaBarPageLimit)
	body, err := c.alpacaGet(ctx, url)
	if err != nil {
		return nil, err
	}
	var response struct {
		Bars []alpacaRawBar `json:"bars"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("parsing bars for %s: %w", ticker, err)
	}
	bars := make([]Bar, 0, len(response.Bars))
	for _, b := range response.Bars {
		ts, err := time.Parse(time.RFC3339, b.Timestamp)
		if err != nil {
			continue
		}
		bars = append(bars, Bar{Timestamp: ts, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume})
	}
	return bars, nil
}

// GetIntradayBars implements §6's get_intraday_bars: minute/hour bars since a
// given time, sorted ascending by Alpaca already.
func (c *Client) GetIntradayBars(ctx context.Context, ticker string, interval string, since time.Time) ([]Bar, error) {
	return c.rawBars(ctx, ticker, interval, since, time.Now())
}

// GetDailyBars implements §6's get_daily_bars over an explicit date range,
// grounded on market/historical.go's GetKlinesRange.
func (c *Client) GetDailyBars(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error) {
	return c.rawBars(ctx, ticker, "1Day", start, end)
}

// GetLastPriceSnapshot implements §6's get_last_price_snapshot from the two
// most recent daily bars; returns (nil, nil) rather than an error when no
// bars are available yet.
func (c *Client) GetLastPriceSnapshot(ctx context.Context, ticker string) (*PriceSnapshot, error) {
	bars, err := c.dailyBars(ctx, ticker, 2)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, nil
	}
	snap := &PriceSnapshot{Last: bars[len(bars)-1].Close}
	if len(bars) > 1 {
		snap.PrevClose = bars[len(bars)-2].Close
	}
	return snap, nil
}

// RVOL implements enrich.RVOLProvider: current day's volume over the
// preceding 20-day average, the same windowing GetVolumeSurge uses.
func (c *Client) RVOL(ctx context.Context, ticker string) (float64, error) {
	bars, err := c.dailyBars(ctx, ticker, 21)
	if err != nil {
		return 0, err
	}
	if len(bars) < 2 {
		return 0, fmt.Errorf("insufficient bar history for %s", ticker)
	}
	current := bars[len(bars)-1].Volume
	var total int64
	for _, b := range bars[:len(bars)-1] {
		total += b.Volume
	}
	avg := total / int64(len(bars)-1)
	if avg == 0 {
		return 0, fmt.Errorf("zero average volume for %s", ticker)
	}
	return float64(current) / float64(avg), nil
}

// OneDayPriceChangePct implements enrich.PriceChangeProvider using the last
// two daily closes.
func (c *Client) OneDayPriceChangePct(ctx context.Context, ticker string) (float64, error) {
	bars, err := c.dailyBars(ctx, ticker, 2)
	if err != nil {
		return 0, err
	}
	if len(bars) < 2 || bars[len(bars)-2].Close == 0 {
		return 0, fmt.Errorf("insufficient close history for %s", ticker)
	}
	prev, last := bars[len(bars)-2].Close, bars[len(bars)-1].Close
	return (last - prev) / prev * 100, nil
}

// VWAP implements enrich.VWAPProvider using the latest daily bar's VWAP and
// close, mirroring GetVWAPAnalysis's "1Day" timeframe.
func (c *Client) VWAP(ctx context.Context, ticker string) (vwap float64, currentPrice float64, err error) {
	bars, err := c.dailyBars(ctx, ticker, 1)
	if err != nil {
		return 0, 0, err
	}
	if len(bars) == 0 {
		return 0, 0, fmt.Errorf("no bar data for %s", ticker)
	}
	last := bars[len(bars)-1]
	return last.VWAP, last.Close, nil
}

// FloatMultiplier implements enrich.FloatClassProvider, reusing FMP's
// company-profile endpoint for float shares outstanding.
func (c *Client) FloatMultiplier(ctx context.Context, ticker string) (floatShares float64, mult float64, class string, err error) {
	floatShares, err = c.FloatShares(ctx, ticker)
	if err != nil {
		return 0, 0, "", err
	}
	mult, class = floatClassBands(floatShares)
	return floatShares, mult, class, nil
}

func floatClassBands(floatShares float64) (float64, string) {
	switch {
	case floatShares < 10_000_000:
		return 1.3, "MICRO"
	case floatShares < 50_000_000:
		return 1.15, "LOW"
	case floatShares < 100_000_000:
		return 1.0, "NORMAL"
	default:
		return 0.9, "HIGH"
	}
}

// FloatShares implements fundamentals.Provider via FMP's /profile endpoint.
func (c *Client) FloatShares(ctx context.Context, ticker string) (float64, error) {
	body, err := c.fmpGet(ctx, "/profile/"+ticker)
	if err != nil {
		return 0, err
	}
	var profiles []struct {
		FloatShares float64 `json:"floatShares"`
		SharesOutstanding float64 `json:"sharesOutstanding"`
	}
	if err := json.Unmarshal(body, &profiles); err != nil {
		return 0, fmt.Errorf("parsing profile for %s: %w", ticker, err)
	}
	if len(profiles) == 0 {
		return 0, fmt.Errorf("no profile data for %s", ticker)
	}
	if profiles[0].FloatShares > 0 {
		return profiles[0].FloatShares, nil
	}
	return profiles[0].SharesOutstanding, nil
}

// ShortInterestPct implements fundamentals.Provider via FINRA's daily
// short-interest endpoint, the same percentOfSharesOutstandingFloat field
// GetShortInterest reads.
func (c *Client) ShortInterestPct(ctx context.Context, ticker string) (float64, error) {
	url := fmt.Sprintf("%s/data/equity/shortinterest/v2/daily?symbol=%s&limit=1&sortField=settlementDate&sortType=desc",
		c.FINRABaseURL, ticker)
	body, err := c.finraGet(ctx, url)
	if err != nil {
		return 0, err
	}
	var response struct {
		Data []struct {
			PercentFloat float64 `json:"percentOfSharesOutstandingFloat"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, fmt.Errorf("parsing short interest for %s: %w", ticker, err)
	}
	if len(response.Data) == 0 {
		return 0, fmt.Errorf("no short interest data for %s", ticker)
	}
	return response.Data[0].PercentFloat, nil
}

// CurrentVIX implements regime.VIXProvider using Alpaca's latest daily bar
// for the CBOE volatility index ETF proxy VIXY when a true VIX feed isn't
// subscribed; callers needing the literal CBOE VIX should point this at a
// direct feed instead by wrapping Client.
func (c *Client) CurrentVIX(ctx context.Context) (float64, error) {
	bars, err := c.dailyBars(ctx, "VIXY", 1)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no VIX proxy data available")
	}
	return bars[len(bars)-1].Close, nil
}

// SPY20DayReturnPct implements regime.SPYProvider.
func (c *Client) SPY20DayReturnPct(ctx context.Context) (float64, error) {
	bars, err := c.dailyBars(ctx, "SPY", 21)
	if err != nil {
		return 0, err
	}
	if len(bars) < 2 {
		return 0, fmt.Errorf("insufficient SPY history")
	}
	first, last := bars[0].Close, bars[len(bars)-1].Close
	if first == 0 {
		return 0, fmt.Errorf("invalid SPY opening close")
	}
	return (last - first) / first * 100, nil
}
