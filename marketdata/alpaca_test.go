package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRVOL_ComputesRatioAgainstTrailingAverage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bars := make([]map[string]float64, 0, 21)
		for i := 0; i < 20; i++ {
			bars = append(bars, map[string]float64{"v": 1_000_000})
		}
		bars = append(bars, map[string]float64{"v": 3_000_000})
		_ = json.NewEncoder(w).Encode(map[string]any{"bars": bars})
	}))
	defer srv.Close()

	c := NewClient("k", "s", "f", "r")
	c.AlpacaBaseURL = srv.URL

	rvol, err := c.RVOL(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, rvol, 1e-9)
}

func TestOneDayPriceChangePct_UsesLastTwoCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"bars": []map[string]float64{{"c": 10}, {"c": 11}},
		})
	}))
	defer srv.Close()

	c := NewClient("k", "s", "f", "r")
	c.AlpacaBaseURL = srv.URL

	pct, err := c.OneDayPriceChangePct(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, pct, 1e-9)
}

func TestVWAP_ReadsLatestDailyBar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"bars": []map[string]float64{{"vw": 9.5, "c": 10.0}},
		})
	}))
	defer srv.Close()

	c := NewClient("k", "s", "f", "r")
	c.AlpacaBaseURL = srv.URL

	vwap, price, err := c.VWAP(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.InDelta(t, 9.5, vwap, 1e-9)
	assert.InDelta(t, 10.0, price, 1e-9)
}

func TestFloatClassBands(t *testing.T) {
	mult, class := floatClassBands(5_000_000)
	assert.Equal(t, 1.3, mult)
	assert.Equal(t, "MICRO", class)

	mult, class = floatClassBands(200_000_000)
	assert.Equal(t, 0.9, mult)
	assert.Equal(t, "HIGH", class)
}

func TestFloatShares_PrefersFloatSharesOverOutstanding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]float64{
			{"floatShares": 42_000_000, "sharesOutstanding": 100_000_000},
		})
	}))
	defer srv.Close()

	c := NewClient("k", "s", "f", "r")
	c.FMPBaseURL = srv.URL

	shares, err := c.FloatShares(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.InDelta(t, 42_000_000, shares, 1e-9)
}

func TestShortInterestPct_ParsesFINRAPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]float64{{"percentOfSharesOutstandingFloat": 12.5}},
		})
	}))
	defer srv.Close()

	c := NewClient("k", "s", "f", "r")
	c.FINRABaseURL = srv.URL

	pct, err := c.ShortInterestPct(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.InDelta(t, 12.5, pct, 1e-9)
}

func TestSPY20DayReturnPct_ComputesFromFirstAndLastClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"bars": []map[string]float64{{"c": 400}, {"c": 410}, {"c": 420}},
		})
	}))
	defer srv.Close()

	c := NewClient("k", "s", "f", "r")
	c.AlpacaBaseURL = srv.URL

	pct, err := c.SPY20DayReturnPct(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 5.0, pct, 1e-9)
}

func TestDo_NonOKStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewClient("k", "s", "f", "r")
	c.AlpacaBaseURL = srv.URL

	_, err := c.RVOL(context.Background(), "XYZ")
	assert.Error(t, err)
}
