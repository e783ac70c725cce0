package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalystcore/config"
	"catalystcore/xerrors"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.LLMEndpointURL = srv.URL
	cfg.LLMTimeout = 2 * time.Second
	cfg.LLMMaxConcurrent = 5

	return NewClient(cfg), srv
}

func TestQuery_ReturnsModelResponse(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"bullish catalyst"}`))
	})

	result, err := c.Query(context.Background(), "prompt", "", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "bullish catalyst", result)
}

func TestQuery_RetriesOn500ThenSucceeds(t *testing.T) {
	var calls int32
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"response":"ok"}`))
	})

	result, err := c.Query(context.Background(), "prompt", "", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestQuery_OpensCircuitAfterFiveFailures(t *testing.T) {
	var calls int32
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := c.Query(context.Background(), "prompt", "", 0, 1)
		assert.Error(t, err)
	}
	assert.True(t, c.breaker.open())

	callsBeforeSkip := atomic.LoadInt32(&calls)
	_, err := c.Query(context.Background(), "prompt", "", 0, 1)
	assert.Error(t, err)
	assert.Equal(t, callsBeforeSkip, atomic.LoadInt32(&calls)) // circuit open, no network hit
}

func TestWarmup_BypassesOpenCircuitAndCanCloseIt(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"response":"OK"}`))
	})

	for i := 0; i < 5; i++ {
		c.Query(context.Background(), "prompt", "", 0, 1)
	}
	require.True(t, c.breaker.open())

	failing.Store(false)
	require.NoError(t, c.Warmup(context.Background()))
	require.NoError(t, c.Warmup(context.Background()))
	assert.True(t, c.breaker.open()) // only 2 consecutive probe successes so far

	require.NoError(t, c.Warmup(context.Background()))
	assert.False(t, c.breaker.open()) // third consecutive probe success closes it
}

func TestScoreSentiment_ParsesAndClampsNumber(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"2.5 (strongly bullish)"}`))
	})

	score, err := c.ScoreSentiment(context.Background(), testNewsItem("bullish headline"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, score) // clamped from 2.5
}

func TestScoreSentiment_NoNumberAbstainsRatherThanFakingZero(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"no strong opinion"}`))
	})

	score, err := c.ScoreSentiment(context.Background(), testNewsItem("neutral headline"))
	require.Error(t, err)
	assert.True(t, xerrors.Abstain(err))
	assert.Equal(t, 0.0, score)
}
