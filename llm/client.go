// Package llm implements the §6 LLM client: a connection-pooled HTTP client
// against a locally served model (the Ollama `/api/generate` contract),
// bounded to a fixed number of concurrent requests, circuit-broken against
// a misbehaving or overloaded model, and fronted by a batch driver that
// pre-filters candidates by a fast prescale score before spending model
// time on them. The transport contract itself — what the model serves on
// the other end of LLM_ENDPOINT_URL — is out of scope; only the
// request/response shape this client sends and expects is specified.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"catalystcore/config"
	"catalystcore/logger"
	"catalystcore/metrics"
	"catalystcore/xerrors"
)

// Client queries a local LLM HTTP endpoint, grounded on
// llm_client.py's query_llm (request shape, retry loop) and llm_async.py's
// AsyncLLMClient (connection pooling, semaphore, circuit breaker). The
// semaphore is a buffered channel rather than golang.org/x/sync/semaphore,
// matching the pack's own bounded-concurrency idiom in
// stadam23-Eve-flipper/internal/esi/client.go's Client.sem.
type Client struct {
	endpoint string
	model    string

	httpClient *http.Client
	sem        chan struct{}
	breaker    *circuitBreaker

	defaultTimeout time.Duration
}

// NewClient builds a Client from the resolved configuration. The
// http.Transport reuses connections across calls the way llm_async.py's
// aiohttp.TCPConnector does, avoiding a new TLS/TCP handshake per prompt.
func NewClient(cfg *config.Config) *Client {
	transport := &http.Transport{
		MaxIdleConns:        cfg.LLMMaxConcurrent * 2,
		MaxIdleConnsPerHost: cfg.LLMMaxConcurrent,
		IdleConnTimeout:     60 * time.Second,
	}
	return &Client{
		endpoint:       cfg.LLMEndpointURL,
		model:          cfg.LLMModelName,
		httpClient:     &http.Client{Transport: transport, Timeout: cfg.LLMTimeout},
		sem:            make(chan struct{}, cfg.LLMMaxConcurrent),
		breaker:        newCircuitBreaker(),
		defaultTimeout: cfg.LLMTimeout,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// llmRetryDelay is the base pause between retries, matching llm_client.py's
// retry_delay=2.0 (a linear, not exponential, backoff — deliberately
// different from broker.Alpaca's exponential policy, since the original LLM
// client itself used a flat `retry_delay * (attempt + 1)` schedule).
const llmRetryDelay = 2 * time.Second

// Query sends one prompt to the model and returns its response text.
// timeout and maxRetries override the client's defaults when positive; a
// circuit-open breaker short-circuits immediately with ErrTransientProvider
// rather than attempting the network call, mirroring llm_async.py's
// "llm_circuit_open skipping_request" path.
func (c *Client) Query(ctx context.Context, prompt, system string, timeout time.Duration, maxRetries int) (string, error) {
	if c.breaker.open() {
		metrics.RecordLLMRequest("circuit_open", 0)
		return "", xerrors.New(xerrors.ErrTransientProvider, "llm circuit breaker open")
	}
	return c.do(ctx, prompt, system, timeout, maxRetries)
}

// Warmup issues the one-shot "OK" probe query_llm.py's prime_ollama_gpu and
// llm_async.py's batch driver both perform before processing a batch, and
// before the circuit breaker can close. Unlike Query, Warmup always
// attempts the network call even while the breaker is open — it is the only
// path that can accumulate the consecutive successes the breaker needs to
// close again.
func (c *Client) Warmup(ctx context.Context) error {
	_, err := c.do(ctx, "Respond with 'OK'", "", 10*time.Second, 1)
	return err
}

func (c *Client) do(ctx context.Context, prompt, system string, timeout time.Duration, maxRetries int) (string, error) {
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-c.sem }()

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(llmRetryDelay * time.Duration(attempt+1)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		result, err := c.request(ctx, prompt, system, timeout)
		if err == nil {
			c.breaker.recordSuccess()
			metrics.SetLLMCircuitOpen(c.breaker.open())
			metrics.RecordLLMRequest("success", time.Since(start).Seconds())
			return result, nil
		}
		lastErr = err
		if !xerrors.Transient(err) {
			break
		}
		logger.Warnf("llm: request failed attempt=%d/%d err=%v", attempt+1, maxRetries, err)
	}

	c.breaker.recordFailure()
	metrics.SetLLMCircuitOpen(c.breaker.open())
	metrics.RecordLLMRequest("failure", time.Since(start).Seconds())
	return "", lastErr
}

func (c *Client) request(ctx context.Context, prompt, system string, timeout time.Duration) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, System: system, Stream: false})
	if err != nil {
		return "", xerrors.Wrap(xerrors.ErrValidation, "encode llm request", err)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", xerrors.Wrap(xerrors.ErrValidation, "build llm request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", xerrors.Wrap(xerrors.ErrTransientProvider, "llm request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", xerrors.Wrap(xerrors.ErrTransientProvider, "read llm response", err)
	}

	if resp.StatusCode == http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return "", xerrors.New(xerrors.ErrTransientProvider, fmt.Sprintf("llm overloaded: status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return "", xerrors.New(xerrors.ErrDataUnavailable, fmt.Sprintf("llm bad status: %d", resp.StatusCode))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		text := string(bytes.TrimSpace(respBody))
		if text == "" {
			return "", xerrors.New(xerrors.ErrDataUnavailable, "empty llm response")
		}
		return text, nil
	}
	if parsed.Response == "" {
		return "", xerrors.New(xerrors.ErrDataUnavailable, "llm response missing text")
	}
	return parsed.Response, nil
}
