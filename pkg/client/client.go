// Package client implements the retrying HTTP client for the SGS API.
//
// Each call issues exactly one logical upstream request, either a bounded
// date-range query or a "last N points" query for one series, and returns
// the raw observation list. Transient failures (throttling, server errors,
// network timeouts) are retried with a fixed backoff table; terminal
// failures (unknown series, bad parameters) propagate immediately.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bacendata/sgs-client/pkg/apierr"
	"github.com/bacendata/sgs-client/pkg/dates"
	"github.com/bacendata/sgs-client/pkg/logging"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production SGS endpoint.
const DefaultBaseURL = "https://api.bcb.gov.br/dados/serie"

// Observation is one raw data point exactly as the upstream returns it:
// a day-first date string and a decimal value string.
type Observation struct {
	Date  string `json:"data"`
	Value string `json:"valor"`
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the SGS API root. Defaults to DefaultBaseURL.
	BaseURL string

	// UserAgent identifies this client to the upstream.
	UserAgent string

	// Timeout is the per-attempt request timeout.
	Timeout time.Duration

	// MaxAttempts is the total attempt budget per request, including the
	// first one.
	MaxAttempts int

	// Backoff is the delay table between attempts. The attempt index is
	// clamped to the last entry when MaxAttempts exceeds the table.
	Backoff []time.Duration
}

// DefaultConfig returns the configuration matching the upstream's
// observed behavior: 30s per attempt, 3 attempts, 1s/2s/5s backoff.
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		UserAgent:   "sgs-client/1.0",
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		Backoff:     []time.Duration{1 * time.Second, 2 * time.Second, 5 * time.Second},
	}
}

// Client is the retrying SGS fetch client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a client. Zero config fields fall back to defaults.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if len(cfg.Backoff) == 0 {
		cfg.Backoff = def.Backoff
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logging.NewLogger("sgs-client"),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// FetchRange fetches one series for one bounded sub-range. The range must
// not exceed the upstream's maximum window; callers partition first.
func (c *Client) FetchRange(ctx context.Context, code int, rng dates.Range) ([]Observation, error) {
	q := url.Values{}
	q.Set("formato", "json")
	q.Set("dataInicial", rng.Start.BCB())
	q.Set("dataFinal", rng.End.BCB())

	u := fmt.Sprintf("%s/bcdata.sgs.%d/dados?%s", c.config.BaseURL, code, q.Encode())
	return c.fetchWithRetry(ctx, code, u)
}

// FetchLast fetches the most recent n points of one series.
func (c *Client) FetchLast(ctx context.Context, code, n int) ([]Observation, error) {
	if n < 1 {
		return nil, apierr.InvalidParamsf("last must be positive, got %d", n)
	}
	u := fmt.Sprintf("%s/bcdata.sgs.%d/dados/ultimos/%d?formato=json", c.config.BaseURL, code, n)
	return c.fetchWithRetry(ctx, code, u)
}

// attempt performs a single HTTP attempt and classifies the outcome.
func (c *Client) attempt(ctx context.Context, code int, u string) ([]Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		// Timeouts and transport failures are all retryable.
		requestsTotal.WithLabelValues("network_error").Inc()
		return nil, &transientError{reason: reasonNetwork, err: err}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &apierr.NotFoundError{Code: code}

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &transientError{reason: reasonThrottle, status: resp.StatusCode}

	case resp.StatusCode >= 500:
		return nil, &transientError{reason: reasonServer, status: resp.StatusCode}

	case resp.StatusCode >= 400:
		// 400 and the remaining 4xx family are terminal: retrying a
		// malformed request cannot succeed.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &apierr.UpstreamError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{reason: reasonNetwork, err: err}
	}

	var obs []Observation
	if err := json.Unmarshal(body, &obs); err != nil {
		if json.Valid(body) {
			// Syntactically valid JSON that is not an observation array
			// means the upstream had nothing to say: no data in range.
			c.logger.Warn().Int("series", code).Msg("Upstream returned non-array JSON, treating as empty")
			return nil, nil
		}
		// Terminal: the upstream answered, retrying will not change
		// the body.
		return nil, &apierr.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("undecodable response body for series %d: %v", code, err),
		}
	}
	return obs, nil
}
