package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bacendata/sgs-client/pkg/apierr"
)

// Retryable failure reasons, used for logging and metrics labels.
const (
	reasonThrottle = "throttle"
	reasonServer   = "server_error"
	reasonNetwork  = "network"
)

// transientError marks a failure as retryable. It never escapes the
// retry loop: exhaustion converts it into an apierr.TimeoutError.
type transientError struct {
	reason string
	status int
	err    error
}

func (e *transientError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("transient %s failure: %v", e.reason, e.err)
	}
	return fmt.Sprintf("transient %s failure (status %d)", e.reason, e.status)
}

func (e *transientError) Unwrap() error { return e.err }

// retryState tracks one request's progress through the attempt budget.
// Keeping it explicit makes the retryable-vs-terminal decision a single
// inspectable branch instead of nested error handling.
type retryState struct {
	attempt int
	lastErr *transientError
}

// backoffFor returns the delay before the next attempt. The attempt
// index (1-based) is clamped to the last table entry.
func (c *Client) backoffFor(attempt int) time.Duration {
	idx := attempt - 1
	if idx >= len(c.config.Backoff) {
		idx = len(c.config.Backoff) - 1
	}
	return c.config.Backoff[idx]
}

// fetchWithRetry runs the attempt loop for one upstream request.
// Terminal classifications propagate immediately; retryable ones burn
// an attempt and wait the backoff for that attempt index. Exhausting
// the budget on retryable conditions yields a TimeoutError carrying the
// attempt count.
func (c *Client) fetchWithRetry(ctx context.Context, code int, u string) ([]Observation, error) {
	state := retryState{}

	for state.attempt = 1; state.attempt <= c.config.MaxAttempts; state.attempt++ {
		obs, err := c.attempt(ctx, code, u)
		if err == nil {
			if state.attempt > 1 {
				c.logger.Info().
					Int("series", code).
					Int("attempt", state.attempt).
					Msg("Request succeeded after retry")
			}
			return obs, nil
		}

		var transient *transientError
		if !errors.As(err, &transient) {
			// Terminal: not found, bad request, undecodable body.
			c.logger.Error().
				Err(err).
				Int("series", code).
				Msg("Terminal upstream failure")
			return nil, err
		}
		state.lastErr = transient

		if state.attempt >= c.config.MaxAttempts {
			break
		}

		backoff := c.backoffFor(state.attempt)
		retriesTotal.WithLabelValues(transient.reason).Inc()
		retryBackoffSeconds.WithLabelValues(transient.reason).Observe(backoff.Seconds())
		c.logger.Warn().
			Int("series", code).
			Int("attempt", state.attempt).
			Int("status_code", transient.status).
			Str("reason", transient.reason).
			Dur("backoff", backoff).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry cancelled for series %d: %w", code, ctx.Err())
		case <-time.After(backoff):
		}
	}

	retryExhaustedTotal.WithLabelValues(state.lastErr.reason).Inc()
	c.logger.Error().
		Int("series", code).
		Int("attempts", c.config.MaxAttempts).
		Str("reason", state.lastErr.reason).
		Msg("Retry attempts exhausted")

	return nil, &apierr.TimeoutError{Code: code, Attempts: c.config.MaxAttempts}
}
