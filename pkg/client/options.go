package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/canvas-mcp/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// Option configures a Client.
type Option func(*Client) error

// WithMaxRetries sets how many times a retryable failure is replayed.
// Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) error {
		if n < 0 {
			return fmt.Errorf("max retries must be >= 0 (got %d)", n)
		}
		c.maxRetries = n
		return nil
	}
}

// WithRetryDelay sets the base delay of the exponential backoff.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("retry delay must be >= 0 (got %s)", d)
		}
		c.retryDelay = d
		return nil
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be > 0 (got %s)", d)
		}
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
		return nil
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is kept.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client is nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithRateLimitTracker records the Canvas quota headers of every response.
func WithRateLimitTracker(t *ratelimit.Tracker) Option {
	return func(c *Client) error {
		c.tracker = t
		return nil
	}
}

// WithBaseURL overrides the https://<domain>/api/v1 base, e.g. for a local
// Canvas instance served over plain HTTP.
func WithBaseURL(raw string) Option {
	return func(c *Client) error {
		u, err := url.Parse(strings.TrimRight(raw, "/"))
		if err != nil {
			return fmt.Errorf("invalid base url: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid base url %q: scheme and host required", raw)
		}
		c.baseURL = u
		return nil
	}
}

// withSleeper replaces the backoff wait; tests use it to record delays.
func withSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) error {
		c.sleep = sleep
		return nil
	}
}
