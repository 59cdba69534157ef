// Package client provides the Canvas LMS HTTP client with link-header
// pagination, retry with exponential backoff and error normalization.
//
// Every response passes through the same ordered chain: pagination is
// resolved first, then failed attempts are evaluated for retry, and only
// terminal failures reach the error normalizer. Callers never see a
// partial page set or a retryable failure that was later recovered.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/canvas-mcp/pkg/logging"
	"github.com/Sternrassler/canvas-mcp/pkg/pagination"
	"github.com/Sternrassler/canvas-mcp/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for Canvas client operations.
var (
	canvasRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_requests_total",
		Help: "Total Canvas API attempts by method and status",
	}, []string{"method", "status"})

	canvasRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canvas_request_duration_seconds",
		Help:    "Canvas API attempt duration in seconds by method",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method"})

	canvasErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_errors_total",
		Help: "Total failed Canvas API attempts by error class",
	}, []string{"class"})
)

// DefaultTimeout bounds a single attempt.
const DefaultTimeout = 30 * time.Second

// apiPath is the path prefix of the Canvas REST API.
const apiPath = "/api/v1"

// Client is the Canvas API client. It is safe for concurrent use; retry
// state is kept per request.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	token      string

	maxRetries int
	retryDelay time.Duration

	tracker  *ratelimit.Tracker
	resolver *pagination.Resolver
	sleep    func(ctx context.Context, d time.Duration) error
	logger   zerolog.Logger
}

// New creates a client for https://<domain>/api/v1 authenticated with token.
func New(token, domain string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(domain) == "" {
		return nil, fmt.Errorf("%w: domain is required", ErrInvalidConfig)
	}

	base, err := url.Parse("https://" + strings.TrimSpace(domain) + apiPath)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid domain %q", ErrInvalidConfig, domain)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    base,
		token:      token,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		sleep:      sleepContext,
		logger:     logging.NewLogger("canvas-client"),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	// Copy so a caller-supplied http.Client is never mutated.
	hc := *c.httpClient
	hc.Transport = newLoggingTransport(hc.Transport, c.logger)
	c.httpClient = &hc

	c.resolver = pagination.NewResolver(pagination.PageFetcherFunc(c.fetchPage), c.logger)

	return c, nil
}

// Do performs a logical Canvas request: attempts with retry, then resolves
// link-header pagination unless req.SinglePage is set.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	target, err := c.resolveURL(req.Path, req.Query)
	if err != nil {
		return nil, fmt.Errorf("build request url: %w", err)
	}

	var payload []byte
	if req.Body != nil {
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	resp, err := c.execute(ctx, req, target, payload)
	if err != nil {
		return nil, err
	}

	if req.SinglePage || !pagination.ShouldResolve(resp.Header, resp.Body) {
		return resp, nil
	}

	result, err := c.resolver.Resolve(ctx, target, resp.Header, resp.Body)
	if err != nil {
		var ce *CanvasError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, decodeError(req, resp, err)
	}

	body, err := result.JSON()
	if err != nil {
		return nil, decodeError(req, resp, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Pages:      result.Pages,
		Truncated:  result.Truncated,
	}, nil
}

// execute runs the attempt loop for one URL with a fresh retry counter.
func (c *Client) execute(ctx context.Context, req *Request, target string, payload []byte) (*Response, error) {
	state := newRequestState(c.retryDelay)
	ctx = withRequestState(ctx, state)

	for {
		start := time.Now()
		resp, err := c.attempt(ctx, req.Method, target, payload)
		canvasRequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

		class := classify(resp, err)
		if class == "" {
			canvasRequestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()
			return resp, nil
		}

		status := "network_error"
		if resp != nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		canvasRequestsTotal.WithLabelValues(req.Method, status).Inc()
		canvasErrorsTotal.WithLabelValues(string(class)).Inc()

		// The caller gave up; replaying would fail the same way.
		if err != nil && ctx.Err() != nil {
			return nil, normalizeError(req, nil, fmt.Errorf("%w: %v", ErrContextCancelled, err))
		}

		decision := evaluateRetry(class, state.retries, c.maxRetries)
		if decision.retry {
			delay := state.nextDelay()
			canvasRetriesTotal.WithLabelValues(string(class)).Inc()
			canvasRetryBackoffSeconds.WithLabelValues(string(class)).Observe(delay.Seconds())

			c.logger.Warn().
				Str("method", req.Method).
				Str("path", req.Path).
				Str("error_class", string(class)).
				Str("status_code", status).
				Int("attempt", state.retries).
				Dur("delay", delay).
				Msg("Retrying Canvas request")

			if err := c.sleep(ctx, delay); err != nil {
				return nil, normalizeError(req, nil, err)
			}
			continue
		}

		if decision.exhausted {
			canvasRetryExhaustedTotal.WithLabelValues(string(class)).Inc()
		}

		cerr := normalizeError(req, resp, err)
		c.logger.Error().
			Str("method", req.Method).
			Str("path", req.Path).
			Str("error_class", string(class)).
			Int("status_code", cerr.StatusCode).
			Int("retries", state.retries).
			Err(cerr).
			Msg("Canvas request failed")

		return nil, cerr
	}
}

// attempt sends one HTTP request and reads the whole response.
func (c *Client) attempt(ctx context.Context, method, target string, payload []byte) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if c.tracker != nil {
		if err := c.tracker.UpdateFromHeaders(ctx, httpResp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update Canvas quota from headers")
		}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		Pages:      1,
	}, nil
}

// fetchPage fetches a follow-up page. Each page is its own logical request
// with its own retry counter.
func (c *Client) fetchPage(ctx context.Context, pageURL string) (http.Header, []byte, error) {
	req := &Request{Method: http.MethodGet, Path: pageURL}
	resp, err := c.execute(ctx, req, pageURL, nil)
	if err != nil {
		return nil, nil, err
	}
	return resp.Header, resp.Body, nil
}

// resolveURL turns a relative API path or an absolute URL into the request
// URL and merges query into it.
func (c *Client) resolveURL(path string, query url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}

	var u url.URL
	if ref.IsAbs() {
		u = *ref
	} else {
		u = *c.baseURL
		u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
		u.RawPath = ""
		u.RawQuery = ref.RawQuery
	}

	if len(query) > 0 {
		q := u.Query()
		for key, values := range query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// Get performs a GET request. List endpoints return every page.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path, Query: query})
}

// HTTPClient returns the underlying HTTP client. Requests sent through it
// carry no Canvas credentials and are not retried.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// BaseURL returns the API base URL, e.g. https://canvas.example.edu/api/v1.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// MaxRetries returns the configured retry ceiling.
func (c *Client) MaxRetries() int {
	return c.maxRetries
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
