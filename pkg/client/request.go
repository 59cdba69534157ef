package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Request describes one logical Canvas call.
type Request struct {
	Method string

	// Path is relative to the API base URL ("/courses/1") or an absolute
	// URL, as found in Link headers.
	Path string

	Query url.Values

	// Body is encoded as JSON once and replayed unchanged on every attempt.
	Body any

	// SinglePage disables pagination resolution so the caller sees the
	// first page and its Link header as returned by Canvas.
	SinglePage bool
}

// Response is a fully read Canvas response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Pages is the number of pages folded into Body (1 when unpaginated).
	Pages int

	// Truncated is set when pagination stopped at the page ceiling.
	Truncated bool
}

// Decode unmarshals the response body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 || v == nil {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

type requestStateKey struct{}

// requestState is the per-request retry bookkeeping. It lives in the
// request context so concurrent calls never share a counter.
type requestState struct {
	retries int
	backoff *backoff.ExponentialBackOff
}

func newRequestState(baseDelay time.Duration) *requestState {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = time.Duration(1<<63 - 1)
	b.MaxElapsedTime = 0
	b.Reset()
	return &requestState{backoff: b}
}

// nextDelay advances the counter and returns baseDelay × 2^(retries−1).
func (s *requestState) nextDelay() time.Duration {
	s.retries++
	return s.backoff.NextBackOff()
}

func withRequestState(ctx context.Context, state *requestState) context.Context {
	return context.WithValue(ctx, requestStateKey{}, state)
}

func requestStateFrom(ctx context.Context) *requestState {
	state, _ := ctx.Value(requestStateKey{}).(*requestState)
	return state
}

// RetryCount reports how many retries the request carrying ctx has made so
// far. It is 0 outside a client call.
func RetryCount(ctx context.Context) int {
	if state := requestStateFrom(ctx); state != nil {
		return state.retries
	}
	return 0
}
