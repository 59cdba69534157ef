package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	canvasRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	canvasRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canvas_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"error_class"})

	canvasRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents failures where no response arrived.
	ErrorClassNetwork ErrorClass = "network"
)

// DefaultMaxRetries and DefaultRetryDelay are the construction defaults.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1000 * time.Millisecond
)

// classify maps an attempt outcome to an error class; "" means success.
func classify(resp *Response, err error) ErrorClass {
	switch {
	case err != nil:
		return ErrorClassNetwork
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 500:
		return ErrorClassServer
	case resp.StatusCode >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// shouldRetry determines if an error class is retryable. Every 5xx is
// treated alike, Canvas maintenance responses included.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}

// retryDecision is the outcome of evaluating a failed attempt.
type retryDecision struct {
	retry     bool
	exhausted bool
}

// evaluateRetry decides whether a failed attempt is replayed. It is
// consulted only for failures; success never reaches it.
func evaluateRetry(class ErrorClass, retries, maxRetries int) retryDecision {
	if !shouldRetry(class) {
		return retryDecision{}
	}
	if retries >= maxRetries {
		return retryDecision{exhausted: true}
	}
	return retryDecision{retry: true}
}

// sleepContext waits for d or until ctx ends, without holding any lock.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-timer.C:
		return nil
	}
}
