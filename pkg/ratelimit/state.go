// Package ratelimit tracks the Canvas request quota.
//
// Canvas meters API use with a leaky bucket per access token and reports it
// on every response in the X-Rate-Limit-Remaining and X-Request-Cost
// headers. The Tracker records those values for logging and metrics; it does
// not hold requests back. Throttled requests are handled by the client's
// retry policy like any other failure.
package ratelimit

import (
	"time"
)

// Canvas quota headers.
const (
	HeaderRateLimitRemaining = "X-Rate-Limit-Remaining"
	HeaderRequestCost        = "X-Request-Cost"
)

// Redis keys for quota state shared between server processes.
const (
	RedisKeyRemaining   = "canvas:rate_limit:remaining"
	RedisKeyRequestCost = "canvas:rate_limit:request_cost"
	RedisKeyLastUpdate  = "canvas:rate_limit:last_update"
)

// Thresholds on the remaining quota.
const (
	// QuotaThresholdCritical marks a bucket that is about to throttle.
	QuotaThresholdCritical = 50

	// QuotaThresholdWarning marks a bucket worth logging about.
	QuotaThresholdWarning = 200

	// QuotaThresholdHealthy marks a comfortably full bucket.
	QuotaThresholdHealthy = 400

	// DefaultQuota is the Canvas bucket size assumed before any header is seen.
	DefaultQuota = 700
)

// QuotaState is the last observed Canvas quota.
type QuotaState struct {
	// Remaining is the value of X-Rate-Limit-Remaining.
	Remaining float64 `json:"remaining"`

	// LastCost is the value of X-Request-Cost of the latest response.
	LastCost float64 `json:"last_cost"`

	// LastUpdate is when the headers were observed.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= QuotaThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state is older than maxAge.
func (s *QuotaState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsCritical returns true when the bucket is nearly empty.
func (s *QuotaState) IsCritical() bool {
	return s.Remaining < QuotaThresholdCritical
}

// IsLow returns true when the bucket is below the warning threshold but not critical.
func (s *QuotaState) IsLow() bool {
	return s.Remaining < QuotaThresholdWarning && !s.IsCritical()
}

// UpdateHealth updates IsHealthy from Remaining.
func (s *QuotaState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= QuotaThresholdHealthy
}

func defaultState() QuotaState {
	return QuotaState{
		Remaining:  DefaultQuota,
		LastUpdate: time.Now(),
		IsHealthy:  true,
	}
}
