package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	canvasRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canvas_rate_limit_remaining",
		Help: "Remaining Canvas request quota reported by X-Rate-Limit-Remaining",
	})

	canvasRequestCost = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "canvas_request_cost",
		Help:    "Quota cost of Canvas requests reported by X-Request-Cost",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 50},
	})

	canvasRateLimitLowTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_rate_limit_low_total",
		Help: "Responses observed with the quota below the warning threshold",
	})
)

// stateTTL bounds how long shared state survives in Redis without updates.
const stateTTL = time.Hour

// Tracker records the Canvas quota from response headers. The Redis client
// is optional; without it state is kept in memory only.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	mu    sync.RWMutex
	state QuotaState
}

// NewTracker creates a new quota tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		state:  defaultState(),
	}
}

// GetState returns the latest quota state. With Redis configured the shared
// state wins over the local copy; a missing key yields the local state.
func (t *Tracker) GetState(ctx context.Context) (*QuotaState, error) {
	t.mu.RLock()
	local := t.state
	t.mu.RUnlock()

	if t.redis == nil {
		return &local, nil
	}

	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Float64()
	if errors.Is(err, redis.Nil) {
		return &local, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining quota: %w", err)
	}

	cost, err := t.redis.Get(ctx, RedisKeyRequestCost).Float64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get request cost: %w", err)
	}

	lastUpdate := local.LastUpdate
	unixNano, err := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	switch {
	case err == nil:
		lastUpdate = time.Unix(0, unixNano)
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get last update: %w", err)
	}

	state := &QuotaState{
		Remaining:  remaining,
		LastCost:   cost,
		LastUpdate: lastUpdate,
	}
	state.UpdateHealth()
	return state, nil
}

// UpdateFromHeaders records the quota headers of a Canvas response.
// Responses without X-Rate-Limit-Remaining are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := strings.TrimSpace(headers.Get(HeaderRateLimitRemaining))
	if remainStr == "" {
		return nil
	}

	remaining, err := strconv.ParseFloat(remainStr, 64)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRateLimitRemaining, err)
	}

	var cost float64
	if costStr := strings.TrimSpace(headers.Get(HeaderRequestCost)); costStr != "" {
		cost, err = strconv.ParseFloat(costStr, 64)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderRequestCost, err)
		}
		canvasRequestCost.Observe(cost)
	}

	state := QuotaState{
		Remaining:  remaining,
		LastCost:   cost,
		LastUpdate: time.Now(),
	}
	state.UpdateHealth()

	t.mu.Lock()
	previous := t.state
	t.state = state
	t.mu.Unlock()

	canvasRateLimitRemaining.Set(remaining)

	switch {
	case state.IsCritical():
		canvasRateLimitLowTotal.Inc()
		if !previous.IsCritical() {
			t.logger.Error().
				Float64("remaining", remaining).
				Float64("request_cost", cost).
				Msg("Canvas quota CRITICAL - requests are about to be throttled")
		}
	case state.IsLow():
		canvasRateLimitLowTotal.Inc()
		if previous.Remaining >= QuotaThresholdWarning {
			t.logger.Warn().
				Float64("remaining", remaining).
				Float64("request_cost", cost).
				Msg("Canvas quota running low")
		}
	default:
		t.logger.Debug().
			Float64("remaining", remaining).
			Float64("request_cost", cost).
			Msg("Canvas quota updated")
	}

	if t.redis == nil {
		return nil
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyRemaining, remaining, stateTTL)
	pipe.Set(ctx, RedisKeyRequestCost, cost, stateTTL)
	pipe.Set(ctx, RedisKeyLastUpdate, state.LastUpdate.UnixNano(), stateTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store quota state in redis: %w", err)
	}

	return nil
}
