package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix prefixes session keys in Redis.
const KeyPrefix = "canvas:session:"

// RedisStore keeps sessions in Redis so several server processes can serve
// the same session. Expiry uses native key TTLs.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewRedisStore creates a Redis-backed store. A non-positive ttl means
// DefaultTTL.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis: redisClient,
		ttl:   ttl,
		now:   time.Now,
	}
}

func key(id string) string {
	return KeyPrefix + id
}

// Create implements Store.
func (r *RedisStore) Create(ctx context.Context, s *Session) error {
	if err := prepare(s, r.now()); err != nil {
		return err
	}
	return r.save(ctx, s)
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.redis.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			SessionLookups.WithLabelValues("redis", "miss").Inc()
			return nil, ErrSessionNotFound
		}
		SessionErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		SessionErrors.WithLabelValues("get").Inc()
		_ = r.Delete(ctx, id)
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	s.LastAccess = r.now()
	if err := r.save(ctx, &s); err != nil {
		return nil, err
	}

	SessionLookups.WithLabelValues("redis", "hit").Inc()
	return &s, nil
}

// Update implements Store.
func (r *RedisStore) Update(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return ErrInvalidSession
	}

	n, err := r.redis.Exists(ctx, key(s.ID)).Result()
	if err != nil {
		SessionErrors.WithLabelValues("get").Inc()
		return fmt.Errorf("redis exists: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}

	s.LastAccess = r.now()
	return r.save(ctx, s)
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.redis.Del(ctx, key(id)).Err(); err != nil {
		SessionErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (r *RedisStore) Close() error {
	return nil
}

func (r *RedisStore) save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		SessionErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.redis.Set(ctx, key(s.ID), data, r.ttl).Err(); err != nil {
		SessionErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
