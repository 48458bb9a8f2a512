package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRedisKey is the sorted set holding the shared request window.
const DefaultRedisKey = "edgar:rate_limit:window"

// acquireScript evicts expired members, then either records the caller and
// returns 0, or returns the milliseconds until the oldest member expires.
// Check and record run in one script so concurrent processes cannot both
// take the last free slot.
var acquireScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window)
	return 0
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local wait = tonumber(oldest[2]) + window - now
if wait < 1 then
	wait = 1
end
return wait
`)

// RedisWindow is a sliding window budget stored in Redis. Every process that
// points at the same key shares one request ceiling, which matters when
// several workers egress through the same IP.
type RedisWindow struct {
	redis  *redis.Client
	key    string
	limit  int
	window time.Duration
	logger zerolog.Logger
}

// NewRedisWindow creates a Redis-backed budget.
func NewRedisWindow(redisClient *redis.Client, key string, limit int, window time.Duration, logger zerolog.Logger) *RedisWindow {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	if limit <= 0 {
		limit = DefaultRequestsPerSecond
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisWindow{
		redis:  redisClient,
		key:    key,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// Acquire blocks until the shared window has room for one more request.
func (w *RedisWindow) Acquire(ctx context.Context) error {
	start := time.Now()
	member := uuid.NewString()

	for {
		now := time.Now().UnixMilli()
		wait, err := acquireScript.Run(ctx, w.redis, []string{w.key},
			now, w.window.Milliseconds(), w.limit, member).Int64()
		if err != nil {
			return fmt.Errorf("acquire redis request slot: %w", err)
		}

		if wait <= 0 {
			budgetAcquiredTotal.WithLabelValues("redis").Inc()
			budgetWaitSeconds.Observe(time.Since(start).Seconds())
			return nil
		}

		w.logger.Debug().
			Str("key", w.key).
			Int64("wait_ms", wait).
			Msg("Request window full, waiting")

		timer := time.NewTimer(time.Duration(wait) * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
