package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiting configuration
type Config struct {
	Enabled        bool          `json:"enabled"`
	WindowDuration time.Duration `json:"window_duration"`
	Requests       int           `json:"requests"`
}

// Result represents one rate limit decision
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}

// Limiter is a sliding-window rate limiter backed by Redis. With a nil
// client or the limiter disabled it allows everything, so public tracking
// keeps working when Redis is down.
type Limiter struct {
	client *redis.Client
	config *Config
}

// NewLimiter creates a new rate limiter instance
func NewLimiter(client *redis.Client, config *Config) *Limiter {
	return &Limiter{client: client, config: config}
}

// Sorted-set sliding window, executed atomically server-side.
const slidingWindowScript = `
	local key = KEYS[1]
	local window_start = tonumber(ARGV[1])
	local now = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_seconds = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local current_count = redis.call('ZCARD', key)

	if current_count >= limit then
		redis.call('EXPIRE', key, window_seconds)
		return -1
	end

	redis.call('ZADD', key, now, now)
	redis.call('EXPIRE', key, window_seconds)
	return limit - current_count - 1
`

// IsAllowed checks whether the client may make another request in the
// current window.
func (l *Limiter) IsAllowed(ctx context.Context, clientIP string) (*Result, error) {
	if !l.config.Enabled || l.client == nil {
		return l.allowAll(), nil
	}

	now := time.Now()
	key := fmt.Sprintf("fitspot:ratelimit:%s", clientIP)
	windowStart := now.Add(-l.config.WindowDuration)

	raw, err := l.client.Eval(ctx, slidingWindowScript, []string{key},
		windowStart.UnixNano(),
		now.UnixNano(),
		l.config.Requests,
		int(l.config.WindowDuration.Seconds()),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	remaining, ok := raw.(int64)
	if !ok {
		return nil, fmt.Errorf("unexpected rate limit script response: %v", raw)
	}

	result := &Result{
		Allowed:   remaining >= 0,
		Limit:     l.config.Requests,
		ResetTime: now.Add(l.config.WindowDuration).Unix(),
	}
	if remaining > 0 {
		result.Remaining = int(remaining)
	}
	return result, nil
}

func (l *Limiter) allowAll() *Result {
	return &Result{
		Allowed:   true,
		Limit:     l.config.Requests,
		Remaining: l.config.Requests,
		ResetTime: time.Now().Add(l.config.WindowDuration).Unix(),
	}
}
