package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// RateLimitWindow is the fixed window length.
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the number of requests allowed per window.
	RateLimitMaxRequests = 120
	// RateLimitKeyPrefix is the Redis key prefix for window counters.
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs.
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked after exceeding the limit.
	BlockedIPDuration = time.Hour
)

// RedisRateLimiter is a fixed-window per-IP limiter shared by every
// instance through Redis. IPs that exceed the window are blocked for
// BlockedIPDuration. Redis errors fail open.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	block  time.Duration
	log    *zap.SugaredLogger
}

// NewRedisRateLimiter returns a limiter with the package defaults.
func NewRedisRateLimiter(client *redis.Client, log *zap.SugaredLogger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  RateLimitMaxRequests,
		window: RateLimitWindow,
		block:  BlockedIPDuration,
		log:    log,
	}
}

// Middleware enforces the window. A limiter without a Redis client passes
// every request through.
func (l *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l == nil || l.client == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		ip := ClientIP(r)

		blocked, err := l.IsBlocked(ctx, ip)
		if err != nil {
			l.log.Warnw("rate limit: redis unavailable, allowing request", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if blocked {
			writeError(w, http.StatusTooManyRequests,
				"Your IP has been temporarily blocked due to excessive requests. Please try again later.")
			return
		}

		count, err := l.hit(ctx, ip)
		if err != nil {
			l.log.Warnw("rate limit: redis unavailable, allowing request", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		if count > int64(l.limit) {
			if err := l.client.Set(ctx, BlockedIPKeyPrefix+ip, "1", l.block).Err(); err != nil {
				l.log.Warnw("rate limit: failed to block ip", "ip", ip, "error", err)
			} else {
				l.log.Warnw("rate limit: ip blocked", "ip", ip, "count", count)
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(l.limit)-count, 10))
		next.ServeHTTP(w, r)
	})
}

// hit counts a request in the current window. The first hit of a window
// sets its expiry.
func (l *RedisRateLimiter) hit(ctx context.Context, ip string) (int64, error) {
	key := RateLimitKeyPrefix + ip
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// IsBlocked checks if an IP is currently blocked.
func (l *RedisRateLimiter) IsBlocked(ctx context.Context, ip string) (bool, error) {
	n, err := l.client.Exists(ctx, BlockedIPKeyPrefix+ip).Result()
	return n > 0, err
}

// Unblock removes an IP from the blocked list.
func (l *RedisRateLimiter) Unblock(ctx context.Context, ip string) error {
	return l.client.Del(ctx, BlockedIPKeyPrefix+ip).Err()
}
