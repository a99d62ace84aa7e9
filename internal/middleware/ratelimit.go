package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/park-ticketing/internal/config"
)

// limiterScript refills the bucket for the elapsed intervals, takes one
// token if available and returns {allowed, tokens, retry_after_ms}.
var limiterScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])
	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals * refill_tokens)
		last_refill = last_refill + intervals * interval_ms
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)
	return { allowed, tokens, retry_after_ms }
`)

// TokenBucket limits requests per caller and route with a bucket held
// in Redis, so limits hold across server instances.
type TokenBucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	now func() time.Time
	log *logrus.Entry
}

// NewTokenBucket returns the limiter middleware, or a pass-through when
// disabled or Redis is unavailable.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return (&TokenBucket{cfg: cfg, rdb: rdb, now: time.Now, log: logrus.WithField("component", "ratelimit")}).Middleware
}

func (tb *TokenBucket) key(c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return fmt.Sprintf("%s:ip:%s:user:%s:route:%s %s", tb.cfg.Prefix, ip, identity(c), c.Request().Method, c.Path())
}

// Middleware applies the limit.  Redis failures fail open.
func (tb *TokenBucket) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := tb.key(c)
		vals, err := limiterScript.Run(c.Request().Context(), tb.rdb, []string{key},
			tb.now().UnixMilli(),
			tb.cfg.Capacity,
			tb.cfg.RefillTokens,
			tb.cfg.RefillInterval.Milliseconds(),
			int64(tb.cfg.TTL/time.Second),
		).Result()
		if err != nil {
			tb.log.WithError(err).WithField("key", key).Warn("rate limit check failed")
			return next(c)
		}
		arr, ok := vals.([]interface{})
		if !ok || len(arr) != 3 {
			tb.log.WithField("key", key).Warnf("unexpected script result %#v", vals)
			return next(c)
		}
		allowed := asInt64(arr[0]) == 1
		remaining := asInt64(arr[1])
		retryMs := asInt64(arr[2])

		h := c.Response().Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(tb.cfg.Capacity))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !allowed {
			secs := int(math.Ceil(float64(retryMs) / 1000.0))
			h.Set("Retry-After", strconv.Itoa(secs))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"success":     false,
				"message":     "Too many requests, please slow down",
				"retry_after": secs,
			})
		}
		return next(c)
	}
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
