package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-room-reservation/internal/config"
)

// bucketScript implements a token bucket in Redis.  All arithmetic
// happens server-side in one atomic eval, so concurrent requests from
// several app instances never double-spend a token.  KEYS[1] is the
// bucket hash; ARGV carries now (ms), capacity, refill tokens, refill
// interval (ms) and the key TTL (s).  The reply is {allowed, tokens
// left, retry-after ms}.
var bucketScript = redis.NewScript(`
local key      = KEYS[1]
local now      = tonumber(ARGV[1])
local cap      = tonumber(ARGV[2])
local refill   = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl      = tonumber(ARGV[5])

local state  = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last   = tonumber(state[2])

if tokens == nil or last == nil then
  tokens = cap
  last = now
else
  local elapsed = now - last
  if elapsed >= interval then
    local rounds = math.floor(elapsed / interval)
    tokens = math.min(cap, tokens + rounds * refill)
    last = last + rounds * interval
  end
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
  tokens = tokens - 1
  allowed = 1
else
  retry_ms = interval - (now - last)
  if retry_ms < 0 then retry_ms = 0 end
end

redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, retry_ms}
`)

// NewTokenBucket rate limits requests against a Redis token bucket,
// keyed by caller identity per KeyStrategy.  Booking and payment
// confirmation are the endpoints this guards: each rejected request is
// one fewer caller waiting on a room lock.  Redis being down fails
// open, the limiter never takes the API down with it.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := bucketKey(cfg, c)

			res, err := bucketScript.Run(ctx, rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int(cfg.TTL.Seconds()),
			).Slice()
			if err != nil || len(res) != 3 {
				return next(c) // fail open
			}

			allowed := toInt64(res[0]) == 1
			remaining := toInt64(res[1])
			retryAfter := time.Duration(toInt64(res[2])) * time.Millisecond

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}

			if !allowed {
				secs := int(retryAfter.Round(time.Second).Seconds())
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		parsed, _ := strconv.ParseInt(n, 10, 64)
		return parsed
	}
	return 0
}

// bucketKey builds the Redis key from the configured identity parts.
// Authenticated callers are bucketed by user id so a guest behind a
// shared NAT cannot exhaust another guest's budget; anonymous traffic
// falls back to the client IP.
func bucketKey(cfg config.RateLimitConfig, c echo.Context) string {
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = []string{c.RealIP()}
	case "user":
		parts = []string{callerID(c)}
	case "route":
		parts = []string{c.Path()}
	case "ip_user":
		parts = []string{c.RealIP(), callerID(c)}
	case "ip_route":
		parts = []string{c.RealIP(), c.Path()}
	case "user_route":
		parts = []string{callerID(c), c.Path()}
	default: // ip_user_route
		parts = []string{c.RealIP(), callerID(c), c.Path()}
	}
	return cfg.Prefix + ":" + strings.Join(parts, ":")
}

// callerID extracts the authenticated user id from the context.  The
// JWT middleware stores the raw sub claim, which decodes as a float64
// from JSON; string ids are accepted for completeness.  Unauthenticated
// requests share the "anon" bucket component.
func callerID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case string:
		if v != "" {
			return v
		}
	case fmt.Stringer:
		return v.String()
	}
	return "anon"
}
