package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/logging"
	"github.com/dmitrijs2005/photorestore/internal/server/metrics"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// counter is the part of *redis.Client the limiter relies on.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

const rateWindow = time.Minute

var now = time.Now

// RateLimit allows perMinute requests per client address in fixed one-minute
// windows kept in Redis. With no counter or a non-positive limit it lets
// everything through; Redis errors also let the request through.
func RateLimit(rdb counter, perMinute int, m *metrics.Metrics, log logging.Logger) echo.MiddlewareFunc {
	if rdb == nil || perMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			t := now()
			window := t.Truncate(rateWindow)
			key := "ratelimit:" + ip + ":" + strconv.FormatInt(window.Unix(), 10)

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				log.Warn(ctx, "rate limiter unavailable", "error", err)
				return next(c)
			}
			if n == 1 {
				if err := rdb.Expire(ctx, key, rateWindow).Err(); err != nil {
					log.Warn(ctx, "rate limiter expire failed", "key", key, "error", err)
				}
			}

			remaining := int64(perMinute) - n
			if remaining < 0 {
				remaining = 0
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if n > int64(perMinute) {
				retry := int(window.Add(rateWindow).Sub(t).Seconds()) + 1
				h.Set("Retry-After", strconv.Itoa(retry))
				if m != nil {
					m.RateLimited.Inc()
				}
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": retry,
				})
			}
			return next(c)
		}
	}
}
