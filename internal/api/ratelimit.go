package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cristhian-fs/slack-clone/internal/auth"
	"github.com/cristhian-fs/slack-clone/internal/metrics"
	"github.com/cristhian-fs/slack-clone/internal/redis"
)

// RateLimiter is a fixed-window counter. It returns whether the hit is
// allowed, the count in the current window and the window's remaining ttl
// in milliseconds.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int64, int64, error)
}

var _ RateLimiter = (*redis.Client)(nil)

// RateLimitPolicy names a budget shared by every route it guards.
type RateLimitPolicy struct {
	Name   string
	Limit  int
	Window time.Duration
}

var (
	// UploadPolicy guards unauthenticated upload targets, keyed by IP.
	UploadPolicy = RateLimitPolicy{Name: "upload", Limit: 10, Window: time.Minute}
	// APIPolicy guards the authenticated API, keyed by user.
	APIPolicy = RateLimitPolicy{Name: "api", Limit: 120, Window: time.Minute}
)

// key buckets authenticated callers by user and everyone else by client IP.
func (p RateLimitPolicy) key(c echo.Context) string {
	if uid, ok := auth.LookupUserID(c); ok {
		return "rl:" + p.Name + ":u:" + strconv.FormatInt(uid, 10)
	}
	return "rl:" + p.Name + ":ip:" + c.RealIP()
}

// RateLimitMiddleware enforces policy and reports it through the
// X-RateLimit-* headers. Limiter errors let the request through.
func RateLimitMiddleware(limiter RateLimiter, policy RateLimitPolicy) echo.MiddlewareFunc {
	limitHeader := strconv.Itoa(policy.Limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := policy.key(c)
			allowed, count, ttlMs, err := limiter.CheckRateLimit(c.Request().Context(), key, policy.Limit, policy.Window)
			if err != nil {
				slog.Warn("rate limiter unavailable", "policy", policy.Name, "error", err)
				return next(c)
			}

			ttl := time.Duration(ttlMs) * time.Millisecond
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limitHeader)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(max(int64(policy.Limit)-count, 0), 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

			if allowed {
				return next(c)
			}

			metrics.RateLimited.WithLabelValues(policy.Name).Inc()
			secs := int64((ttl + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.FormatInt(max(secs, 1), 10))
			return errorJSON(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please try again later")
		}
	}
}
