package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cristhian-fs/slack-clone/internal/metrics"
)

var testPolicy = RateLimitPolicy{Name: "test", Limit: 2, Window: time.Minute}

// hit runs one request through mw, optionally as userID, and reports the
// recorder and whether the handler ran.
func hit(t *testing.T, mw echo.MiddlewareFunc, userID int64) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	h := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusNoContent)
	})
	c, rec := newTestContext(http.MethodGet, "/api/v1/channels/1/messages", nil)
	if userID != 0 {
		setAuthUser(c, userID)
	}
	if err := h(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec, called
}

func TestRateLimit_HeadersCountDown(t *testing.T) {
	mw := RateLimitMiddleware(newTestRedis(t), testPolicy)

	for _, want := range []string{"1", "0"} {
		rec, called := hit(t, mw, 0)
		if !called || rec.Code != http.StatusNoContent {
			t.Fatalf("request rejected early: %d", rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != want {
			t.Errorf("X-RateLimit-Remaining = %q, want %q", got, want)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" || rec.Header().Get("X-RateLimit-Reset") == "" {
			t.Errorf("missing limit headers: %v", rec.Header())
		}
	}
}

func TestRateLimit_Rejects(t *testing.T) {
	mw := RateLimitMiddleware(newTestRedis(t), testPolicy)
	before := testutil.ToFloat64(metrics.RateLimited.WithLabelValues("test"))

	hit(t, mw, 0)
	hit(t, mw, 0)
	rec, called := hit(t, mw, 0)

	if called {
		t.Fatal("handler ran past the limit")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Error.Code != "RATE_LIMITED" {
		t.Errorf("code = %q", body.Error.Code)
	}
	if rec.Header().Get("Retry-After") == "" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("headers = %v", rec.Header())
	}
	if got := testutil.ToFloat64(metrics.RateLimited.WithLabelValues("test")); got != before+1 {
		t.Errorf("rate_limited_total = %v, want %v", got, before+1)
	}
}

func TestRateLimit_PerUserBuckets(t *testing.T) {
	mw := RateLimitMiddleware(newTestRedis(t), RateLimitPolicy{Name: "users", Limit: 1, Window: time.Minute})

	if _, called := hit(t, mw, 1); !called {
		t.Fatal("first request for user 1 rejected")
	}
	if _, called := hit(t, mw, 1); called {
		t.Error("second request for user 1 allowed")
	}
	if _, called := hit(t, mw, 2); !called {
		t.Error("user 2 shares user 1's budget")
	}
	if _, called := hit(t, mw, 0); !called {
		t.Error("anonymous caller shares a user's budget")
	}
}

type stubLimiter struct {
	keys []string
	err  error
}

func (l *stubLimiter) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, int64, int64, error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return false, 0, 0, l.err
	}
	return true, 1, 1500, nil
}

func TestRateLimit_FailOpen(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("connection refused")}
	rec, called := hit(t, RateLimitMiddleware(limiter, testPolicy), 0)
	if !called || rec.Code != http.StatusNoContent {
		t.Errorf("request blocked while limiter is down: %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "" {
		t.Error("headers set without a limiter answer")
	}
}

func TestRateLimitPolicy_Keys(t *testing.T) {
	limiter := &stubLimiter{}
	hit(t, RateLimitMiddleware(limiter, UploadPolicy), 0)
	hit(t, RateLimitMiddleware(limiter, APIPolicy), testUserID)

	want := []string{"rl:upload:ip:192.0.2.1", "rl:api:u:3000"}
	if len(limiter.keys) != len(want) {
		t.Fatalf("keys = %v", limiter.keys)
	}
	for i := range want {
		if limiter.keys[i] != want[i] {
			t.Errorf("key %d = %q, want %q", i, limiter.keys[i], want[i])
		}
	}
}
