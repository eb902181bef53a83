package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/naybourhood/naybourhood-server/internal/config"
	"github.com/naybourhood/naybourhood-server/internal/pkg/httputil"
	"github.com/naybourhood/naybourhood-server/internal/pkg/logger"
)

// RateLimiter applies a fixed-window per-user limit backed by Redis.
// Redis outages fail open: limiting is a guard rail, not a gate.
type RateLimiter struct {
	client    *redis.Client
	perMinute int
	enabled   bool
}

func NewRateLimiter(client *redis.Client, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client:    client,
		perMinute: cfg.AIRequestsPerMinute,
		enabled:   cfg.Enabled && client != nil && cfg.AIRequestsPerMinute > 0,
	}
}

// Middleware counts the request against the caller's current minute
// window and rejects with 429 once the limit is reached.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.enabled {
			next.ServeHTTP(w, r)
			return
		}

		session := caller(r)
		if session == nil {
			next.ServeHTTP(w, r)
			return
		}

		window := time.Now().Unix() / 60
		key := fmt.Sprintf("ratelimit:ai:%s:%d", session.UserID, window)

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			logger.Warn("rate limit check failed, allowing request", "error", err.Error())
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, 2*time.Minute)
		}

		if count > int64(rl.perMinute) {
			w.Header().Set("Retry-After", "60")
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded, try again in a minute")
			return
		}

		next.ServeHTTP(w, r)
	})
}
