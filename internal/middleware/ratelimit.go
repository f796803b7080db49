package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/blockshield/internal/handlers"
	"github.com/HammerMeetNail/blockshield/internal/logging"
)

// KeyFunc derives the bucket a request is counted against. An empty key
// means the request is not limited.
type KeyFunc func(r *http.Request) string

type counter interface {
	incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type redisCounter struct {
	client *redis.Client
}

func (c redisCounter) incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimiter is a fixed-window counter kept in Redis.
type RateLimiter struct {
	counter  counter
	limit    int
	window   time.Duration
	prefix   string
	keyFunc  KeyFunc
	failOpen bool
	now      func() time.Time
}

func NewRateLimiter(client *redis.Client, limit int, window time.Duration, prefix string, keyFunc KeyFunc, failOpen bool) *RateLimiter {
	if keyFunc == nil {
		keyFunc = ClientIPKey
	}
	rl := &RateLimiter{
		limit:    limit,
		window:   window,
		prefix:   prefix,
		keyFunc:  keyFunc,
		failOpen: failOpen,
		now:      time.Now,
	}
	if client != nil {
		rl.counter = redisCounter{client: client}
	}
	return rl
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFunc(r)
		if key == "" || rl.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		if rl.counter == nil {
			rl.unavailable(w, r, next, nil)
			return
		}

		count, err := rl.counter.incr(r.Context(), rl.prefix+key, rl.window)
		if err != nil {
			rl.unavailable(w, r, next, err)
			return
		}

		reset := rl.now().Truncate(rl.window).Add(rl.window)
		remaining := rl.limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if int(count) > rl.limit {
			retry := int(reset.Sub(rl.now()).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) unavailable(w http.ResponseWriter, r *http.Request, next http.Handler, err error) {
	if err != nil {
		logging.Warn("Rate limiter unavailable", map[string]interface{}{
			"prefix": rl.prefix,
			"error":  err.Error(),
		})
	}
	if rl.failOpen {
		next.ServeHTTP(w, r)
		return
	}
	writeJSONError(w, http.StatusServiceUnavailable, "Rate limiter unavailable")
}

// ClientIPKey buckets requests by client address.
func ClientIPKey(r *http.Request) string {
	return getClientIP(r)
}

// AccountKey buckets requests by the authenticated account's DID.
func AccountKey(r *http.Request) string {
	account := handlers.GetAccountFromContext(r.Context())
	if account == nil {
		return ""
	}
	return account.DID
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// NewAuthRateLimiter guards account connection attempts.
func NewAuthRateLimiter(client *redis.Client) *RateLimiter {
	return NewRateLimiter(client, 10, time.Minute, "ratelimit:auth:", ClientIPKey, true)
}

// NewAPIRateLimiter is the general per-IP limit.
func NewAPIRateLimiter(client *redis.Client) *RateLimiter {
	return NewRateLimiter(client, 300, time.Minute, "ratelimit:api:", ClientIPKey, true)
}

// NewSyncRateLimiter caps sync runs per account per hour.
func NewSyncRateLimiter(client *redis.Client, perHour int) *RateLimiter {
	return NewRateLimiter(client, perHour, time.Hour, "ratelimit:sync:", AccountKey, false)
}
