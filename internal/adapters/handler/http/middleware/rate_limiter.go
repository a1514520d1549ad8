package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// Limiter admits at most limit requests per key in every window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// RedisLimiter is a fixed-window counter shared by every instance of the API.
type RedisLimiter struct {
	rdb *redis.Client
}

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limiter: incr: %w", err)
	}

	if count == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limiter: expire: %w", err)
		}
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limiter: ttl: %w", err)
	}
	if ttl < 0 {
		// The counter lost its expiry; start a new window instead of blocking forever.
		l.rdb.Expire(ctx, key, window)
		ttl = window
	}

	return Decision{
		Allowed:   count <= int64(limit),
		Remaining: int(max(0, int64(limit)-count)),
		ResetIn:   ttl,
	}, nil
}

// LocalLimiter keeps a token bucket per key in process memory. It refills at
// limit per window with a burst of limit, which approximates the fixed
// window of RedisLimiter for a single instance.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*localBucket
	maxKeys  int
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*localBucket),
		maxKeys:  10000,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit < 1 {
		return Decision{ResetIn: window}, nil
	}
	now := time.Now()

	l.mu.Lock()
	b, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= l.maxKeys {
			l.evictIdleLocked(now, window)
		}
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)}
		l.limiters[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)

	d := Decision{
		Allowed:   allowed,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		ResetIn:   window / time.Duration(limit),
	}
	return d, nil
}

// evictIdleLocked drops buckets idle for a full window; such a bucket is
// full again, so forgetting it changes nothing.
func (l *LocalLimiter) evictIdleLocked(now time.Time, window time.Duration) {
	for k, b := range l.limiters {
		if now.Sub(b.lastSeen) > window {
			delete(l.limiters, k)
		}
	}
}

// RateLimit rejects a client with 429 once it exceeds limit requests per
// window on the routes sharing name. A failing limiter lets the request
// through.
func RateLimit(l Limiter, name string, limit int, window time.Duration, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", name, c.ClientIP())

		d, err := l.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.WithError(err).WithField("route", name).Warn("rate limiter unavailable, request allowed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(d.ResetIn).Unix(), 10))

		if !d.Allowed {
			retry := int(math.Ceil(d.ResetIn.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":     "error",
				"message":    "Too many requests. Slow down!",
				"retry_in_s": retry,
			})
			return
		}

		c.Next()
	}
}
