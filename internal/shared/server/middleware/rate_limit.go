package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"applykit-backend/internal/shared/metrics"
	"applykit-backend/internal/shared/server/respond"
	"applykit-backend/internal/shared/telemetry"
)

// RouteClass groups routes that share a quota.
type RouteClass string

const (
	ClassDefault RouteClass = "DEFAULT"
	// ClassGeneration covers routes that issue model calls.
	ClassGeneration RouteClass = "GENERATION"
)

// modelRoutes are the POST routes that reach the model provider.
var modelRoutes = map[string]bool{
	"/api/v1/generate":                  true,
	"/api/v1/job-metadata":              true,
	"/api/v1/application-kits/generate": true,
}

// Quota allows PerSecond requests on average with bursts of up to Burst.
type Quota struct {
	PerSecond float64
	Burst     int
}

// DefaultQuotas keep kit browsing cheap and model calls scarce.
var DefaultQuotas = map[RouteClass]Quota{
	ClassDefault:    {PerSecond: 10, Burst: 30},
	ClassGeneration: {PerSecond: 0.2, Burst: 5},
}

const limiterIdleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per caller and route class. Buckets idle
// for longer than limiterIdleTTL are dropped.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewRateLimiter returns an in-process limiter. A nil now uses time.Now.
func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{buckets: make(map[string]*bucket), now: now}
}

// Take spends one token from key's bucket. When the bucket is empty nothing
// is spent and the returned duration says when a token frees up.
func (l *RateLimiter) Take(key string, q Quota) (bool, time.Duration) {
	if l == nil || q.PerSecond <= 0 || q.Burst <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(q.PerSecond), q.Burst)}
		l.buckets[key] = b
	}
	b.seen = now

	r := b.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return false, wait
	}
	return true, 0
}

func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < limiterIdleTTL {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.seen) > limiterIdleTTL {
			delete(l.buckets, key)
		}
	}
}

// ClassifyRoute puts model-backed POST routes in ClassGeneration.
func ClassifyRoute(c *gin.Context) RouteClass {
	if c.Request.Method == http.MethodPost && modelRoutes[c.FullPath()] {
		return ClassGeneration
	}
	return ClassDefault
}

// RateLimit throttles each caller per route class. Callers are keyed by user
// id, or by network origin before Auth has run. Classes without a quota are
// not limited.
func RateLimit(l *RateLimiter, quotas map[RouteClass]Quota) gin.HandlerFunc {
	if l == nil {
		l = NewRateLimiter(nil)
	}
	return func(c *gin.Context) {
		class := ClassifyRoute(c)
		q, ok := quotas[class]
		if !ok {
			c.Next()
			return
		}
		caller := UserIDFromContext(c)
		if caller == "" {
			caller = NetworkOrigin(c)
		}
		allowed, wait := l.Take(caller+"|"+string(class), q)
		if allowed {
			c.Next()
			return
		}

		waitMs := wait.Milliseconds()
		if waitMs < 1 {
			waitMs = 1
		}
		metrics.IncRateLimited()
		telemetry.Info("http.rate_limited", map[string]any{
			"request_id": RequestIDFromContext(c),
			"class":      string(class),
			"wait_ms":    waitMs,
		})
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(float64(waitMs)/1000))))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many requests", gin.H{
			"group":        string(class),
			"retryAfterMs": waitMs,
		})
	}
}
