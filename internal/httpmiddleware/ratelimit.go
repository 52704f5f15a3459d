package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"attendance-portal/internal/apperror"
)

// IPRateLimiter hands out one token bucket per client address.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	r        rate.Limit
	b        int
	idle     time.Duration
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter allows perMinute requests per address with a burst of the
// same size.
func NewIPRateLimiter(perMinute int) *IPRateLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	return &IPRateLimiter{
		limiters: make(map[string]*limiterEntry),
		r:        rate.Limit(float64(perMinute) / 60),
		b:        perMinute,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// Allow takes a token for key.
func (l *IPRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.limiters[key] = e
		l.evict(now)
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// evict drops buckets unused for the idle period. Called with mu held.
func (l *IPRateLimiter) evict(now time.Time) {
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.idle && e.lastSeen != (time.Time{}) {
			delete(l.limiters, k)
		}
	}
}

// Limit enforces per-IP limits. Pages are sent back to where they came from
// with a toast via onLimited; API calls get a 429 JSON body.
func (l *IPRateLimiter) Limit(onLimited gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if l.Allow(ip) {
			c.Next()
			return
		}
		if onLimited != nil {
			onLimited(c)
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"error":   "Too many requests, please slow down",
			"code":    apperror.CodeRateLimited,
		})
	}
}
