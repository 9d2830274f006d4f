package middleware

import (
	"net/http" // HTTP status codes
	"strconv"  // Header formatting
	"sync"     // Limiter registry
	"time"     // Cleanup cadence

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
	"golang.org/x/time/rate"     // Token bucket
)

// RateLimitConfig defines the token bucket parameters
type RateLimitConfig struct {
	Requests int           // Requests allowed per window
	Window   time.Duration // Window length
	Burst    int           // Requests allowed back to back
}

// ipLimiter keeps one token bucket per client IP
type ipLimiter struct {
	limiters    sync.Map // map[string]*rate.Limiter
	rate        rate.Limit
	burst       int
	mu          sync.Mutex
	lastCleanup time.Time
}

func (l *ipLimiter) get(key string) *rate.Limiter {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter) // Fast path
	}
	actual, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	l.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops idle buckets at most once every five minutes
func (l *ipLimiter) maybeCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if time.Since(l.lastCleanup) < 5*time.Minute {
		return
	}
	l.lastCleanup = time.Now()
	l.limiters.Range(func(key, value any) bool {
		// A full bucket has not been used recently
		if value.(*rate.Limiter).Tokens() >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}

// RateLimitMiddleware throttles requests per client IP
func RateLimitMiddleware(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return func(c *gin.Context) { c.Next() } // Disabled
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.Requests
	}
	l := &ipLimiter{
		rate:        rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}
	return func(c *gin.Context) {
		limiter := l.get(c.ClientIP()) // Bucket of this client
		if !limiter.Allow() {
			reservation := limiter.Reserve()
			delay := reservation.Delay()
			reservation.Cancel() // Only used to compute Retry-After
			retryAfter := max(int(delay.Seconds()), 1)

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			logrus.WithFields(logrus.Fields{
				"ip":          c.ClientIP(),
				"path":        c.FullPath(),
				"retry_after": retryAfter,
			}).Warn("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later"})
			return
		}
		c.Next() // Proceed to the next handler
	}
}
