// Package ratelimit provides per-client request throttling for the
// labeling API using in-memory token buckets.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter tracks a token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	perMin   int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perMin requests per minute
// per client and starts the stale-entry sweeper.
func NewRateLimiter(perMin int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		perMin:   perMin,
	}
	go rl.sweep()
	return rl
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-30 * time.Minute)
		rl.mu.Lock()
		for key, cl := range rl.limiters {
			if cl.lastSeen.Before(cutoff) {
				delete(rl.limiters, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Allow reports whether the client may make a request now.
func (rl *RateLimiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	cl, exists := rl.limiters[clientIP]
	if !exists {
		burst := rl.perMin
		if burst < 5 {
			burst = 5
		}
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.perMin)/60.0), burst),
		}
		rl.limiters[clientIP] = cl
	}
	cl.lastSeen = time.Now()
	rl.mu.Unlock()

	return cl.limiter.Allow()
}

// Middleware rejects requests over the per-client limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.perMin))

		if !rl.Allow(ip) {
			c.Header("Retry-After", "60")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": "You have exceeded the per-minute request limit",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
