package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterInfo is a struct that holds a rate limiter and the last time it was seen.
type limiterInfo struct {
	limiter *rate.Limiter

	mu       sync.Mutex
	lastSeen time.Time
}

func (l *limiterInfo) touch(now time.Time) {
	l.mu.Lock()
	l.lastSeen = now
	l.mu.Unlock()
}

func (l *limiterInfo) idleSince(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return now.Sub(l.lastSeen)
}

// IPRateLimiter holds one token bucket per client IP. Acquisition requests
// each trigger paid model calls, so they are limited per caller.
type IPRateLimiter struct {
	rps        int
	expiration time.Duration

	limiters sync.Map
	stop     chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter allows rps requests per second per IP with a burst of
// rps. Buckets idle longer than expiration are dropped every
// cleanupInterval until Stop is called.
func NewIPRateLimiter(rps int, cleanupInterval, expiration time.Duration) *IPRateLimiter {
	if rps < 1 {
		rps = 1
	}
	l := &IPRateLimiter{
		rps:        rps,
		expiration: expiration,
		stop:       make(chan struct{}),
	}
	go l.cleanup(cleanupInterval)
	return l
}

func (l *IPRateLimiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.limiters.Range(func(key, value interface{}) bool {
				if value.(*limiterInfo).idleSince(now) > l.expiration {
					l.limiters.Delete(key)
				}
				return true
			})
		}
	}
}

// Allow reports whether a request from ip may proceed now.
func (l *IPRateLimiter) Allow(ip string) bool {
	now := time.Now()
	actual, _ := l.limiters.LoadOrStore(ip, &limiterInfo{
		limiter:  rate.NewLimiter(rate.Limit(l.rps), l.rps),
		lastSeen: now,
	})
	info := actual.(*limiterInfo)
	info.touch(now)
	return info.limiter.Allow()
}

// Stop ends the cleanup goroutine.
func (l *IPRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Middleware rejects requests over the limit with 429.
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
