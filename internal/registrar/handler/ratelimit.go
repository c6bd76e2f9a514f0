package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientBucket pairs a token bucket with the last time its client was seen.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	bucketIdleTTL  = 10 * time.Minute
	bucketSweepGap = 5 * time.Minute
)

// RateLimiter returns a Gin middleware enforcing a per-client token bucket
// in front of the registrar API. rps is the steady-state requests per second
// and burst the bucket size; both come from the registrar.rate_limit_rps
// config. Rejections answer 429 and count toward the throttle metric.
//
// Buckets for clients idle longer than bucketIdleTTL are swept periodically;
// closing stop ends the sweeper, so restarts do not leak its goroutine.
func RateLimiter(rps, burst int, stop <-chan struct{}) gin.HandlerFunc {
	var mu sync.Mutex
	buckets := make(map[string]*clientBucket)

	go func() {
		ticker := time.NewTicker(bucketSweepGap)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				mu.Lock()
				for ip, b := range buckets {
					if time.Since(b.lastSeen) > bucketIdleTTL {
						delete(buckets, ip)
					}
				}
				mu.Unlock()
			case <-stop:
				return
			}
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		b, ok := buckets[ip]
		if !ok {
			b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			buckets[ip] = b
		}
		b.lastSeen = time.Now()
		mu.Unlock()

		if !b.limiter.Allow() {
			path := c.FullPath()
			if path == "" {
				path = c.Request.URL.Path
			}
			RecordThrottle(path)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
