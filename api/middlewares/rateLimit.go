package middlewares

import (
	"net/http"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/gin-gonic/gin"
	"github.com/moyoez/speeder2raw-web/tool"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an idle client's bucket is remembered.
const limiterIdleTTL = 10 * time.Minute

// RateLimitPerClient allows perMinute requests per client IP with the given burst.
// perMinute <= 0 disables limiting.
func RateLimitPerClient(perMinute, burst int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	if burst < 1 {
		burst = 1
	}
	var mu sync.Mutex
	limiters := ttlworker.NewCache[string, *rate.Limiter](limiterIdleTTL)
	every := rate.Every(time.Minute / time.Duration(perMinute))

	return func(c *gin.Context) {
		ip := c.ClientIP()
		mu.Lock()
		limiter := limiters.Get(ip)
		if limiter == nil {
			limiter = rate.NewLimiter(every, burst)
		}
		// refresh the entry so active clients keep their bucket
		limiters.Set(ip, limiter)
		mu.Unlock()

		if !limiter.Allow() {
			tool.DefaultLogger.Warnf("[API] Rate limit exceeded: %s %s from %s", c.Request.Method, c.Request.URL.Path, ip)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, tool.FastReturnError("Too many requests"))
			return
		}
		c.Next()
	}
}
