package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/interntrack/tracker/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimitMiddleware provides a coarse fixed-window Redis-backed limiter
// keyed by client IP. It INCRs a per-window key and compares the count against
// floor(rps*windowSeconds)+burst. A nil client falls back to the in-memory
// limiter.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration, skip ...string) gin.HandlerFunc {
	return redisRateLimit(client, rps, burst, window, time.Now, skip)
}

func redisRateLimit(client *redis.Client, rps float64, burst int, window time.Duration, now func() time.Time, skip []string) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst, skip...)
	}
	windowSeconds := int(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	allowedPerWindow := int(rps*float64(windowSeconds)) + burst
	return func(c *gin.Context) {
		if skipped(c, skip) {
			c.Next()
			return
		}
		bucket := now().Unix() / int64(windowSeconds)
		redisKey := fmt.Sprintf("rl:%s:%d", clientKey(c), bucket)

		ctx := c.Request.Context()
		cnt, err := client.Incr(ctx, redisKey).Result()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			return
		}
		if cnt == 1 {
			_ = client.Expire(ctx, redisKey, time.Duration(windowSeconds+1)*time.Second).Err()
		}
		if int(cnt) > allowedPerWindow {
			c.Header("Retry-After", fmt.Sprintf("%d", windowSeconds))
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
