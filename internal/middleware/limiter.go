package middleware

import (
	"math"
	"strconv"

	"github.com/haierkeys/notely-service/pkg/app"
	"github.com/haierkeys/notely-service/pkg/code"
	"github.com/haierkeys/notely-service/pkg/limiter"

	"github.com/gin-gonic/gin"
)

// RateLimiter creates rate limiting middleware (supports dependency injection)
// RateLimiter 创建限流中间件，桶内没有令牌时返回 429 并给出 Retry-After
func RateLimiter(l limiter.Face) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := l.Key(c)
		if bucket, ok := l.GetBucket(key); ok {
			if bucket.TakeAvailable(1) == 0 {
				if rate := bucket.Rate(); rate > 0 {
					c.Header("Retry-After", strconv.Itoa(int(math.Ceil(1/rate))))
				}
				app.NewResponse(c).ToResponse(code.ErrorTooManyRequests)
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
