package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/haierkeys/notely-service/pkg/app"
	"github.com/haierkeys/notely-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// ContextTimeout creates middleware to set request context timeout
// ContextTimeout 为请求上下文设置超时，超时且尚未写响应时返回超时错误
func ContextTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			app.NewResponse(c).ToResponse(code.ErrorRequestTimeout)
		}
	}
}
