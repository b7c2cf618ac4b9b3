package middleware

import (
	"errors"

	"github.com/haierkeys/notely-service/pkg/app"
	"github.com/haierkeys/notely-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// tokenFromRequest 按 Authorization、token 的顺序从 query 和 header 中取 Token
func tokenFromRequest(c *gin.Context) string {
	for _, key := range []string{"authorization", "Authorization", "token", "Token"} {
		if s, exist := c.GetQuery(key); exist && s != "" {
			return s
		}
		if s := c.GetHeader(key); s != "" {
			return s
		}
	}
	return ""
}

// UserAuthTokenWithConfig 用户 Token 认证中间件（使用注入的密钥）
func UserAuthTokenWithConfig(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := app.NewResponse(c)

		token := tokenFromRequest(c)
		if token == "" {
			response.ToResponse(code.ErrorNotUserAuthToken)
			c.Abort()
			return
		}

		user, err := app.ParseTokenWithKey(token, secretKey)
		if errors.Is(err, app.ErrTokenExpired) {
			response.ToResponse(code.ErrorUserAuthTokenExpired)
			c.Abort()
			return
		}
		if err != nil {
			response.ToResponse(code.ErrorInvalidUserAuthToken)
			c.Abort()
			return
		}
		app.SetUserToContext(c, user)

		c.Next()
	}
}
