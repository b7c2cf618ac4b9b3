// Package websocket_router 提供 WebSocket 路由处理器
package websocket_router

import (
	"github.com/haierkeys/notely-service/internal/app"
	"github.com/haierkeys/notely-service/internal/middleware"
	"github.com/haierkeys/notely-service/internal/service"
	pkgapp "github.com/haierkeys/notely-service/pkg/app"
	"github.com/haierkeys/notely-service/pkg/code"
	"github.com/haierkeys/notely-service/pkg/logger"

	"go.uber.org/zap"
)

// WSHandler WebSocket 基础 Handler 结构体，封装 App Container
type WSHandler struct {
	App *app.App
}

// NewWSHandler 创建 WebSocket 基础 Handler 实例
func NewWSHandler(a *app.App) *WSHandler {
	return &WSHandler{App: a}
}

func traceID(c *pkgapp.WebsocketClient) string {
	if c == nil {
		return ""
	}
	return middleware.GetTraceIDFromGin(c.Ctx)
}

// logError 记录错误日志，连接已关闭时降级为 Debug
func (h *WSHandler) logError(c *pkgapp.WebsocketClient, method string, err error) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String(logger.FieldTraceID, traceID(c)),
		zap.Int64(logger.FieldUID, c.UID()),
	}
	if c.Context().Err() != nil {
		h.App.Logger().Debug(method, fields...)
		return
	}
	h.App.Logger().Error(method, fields...)
}

// respondError 记录错误并按错误类型推送业务码
func (h *WSHandler) respondError(c *pkgapp.WebsocketClient, action string, err error, method string) {
	h.logError(c, method, err)
	codeErr := service.ErrorCode(err)
	if codeErr == nil {
		codeErr = code.ErrorServerInternal
	}
	c.ToResponse(codeErr.WithDetails(err.Error()), action)
}
