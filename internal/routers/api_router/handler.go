// Package api_router 提供 HTTP API 路由处理器
package api_router

import (
	"context"

	"github.com/haierkeys/notely-service/internal/app"
	"github.com/haierkeys/notely-service/internal/middleware"
	"github.com/haierkeys/notely-service/internal/service"
	pkgapp "github.com/haierkeys/notely-service/pkg/app"
	"github.com/haierkeys/notely-service/pkg/code"
	apperrors "github.com/haierkeys/notely-service/pkg/errors"
	"github.com/haierkeys/notely-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 基础 Handler 结构体，封装 App Container
// 所有 API Handler 都应该嵌入此结构体以获得依赖注入能力
type Handler struct {
	App *app.App
}

// NewHandler 创建基础 Handler 实例
func NewHandler(a *app.App) *Handler {
	return &Handler{App: a}
}

// logError 记录错误日志，包含 Trace ID
func (h *Handler) logError(ctx context.Context, method string, err error) {
	h.App.Logger().Error(method,
		zap.Error(err),
		zap.String(logger.FieldTraceID, middleware.GetTraceID(ctx)),
	)
}

// requireUID 获取已认证用户 ID，失败时直接输出响应
func (h *Handler) requireUID(c *gin.Context, method string) (int64, bool) {
	uid := pkgapp.GetUID(c)
	if uid == 0 {
		h.App.Logger().Error(method + " err uid=0")
		pkgapp.NewResponse(c).ToResponse(code.ErrorInvalidUserAuthToken)
		return 0, false
	}
	return uid, true
}

// bind 参数绑定和验证，失败时直接输出响应
func (h *Handler) bind(c *gin.Context, method string, params interface{}) bool {
	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error(method+".BindAndValid err", zap.Error(errs))
		pkgapp.NewResponse(c).ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return false
	}
	return true
}

// fail 记录日志并按错误类型输出业务码
func (h *Handler) fail(c *gin.Context, method string, err error) {
	h.logError(c.Request.Context(), method, err)
	apperrors.ErrorResponse(c, toAppError(err))
}

// toAppError 领域错误转为带业务码的 AppError，未知错误原样返回（按内部错误输出）
func toAppError(err error) error {
	if c := service.ErrorCode(err); c != nil {
		return apperrors.NewAppError(c, err)
	}
	return err
}
