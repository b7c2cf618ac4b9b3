package routers

import (
	"time"

	"github.com/haierkeys/notely-service/internal/app"
	"github.com/haierkeys/notely-service/internal/dto"
	"github.com/haierkeys/notely-service/internal/middleware"
	"github.com/haierkeys/notely-service/internal/routers/api_router"
	"github.com/haierkeys/notely-service/internal/routers/websocket_router"
	pkgapp "github.com/haierkeys/notely-service/pkg/app"
	"github.com/haierkeys/notely-service/pkg/limiter"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	"github.com/lxzan/gws"
)

// NewWebsocketServer 创建笔记列表推送使用的 WebSocket 服务并注册消息处理器
func NewWebsocketServer(appContainer *app.App) *pkgapp.WebsocketServer {
	wss := pkgapp.NewWebsocketServer(pkgapp.WebsocketServerConfig{
		GWSOption: gws.ServerOption{
			CheckUtf8Enabled:  true,
			ParallelEnabled:   true,                                 // 开启并行消息处理
			Recovery:          gws.Recovery,                         // 开启异常恢复
			PermessageDeflate: gws.PermessageDeflate{Enabled: true}, // 开启压缩
			ParallelGolimit:   8,
		},
	}, appContainer.Logger())

	noteWSHandler := websocket_router.NewNoteWSHandler(appContainer)

	// 连接后推送笔记列表
	wss.OnConnect(noteWSHandler.NoteWatch)
	// 删除 / 撤销
	wss.Use(dto.NoteDelete, noteWSHandler.NoteDelete)
	wss.Use(dto.NoteUndo, noteWSHandler.NoteUndo)
	// 清空 / 撤销清空
	wss.Use(dto.NoteClear, noteWSHandler.NoteClear)
	wss.Use(dto.NoteUndoAll, noteWSHandler.NoteUndoAll)

	return wss
}

func NewRouter(appContainer *app.App, uni *ut.UniversalTranslator, wss *pkgapp.WebsocketServer) *gin.Engine {

	// 获取配置
	cfg := appContainer.Config()

	userLimiter := limiter.NewUserLimiter(limiter.BucketRule{
		FillInterval: time.Second,
		Capacity:     cfg.App.RateLimitCapacity,
		Quantum:      cfg.App.RateLimitQuantum,
	}, pkgapp.GetUID)

	r := gin.New()

	api := r.Group("/api")
	{
		api.Use(middleware.AppInfoWithConfig(app.Name, appContainer.Version().Version))
		api.Use(middleware.TraceMiddlewareWithConfig(cfg.Tracer.Enabled, cfg.Tracer.Header)) // Trace ID 中间件
		api.Use(middleware.LangWithTranslator(uni))
		api.Use(middleware.AccessLogWithLogger(appContainer.Logger()))
		api.Use(middleware.RecoveryWithLogger(appContainer.Logger()))

		versionHandler := api_router.NewVersionHandler(appContainer)
		noteHandler := api_router.NewNoteHandler(appContainer)
		sessionHandler := api_router.NewSessionHandler(appContainer)

		// 服务端版本号接口（无需认证）
		api.GET("/version", versionHandler.ServerVersion)

		auth := api.Group("", middleware.UserAuthTokenWithConfig(cfg.Security.AuthTokenKey), middleware.RateLimiter(userLimiter))

		// WebSocket 长连接不受请求超时限制
		auth.GET("/notes/watch", wss.Run())

		auth.Use(middleware.ContextTimeout(time.Duration(cfg.App.DefaultContextTimeout) * time.Second))

		auth.GET("/notes", noteHandler.List)
		auth.DELETE("/notes", noteHandler.ClearAll)
		auth.PUT("/notes/restore", noteHandler.RestoreAll)
		auth.DELETE("/note", noteHandler.Delete)
		auth.PUT("/note/restore", noteHandler.Restore)

		auth.POST("/session", sessionHandler.Open)
		auth.GET("/session", sessionHandler.Get)
		auth.PUT("/session", sessionHandler.Update)
		auth.DELETE("/session", sessionHandler.Close)
		auth.POST("/session/save", sessionHandler.Save)
		auth.POST("/session/reminder", sessionHandler.ArmReminder)
		auth.DELETE("/session/reminder", sessionHandler.CancelReminder)
		auth.DELETE("/session/note", sessionHandler.DeleteNote)
	}

	r.NoRoute(middleware.NoFound())

	return r
}
