// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/haierkeys/notely-service/internal/dao"
	"github.com/haierkeys/notely-service/internal/domain"
	"github.com/haierkeys/notely-service/internal/service"
	pkgapp "github.com/haierkeys/notely-service/pkg/app"
	"github.com/haierkeys/notely-service/pkg/workerpool"
	"github.com/haierkeys/notely-service/pkg/writequeue"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 应用容器，封装所有依赖和服务
type App struct {
	// 基础设施（注入的依赖）
	config *AppConfig
	logger *zap.Logger
	DB     *gorm.DB
	Dao    *dao.Dao

	// 并发控制组件
	workerPool    *workerpool.Pool
	writeQueueMgr *writequeue.Manager

	// Repository 层
	NoteRepo domain.NoteRepository

	// Service 层
	ReminderService service.ReminderService
	SessionService  service.SessionService
	NoteListService service.NoteListService

	// 基础设施组件
	TokenManager pkgapp.TokenManager

	// 关闭控制
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// NewApp 创建应用容器实例
// cfg、logger、db 均为必须
func NewApp(cfg *AppConfig, logger *zap.Logger, db *gorm.DB) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	a := &App{
		config:     cfg,
		logger:     logger,
		DB:         db,
		shutdownCh: make(chan struct{}),
	}

	wpConfig := cfg.GetWorkerPoolConfig()
	a.workerPool = workerpool.New(&wpConfig, logger)

	wqConfig := cfg.GetWriteQueueConfig()
	a.writeQueueMgr = writequeue.New(&wqConfig, logger)

	dbConfig := &dao.DatabaseConfig{
		Type:            cfg.Database.Type,
		Path:            cfg.Database.Path,
		UserName:        cfg.Database.UserName,
		Password:        cfg.Database.Password,
		Host:            cfg.Database.Host,
		Name:            cfg.Database.Name,
		TablePrefix:     cfg.Database.TablePrefix,
		AutoMigrate:     cfg.Database.AutoMigrate,
		Charset:         cfg.Database.Charset,
		ParseTime:       cfg.Database.ParseTime,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		RunMode:         cfg.Server.RunMode,
		Tracing:         cfg.Tracer.JaegerAgent != "",
	}

	a.Dao = dao.New(db,
		dao.WithConfig(dbConfig),
		dao.WithLogger(logger),
		dao.WithWriteQueueManager(a.writeQueueMgr),
	)

	a.TokenManager = pkgapp.NewTokenManager(pkgapp.TokenConfig{
		SecretKey: cfg.Security.AuthTokenKey,
		Expiry:    cfg.GetTokenExpiry(),
	})

	a.NoteRepo = dao.NewNoteRepository(a.Dao)

	svcConfig := cfg.GetServiceConfig()

	notifiers := []service.Notifier{service.NewLogNotifier(logger)}
	if cfg.Reminder.Mail.Enabled {
		notifiers = append(notifiers, service.NewMailNotifier(cfg.Reminder.Mail))
	}

	a.ReminderService = service.NewReminderService(a.NoteRepo, service.NewMultiNotifier(notifiers...), a.workerPool, svcConfig.Reminder, logger)
	a.SessionService = service.NewSessionService(a.NoteRepo, a.ReminderService, svcConfig.Session, logger)
	a.NoteListService = service.NewNoteListService(a.NoteRepo, a.ReminderService, logger)

	a.ReminderService.Start()

	logger.Info("App container initialized successfully",
		zap.Int("workerPoolMaxWorkers", wpConfig.MaxWorkers),
		zap.Int("writeQueueCapacity", wqConfig.QueueCapacity),
		zap.String("defaultColor", svcConfig.Session.DefaultColor.String()))

	return a, nil
}

// Close 释放数据库连接
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	a.logger.Info("Database connection closed")
	return nil
}

// Config 获取应用配置
func (a *App) Config() *AppConfig {
	return a.config
}

// Logger 获取日志器
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Version 获取版本信息
func (a *App) Version() pkgapp.VersionInfo {
	return pkgapp.VersionInfo{
		Version:   Version,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
}

// IsReturnSuccess 是否返回成功响应
func (a *App) IsReturnSuccess() bool {
	return a.config.App.IsReturnSussess
}

// IsProductionMode 是否为生产模式
func (a *App) IsProductionMode() bool {
	return a.config.Log.Production
}

// WorkerPool 获取 Worker Pool
func (a *App) WorkerPool() *workerpool.Pool {
	return a.workerPool
}

// WriteQueueManager 获取 Write Queue Manager
func (a *App) WriteQueueManager() *writequeue.Manager {
	return a.writeQueueMgr
}

// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

// Shutdown 优雅关闭应用容器
// 按顺序关闭：编辑会话 -> 提醒调度 -> Worker Pool -> Write Queue Manager -> Database
// ctx 为 nil 时使用默认 30 秒超时
func (a *App) Shutdown(ctx context.Context) error {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
	}

	var errs []error
	first := false
	a.shutdownOnce.Do(func() {
		first = true
		close(a.shutdownCh)
	})
	if !first {
		return nil
	}

	a.logger.Info("App container shutting down...")

	// 0. 关闭全部编辑会话，停止订阅
	a.SessionService.Shutdown()

	// 1. 停止提醒调度，等待正在执行的投递
	if err := a.ReminderService.Stop(ctx); err != nil {
		a.logger.Warn("Reminder service stop error", zap.Error(err))
		errs = append(errs, fmt.Errorf("reminder service stop: %w", err))
	}

	// 2. 关闭 Worker Pool
	if err := a.workerPool.Shutdown(ctx); err != nil {
		a.logger.Warn("Worker pool shutdown error", zap.Error(err))
		errs = append(errs, fmt.Errorf("worker pool shutdown: %w", err))
	}

	// 3. 关闭 Write Queue Manager（排空所有队列）
	if err := a.writeQueueMgr.Shutdown(ctx); err != nil {
		a.logger.Warn("write queue manager shutdown error", zap.Error(err))
		errs = append(errs, fmt.Errorf("write queue manager shutdown: %w", err))
	}

	// 4. 关闭数据库连接
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		a.logger.Warn("App container shutdown completed with errors", zap.Int("errorCount", len(errs)))
		return fmt.Errorf("shutdown completed with %d errors: %v", len(errs), errs)
	}

	a.logger.Info("App container shutdown completed successfully")
	return nil
}

// IsShuttingDown 检查应用是否正在关闭
func (a *App) IsShuttingDown() bool {
	select {
	case <-a.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownCh 返回关闭信号通道
func (a *App) ShutdownCh() <-chan struct{} {
	return a.shutdownCh
}
