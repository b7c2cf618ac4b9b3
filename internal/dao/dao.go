// Package dao 实现数据访问层
package dao

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/haierkeys/notely-service/internal/model"
	"github.com/haierkeys/notely-service/pkg/util"
	"github.com/haierkeys/notely-service/pkg/writequeue"

	"github.com/glebarez/sqlite"
	"github.com/haierkeys/gormTracing"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type            string
	Path            string
	UserName        string
	Password        string
	Host            string
	Name            string
	TablePrefix     string
	AutoMigrate     bool
	Charset         string
	ParseTime       bool
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime string
	ConnMaxIdleTime string
	RunMode         string
	// Tracing 注册 opentracing gorm 插件
	Tracing bool
}

// Dao 数据访问对象，持有连接、写队列和变更通知中心
type Dao struct {
	Db     *gorm.DB
	config *DatabaseConfig
	logger *zap.Logger
	wq     *writequeue.Manager
	hub    *changeHub
}

// Option Dao 可选项
type Option func(*Dao)

// WithConfig 设置数据库配置
func WithConfig(c *DatabaseConfig) Option {
	return func(d *Dao) { d.config = c }
}

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return func(d *Dao) { d.logger = l }
}

// WithWriteQueueManager 设置写队列，写操作按用户串行化
func WithWriteQueueManager(m *writequeue.Manager) Option {
	return func(d *Dao) { d.wq = m }
}

// New 创建 Dao
func New(db *gorm.DB, opts ...Option) *Dao {
	d := &Dao{
		Db:  db,
		hub: newChangeHub(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.config == nil {
		d.config = &DatabaseConfig{AutoMigrate: true}
	}
	if d.config.AutoMigrate {
		if err := model.AutoMigrateAll(db); err != nil {
			d.logger.Error("auto migrate failed", zap.Error(err))
		}
	}
	return d
}

// DB 获取 gorm 连接
func (d *Dao) DB() *gorm.DB {
	return d.Db
}

// Logger 获取日志器
func (d *Dao) Logger() *zap.Logger {
	return d.logger
}

// ExecuteWrite 通过写队列执行写操作，未配置写队列时直接执行
// 写操作成功提交后通知该用户的订阅者
func (d *Dao) ExecuteWrite(ctx context.Context, uid int64, fn func(db *gorm.DB) error) error {
	run := func() error {
		if err := fn(d.Db.WithContext(ctx)); err != nil {
			return err
		}
		d.hub.publish(uid)
		return nil
	}
	if d.wq != nil {
		return d.wq.Execute(ctx, uid, run)
	}
	return run()
}

// NewDBEngineWithConfig 根据配置创建数据库连接
func NewDBEngineWithConfig(c DatabaseConfig, lg *zap.Logger) (*gorm.DB, error) {
	dialector, err := useDialector(c)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   c.TablePrefix, // 表名前缀，`Note` 的表名应该是 `t_notes`
			SingularTable: true,          // 使用单数表名，启用该选项，此时，`Note` 的表名应该是 `t_note`
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database failed")
	}
	if c.RunMode == "debug" {
		db.Config.Logger = logger.Default.LogMode(logger.Info)
	}

	// 获取通用数据库对象 sql.DB ，然后使用其提供的功能
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if c.Type == "sqlite" || c.Type == "" {
		// sqlite 单写者，固定一个长连接，:memory: 库随连接关闭而丢失
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxIdleConns(c.MaxIdleConns)
		sqlDB.SetMaxOpenConns(c.MaxOpenConns)

		if d, err := util.ParseDuration(c.ConnMaxLifetime); err == nil && d > 0 {
			sqlDB.SetConnMaxLifetime(d)
		} else {
			sqlDB.SetConnMaxLifetime(30 * time.Minute)
		}
		if d, err := util.ParseDuration(c.ConnMaxIdleTime); err == nil && d > 0 {
			sqlDB.SetConnMaxIdleTime(d)
		}
	}

	if c.Tracing {
		if err := db.Use(&gormTracing.OpentracingPlugin{}); err != nil && lg != nil {
			lg.Warn("gorm tracing plugin register failed", zap.Error(err))
		}
	}

	return db, nil
}

func useDialector(c DatabaseConfig) (gorm.Dialector, error) {
	switch c.Type {
	case "mysql":
		charset := c.Charset
		if charset == "" {
			charset = "utf8mb4"
		}
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=%s&parseTime=%t&loc=Local",
			c.UserName,
			c.Password,
			c.Host,
			c.Name,
			charset,
			c.ParseTime,
		)), nil
	case "postgres":
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=Local",
			c.Host,
			c.UserName,
			c.Password,
			c.Name,
		)), nil
	case "sqlite", "":
		if c.Path != ":memory:" && c.Path != "" {
			if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
				return nil, errors.Wrap(err, "create sqlite dir failed")
			}
		}
		return sqlite.Open(c.Path), nil
	}
	return nil, fmt.Errorf("unsupported database type: %s", c.Type)
}
