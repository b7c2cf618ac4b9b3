// Package logger builds the process wide zap logger
// Package logger 构建进程级 zap 日志器
package logger

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config logger configuration
// Config 日志配置
type Config struct {
	// Level debug / info / warn / error
	Level string
	// File log file path, empty means stderr only
	// File 日志文件路径，为空时只输出到 stderr
	File string
	// Production json encoder instead of console encoder
	// Production 使用 json 编码，否则使用控制台编码
	Production bool
	// Console console sink, defaults to stderr
	// Console 控制台输出目标，默认 stderr
	Console zapcore.WriteSyncer
}

// NewLogger creates logger writing to stderr and optional file
// NewLogger 创建同时输出到 stderr 和文件（可选）的日志器
func NewLogger(c Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if c.Level != "" {
		if err := level.UnmarshalText([]byte(c.Level)); err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", c.Level)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")

	var consoleEnc zapcore.Encoder
	if c.Production {
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	} else {
		devCfg := encCfg
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEnc = zapcore.NewConsoleEncoder(devCfg)
	}

	console := c.Console
	if console == nil {
		console = zapcore.Lock(os.Stderr)
	}
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, console, level),
	}

	if c.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.File), 0o755); err != nil {
			return nil, errors.Wrap(err, "create log dir failed")
		}
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errors.Wrap(err, "open log file failed")
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
