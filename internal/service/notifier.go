package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haierkeys/notely-service/internal/domain"
	"github.com/haierkeys/notely-service/pkg/logger"
	"github.com/haierkeys/notely-service/pkg/util"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Notifier 提醒投递
type Notifier interface {
	Notify(ctx context.Context, uid int64, note domain.Note) error
}

// NotifierFunc 函数形式的 Notifier
type NotifierFunc func(ctx context.Context, uid int64, note domain.Note) error

func (f NotifierFunc) Notify(ctx context.Context, uid int64, note domain.Note) error {
	return f(ctx, uid, note)
}

// NewLogNotifier 只写日志的投递方式
func NewLogNotifier(lg *zap.Logger) Notifier {
	return NotifierFunc(func(ctx context.Context, uid int64, note domain.Note) error {
		lg.Info("reminder fired",
			zap.Int64(logger.FieldUID, uid),
			zap.Int64(logger.FieldNoteID, note.ID),
			zap.String("title", note.Title),
			zap.Int64(logger.FieldReminderAt, note.ReminderAt),
		)
		return nil
	})
}

// MailConfig 邮件投递配置
type MailConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port" default:"465"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	Subject  string   `yaml:"subject" default:"Reminder"`
}

type mailNotifier struct {
	dialer *gomail.Dialer
	cfg    MailConfig
}

// NewMailNotifier 通过 SMTP 发送提醒邮件
func NewMailNotifier(cfg MailConfig) Notifier {
	return &mailNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
	}
}

func (m *mailNotifier) Notify(ctx context.Context, uid int64, note domain.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(m.cfg.To) == 0 {
		return nil
	}

	title := note.Title
	if title == "" {
		title = fmt.Sprintf("#%d", note.ID)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.To...)
	msg.SetHeader("Subject", m.cfg.Subject+": "+title)
	msg.SetBody("text/plain", fmt.Sprintf("%s\n\n%s\n\n%s",
		title, note.Body, util.UnixMilli(note.ReminderAt).Format(time.RFC3339)))
	return m.dialer.DialAndSend(msg)
}

type multiNotifier []Notifier

// NewMultiNotifier 依次调用全部投递方式，合并错误
func NewMultiNotifier(ns ...Notifier) Notifier {
	return multiNotifier(ns)
}

func (m multiNotifier) Notify(ctx context.Context, uid int64, note domain.Note) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, uid, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
