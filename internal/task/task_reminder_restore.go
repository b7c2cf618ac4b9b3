package task

import (
	"context"
	"time"

	"github.com/haierkeys/notely-service/internal/app"
	"github.com/haierkeys/notely-service/internal/service"
	"go.uber.org/zap"
)

func init() {
	RegisterWithApp(func(appContainer *app.App) (Task, error) {
		return NewReminderRestoreTask(appContainer.ReminderService, appContainer.Config().GetSweepInterval(), appContainer.Logger()), nil
	})
}

// ReminderRestoreTask 启动时为存储中激活的提醒重新排期，之后定期补扫
type ReminderRestoreTask struct {
	reminders service.ReminderService
	interval  time.Duration
	logger    *zap.Logger
}

// NewReminderRestoreTask 创建提醒恢复任务，interval <= 0 只在启动时执行
func NewReminderRestoreTask(reminders service.ReminderService, interval time.Duration, logger *zap.Logger) *ReminderRestoreTask {
	return &ReminderRestoreTask{reminders: reminders, interval: interval, logger: logger}
}

func (t *ReminderRestoreTask) Name() string {
	return "ReminderRestore"
}

func (t *ReminderRestoreTask) Run(ctx context.Context) error {
	count, err := t.reminders.Restore(ctx)
	if err != nil {
		return err
	}
	t.logger.Info("task log",
		zap.String("task", t.Name()),
		zap.Int("scheduled", count),
		zap.Int("pending", t.reminders.Pending()))
	return nil
}

func (t *ReminderRestoreTask) LoopInterval() time.Duration {
	return t.interval
}

func (t *ReminderRestoreTask) IsStartupRun() bool {
	return true
}
