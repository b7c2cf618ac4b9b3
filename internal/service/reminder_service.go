package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haierkeys/notely-service/internal/domain"
	"github.com/haierkeys/notely-service/pkg/logger"
	"github.com/haierkeys/notely-service/pkg/workerpool"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ReminderService 基于 cron 的提醒调度
type ReminderService interface {
	domain.ReminderScheduler

	// Restore 为存储中全部激活的提醒重新排期，返回新排期数量
	Restore(ctx context.Context) (int, error)
	// Pending 等待触发的提醒数量
	Pending() int
	// Start 启动调度器
	Start()
	// Stop 停止调度器并等待正在执行的投递
	Stop(ctx context.Context) error
}

const defaultFireTimeout = 30 * time.Second

type reminderKey struct {
	uid int64
	id  int64
}

type reminderEntry struct {
	entryID cron.EntryID
	at      int64
}

type reminderService struct {
	cron     *cron.Cron
	notes    domain.NoteRepository
	notifier Notifier
	pool     *workerpool.Pool
	logger   *zap.Logger
	timeout  time.Duration

	mu      sync.Mutex
	entries map[reminderKey]reminderEntry
}

// NewReminderService 创建提醒调度服务
// pool 为空时直接在调度协程中投递
func NewReminderService(notes domain.NoteRepository, notifier Notifier, pool *workerpool.Pool, cfg ReminderServiceConfig, lg *zap.Logger) ReminderService {
	if lg == nil {
		lg = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(lg)
	}
	timeout := cfg.FireTimeout
	if timeout <= 0 {
		timeout = defaultFireTimeout
	}
	cronLogger := cron.PrintfLogger(zap.NewStdLog(lg.Named("cron")))
	return &reminderService{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger)), cron.WithLogger(cronLogger)),
		notes:    notes,
		notifier: notifier,
		pool:     pool,
		logger:   lg,
		timeout:  timeout,
		entries:  make(map[reminderKey]reminderEntry),
	}
}

// onceSchedule 只触发一次的 cron 计划
// 第一次 Next 返回目标时间，之后返回零值，cron 不会再次运行该条目
type onceSchedule struct {
	at    time.Time
	calls atomic.Int32
}

func (s *onceSchedule) Next(time.Time) time.Time {
	if s.calls.Add(1) == 1 {
		return s.at
	}
	return time.Time{}
}

type reminderJob struct {
	svc     *reminderService
	key     reminderKey
	at      int64
	entryID cron.EntryID
}

func (j *reminderJob) Run() {
	j.svc.fire(j)
}

// Schedule 为笔记的提醒排期，重复排期会替换旧的条目
// 已过期的提醒立即触发
func (s *reminderService) Schedule(ctx context.Context, note domain.Note, uid int64) error {
	if !note.IsSaved() {
		return domain.ErrNoteNotSaved
	}
	if !note.HasReminder() {
		return s.Cancel(ctx, note, uid)
	}

	key := reminderKey{uid: uid, id: note.ID}
	job := &reminderJob{svc: s, key: key, at: note.ReminderAt}

	s.mu.Lock()
	if old, ok := s.entries[key]; ok {
		s.cron.Remove(old.entryID)
	}
	job.entryID = s.cron.Schedule(&onceSchedule{at: time.UnixMilli(note.ReminderAt)}, job)
	s.entries[key] = reminderEntry{entryID: job.entryID, at: note.ReminderAt}
	remindersPending.Set(float64(len(s.entries)))
	s.mu.Unlock()

	remindersScheduledTotal.Inc()
	s.logger.Debug("reminder scheduled",
		zap.Int64(logger.FieldUID, uid),
		zap.Int64(logger.FieldNoteID, note.ID),
		zap.Int64(logger.FieldReminderAt, note.ReminderAt),
	)
	return nil
}

// Cancel 取消笔记的提醒，没有排期时什么也不做
func (s *reminderService) Cancel(_ context.Context, note domain.Note, uid int64) error {
	if note.ID <= 0 {
		return nil
	}
	key := reminderKey{uid: uid, id: note.ID}

	s.mu.Lock()
	e, ok := s.entries[key]
	if ok {
		s.cron.Remove(e.entryID)
		delete(s.entries, key)
		remindersPending.Set(float64(len(s.entries)))
	}
	s.mu.Unlock()

	if ok {
		remindersCancelledTotal.Inc()
		s.logger.Debug("reminder cancelled", zap.Int64(logger.FieldUID, uid), zap.Int64(logger.FieldNoteID, note.ID))
	}
	return nil
}

// fire 投递提醒并把激活状态写回存储
// 条目已被替换、取消，或存储中的提醒已变化时跳过
func (s *reminderService) fire(job *reminderJob) {
	s.mu.Lock()
	e, ok := s.entries[job.key]
	current := ok && e.entryID == job.entryID
	if current {
		delete(s.entries, job.key)
		remindersPending.Set(float64(len(s.entries)))
	}
	s.mu.Unlock()
	s.cron.Remove(job.entryID)
	if !current {
		return
	}

	lg := s.logger.With(zap.Int64(logger.FieldUID, job.key.uid), zap.Int64(logger.FieldNoteID, job.key.id))

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	note, err := s.notes.GetByID(ctx, job.key.id, job.key.uid)
	if errors.Is(err, domain.ErrNoteNotFound) {
		remindersFiredTotal.WithLabelValues("skipped").Inc()
		return
	}
	if err != nil {
		remindersFiredTotal.WithLabelValues("error").Inc()
		lg.Error("load note for reminder", zap.Error(err))
		return
	}
	if !note.ReminderActive || note.ReminderAt != job.at {
		remindersFiredTotal.WithLabelValues("skipped").Inc()
		return
	}

	deliver := func(ctx context.Context) error {
		return s.notifier.Notify(ctx, job.key.uid, *note)
	}
	if s.pool != nil {
		err = s.pool.Submit(ctx, deliver)
	} else {
		err = deliver(ctx)
	}
	if err != nil {
		remindersFiredTotal.WithLabelValues("error").Inc()
		lg.Error("deliver reminder", zap.Error(err))
	} else {
		remindersFiredTotal.WithLabelValues("delivered").Inc()
	}

	fired := *note
	fired.ReminderActive = false
	if err := s.notes.Update(ctx, &fired, job.key.uid); err != nil && !errors.Is(err, domain.ErrNoteNotFound) {
		lg.Error("mark reminder fired", zap.Error(err))
	}
}

// Restore 为激活的提醒重新排期，时间未变化的条目保持不动
func (s *reminderService) Restore(ctx context.Context) (int, error) {
	list, err := s.notes.ListActiveReminders(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range list {
		s.mu.Lock()
		e, ok := s.entries[reminderKey{uid: n.UID, id: n.ID}]
		s.mu.Unlock()
		if ok && e.at == n.ReminderAt {
			continue
		}
		if err := s.Schedule(ctx, n.Note, n.UID); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *reminderService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *reminderService) Start() {
	s.cron.Start()
}

func (s *reminderService) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
