package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/haierkeys/notely-service/internal/domain"
	"github.com/haierkeys/notely-service/pkg/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// EditMode 编辑会话模式
type EditMode int

const (
	// ModeNew 新建笔记，尚未持久化
	ModeNew EditMode = iota
	// ModeEdit 编辑已存在的笔记
	ModeEdit
)

func (m EditMode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "new"
}

// ReminderCompletion 提醒完成状态
type ReminderCompletion int

const (
	// ReminderOngoing 提醒尚未触发
	ReminderOngoing ReminderCompletion = iota
	// ReminderCompleted 提醒已经触发
	ReminderCompleted
)

func (r ReminderCompletion) String() string {
	if r == ReminderCompleted {
		return "completed"
	}
	return "ongoing"
}

// EditSessionDeps 编辑会话依赖
type EditSessionDeps struct {
	Notes        domain.NoteRepository
	Reminders    domain.ReminderScheduler
	Logger       *zap.Logger
	DefaultColor domain.Color
	Now          func() time.Time
}

// EditSession 单条笔记的编辑会话
//
// 新建模式下工作副本是空模板；编辑模式下持续订阅该笔记，
// 每次推送都会覆盖工作副本（包括尚未保存的修改）。
// 基线在会话启动时捕获一次，之后不再变化。
type EditSession struct {
	id   string
	uid  int64
	mode EditMode
	deps EditSessionDeps

	// opMu 串行化会产生 I/O 的操作，mu 只保护内存状态
	opMu sync.Mutex
	mu   sync.Mutex

	working    domain.Note
	baseline   domain.Note
	completion ReminderCompletion
	savedID    int64
	armedAt    int64 // 当前生效排期的提醒时间，0 表示没有
	closed     bool

	cancel context.CancelFunc
	done   chan struct{}
}

// StartEditSession 启动编辑会话
// noteID <= 0 进入新建模式；否则等待该笔记的首次推送，笔记不存在返回 ErrNoteNotFound
func StartEditSession(ctx context.Context, deps EditSessionDeps, uid, noteID int64) (*EditSession, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &EditSession{
		id:   uuid.NewString(),
		uid:  uid,
		deps: deps,
		done: make(chan struct{}),
	}

	if noteID <= 0 {
		s.mode = ModeNew
		s.working = deps.Notes.EmptyNote(deps.DefaultColor)
		s.baseline = s.working
		s.cancel = func() {}
		close(s.done)
		s.log().Debug("edit session started")
		return s, nil
	}

	s.mode = ModeEdit
	subCtx, cancel := context.WithCancel(context.Background())
	ch, err := deps.Notes.ObserveNote(subCtx, noteID, uid)
	if err != nil {
		cancel()
		return nil, err
	}

	var first *domain.Note
	select {
	case n, ok := <-ch:
		if !ok {
			cancel()
			return nil, domain.ErrNoteNotFound
		}
		first = n
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
	if first == nil {
		cancel()
		return nil, domain.ErrNoteNotFound
	}

	s.working = *first
	s.baseline = *first
	s.completion = completionOf(*first, s.nowMilli())
	if first.ReminderActive {
		s.armedAt = first.ReminderAt
	}
	s.cancel = cancel

	go s.follow(ch)

	s.log().Debug("edit session started")
	return s, nil
}

func completionOf(n domain.Note, nowMilli int64) ReminderCompletion {
	if n.ReminderFired(nowMilli) {
		return ReminderCompleted
	}
	return ReminderOngoing
}

// follow 消费订阅推送，直到通道关闭
func (s *EditSession) follow(ch <-chan *domain.Note) {
	defer close(s.done)
	for n := range ch {
		// 笔记被删除时保留最后的工作副本
		if n == nil {
			continue
		}
		s.mu.Lock()
		if !s.closed {
			s.working = *n
			if n.ReminderFired(s.nowMilli()) {
				s.completion = ReminderCompleted
			}
		}
		s.mu.Unlock()
	}
}

func (s *EditSession) nowMilli() int64 {
	return s.deps.Now().UnixMilli()
}

func (s *EditSession) log() *zap.Logger {
	return s.deps.Logger.With(
		zap.String(logger.FieldSessionID, s.id),
		zap.Int64(logger.FieldUID, s.uid),
		zap.String(logger.FieldMode, s.mode.String()),
	)
}

// ID 会话ID
func (s *EditSession) ID() string {
	return s.id
}

// UID 会话所属用户
func (s *EditSession) UID() int64 {
	return s.uid
}

// Mode 会话模式
func (s *EditSession) Mode() EditMode {
	return s.mode
}

// WorkingCopy 当前工作副本
func (s *EditSession) WorkingCopy() domain.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working
}

// Baseline 会话启动时的基线
func (s *EditSession) Baseline() domain.Note {
	return s.baseline
}

// ReminderCompletion 提醒完成状态
func (s *EditSession) ReminderCompletion() ReminderCompletion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completion
}

// SavedID 新建模式下最近一次写入得到的 ID，未写入为 0
func (s *EditSession) SavedID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savedID
}

func (s *EditSession) edit(fn func(n *domain.Note)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	fn(&s.working)
	return nil
}

// SetTitle 修改标题
func (s *EditSession) SetTitle(title string) error {
	return s.edit(func(n *domain.Note) { n.Title = title })
}

// SetBody 修改正文
func (s *EditSession) SetBody(body string) error {
	return s.edit(func(n *domain.Note) { n.Body = body })
}

// SetColor 修改颜色
func (s *EditSession) SetColor(color domain.Color) error {
	return s.edit(func(n *domain.Note) { n.Color = color })
}

// SetReminder 修改提醒时间，不会排期；0 表示清除
func (s *EditSession) SetReminder(at int64) error {
	return s.edit(func(n *domain.Note) { n.ReminderAt = at })
}

// IsDirty 工作副本相对基线是否有修改
//
// 编辑模式比较全部字段；新建模式与同色的空模板比较，
// 新建时仅修改颜色不算修改。
func (s *EditSession) IsDirty() bool {
	s.mu.Lock()
	w := s.working
	s.mu.Unlock()

	if s.mode == ModeEdit {
		return w != s.baseline
	}
	return w != s.deps.Notes.EmptyNote(w.Color)
}

func (s *EditSession) snapshot() (domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.Note{}, ErrSessionClosed
	}
	w := s.working
	if s.mode == ModeNew {
		w.ID = s.savedID
	}
	return w, nil
}

// Save 保存工作副本并刷新更新时间
// 新建模式每次保存都插入一条新记录，会话仍保持新建模式
func (s *EditSession) Save(ctx context.Context) (domain.Note, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	w, err := s.snapshot()
	if err != nil {
		return domain.Note{}, err
	}
	w.UpdatedTimestamp = s.nowMilli()

	if s.mode == ModeNew {
		// 新插入的记录没有排期，不能带激活状态
		w.ReminderActive = false
		created, err := s.deps.Notes.Create(ctx, &w, s.uid)
		if err != nil {
			return domain.Note{}, err
		}
		s.mu.Lock()
		s.savedID = created.ID
		s.working.ReminderActive = false
		s.armedAt = 0
		s.mu.Unlock()
		notesSavedTotal.WithLabelValues(s.mode.String()).Inc()
		s.log().Info("note created", zap.Int64(logger.FieldNoteID, created.ID))
		return *created, nil
	}

	// 激活的提醒时间被修改时重新排期，被清空时取消
	s.mu.Lock()
	armedAt := s.armedAt
	s.mu.Unlock()
	resync := w.ReminderActive && w.ReminderAt != armedAt
	if w.ReminderActive && !w.HasReminder() {
		w.ReminderActive = false
	}

	if err := s.deps.Notes.Update(ctx, &w, s.uid); err != nil {
		return domain.Note{}, err
	}
	notesSavedTotal.WithLabelValues(s.mode.String()).Inc()
	s.log().Info("note updated", zap.Int64(logger.FieldNoteID, w.ID))

	if resync {
		if err := s.resyncReminder(ctx, w); err != nil {
			return w, err
		}
	}
	return w, nil
}

func (s *EditSession) resyncReminder(ctx context.Context, w domain.Note) error {
	if w.ReminderActive {
		if err := s.deps.Reminders.Schedule(ctx, w, s.uid); err != nil {
			return err
		}
	} else if err := s.deps.Reminders.Cancel(ctx, w, s.uid); err != nil {
		return err
	}
	s.mu.Lock()
	s.armedAt = w.ReminderAt
	s.mu.Unlock()
	s.log().Info("reminder rescheduled",
		zap.Int64(logger.FieldNoteID, w.ID),
		zap.Int64(logger.FieldReminderAt, w.ReminderAt),
	)
	return nil
}

// ArmReminder 为工作副本上的提醒时间排期并持久化激活状态
//
// 没有提醒或提醒时间不在将来时什么也不做。
// 新建模式下笔记必须已经保存过，否则返回 ErrNoteNotSaved；
// 此时以最近修改的笔记为目标。
func (s *EditSession) ArmReminder(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	w, err := s.snapshot()
	if err != nil {
		return err
	}
	now := s.nowMilli()
	if !w.HasReminder() || w.ReminderAt <= now {
		return nil
	}

	target := w
	if s.mode == ModeNew {
		latest, err := s.latest(ctx)
		if err != nil {
			return err
		}
		if latest == nil {
			return domain.ErrNoteNotSaved
		}
		target = *latest
		target.ReminderAt = w.ReminderAt
	}
	target.ReminderActive = true
	target.UpdatedTimestamp = now

	if err := s.deps.Reminders.Schedule(ctx, target, s.uid); err != nil {
		return err
	}
	if err := s.deps.Notes.Update(ctx, &target, s.uid); err != nil {
		// 持久化失败时撤回排期
		if cerr := s.deps.Reminders.Cancel(ctx, target, s.uid); cerr != nil {
			s.log().Warn("cancel reminder after failed update", zap.Error(cerr))
		}
		return err
	}

	s.mu.Lock()
	s.working.ReminderActive = true
	if s.mode == ModeNew {
		s.savedID = target.ID
	}
	s.armedAt = target.ReminderAt
	s.completion = ReminderOngoing
	s.mu.Unlock()

	s.log().Info("reminder armed",
		zap.Int64(logger.FieldNoteID, target.ID),
		zap.Int64(logger.FieldReminderAt, target.ReminderAt),
	)
	return nil
}

// latest 读取最近修改笔记的当前值
func (s *EditSession) latest(ctx context.Context) (*domain.Note, error) {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := s.deps.Notes.ObserveLatest(subCtx, s.uid)
	if err != nil {
		return nil, err
	}
	select {
	case n := <-ch:
		return n, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CancelReminder 清除工作副本上的提醒并取消排期
// 工作副本的其它修改不会持久化；已存储的记录只清除提醒字段，
// 避免重新扫描时再次排期。
func (s *EditSession) CancelReminder(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.cancelReminder(ctx, true)
}

func (s *EditSession) cancelReminder(ctx context.Context, persist bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.working.ReminderAt = 0
	s.working.ReminderActive = false
	target := s.working
	if s.mode == ModeNew {
		target.ID = s.savedID
	}
	s.armedAt = 0
	s.mu.Unlock()

	if err := s.deps.Reminders.Cancel(ctx, target, s.uid); err != nil {
		return err
	}
	if !persist || target.ID <= 0 {
		return nil
	}
	return s.clearStoredReminder(ctx, target.ID)
}

// clearStoredReminder 清除存储记录上的提醒字段，记录不存在或没有提醒时跳过
func (s *EditSession) clearStoredReminder(ctx context.Context, id int64) error {
	row, err := s.deps.Notes.GetByID(ctx, id, s.uid)
	if errors.Is(err, domain.ErrNoteNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !row.ReminderActive && !row.HasReminder() {
		return nil
	}
	row.ReminderAt = 0
	row.ReminderActive = false
	return s.deps.Notes.Update(ctx, row, s.uid)
}

// Delete 删除笔记，提醒处于激活状态时先取消
// 新建模式且从未写入时不访问存储
func (s *EditSession) Delete(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	w, err := s.snapshot()
	if err != nil {
		return err
	}
	if w.ReminderActive {
		if err := s.cancelReminder(ctx, false); err != nil {
			return err
		}
	}
	if w.ID <= 0 {
		return nil
	}
	if err := s.deps.Notes.Delete(ctx, w.ID, s.uid); err != nil {
		return err
	}
	s.log().Info("note deleted", zap.Int64(logger.FieldNoteID, w.ID))
	return nil
}

// Close 关闭会话并停止订阅，可重复调用
func (s *EditSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
	s.log().Debug("edit session closed")
}

// Closed 会话是否已关闭
func (s *EditSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
