package service

import (
	"context"
	"sync"

	"github.com/haierkeys/notely-service/internal/domain"
	"github.com/haierkeys/notely-service/pkg/logger"
	"go.uber.org/zap"
)

// UIState 列表展示状态
type UIState int

const (
	UIStateEmpty UIState = iota
	UIStateHasData
)

func (s UIState) String() string {
	if s == UIStateHasData {
		return "has_data"
	}
	return "empty"
}

// NoteListState 列表状态快照
type NoteListState struct {
	State UIState
	Notes []*domain.Note
}

func newNoteListState(notes []*domain.Note) NoteListState {
	if len(notes) == 0 {
		return NoteListState{State: UIStateEmpty, Notes: []*domain.Note{}}
	}
	return NoteListState{State: UIStateHasData, Notes: notes}
}

// NoteListCoordinator 单个用户的笔记列表协调器
// 删除后的记录保存在撤销缓冲中，只能撤销最近一次操作
type NoteListCoordinator struct {
	uid       int64
	notes     domain.NoteRepository
	reminders domain.ReminderScheduler
	logger    *zap.Logger

	// opMu 串行化删除和撤销
	opMu        sync.Mutex
	mu          sync.Mutex
	pending     *domain.Note
	pendingBulk []*domain.Note
}

// NewNoteListCoordinator 创建列表协调器
func NewNoteListCoordinator(uid int64, notes domain.NoteRepository, reminders domain.ReminderScheduler, lg *zap.Logger) *NoteListCoordinator {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &NoteListCoordinator{
		uid:       uid,
		notes:     notes,
		reminders: reminders,
		logger:    lg.With(zap.Int64(logger.FieldUID, uid)),
	}
}

// ObserveAll 订阅列表状态，ctx 取消后通道关闭
func (c *NoteListCoordinator) ObserveAll(ctx context.Context) (<-chan NoteListState, error) {
	src, err := c.notes.ObserveAll(ctx, c.uid)
	if err != nil {
		return nil, err
	}
	out := make(chan NoteListState)
	go func() {
		defer close(out)
		for list := range src {
			select {
			case out <- newNoteListState(list):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// DeleteOne 删除单条笔记并放入撤销缓冲
func (c *NoteListCoordinator) DeleteOne(ctx context.Context, note *domain.Note) error {
	if note == nil || !note.IsSaved() {
		return domain.ErrNoteNotSaved
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if note.ReminderActive {
		if err := c.reminders.Cancel(ctx, *note, c.uid); err != nil {
			return err
		}
	}
	if err := c.notes.Delete(ctx, note.ID, c.uid); err != nil {
		return err
	}

	n := *note
	c.mu.Lock()
	c.pending = &n
	c.mu.Unlock()

	c.logger.Info("note deleted", zap.Int64(logger.FieldNoteID, n.ID), zap.String(logger.FieldAction, "delete_one"))
	return nil
}

// UndoOne 按原 ID 恢复最近删除的笔记并重新排期提醒
// 缓冲为空时返回 nil, nil
func (c *NoteListCoordinator) UndoOne(ctx context.Context) (*domain.Note, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	p := c.pending
	c.mu.Unlock()
	if p == nil {
		return nil, nil
	}

	if err := c.notes.Restore(ctx, p, c.uid); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()

	if p.ReminderActive {
		if err := c.reminders.Schedule(ctx, *p, c.uid); err != nil {
			return p, err
		}
	}
	c.logger.Info("note restored", zap.Int64(logger.FieldNoteID, p.ID), zap.String(logger.FieldAction, "undo_one"))
	return p, nil
}

// ClearAll 删除全部笔记，整个列表放入批量撤销缓冲
func (c *NoteListCoordinator) ClearAll(ctx context.Context) (int, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	list, err := c.notes.List(ctx, c.uid)
	if err != nil {
		return 0, err
	}
	for _, n := range list {
		if n.ReminderActive {
			if err := c.reminders.Cancel(ctx, *n, c.uid); err != nil {
				return 0, err
			}
		}
	}
	if err := c.notes.DeleteAll(ctx, c.uid); err != nil {
		return 0, err
	}

	if len(list) > 0 {
		snapshot := make([]*domain.Note, 0, len(list))
		for _, n := range list {
			cp := *n
			snapshot = append(snapshot, &cp)
		}
		c.mu.Lock()
		c.pendingBulk = snapshot
		c.mu.Unlock()
	}

	c.logger.Info("notes cleared", zap.Int("count", len(list)), zap.String(logger.FieldAction, "clear_all"))
	return len(list), nil
}

// UndoAll 恢复最近一次清空的全部笔记
func (c *NoteListCoordinator) UndoAll(ctx context.Context) ([]*domain.Note, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	bulk := c.pendingBulk
	c.mu.Unlock()
	if len(bulk) == 0 {
		return nil, nil
	}

	if err := c.notes.RestoreAll(ctx, bulk, c.uid); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.pendingBulk = nil
	c.mu.Unlock()

	for _, n := range bulk {
		if !n.ReminderActive {
			continue
		}
		if err := c.reminders.Schedule(ctx, *n, c.uid); err != nil {
			return bulk, err
		}
	}
	c.logger.Info("notes restored", zap.Int("count", len(bulk)), zap.String(logger.FieldAction, "undo_all"))
	return bulk, nil
}

// HasPendingUndo 是否有可撤销的单条删除
func (c *NoteListCoordinator) HasPendingUndo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// HasPendingBulkUndo 是否有可撤销的清空
func (c *NoteListCoordinator) HasPendingBulkUndo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pendingBulk) > 0
}
