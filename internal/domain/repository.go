// Package domain 定义领域模型和接口
package domain

import "context"

// NoteRepository 笔记仓储接口
// 所有操作都以 uid 区分所属用户
type NoteRepository interface {
	// GetByID 根据ID获取笔记，不存在返回 ErrNoteNotFound
	GetByID(ctx context.Context, id, uid int64) (*Note, error)

	// List 获取用户全部笔记，按更新时间倒序
	List(ctx context.Context, uid int64) ([]*Note, error)

	// ListActiveReminders 获取所有用户处于激活状态的提醒
	ListActiveReminders(ctx context.Context) ([]*OwnedNote, error)

	// Create 创建笔记，忽略传入的 ID，由存储分配
	Create(ctx context.Context, note *Note, uid int64) (*Note, error)

	// Restore 按原 ID 重新插入笔记（撤销删除）
	Restore(ctx context.Context, note *Note, uid int64) error

	// RestoreAll 在一个事务内按原 ID 重新插入多条笔记
	RestoreAll(ctx context.Context, notes []*Note, uid int64) error

	// Update 覆盖写入笔记全部字段，不存在返回 ErrNoteNotFound
	Update(ctx context.Context, note *Note, uid int64) error

	// Delete 删除笔记，幂等
	Delete(ctx context.Context, id, uid int64) error

	// DeleteAll 删除用户全部笔记
	DeleteAll(ctx context.Context, uid int64) error

	// ObserveNote 订阅单条笔记，立即推送当前值（不存在为 nil），之后每次变化推送
	// ctx 取消后通道关闭
	ObserveNote(ctx context.Context, id, uid int64) (<-chan *Note, error)

	// ObserveLatest 订阅最近修改的笔记
	ObserveLatest(ctx context.Context, uid int64) (<-chan *Note, error)

	// ObserveAll 订阅用户全部笔记
	ObserveAll(ctx context.Context, uid int64) (<-chan []*Note, error)

	// EmptyNote 返回新建笔记模板
	EmptyNote(defaultColor Color) Note
}

// ReminderScheduler 提醒调度能力
// 以笔记 ID 为键，Cancel 幂等
type ReminderScheduler interface {
	Schedule(ctx context.Context, note Note, uid int64) error
	Cancel(ctx context.Context, note Note, uid int64) error
}
