// Package dao 实现数据访问层
package dao

import (
	"context"

	"github.com/haierkeys/notely-service/internal/domain"
	"github.com/haierkeys/notely-service/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// noteRepository 实现 domain.NoteRepository 接口
type noteRepository struct {
	dao *Dao
}

// NewNoteRepository 创建 NoteRepository 实例
func NewNoteRepository(dao *Dao) domain.NoteRepository {
	return &noteRepository{dao: dao}
}

var _ domain.NoteRepository = (*noteRepository)(nil)

// toDomain 将 DAO Note 转换为领域模型
func (r *noteRepository) toDomain(m *model.Note) *domain.Note {
	if m == nil {
		return nil
	}
	return &domain.Note{
		ID:               m.ID,
		Title:            m.Title,
		Body:             m.Body,
		UpdatedTimestamp: m.UpdatedTimestamp,
		ReminderAt:       m.ReminderAt,
		ReminderActive:   m.ReminderActive,
		Color:            domain.Color(m.Color),
	}
}

// toModel 将领域模型转换为数据库模型
func (r *noteRepository) toModel(note *domain.Note, uid int64) *model.Note {
	if note == nil {
		return nil
	}
	return &model.Note{
		ID:               note.ID,
		UID:              uid,
		Title:            note.Title,
		Body:             note.Body,
		Color:            int(note.Color),
		ReminderAt:       note.ReminderAt,
		ReminderActive:   note.ReminderActive,
		UpdatedTimestamp: note.UpdatedTimestamp,
	}
}

func (r *noteRepository) toDomainList(ms []*model.Note) []*domain.Note {
	list := make([]*domain.Note, 0, len(ms))
	for _, m := range ms {
		list = append(list, r.toDomain(m))
	}
	return list
}

// updateColumns 全字段覆盖，使用 map 避免 gorm 跳过零值
func updateColumns(m *model.Note) map[string]any {
	return map[string]any{
		"title":             m.Title,
		"body":              m.Body,
		"color":             m.Color,
		"reminder_at":       m.ReminderAt,
		"reminder_active":   m.ReminderActive,
		"updated_timestamp": m.UpdatedTimestamp,
	}
}

// query 用户笔记查询，按更新时间倒序
func (r *noteRepository) query(ctx context.Context, uid int64) *gorm.DB {
	return r.dao.Db.WithContext(ctx).
		Model(&model.Note{}).
		Where("uid = ?", uid).
		Order("updated_timestamp DESC").
		Order("id DESC")
}

// GetByID 根据ID获取笔记
func (r *noteRepository) GetByID(ctx context.Context, id, uid int64) (*domain.Note, error) {
	var m model.Note
	err := r.dao.Db.WithContext(ctx).Where("id = ? AND uid = ?", id, uid).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNoteNotFound
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get", err)
	}
	return r.toDomain(&m), nil
}

// findByID 不存在时返回 nil 而非错误，供订阅使用
func (r *noteRepository) findByID(ctx context.Context, id, uid int64) (*domain.Note, error) {
	n, err := r.GetByID(ctx, id, uid)
	if errors.Is(err, domain.ErrNoteNotFound) {
		return nil, nil
	}
	return n, err
}

// findLatest 最近修改的笔记，没有笔记时返回 nil
func (r *noteRepository) findLatest(ctx context.Context, uid int64) (*domain.Note, error) {
	var ms []*model.Note
	if err := r.query(ctx, uid).Limit(1).Find(&ms).Error; err != nil {
		return nil, domain.NewPersistenceError("latest", err)
	}
	if len(ms) == 0 {
		return nil, nil
	}
	return r.toDomain(ms[0]), nil
}

// List 获取用户全部笔记
func (r *noteRepository) List(ctx context.Context, uid int64) ([]*domain.Note, error) {
	var ms []*model.Note
	if err := r.query(ctx, uid).Find(&ms).Error; err != nil {
		return nil, domain.NewPersistenceError("list", err)
	}
	return r.toDomainList(ms), nil
}

// ListActiveReminders 获取所有用户处于激活状态的提醒
func (r *noteRepository) ListActiveReminders(ctx context.Context) ([]*domain.OwnedNote, error) {
	var ms []*model.Note
	err := r.dao.Db.WithContext(ctx).
		Where("reminder_active = ? AND reminder_at > 0", true).
		Order("reminder_at ASC").
		Find(&ms).Error
	if err != nil {
		return nil, domain.NewPersistenceError("list active reminders", err)
	}
	list := make([]*domain.OwnedNote, 0, len(ms))
	for _, m := range ms {
		list = append(list, &domain.OwnedNote{UID: m.UID, Note: *r.toDomain(m)})
	}
	return list, nil
}

// Create 创建笔记
func (r *noteRepository) Create(ctx context.Context, note *domain.Note, uid int64) (*domain.Note, error) {
	m := r.toModel(note, uid)
	m.ID = 0

	err := r.dao.ExecuteWrite(ctx, uid, func(db *gorm.DB) error {
		return db.Create(m).Error
	})
	if err != nil {
		return nil, domain.NewPersistenceError("insert", err)
	}
	return r.toDomain(m), nil
}

// Restore 按原 ID 重新插入
func (r *noteRepository) Restore(ctx context.Context, note *domain.Note, uid int64) error {
	if note == nil || !note.IsSaved() {
		return domain.ErrNoteNotSaved
	}
	m := r.toModel(note, uid)
	err := r.dao.ExecuteWrite(ctx, uid, func(db *gorm.DB) error {
		return db.Create(m).Error
	})
	return domain.NewPersistenceError("restore", err)
}

// RestoreAll 在一个事务内按原 ID 重新插入多条笔记
func (r *noteRepository) RestoreAll(ctx context.Context, notes []*domain.Note, uid int64) error {
	if len(notes) == 0 {
		return nil
	}
	ms := make([]*model.Note, 0, len(notes))
	for _, n := range notes {
		if n == nil || !n.IsSaved() {
			return domain.ErrNoteNotSaved
		}
		ms = append(ms, r.toModel(n, uid))
	}
	err := r.dao.ExecuteWrite(ctx, uid, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&ms).Error
		})
	})
	return domain.NewPersistenceError("restore all", err)
}

// Update 覆盖写入笔记
func (r *noteRepository) Update(ctx context.Context, note *domain.Note, uid int64) error {
	if note == nil || !note.IsSaved() {
		return domain.ErrNoteNotFound
	}
	m := r.toModel(note, uid)

	err := r.dao.ExecuteWrite(ctx, uid, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var exist model.Note
			if err := tx.Select("id").Where("id = ? AND uid = ?", m.ID, uid).First(&exist).Error; err != nil {
				return err
			}
			return tx.Model(&model.Note{}).
				Where("id = ? AND uid = ?", m.ID, uid).
				Updates(updateColumns(m)).Error
		})
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNoteNotFound
	}
	return domain.NewPersistenceError("update", err)
}

// Delete 删除笔记，不存在视为成功
func (r *noteRepository) Delete(ctx context.Context, id, uid int64) error {
	err := r.dao.ExecuteWrite(ctx, uid, func(db *gorm.DB) error {
		return db.Where("id = ? AND uid = ?", id, uid).Delete(&model.Note{}).Error
	})
	return domain.NewPersistenceError("delete", err)
}

// DeleteAll 删除用户全部笔记
func (r *noteRepository) DeleteAll(ctx context.Context, uid int64) error {
	err := r.dao.ExecuteWrite(ctx, uid, func(db *gorm.DB) error {
		return db.Where("uid = ?", uid).Delete(&model.Note{}).Error
	})
	return domain.NewPersistenceError("delete all", err)
}

// ObserveNote 订阅单条笔记
func (r *noteRepository) ObserveNote(ctx context.Context, id, uid int64) (<-chan *domain.Note, error) {
	return observe(ctx, r.dao, uid, func(ctx context.Context) (*domain.Note, error) {
		return r.findByID(ctx, id, uid)
	}, sameNote)
}

// ObserveLatest 订阅最近修改的笔记
func (r *noteRepository) ObserveLatest(ctx context.Context, uid int64) (<-chan *domain.Note, error) {
	return observe(ctx, r.dao, uid, func(ctx context.Context) (*domain.Note, error) {
		return r.findLatest(ctx, uid)
	}, sameNote)
}

// ObserveAll 订阅用户全部笔记
func (r *noteRepository) ObserveAll(ctx context.Context, uid int64) (<-chan []*domain.Note, error) {
	return observe(ctx, r.dao, uid, func(ctx context.Context) ([]*domain.Note, error) {
		return r.List(ctx, uid)
	}, sameNoteList)
}

// EmptyNote 新建笔记模板
func (r *noteRepository) EmptyNote(defaultColor domain.Color) domain.Note {
	return domain.EmptyNote(defaultColor)
}

func sameNote(a, b *domain.Note) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameNoteList(a, b []*domain.Note) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameNote(a[i], b[i]) {
			return false
		}
	}
	return true
}
