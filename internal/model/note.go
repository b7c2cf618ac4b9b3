package model

import "time"

const TableNameNote = "note"

// Note mapped from table <note>
type Note struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id" form:"id"`
	UID              int64     `gorm:"column:uid;not null;index:idx_note_uid_updated,priority:1" json:"uid" form:"uid"`
	Title            string    `gorm:"column:title;not null;default:''" json:"title" form:"title"`
	Body             string    `gorm:"column:body;type:text" json:"body" form:"body"`
	Color            int       `gorm:"column:color;not null;default:0" json:"color" form:"color"`
	ReminderAt       int64     `gorm:"column:reminder_at;not null;default:0" json:"reminderAt" form:"reminderAt"`
	ReminderActive   bool      `gorm:"column:reminder_active;not null;default:false;index:idx_note_reminder_active" json:"reminderActive" form:"reminderActive"`
	UpdatedTimestamp int64     `gorm:"column:updated_timestamp;not null;default:0;index:idx_note_uid_updated,priority:2" json:"updatedTimestamp" form:"updatedTimestamp"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt" form:"createdAt"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt" form:"updatedAt"`
}

// TableName Note's table name
func (*Note) TableName() string {
	return TableNameNote
}
