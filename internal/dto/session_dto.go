package dto

import (
	"github.com/haierkeys/notely-service/internal/service"
)

// SessionOpenRequest Request parameters for opening an edit session
// SessionOpenRequest 打开编辑会话的请求参数，noteId <= 0 表示新建
type SessionOpenRequest struct {
	NoteID int64 `json:"noteId" form:"noteId"`
}

// SessionUpdateRequest Fields to change on the working copy, absent fields stay untouched
// SessionUpdateRequest 修改工作副本的字段，未传的字段保持不变
type SessionUpdateRequest struct {
	Title      *string `json:"title" form:"title"`
	Body       *string `json:"body" form:"body"`
	Color      *int    `json:"color" form:"color" binding:"omitempty,note_color"`
	ReminderAt *int64  `json:"reminderAt" form:"reminderAt" binding:"omitempty,future_ms"`
}

// SessionDTO Edit session state
// SessionDTO 编辑会话状态
type SessionDTO struct {
	SessionID  string   `json:"sessionId"`
	Mode       string   `json:"mode"`
	Dirty      bool     `json:"dirty"`
	Completion string   `json:"completion"`
	SavedID    int64    `json:"savedId,omitempty"`
	Working    *NoteDTO `json:"working"`
	Baseline   *NoteDTO `json:"baseline"`
}

// SessionFromService converts edit session
// SessionFromService 转换编辑会话
func SessionFromService(s *service.EditSession) *SessionDTO {
	working := s.WorkingCopy()
	baseline := s.Baseline()
	return &SessionDTO{
		SessionID:  s.ID(),
		Mode:       s.Mode().String(),
		Dirty:      s.IsDirty(),
		Completion: s.ReminderCompletion().String(),
		SavedID:    s.SavedID(),
		Working:    NoteFromDomain(&working),
		Baseline:   NoteFromDomain(&baseline),
	}
}
