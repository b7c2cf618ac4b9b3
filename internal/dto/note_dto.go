// Package dto Defines data transfer objects (request parameters and response structs)
// Package dto 定义数据传输对象（请求参数和响应结构体）
package dto

import (
	"github.com/haierkeys/notely-service/internal/domain"
	"github.com/haierkeys/notely-service/internal/service"

	"github.com/jinzhu/copier"
)

// NoteDTO Note data transfer object
// NoteDTO 笔记数据传输对象
type NoteDTO struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Body             string `json:"body"`
	UpdatedTimestamp int64  `json:"updatedTimestamp"`
	ReminderAt       int64  `json:"reminderAt"`
	ReminderActive   bool   `json:"reminderActive"`
	Color            int    `json:"color"`
	ColorName        string `json:"colorName"`
}

// NoteListDTO Note list with display state
// NoteListDTO 带展示状态的笔记列表
type NoteListDTO struct {
	State string     `json:"state"`
	List  []*NoteDTO `json:"list"`
}

// NoteDeleteRequest Request parameters for deleting a note
// NoteDeleteRequest 删除笔记的请求参数
type NoteDeleteRequest struct {
	ID int64 `json:"id" form:"id" binding:"required,gt=0"`
}

// NoteFromDomain converts domain note
// NoteFromDomain 将领域模型转换为 DTO
func NoteFromDomain(n *domain.Note) *NoteDTO {
	if n == nil {
		return nil
	}
	out := &NoteDTO{}
	_ = copier.Copy(out, n)
	out.Color = int(n.Color)
	out.ColorName = n.Color.String()
	return out
}

// NotesFromDomain converts domain notes
// NotesFromDomain 批量转换
func NotesFromDomain(list []*domain.Note) []*NoteDTO {
	out := make([]*NoteDTO, 0, len(list))
	for _, n := range list {
		out = append(out, NoteFromDomain(n))
	}
	return out
}

// NoteListFromState converts list state
// NoteListFromState 转换列表状态
func NoteListFromState(st service.NoteListState) *NoteListDTO {
	return &NoteListDTO{
		State: st.State.String(),
		List:  NotesFromDomain(st.Notes),
	}
}
