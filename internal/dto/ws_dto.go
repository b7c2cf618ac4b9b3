package dto

// WebSocketAction WebSocket text message type
// WebSocket 文本消息类型
type WebSocketAction = string

const (
	// NoteList full list pushed on every change
	// NoteList 每次变化推送完整列表
	NoteList WebSocketAction = "NoteList"
	// NoteDelete delete one note from the list
	// NoteDelete 从列表删除一条笔记
	NoteDelete WebSocketAction = "NoteDelete"
	// NoteUndo restore the last deleted note
	// NoteUndo 撤销最近一次删除
	NoteUndo WebSocketAction = "NoteUndo"
	// NoteClear delete every note
	// NoteClear 清空全部笔记
	NoteClear WebSocketAction = "NoteClear"
	// NoteUndoAll restore the last cleared list
	// NoteUndoAll 撤销最近一次清空
	NoteUndoAll WebSocketAction = "NoteUndoAll"
)

// VersionDTO server version information
// VersionDTO 服务端版本信息
type VersionDTO struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GitTag    string `json:"gitTag"`
	BuildTime string `json:"buildTime"`
}

// CountDTO affected record count
// CountDTO 受影响的记录数
type CountDTO struct {
	Count int `json:"count"`
}
