// Package domain 定义领域模型和接口
package domain

// NewNoteID 新建笔记的哨兵 ID
// 任何 <= 0 的 ID 在会话启动时都视为新建
const NewNoteID int64 = -1

// Color 笔记显示颜色
type Color int

const (
	ColorWhite Color = iota
	ColorRed
	ColorOrange
	ColorYellow
	ColorGreen
	ColorTeal
	ColorBlue
	ColorPurple
	ColorPink
	ColorGray
)

var colorNames = [...]string{
	ColorWhite:  "white",
	ColorRed:    "red",
	ColorOrange: "orange",
	ColorYellow: "yellow",
	ColorGreen:  "green",
	ColorTeal:   "teal",
	ColorBlue:   "blue",
	ColorPurple: "purple",
	ColorPink:   "pink",
	ColorGray:   "gray",
}

// Valid 判断颜色是否在枚举范围内
func (c Color) Valid() bool {
	return c >= ColorWhite && c <= ColorGray
}

func (c Color) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return colorNames[c]
}

// ParseColor 根据名称解析颜色，未知名称返回 false
func ParseColor(name string) (Color, bool) {
	for i, n := range colorNames {
		if n == name {
			return Color(i), true
		}
	}
	return ColorWhite, false
}

// Note 笔记领域模型
// 值类型，字段逐一相等即视为同一内容（脏检查依赖 ==）
type Note struct {
	ID               int64 // 0 表示尚未持久化
	Title            string
	Body             string
	UpdatedTimestamp int64 // 毫秒时间戳，每次保存时更新
	ReminderAt       int64 // 毫秒时间戳，0 表示没有提醒
	ReminderActive   bool  // 提醒已排期且未触发/未取消
	Color            Color
}

// EmptyNote 新建笔记模板：无 ID、空文本、无提醒
func EmptyNote(defaultColor Color) Note {
	return Note{Color: defaultColor}
}

// IsSaved 是否已持久化
func (n Note) IsSaved() bool {
	return n.ID > 0
}

// HasReminder 是否设置了提醒时间
func (n Note) HasReminder() bool {
	return n.ReminderAt > 0
}

// ReminderFired 提醒时间已过且不再处于激活状态，即已经触发
func (n Note) ReminderFired(nowMilli int64) bool {
	return n.HasReminder() && !n.ReminderActive && n.ReminderAt <= nowMilli
}

// OwnedNote 附带所属用户的笔记，用于跨用户扫描
type OwnedNote struct {
	UID int64
	Note
}
