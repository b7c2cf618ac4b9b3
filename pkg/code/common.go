package code

import "net/http"

var (
	Failed  = NewError(0, lang{en: "Failed", zh_cn: "失败"})
	Success = NewSuss(1, lang{en: "Success", zh_cn: "成功"})

	ErrorServerInternal  = NewError(500, lang{en: "Internal server error", zh_cn: "服务器内部错误"}).WithHTTPStatus(http.StatusInternalServerError)
	ErrorNotFoundAPI     = NewError(404, lang{en: "API not found", zh_cn: "接口不存在"}).WithHTTPStatus(http.StatusNotFound)
	ErrorTooManyRequests = NewError(429, lang{en: "Too many requests", zh_cn: "请求过多"}).WithHTTPStatus(http.StatusTooManyRequests)

	ErrorInvalidParams        = NewError(400001, lang{en: "Invalid params", zh_cn: "参数错误"})
	ErrorNotUserAuthToken     = NewError(401001, lang{en: "Missing auth token", zh_cn: "缺少授权令牌"}).WithHTTPStatus(http.StatusUnauthorized)
	ErrorInvalidUserAuthToken = NewError(401002, lang{en: "Invalid auth token", zh_cn: "授权令牌无效"}).WithHTTPStatus(http.StatusUnauthorized)
	ErrorUserAuthTokenExpired = NewError(401003, lang{en: "Auth token expired", zh_cn: "授权令牌已过期"}).WithHTTPStatus(http.StatusUnauthorized)
	ErrorRequestTimeout       = NewError(408001, lang{en: "Request timeout", zh_cn: "请求超时"})
	ErrorDBQuery              = NewError(500101, lang{en: "Database operation failed", zh_cn: "数据库操作失败"})
	ErrorNoteNotFound         = NewError(404101, lang{en: "Note not found", zh_cn: "笔记不存在"})
	ErrorNoteNotSaved         = NewError(409101, lang{en: "Note has not been saved", zh_cn: "笔记尚未保存"})
	ErrorSessionNotFound      = NewError(404201, lang{en: "No open edit session", zh_cn: "没有打开的编辑会话"})
	ErrorSessionClosed        = NewError(410201, lang{en: "Edit session closed", zh_cn: "编辑会话已关闭"})
	ErrorNothingToUndo        = NewError(409301, lang{en: "Nothing to undo", zh_cn: "没有可撤销的操作"})
	ErrorReminderPast         = NewError(400401, lang{en: "Reminder time must be in the future", zh_cn: "提醒时间必须晚于当前时间"})
)
