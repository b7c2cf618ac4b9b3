package api_router

import (
	"time"

	"github.com/haierkeys/notely-service/internal/app"
	"github.com/haierkeys/notely-service/internal/domain"
	"github.com/haierkeys/notely-service/internal/dto"
	"github.com/haierkeys/notely-service/internal/service"
	pkgapp "github.com/haierkeys/notely-service/pkg/app"
	"github.com/haierkeys/notely-service/pkg/code"
	"github.com/haierkeys/notely-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionHandler 编辑会话 API 路由处理器
// 每个用户同一时间一个会话，由 SessionService 持有
type SessionHandler struct {
	*Handler
}

// NewSessionHandler 创建 SessionHandler 实例
func NewSessionHandler(a *app.App) *SessionHandler {
	return &SessionHandler{
		Handler: NewHandler(a),
	}
}

// current 获取当前用户的会话，失败时直接输出响应
func (h *SessionHandler) current(c *gin.Context, method string) (*service.EditSession, bool) {
	uid, ok := h.requireUID(c, method)
	if !ok {
		return nil, false
	}
	s, err := h.App.SessionService.Get(uid)
	if err != nil {
		h.fail(c, method, err)
		return nil, false
	}
	return s, true
}

// Open 打开编辑会话
// @Summary 打开编辑会话
// @Description noteId 大于 0 时编辑已有笔记，否则新建；已有会话会先关闭
// @Tags 编辑会话
// @Security UserAuthToken
// @Param token header string true "认证 Token"
// @Accept json
// @Produce json
// @Param params body dto.SessionOpenRequest true "会话参数"
// @Success 200 {object} pkgapp.Res{data=dto.SessionDTO} "成功"
// @Router /api/session [post]
func (h *SessionHandler) Open(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.SessionOpenRequest{}
	if !h.bind(c, "SessionHandler.Open", params) {
		return
	}
	uid, ok := h.requireUID(c, "SessionHandler.Open")
	if !ok {
		return
	}

	s, err := h.App.SessionService.Open(c.Request.Context(), uid, params.NoteID)
	if err != nil {
		h.fail(c, "SessionHandler.Open", err)
		return
	}

	h.App.Logger().Info("edit session opened",
		zap.Int64(logger.FieldUID, uid),
		zap.String(logger.FieldSessionID, s.ID()),
		zap.String(logger.FieldMode, s.Mode().String()))
	response.ToResponse(code.Success.WithData(dto.SessionFromService(s)))
}

// Get 获取当前会话状态
// @Summary 获取编辑会话
// @Tags 编辑会话
// @Security UserAuthToken
// @Param token header string true "认证 Token"
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.SessionDTO} "成功"
// @Router /api/session [get]
func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.current(c, "SessionHandler.Get")
	if !ok {
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(dto.SessionFromService(s)))
}

// Update 修改工作副本，只修改请求中出现的字段
// @Summary 修改编辑会话
// @Tags 编辑会话
// @Security UserAuthToken
// @Param token header string true "认证 Token"
// @Accept json
// @Produce json
// @Param params body dto.SessionUpdateRequest true "修改内容"
// @Success 200 {object} pkgapp.Res{data=dto.SessionDTO} "成功"
// @Router /api/session [put]
func (h *SessionHandler) Update(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.SessionUpdateRequest{}
	if !h.bind(c, "SessionHandler.Update", params) {
		return
	}
	s, ok := h.current(c, "SessionHandler.Update")
	if !ok {
		return
	}

	var err error
	if params.Title != nil {
		err = s.SetTitle(*params.Title)
	}
	if params.Body != nil && err == nil {
		err = s.SetBody(*params.Body)
	}
	if params.Color != nil && err == nil {
		err = s.SetColor(domain.Color(*params.Color))
	}
	if params.ReminderAt != nil && err == nil {
		err = s.SetReminder(*params.ReminderAt)
	}
	if err != nil {
		h.fail(c, "SessionHandler.Update", err)
		return
	}
	response.ToResponse(code.Success.WithData(dto.SessionFromService(s)))
}

// Save 保存工作副本
// @Summary 保存笔记
// @Description 新建模式每次保存插入一条新记录，编辑模式覆盖原记录
// @Tags 编辑会话
// @Security UserAuthToken
// @Param token header string true "认证 Token"
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.NoteDTO} "成功"
// @Router /api/session/save [post]
func (h *SessionHandler) Save(c *gin.Context) {
	s, ok := h.current(c, "SessionHandler.Save")
	if !ok {
		return
	}
	saved, err := s.Save(c.Request.Context())
	if err != nil {
		h.fail(c, "SessionHandler.Save", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(dto.NoteFromDomain(&saved)))
}

// ArmReminder 为工作副本上的提醒时间排期
// @Summary 设置提醒
// @Description 没有提醒时间时不做任何事；提醒时间已过返回 400401
// @Tags 编辑会话
// @Security UserAuthToken
// @Param token header string true "认证 Token"
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.SessionDTO} "成功"
// @Router /api/session/reminder [post]
func (h *SessionHandler) ArmReminder(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	s, ok := h.current(c, "SessionHandler.ArmReminder")
	if !ok {
		return
	}

	w := s.WorkingCopy()
	if w.HasReminder() && w.ReminderAt <= time.Now().UnixMilli() {
		response.ToResponse(code.ErrorReminderPast)
		return
	}

	if err := s.ArmReminder(c.Request.Context()); err != nil {
		h.fail(c, "SessionHandler.ArmReminder", err)
		return
	}
	response.ToResponse(code.Success.WithData(dto.SessionFromService(s)))
}

// CancelReminder 取消提醒
// @Summary 取消提醒
// @Tags 编辑会话
// @Security UserAuthToken
// @Param token header string true "认证 Token"
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.SessionDTO} "成功"
// @Router /api/session/reminder [delete]
func (h *SessionHandler) CancelReminder(c *gin.Context) {
	s, ok := h.current(c, "SessionHandler.CancelReminder")
	if !ok {
		return
	}
	if err := s.CancelReminder(c.Request.Context()); err != nil {
		h.fail(c, "SessionHandler.CancelReminder", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(dto.SessionFromService(s)))
}

// DeleteNote 删除会话中的笔记并关闭会话
// @Summary 删除编辑中的笔记
// @Tags 编辑会话
// @Security UserAuthToken
// @Param token header string true "认证 Token"
// @Produce json
// @Success 200 {object} pkgapp.Res "成功"
// @Router /api/session/note [delete]
func (h *SessionHandler) DeleteNote(c *gin.Context) {
	s, ok := h.current(c, "SessionHandler.DeleteNote")
	if !ok {
		return
	}
	if err := s.Delete(c.Request.Context()); err != nil {
		h.fail(c, "SessionHandler.DeleteNote", err)
		return
	}
	h.App.SessionService.Close(s.UID())
	pkgapp.NewResponse(c).ToResponse(code.Success)
}

// Close 关闭编辑会话，未保存的修改被丢弃
// @Summary 关闭编辑会话
// @Tags 编辑会话
// @Security UserAuthToken
// @Param token header string true "认证 Token"
// @Produce json
// @Success 200 {object} pkgapp.Res "成功"
// @Router /api/session [delete]
func (h *SessionHandler) Close(c *gin.Context) {
	uid, ok := h.requireUID(c, "SessionHandler.Close")
	if !ok {
		return
	}
	if !h.App.SessionService.Close(uid) {
		h.fail(c, "SessionHandler.Close", service.ErrSessionNotFound)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success)
}
