package api_router

import (
	"context"
	"strconv"
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
	"golang.org/x/sync/singleflight"
)

// NoteHandler 笔记列表 API 路由处理器
// 删除/撤销走 NoteListCoordinator，撤销缓冲按用户共享
type NoteHandler struct {
	*Handler
	sf singleflight.Group
}

// NewNoteHandler 创建 NoteHandler 实例
func NewNoteHandler(a *app.App) *NoteHandler {
	return &NoteHandler{
		Handler: NewHandler(a),
	}
}

// List 获取笔记列表
// @Summary 获取笔记列表
// @Description 分页获取当前用户的笔记列表，按更新时间倒序，state 为 empty 或 has_data
// @Tags 笔记
// @Security UserAuthToken
// @Param token header string true "认证 Token"
// @Produce json
// @Param page query int false "页码"
// @Param pageSize query int false "每页数量"
// @Success 200 {object} pkgapp.Res{data=pkgapp.ListRes{list=dto.NoteListDTO}} "成功"
// @Router /api/notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	uid, ok := h.requireUID(c, "NoteHandler.List")
	if !ok {
		return
	}

	// 合并同一用户的并发列表请求；共享调用不跟随首个请求的取消
	ctx := context.WithoutCancel(c.Request.Context())
	v, err, _ := h.sf.Do(strconv.FormatInt(uid, 10), func() (interface{}, error) {
		return h.listNotes(ctx, uid)
	})
	if err != nil {
		h.fail(c, "NoteHandler.List", err)
		return
	}
	notes := v.([]*domain.Note)

	st := dto.NoteListFromState(service.NoteListState{
		State: stateOf(notes),
		Notes: notes,
	})
	offset, end := pkgapp.PageSlice(c, len(st.List))
	st.List = st.List[offset:end]

	response.ToResponseList(code.Success, st, len(notes))
}

func (h *NoteHandler) listNotes(ctx context.Context, uid int64) ([]*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(h.App.Config().App.DefaultContextTimeout)*time.Second)
	defer cancel()
	return h.App.NoteRepo.List(ctx, uid)
}

func stateOf(notes []*domain.Note) service.UIState {
	if len(notes) == 0 {
		return service.UIStateEmpty
	}
	return service.UIStateHasData
}

// Delete 删除单条笔记，可通过 PUT /api/note/restore 撤销
// @Summary 删除笔记
// @Description 删除笔记并取消其提醒，删除前的内容保留在撤销缓冲中
// @Tags 笔记
// @Security UserAuthToken
// @Param token header string true "认证 Token"
// @Produce json
// @Param params query dto.NoteDeleteRequest true "删除参数"
// @Success 200 {object} pkgapp.Res{data=dto.NoteDTO} "成功"
// @Router /api/note [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.NoteDeleteRequest{}
	if !h.bind(c, "NoteHandler.Delete", params) {
		return
	}
	uid, ok := h.requireUID(c, "NoteHandler.Delete")
	if !ok {
		return
	}

	ctx := c.Request.Context()

	note, err := h.App.NoteRepo.GetByID(ctx, params.ID, uid)
	if err != nil {
		h.fail(c, "NoteHandler.Delete.GetByID", err)
		return
	}

	if err := h.App.NoteListService.For(uid).DeleteOne(ctx, note); err != nil {
		h.fail(c, "NoteHandler.Delete", err)
		return
	}

	h.App.Logger().Info("note deleted",
		zap.Int64(logger.FieldUID, uid),
		zap.Int64(logger.FieldNoteID, note.ID))
	response.ToResponse(code.Success.WithData(dto.NoteFromDomain(note)))
}

// Restore 撤销最近一次单条删除，恢复后保留原 ID
// @Summary 撤销删除
// @Tags 笔记
// @Security UserAuthToken
// @Param token header string true "认证 Token"
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.NoteDTO} "成功"
// @Router /api/note/restore [put]
func (h *NoteHandler) Restore(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	uid, ok := h.requireUID(c, "NoteHandler.Restore")
	if !ok {
		return
	}

	restored, err := h.App.NoteListService.For(uid).UndoOne(c.Request.Context())
	if err != nil {
		h.fail(c, "NoteHandler.Restore", err)
		return
	}
	if restored == nil {
		response.ToResponse(code.ErrorNothingToUndo)
		return
	}
	response.ToResponse(code.Success.WithData(dto.NoteFromDomain(restored)))
}

// ClearAll 删除当前用户全部笔记
// @Summary 清空笔记
// @Tags 笔记
// @Security UserAuthToken
// @Param token header string true "认证 Token"
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.CountDTO} "成功"
// @Router /api/notes [delete]
func (h *NoteHandler) ClearAll(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	uid, ok := h.requireUID(c, "NoteHandler.ClearAll")
	if !ok {
		return
	}

	n, err := h.App.NoteListService.For(uid).ClearAll(c.Request.Context())
	if err != nil {
		h.fail(c, "NoteHandler.ClearAll", err)
		return
	}
	response.ToResponse(code.Success.WithData(dto.CountDTO{Count: n}))
}

// RestoreAll 撤销最近一次清空
// @Summary 撤销清空
// @Tags 笔记
// @Security UserAuthToken
// @Param token header string true "认证 Token"
// @Produce json
// @Success 200 {object} pkgapp.Res{data=[]dto.NoteDTO} "成功"
// @Router /api/notes/restore [put]
func (h *NoteHandler) RestoreAll(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	uid, ok := h.requireUID(c, "NoteHandler.RestoreAll")
	if !ok {
		return
	}

	restored, err := h.App.NoteListService.For(uid).UndoAll(c.Request.Context())
	if err != nil {
		h.fail(c, "NoteHandler.RestoreAll", err)
		return
	}
	if restored == nil {
		response.ToResponse(code.ErrorNothingToUndo)
		return
	}
	response.ToResponse(code.Success.WithData(dto.NotesFromDomain(restored)))
}
