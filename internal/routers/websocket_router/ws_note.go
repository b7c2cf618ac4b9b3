package websocket_router

import (
	"github.com/haierkeys/notely-service/internal/app"
	"github.com/haierkeys/notely-service/internal/dto"
	pkgapp "github.com/haierkeys/notely-service/pkg/app"
	"github.com/haierkeys/notely-service/pkg/code"
	"github.com/haierkeys/notely-service/pkg/logger"

	"go.uber.org/zap"
)

// NoteWSHandler WebSocket note list handler
// NoteWSHandler WebSocket 笔记列表处理器
type NoteWSHandler struct {
	*WSHandler
}

// NewNoteWSHandler creates NoteWSHandler instance
// NewNoteWSHandler 创建 NoteWSHandler 实例
func NewNoteWSHandler(a *app.App) *NoteWSHandler {
	return &NoteWSHandler{
		WSHandler: NewWSHandler(a),
	}
}

// NoteWatch 连接建立后订阅用户的全部笔记，每次变化推送 NoteList
// 连接关闭时 Context 取消，订阅随之结束
func (h *NoteWSHandler) NoteWatch(c *pkgapp.WebsocketClient) {
	uid := c.UID()
	ch, err := h.App.NoteListService.For(uid).ObserveAll(c.Context())
	if err != nil {
		h.respondError(c, dto.NoteList, err, "websocket_router.note.NoteWatch.ObserveAll")
		return
	}

	h.App.Logger().Debug("note list watch started",
		zap.Int64(logger.FieldUID, uid),
		zap.String(logger.FieldTraceID, traceID(c)))

	for st := range ch {
		c.ToResponse(code.Success.WithData(dto.NoteListFromState(st)), dto.NoteList)
	}

	h.App.Logger().Debug("note list watch stopped", zap.Int64(logger.FieldUID, uid))
}

// NoteDelete 删除一条笔记，内容放入撤销缓冲
func (h *NoteWSHandler) NoteDelete(c *pkgapp.WebsocketClient, msg *pkgapp.WebSocketMessage) {
	params := &dto.NoteDeleteRequest{}
	valid, errs := c.BindAndValid(msg.Data, params)
	if !valid {
		h.logError(c, "websocket_router.note.NoteDelete.BindAndValid", errs)
		c.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()), dto.NoteDelete)
		return
	}

	ctx := c.Context()
	uid := c.UID()

	note, err := h.App.NoteRepo.GetByID(ctx, params.ID, uid)
	if err != nil {
		h.respondError(c, dto.NoteDelete, err, "websocket_router.note.NoteDelete.GetByID")
		return
	}
	if err := h.App.NoteListService.For(uid).DeleteOne(ctx, note); err != nil {
		h.respondError(c, dto.NoteDelete, err, "websocket_router.note.NoteDelete")
		return
	}
	c.ToResponse(code.Success.WithData(dto.NoteFromDomain(note)), dto.NoteDelete)
}

// NoteUndo 撤销最近一次删除
func (h *NoteWSHandler) NoteUndo(c *pkgapp.WebsocketClient, msg *pkgapp.WebSocketMessage) {
	restored, err := h.App.NoteListService.For(c.UID()).UndoOne(c.Context())
	if err != nil {
		h.respondError(c, dto.NoteUndo, err, "websocket_router.note.NoteUndo")
		return
	}
	if restored == nil {
		c.ToResponse(code.ErrorNothingToUndo, dto.NoteUndo)
		return
	}
	c.ToResponse(code.Success.WithData(dto.NoteFromDomain(restored)), dto.NoteUndo)
}

// NoteClear 清空全部笔记
func (h *NoteWSHandler) NoteClear(c *pkgapp.WebsocketClient, msg *pkgapp.WebSocketMessage) {
	n, err := h.App.NoteListService.For(c.UID()).ClearAll(c.Context())
	if err != nil {
		h.respondError(c, dto.NoteClear, err, "websocket_router.note.NoteClear")
		return
	}
	c.ToResponse(code.Success.WithData(dto.CountDTO{Count: n}), dto.NoteClear)
}

// NoteUndoAll 撤销最近一次清空
func (h *NoteWSHandler) NoteUndoAll(c *pkgapp.WebsocketClient, msg *pkgapp.WebSocketMessage) {
	restored, err := h.App.NoteListService.For(c.UID()).UndoAll(c.Context())
	if err != nil {
		h.respondError(c, dto.NoteUndoAll, err, "websocket_router.note.NoteUndoAll")
		return
	}
	if restored == nil {
		c.ToResponse(code.ErrorNothingToUndo, dto.NoteUndoAll)
		return
	}
	c.ToResponse(code.Success.WithData(dto.NotesFromDomain(restored)), dto.NoteUndoAll)
}
