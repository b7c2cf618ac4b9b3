package service

import (
	"errors"

	"github.com/haierkeys/notely-service/internal/domain"
	"github.com/haierkeys/notely-service/pkg/code"
)

var (
	// ErrSessionNotFound 当前用户没有打开的编辑会话
	ErrSessionNotFound = errors.New("edit session not found")
	// ErrSessionClosed 编辑会话已关闭
	ErrSessionClosed = errors.New("edit session closed")
)

// ErrorCode 领域错误对应的业务码，未知错误返回 nil
func ErrorCode(err error) *code.Code {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNoteNotFound):
		return code.ErrorNoteNotFound
	case errors.Is(err, domain.ErrNoteNotSaved):
		return code.ErrorNoteNotSaved
	case errors.Is(err, ErrSessionNotFound):
		return code.ErrorSessionNotFound
	case errors.Is(err, ErrSessionClosed):
		return code.ErrorSessionClosed
	case domain.IsPersistenceError(err):
		return code.ErrorDBQuery
	}
	return nil
}
