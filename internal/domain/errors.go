package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoteNotFound 笔记不存在
	ErrNoteNotFound = errors.New("note not found")
	// ErrNoteNotSaved 操作需要已持久化的笔记
	ErrNoteNotSaved = errors.New("note has not been saved")
)

// PersistenceError 存储边界的读写失败
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError 包装底层存储错误，nil 原样返回
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsPersistenceError 判断错误链中是否包含 PersistenceError
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
