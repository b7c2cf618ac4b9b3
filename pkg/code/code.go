package code

import (
	"fmt"
	"net/http"
)

// Code 业务状态码，With* 方法返回副本，全局码保持不变
type Code struct {
	// 状态码
	code int
	// 是否成功
	status bool
	// 多语言消息
	Lang lang
	// HTTP 状态码，0 表示 200
	httpStatus int
	// 数据
	data     interface{}
	haveData bool
	// 错误详细信息
	details     []string
	haveDetails bool
}

var codes = map[int]string{}
var sussCodes = map[int]string{}

// NewError 注册错误码，重复注册直接 panic
func NewError(code int, l lang) *Code {
	if _, ok := codes[code]; ok {
		panic(fmt.Sprintf("错误码 %d 已经存在，请更换一个", code))
	}
	codes[code] = l.en
	return &Code{code: code, status: false, Lang: l}
}

// NewSuss 注册成功码
func NewSuss(code int, l lang) *Code {
	if _, ok := sussCodes[code]; ok {
		panic(fmt.Sprintf("成功码 %d 已经存在，请更换一个", code))
	}
	sussCodes[code] = l.en
	return &Code{code: code, status: true, Lang: l}
}

// Clone 创建一个新的 Code 副本
func (e *Code) Clone() *Code {
	c := *e
	if e.details != nil {
		c.details = append([]string(nil), e.details...)
	}
	return &c
}

func (e *Code) Error() string {
	return e.Msg()
}

func (e *Code) Code() int {
	return e.code
}

func (e *Code) Status() bool {
	return e.status
}

func (e *Code) Msg() string {
	return e.Lang.GetMessage()
}

// MsgIn 指定语言的消息
func (e *Code) MsgIn(language string) string {
	return e.Lang.GetMessageIn(language)
}

func (e *Code) Details() []string {
	return e.details
}

func (e *Code) Data() interface{} {
	return e.data
}

func (e *Code) HaveDetails() bool {
	return e.haveDetails
}

func (e *Code) HaveData() bool {
	return e.haveData
}

func (e *Code) WithData(data interface{}) *Code {
	c := e.Clone()
	c.haveData = true
	c.data = data
	return c
}

func (e *Code) WithDetails(details ...string) *Code {
	c := e.Clone()
	c.haveDetails = true
	c.details = append([]string{}, details...)
	return c
}

// WithHTTPStatus 覆盖响应的 HTTP 状态码
func (e *Code) WithHTTPStatus(status int) *Code {
	c := e.Clone()
	c.httpStatus = status
	return c
}

func (e *Code) StatusCode() int {
	if e.httpStatus != 0 {
		return e.httpStatus
	}
	return http.StatusOK
}
