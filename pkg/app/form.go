package app

import (
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// ValidError single field validation error
// ValidError 单个字段的校验错误
type ValidError struct {
	Key     string
	Message string
}

// ValidErrors validation errors
// ValidErrors 校验错误集合
type ValidErrors []*ValidError

func (v *ValidError) Error() string {
	return v.Message
}

func (v ValidErrors) Error() string {
	return strings.Join(v.Errors(), ",")
}

func (v ValidErrors) Errors() []string {
	var errs []string
	for _, err := range v {
		errs = append(errs, err.Error())
	}
	return errs
}

// ErrorsToString joins messages for response details
// ErrorsToString 拼接错误消息，用于响应 details
func (v ValidErrors) ErrorsToString() string {
	return v.Error()
}

// MapsToString key: message pairs
// MapsToString 以 key: message 形式输出
func (v ValidErrors) MapsToString() string {
	parts := make([]string, 0, len(v))
	for _, err := range v {
		parts = append(parts, err.Key+": "+err.Message)
	}
	return strings.Join(parts, "; ")
}

// BindAndValid binds request params and validates them with translated messages
// BindAndValid 绑定请求参数并校验，错误消息按请求语言翻译
func BindAndValid(c *gin.Context, v interface{}) (bool, ValidErrors) {
	if err := c.ShouldBind(v); err != nil {
		return false, translate(c, err)
	}
	return true, nil
}

// BindJSONAndValid decodes a raw json payload and validates it, used by websocket messages
// BindJSONAndValid 解码 json 数据并校验，用于 websocket 消息
func BindJSONAndValid(c *gin.Context, data []byte, v interface{}) (bool, ValidErrors) {
	if err := sonic.Unmarshal(data, v); err != nil {
		return false, ValidErrors{{Key: "body", Message: "Invalid message format"}}
	}
	if err := binding.Validator.ValidateStruct(v); err != nil {
		return false, translate(c, err)
	}
	return true, nil
}

func translate(c *gin.Context, err error) ValidErrors {
	var errs ValidErrors

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return append(errs, &ValidError{Key: "params", Message: err.Error()})
	}

	var trans ut.Translator
	if c != nil {
		if v, exists := c.Get("trans"); exists {
			trans, _ = v.(ut.Translator)
		}
	}

	for _, fe := range verrs {
		msg := fe.Error()
		if trans != nil {
			msg = fe.Translate(trans)
		}
		errs = append(errs, &ValidError{Key: fe.Field(), Message: msg})
	}
	return errs
}
