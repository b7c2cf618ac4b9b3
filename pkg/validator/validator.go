// Package validator wires go-playground validator into gin binding
// Package validator 将 go-playground validator 接入 gin binding
package validator

import (
	"reflect"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// CustomValidator implements binding.StructValidator with lazy init
// CustomValidator 实现 binding.StructValidator，懒加载初始化
type CustomValidator struct {
	Once     sync.Once
	Validate *validator.Validate
}

var _ binding.StructValidator = (*CustomValidator)(nil)

// NewCustomValidator creates validator
// NewCustomValidator 创建验证器
func NewCustomValidator() *CustomValidator {
	return &CustomValidator{}
}

// ValidateStruct validates struct, pointer or slice values
// ValidateStruct 校验结构体，支持指针与切片
func (v *CustomValidator) ValidateStruct(obj interface{}) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	switch value.Kind() {
	case reflect.Ptr:
		if value.IsNil() {
			return nil
		}
		return v.ValidateStruct(value.Elem().Interface())
	case reflect.Struct:
		v.lazyinit()
		return v.Validate.Struct(obj)
	case reflect.Slice, reflect.Array:
		for i := 0; i < value.Len(); i++ {
			if err := v.ValidateStruct(value.Index(i).Interface()); err != nil {
				return err
			}
		}
	}
	return nil
}

// Engine returns the underlying validator
// Engine 返回底层验证器
func (v *CustomValidator) Engine() interface{} {
	v.lazyinit()
	return v.Validate
}

func (v *CustomValidator) lazyinit() {
	v.Once.Do(func() {
		v.Validate = validator.New()
		v.Validate.SetTagName("binding")
	})
}

// RegisterCustom registers project specific rules on the gin validator
// RegisterCustom 在 gin 验证器上注册项目自定义规则
//
//	note_color  0-9 之间的笔记颜色
//	future_ms   毫秒时间戳，0 或晚于当前时间
func RegisterCustom() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("note_color", func(fl validator.FieldLevel) bool {
		c := fl.Field().Int()
		return c >= 0 && c <= 9
	})
	_ = v.RegisterValidation("future_ms", func(fl validator.FieldLevel) bool {
		ms := fl.Field().Int()
		return ms == 0 || ms > time.Now().UnixMilli()
	})
}
