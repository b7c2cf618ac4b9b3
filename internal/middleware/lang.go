package middleware

import (
	"strings"

	"github.com/haierkeys/notely-service/pkg/code"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
)

// LangKey Context 中存储请求语言的键
const LangKey = "lang"

// LangWithTranslator 创建带翻译器的语言中间件（支持依赖注入）
// 语言来自 query 或 header 的 lang，未知语言回退为 en
func LangWithTranslator(uni *ut.UniversalTranslator) gin.HandlerFunc {

	return func(c *gin.Context) {

		var lang string

		if s, exist := c.GetQuery("lang"); exist {
			lang = s
		} else if s = c.GetHeader("lang"); len(s) != 0 {
			lang = s
		}

		lang = strings.ToLower(strings.ReplaceAll(lang, "-", "_"))

		trans, found := uni.GetTranslator(lang)
		if !found {
			trans, _ = uni.GetTranslator("en")
		}
		c.Set("trans", trans)

		if lang == "" {
			lang = code.GetGlobalDefaultLang()
		}
		c.Set(LangKey, lang)

		c.Next()
	}
}

// GetLangFromGin 获取请求语言，未设置时返回全局默认语言
func GetLangFromGin(c *gin.Context) string {
	if c != nil {
		if v, ok := c.Get(LangKey); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return code.GetGlobalDefaultLang()
}
