package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/haierkeys/notely-service/pkg/app"
	"github.com/haierkeys/notely-service/pkg/limiter"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "middleware-test-secret"

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "uid=%d lang=%s trace=%s", app.GetUID(c), GetLangFromGin(c), GetTraceIDFromGin(c))
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUserAuthToken(t *testing.T) {
	r := newEngine(UserAuthTokenWithConfig(testSecret))

	w := do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Contains(t, w.Body.String(), `"code":401001`)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	assert.Contains(t, do(r, req).Body.String(), `"code":401002`)

	token, err := app.NewTokenManager(app.TokenConfig{SecretKey: testSecret}).Generate(42, "n", "127.0.0.1")
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "uid=42")

	// query 参数同样可用
	w = do(r, httptest.NewRequest(http.MethodGet, "/ping?token="+token, nil))
	assert.Contains(t, w.Body.String(), "uid=42")

	// 其他密钥签发的 Token 无效
	other, err := app.NewTokenManager(app.TokenConfig{SecretKey: "other"}).Generate(42, "n", "")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("token", other)
	assert.Contains(t, do(r, req).Body.String(), `"code":401002`)
}

func TestUserAuthToken_Expired(t *testing.T) {
	r := newEngine(UserAuthTokenWithConfig(testSecret))
	token, err := app.NewTokenManager(app.TokenConfig{SecretKey: testSecret, Expiry: -time.Minute}).Generate(1, "n", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", token)
	assert.Contains(t, do(r, req).Body.String(), `"code":401003`)
}

func TestLangWithTranslator(t *testing.T) {
	uni := ut.New(en.New(), en.New(), zh.New())
	r := newEngine(LangWithTranslator(uni))

	w := do(r, httptest.NewRequest(http.MethodGet, "/ping?lang=zh-CN", nil))
	assert.Contains(t, w.Body.String(), "lang=zh_cn")

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("lang", "en")
	assert.Contains(t, do(r, req).Body.String(), "lang=en")
}

func TestTraceMiddleware(t *testing.T) {
	r := newEngine(TraceMiddlewareWithConfig(true, ""))

	w := do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(DefaultTraceIDHeader)
	assert.NotEmpty(t, generated)
	assert.Contains(t, w.Body.String(), "trace="+generated)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(DefaultTraceIDHeader, "abc")
	w = do(r, req)
	assert.Equal(t, "abc", w.Header().Get(DefaultTraceIDHeader))

	off := newEngine(TraceMiddlewareWithConfig(false, ""))
	w = do(off, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Empty(t, w.Header().Get(DefaultTraceIDHeader))
}

func TestRecoveryWithLogger(t *testing.T) {
	r := newEngine(RecoveryWithLogger(zap.NewNop()))
	w := do(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "boom")
}

func TestRateLimiter(t *testing.T) {
	l := limiter.NewMethodLimiter().AddBuckets(limiter.BucketRule{
		Key:          "/ping",
		FillInterval: time.Hour,
		Capacity:     1,
		Quantum:      1,
	})
	r := newEngine(RateLimiter(l))

	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/ping", nil)).Code)
	w := do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestNoFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.NoRoute(NoFound())
	w := do(r, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":404`)
	assert.Contains(t, w.Body.String(), "GET /missing")
}
