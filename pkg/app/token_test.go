package app

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_GenerateAndParse(t *testing.T) {
	cfg := TokenConfig{
		SecretKey: "user-secret",
		Expiry:    24 * time.Hour,
		Issuer:    "user-issuer",
	}
	tm := NewTokenManager(cfg)

	uid := int64(1001)
	nickname := "testuser"
	ip := "127.0.0.1"

	// 1. 测试生成和解析
	token, err := tm.Generate(uid, nickname, ip)
	require.NoError(t, err)

	parsedUser, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uid, parsedUser.UID)
	assert.Equal(t, nickname, parsedUser.Nickname)
	assert.Equal(t, ip, parsedUser.IP)
	assert.Equal(t, cfg.Issuer, parsedUser.Issuer)

	// Bearer 前缀
	_, err = tm.Parse("Bearer " + token)
	assert.NoError(t, err)

	// 2. 测试过期
	shortExpiryCfg := cfg
	shortExpiryCfg.Expiry = -1 * time.Second
	expiredToken, err := NewTokenManager(shortExpiryCfg).Generate(uid, nickname, ip)
	require.NoError(t, err)
	_, err = tm.Parse(expiredToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// 3. 测试错误的密钥
	wrongKeyCfg := cfg
	wrongKeyCfg.SecretKey = "wrong-user-secret"
	wrongToken, _ := NewTokenManager(wrongKeyCfg).Generate(uid, nickname, ip)
	assert.Error(t, tm.Validate(wrongToken))

	// 4. 测试篡改后的 Token
	assert.Error(t, tm.Validate(token+"xyz"))
}

func TestTokenManager_RejectsZeroUID(t *testing.T) {
	tm := NewTokenManager(TokenConfig{SecretKey: "k"})
	token, err := tm.Generate(0, "nobody", "")
	require.NoError(t, err)

	_, err = tm.Parse(token)
	assert.Error(t, err)
}

func TestTokenManager_Defaults(t *testing.T) {
	tm := NewTokenManager(TokenConfig{SecretKey: "k"})
	assert.Equal(t, "k", tm.GetSecretKey())

	token, err := tm.Generate(1, "", "")
	require.NoError(t, err)
	user, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenIssuer, user.Issuer)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), user.ExpiresAt.Time, time.Minute)
}

func TestGetUID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Equal(t, int64(0), GetUID(c))
	SetUserToContext(c, &UserEntity{UID: 42})
	assert.Equal(t, int64(42), GetUID(c))
}
