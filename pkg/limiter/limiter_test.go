package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodLimiter_BucketPerPath(t *testing.T) {
	l := NewMethodLimiter().AddBuckets(BucketRule{
		Key:          "/api/notes",
		FillInterval: time.Hour,
		Capacity:     2,
		Quantum:      1,
	})

	bucket, ok := l.GetBucket("/api/notes")
	require.True(t, ok)
	assert.Equal(t, int64(1), bucket.TakeAvailable(1))
	assert.Equal(t, int64(1), bucket.TakeAvailable(1))
	assert.Equal(t, int64(0), bucket.TakeAvailable(1))

	_, ok = l.GetBucket("/api/session")
	assert.False(t, ok)
}

func TestUserLimiter_SeparateBuckets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	uid := int64(0)
	l := NewUserLimiter(BucketRule{FillInterval: time.Hour, Capacity: 1, Quantum: 1}, func(*gin.Context) int64 { return uid })

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	uid = 1
	k1 := l.Key(c)
	uid = 2
	k2 := l.Key(c)
	assert.NotEqual(t, k1, k2)

	b1, _ := l.GetBucket(k1)
	b2, _ := l.GetBucket(k2)
	assert.Equal(t, int64(1), b1.TakeAvailable(1))
	assert.Equal(t, int64(0), b1.TakeAvailable(1))
	assert.Equal(t, int64(1), b2.TakeAvailable(1))

	uid = 0
	assert.Contains(t, l.Key(c), "ip:")
}
