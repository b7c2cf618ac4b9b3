// Package limiter token bucket rate limiting keyed by request
// Package limiter 基于令牌桶的请求限流
package limiter

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
)

// Face limiter interface used by the rate limit middleware
// Face 限流中间件使用的接口
type Face interface {
	Key(c *gin.Context) string
	GetBucket(key string) (*ratelimit.Bucket, bool)
	AddBuckets(rules ...BucketRule) Face
}

// Limiter bucket storage
// Limiter 令牌桶存储
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*ratelimit.Bucket
}

// BucketRule one bucket definition
// BucketRule 令牌桶规则
type BucketRule struct {
	// Key 限流键，MethodLimiter 中为路由路径
	Key string
	// FillInterval 放入令牌的间隔
	FillInterval time.Duration
	// Capacity 桶容量
	Capacity int64
	// Quantum 每次放入的令牌数
	Quantum int64
}

func (l *Limiter) GetBucket(key string) (*ratelimit.Bucket, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	bucket, ok := l.buckets[key]
	return bucket, ok
}

func (l *Limiter) addBuckets(rules ...BucketRule) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rule := range rules {
		if _, ok := l.buckets[rule.Key]; ok {
			continue
		}
		l.buckets[rule.Key] = ratelimit.NewBucketWithQuantum(rule.FillInterval, rule.Capacity, rule.Quantum)
	}
}

// MethodLimiter limits per route path
// MethodLimiter 按路由路径限流
type MethodLimiter struct {
	*Limiter
}

// NewMethodLimiter creates route path limiter
// NewMethodLimiter 创建按路径限流器
func NewMethodLimiter() Face {
	return MethodLimiter{Limiter: &Limiter{buckets: make(map[string]*ratelimit.Bucket)}}
}

// Key route template, falls back to the raw path
// Key 路由模板，未匹配时使用原始路径
func (l MethodLimiter) Key(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

func (l MethodLimiter) AddBuckets(rules ...BucketRule) Face {
	l.addBuckets(rules...)
	return l
}

// UserLimiter limits per authenticated user, anonymous requests share the ip key
// UserLimiter 按登录用户限流，匿名请求按 ip
type UserLimiter struct {
	*Limiter
	rule BucketRule
	uid  func(c *gin.Context) int64
}

// NewUserLimiter creates per user limiter, every user gets a bucket built from rule
// NewUserLimiter 创建按用户限流器，每个用户按 rule 创建独立令牌桶
func NewUserLimiter(rule BucketRule, uid func(c *gin.Context) int64) Face {
	return UserLimiter{
		Limiter: &Limiter{buckets: make(map[string]*ratelimit.Bucket)},
		rule:    rule,
		uid:     uid,
	}
}

func (l UserLimiter) Key(c *gin.Context) string {
	var key string
	if id := l.uid(c); id > 0 {
		key = "uid:" + strconv.FormatInt(id, 10)
	} else {
		key = "ip:" + c.ClientIP()
	}
	// 懒加载当前用户的令牌桶
	if _, ok := l.GetBucket(key); !ok {
		r := l.rule
		r.Key = key
		l.addBuckets(r)
	}
	return key
}

func (l UserLimiter) AddBuckets(rules ...BucketRule) Face {
	l.addBuckets(rules...)
	return l
}
