// Package writequeue serializes note writes per user
// Package writequeue 按用户串行化笔记写入
// SQLite allows a single writer, writes of one user are applied in FIFO order by a dedicated worker
// SQLite 只允许单写者，同一用户的写入由专属 worker 按 FIFO 顺序执行
package writequeue

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrWriteQueueFull returned when the user queue has no free slot
	// ErrWriteQueueFull 用户队列没有空位
	ErrWriteQueueFull = errors.New("write queue is full")
	// ErrWriteQueueClosed returned after Shutdown
	// ErrWriteQueueClosed 管理器已关闭
	ErrWriteQueueClosed = errors.New("write queue is closed")
	// ErrWriteTimeout returned when the caller stopped waiting, the write itself may still be applied
	// ErrWriteTimeout 调用方等待超时，写入本身仍可能被执行
	ErrWriteTimeout = errors.New("write operation timeout")
)

// Config write queue configuration
// Config 写队列配置
type Config struct {
	// QueueCapacity pending writes per user, default 100
	// QueueCapacity 每用户排队上限，默认 100
	QueueCapacity int
	// WriteTimeout how long Execute waits for a result, default 30s
	// WriteTimeout Execute 等待结果的时长，默认 30 秒
	WriteTimeout time.Duration
	// IdleTimeout worker exits after being idle this long, default 10m
	// IdleTimeout worker 空闲超过该时长后退出，默认 10 分钟
	IdleTimeout time.Duration
}

// DefaultConfig returns default configuration
// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 100,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   10 * time.Minute,
	}
}

type writeOp struct {
	ctx    context.Context
	fn     func() error
	result chan error
}

// userQueue one user's pending writes
// userQueue 单个用户的待执行写入
type userQueue struct {
	uid int64
	ch  chan writeOp
}

// Manager owns one lazily started worker per user
// Manager 为每个用户懒加载一个 worker
type Manager struct {
	config Config
	logger *zap.Logger

	mu     sync.Mutex
	queues map[int64]*userQueue
	closed bool
	wg     sync.WaitGroup
}

// New creates write queue manager, nil cfg uses DefaultConfig
// New 创建写队列管理器，cfg 为 nil 时使用默认配置
func New(cfg *Config, logger *zap.Logger) *Manager {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.QueueCapacity > 0 {
			c.QueueCapacity = cfg.QueueCapacity
		}
		if cfg.WriteTimeout > 0 {
			c.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.IdleTimeout > 0 {
			c.IdleTimeout = cfg.IdleTimeout
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		config: c,
		logger: logger,
		queues: make(map[int64]*userQueue),
	}
}

// Execute queues fn behind the user's earlier writes and waits for its result
// Execute 将 fn 排在该用户之前的写入之后，并等待执行结果
func (m *Manager) Execute(ctx context.Context, uid int64, fn func() error) error {
	op := writeOp{ctx: ctx, fn: fn, result: make(chan error, 1)}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrWriteQueueClosed
	}
	q := m.queues[uid]
	if q == nil {
		q = &userQueue{uid: uid, ch: make(chan writeOp, m.config.QueueCapacity)}
		m.queues[uid] = q
		m.wg.Add(1)
		go m.worker(q)
		m.logger.Debug("write queue created", zap.Int64("uid", uid))
	}
	// 持锁入队，worker 退出前同样持锁检查队列，不会丢失写入
	select {
	case q.ch <- op:
	default:
		m.mu.Unlock()
		return ErrWriteQueueFull
	}
	m.mu.Unlock()

	timeout := m.config.WriteTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-op.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrWriteTimeout
	}
}

// worker runs the user's writes in order and exits once idle
// worker 顺序执行该用户写入，空闲后退出
func (m *Manager) worker(q *userQueue) {
	defer m.wg.Done()

	idle := time.NewTimer(m.config.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case op, ok := <-q.ch:
			if !ok {
				return
			}
			m.run(op)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(m.config.IdleTimeout)
		case <-idle.C:
			m.mu.Lock()
			if len(q.ch) > 0 || m.closed {
				m.mu.Unlock()
				idle.Reset(m.config.IdleTimeout)
				continue
			}
			delete(m.queues, q.uid)
			m.mu.Unlock()
			m.logger.Debug("write queue idle, worker stopped", zap.Int64("uid", q.uid))
			return
		}
	}
}

func (m *Manager) run(op writeOp) {
	if err := op.ctx.Err(); err != nil {
		op.result <- err
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("write operation panic", zap.Any("panic", r))
			op.result <- errors.New("write operation panic")
		}
	}()
	op.result <- op.fn()
}

// Shutdown stops accepting writes, drains queued ones and waits for workers
// Shutdown 停止接收写入，执行完已排队的写入并等待 worker 退出
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for uid, q := range m.queues {
		close(q.ch)
		delete(m.queues, uid)
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("write queue manager shutdown completed")
		return nil
	case <-ctx.Done():
		m.logger.Warn("write queue manager shutdown timeout")
		return ctx.Err()
	}
}

// QueueCount returns number of live user workers
// QueueCount 当前存活的用户 worker 数
func (m *Manager) QueueCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues)
}

// QueuedCount returns writes waiting in the user's queue
// QueuedCount 用户队列中等待执行的写入数
func (m *Manager) QueuedCount(uid int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q := m.queues[uid]; q != nil {
		return len(q.ch)
	}
	return 0
}

// Metrics write queue snapshot
// Metrics 写队列快照
type Metrics struct {
	QueueCapacity int
	ActiveQueues  int
	IsClosed      bool
}

// GetMetrics gets current metrics
// GetMetrics 获取当前指标
func (m *Manager) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Metrics{
		QueueCapacity: m.config.QueueCapacity,
		ActiveQueues:  len(m.queues),
		IsClosed:      m.closed,
	}
}
