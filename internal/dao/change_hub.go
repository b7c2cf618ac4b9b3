package dao

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// changeHub 按用户分发写入完成信号
// 每个订阅者持有容量为 1 的信号通道，连续变更合并为一次
type changeHub struct {
	mu   sync.Mutex
	subs map[int64]map[*subscriber]struct{}
}

type subscriber struct {
	signal chan struct{}
}

func newChangeHub() *changeHub {
	return &changeHub{subs: make(map[int64]map[*subscriber]struct{})}
}

func (h *changeHub) subscribe(uid int64) *subscriber {
	s := &subscriber{signal: make(chan struct{}, 1)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[uid] == nil {
		h.subs[uid] = make(map[*subscriber]struct{})
	}
	h.subs[uid][s] = struct{}{}
	return s
}

func (h *changeHub) unsubscribe(uid int64, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[uid], s)
	if len(h.subs[uid]) == 0 {
		delete(h.subs, uid)
	}
}

// publish 非阻塞通知，写入方不会被慢消费者拖住
func (h *changeHub) publish(uid int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[uid] {
		select {
		case s.signal <- struct{}{}:
		default:
		}
	}
}

// subscriberCount 当前用户订阅数
func (h *changeHub) subscriberCount(uid int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[uid])
}

// observe 订阅后立即执行一次查询并推送，后续每次写入后重新查询，结果变化才推送
// 首次查询失败直接返回错误；后续查询失败记录日志并等待下一次变更
// 未送达的值会被更新的查询结果替换，消费者总是拿到最新值
func observe[T any](ctx context.Context, d *Dao, uid int64, query func(context.Context) (T, error), equal func(a, b T) bool) (<-chan T, error) {
	sub := d.hub.subscribe(uid)

	first, err := query(ctx)
	if err != nil {
		d.hub.unsubscribe(uid, sub)
		return nil, err
	}

	out := make(chan T)
	go func() {
		defer close(out)
		defer d.hub.unsubscribe(uid, sub)

		last := first
		pending := true

		for {
			var send chan<- T
			if pending {
				send = out
			}

			select {
			case <-ctx.Done():
				return
			case send <- last:
				pending = false
			case <-sub.signal:
				v, err := query(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					d.logger.Warn("observe query failed", zap.Int64("uid", uid), zap.Error(err))
					continue
				}
				if pending || !equal(v, last) {
					last = v
					pending = true
				}
			}
		}
	}()

	return out, nil
}
