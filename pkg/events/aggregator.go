// Package events 进程内事件聚合器：按事件类型维护有序订阅者列表。
package events

import (
	"context"
	"errors"
	"reflect"
	"sync"
)

// Handler 事件处理函数
type Handler[E any] func(ctx context.Context, ev E) error

// Subscription 一次订阅登记，按指针身份取消
type Subscription struct {
	typ reflect.Type
	fn  func(ctx context.Context, ev any) error
}

// Aggregator 事件聚合器，每个服务实例一个，通过依赖注入传递
type Aggregator struct {
	mu   sync.Mutex
	subs map[reflect.Type][]*Subscription
}

// New 创建聚合器
func New() *Aggregator {
	return &Aggregator{subs: make(map[reflect.Type][]*Subscription)}
}

func typeOf[E any]() reflect.Type {
	return reflect.TypeOf((*E)(nil)).Elem()
}

// Subscribe 为事件类型 E 追加一个订阅者
func Subscribe[E any](a *Aggregator, fn func(ctx context.Context, ev E) error) *Subscription {
	sub := &Subscription{
		typ: typeOf[E](),
		fn: func(ctx context.Context, ev any) error {
			return fn(ctx, ev.(E))
		},
	}
	a.mu.Lock()
	a.subs[sub.typ] = append(a.subs[sub.typ], sub)
	a.mu.Unlock()
	return sub
}

// Publish 按订阅顺序依次调用 ev 类型的所有订阅者，前一个返回后才调用下一个。
// 订阅者列表在锁内快照，调用在锁外进行；所有订阅者的错误合并后返回。
func (a *Aggregator) Publish(ctx context.Context, ev any) error {
	typ := reflect.TypeOf(ev)

	a.mu.Lock()
	snapshot := append([]*Subscription(nil), a.subs[typ]...)
	a.mu.Unlock()

	var errs []error
	for _, sub := range snapshot {
		if err := sub.fn(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unsubscribe 移除指定订阅，返回是否找到
func (a *Aggregator) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	list := a.subs[sub.typ]
	for i, s := range list {
		if s == sub {
			a.subs[sub.typ] = append(list[:i:i], list[i+1:]...)
			if len(a.subs[sub.typ]) == 0 {
				delete(a.subs, sub.typ)
			}
			return true
		}
	}
	return false
}

// Clear 移除事件类型 E 的全部订阅
func Clear[E any](a *Aggregator) {
	a.mu.Lock()
	delete(a.subs, typeOf[E]())
	a.mu.Unlock()
}

// Subscribers 事件类型 E 当前的订阅数
func Subscribers[E any](a *Aggregator) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.subs[typeOf[E]()])
}

// Close 移除所有订阅
func (a *Aggregator) Close() {
	a.mu.Lock()
	a.subs = make(map[reflect.Type][]*Subscription)
	a.mu.Unlock()
}
